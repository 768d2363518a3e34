// Package backoff computes retry delays.
package backoff

import (
	"math/rand"
	"strings"
	"time"
)

// Params are the inputs every strategy shares.
type Params struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is the fraction of the delay added at random, clamped to [0, 1].
	Jitter float64
}

// Strategy returns the delay before retry number attempt (0-based).
type Strategy interface {
	Delay(attempt int, p Params) time.Duration
}

// Exponential grows the delay by Multiplier per attempt and adds uniform jitter.
type Exponential struct{}

func (Exponential) Delay(attempt int, p Params) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}

	d := time.Duration(float64(p.Initial) * Pow(p.Multiplier, attempt))
	if d < 0 || d > p.Max {
		d = p.Max
	}
	return addJitter(d, p)
}

// Decorrelated picks a random delay between Initial and Initial*3^attempt,
// capped at Max.
type Decorrelated struct{}

func (Decorrelated) Delay(attempt int, p Params) time.Duration {
	if attempt <= 0 {
		return p.Initial
	}
	if attempt > 10 {
		attempt = 10
	}

	base := float64(p.Initial)
	upper := base * Pow(3.0, attempt)
	if upper > float64(p.Max) || upper < 0 {
		upper = float64(p.Max)
	}
	if upper < base {
		upper = base
	}

	d := time.Duration(base + rand.Float64()*(upper-base))
	if d < 0 || d > p.Max {
		d = p.Max
	}
	return d
}

// Linear adds Initial per attempt.
type Linear struct{}

func (Linear) Delay(attempt int, p Params) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.Initial * time.Duration(attempt+1)
	if d < 0 || d > p.Max {
		d = p.Max
	}
	return addJitter(d, p)
}

// ForName resolves "exponential", "decorrelated" or "linear". The empty name
// selects Exponential.
func ForName(name string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "exponential":
		return Exponential{}, true
	case "decorrelated":
		return Decorrelated{}, true
	case "linear":
		return Linear{}, true
	}
	return nil, false
}

func addJitter(d time.Duration, p Params) time.Duration {
	jitter := clampJitter(p.Jitter)
	if jitter == 0 {
		return d
	}
	extra := time.Duration(float64(d) * jitter * rand.Float64())
	if d+extra > p.Max {
		return p.Max
	}
	return d + extra
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

// Pow calculates base^exponent using integer exponentiation.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
