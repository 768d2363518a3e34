package kurir

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ambiyansyah-risyal/kurir/internal/backoff"
)

// RetryPolicy decides whether a failed attempt is retried and after how long.
// resp is the response of the failed attempt when the server answered.
type RetryPolicy interface {
	ShouldRetry(cfg *Config, resp *Response, err error, attempt int) (time.Duration, bool)
}

// RetryPolicyFunc adapts a function to RetryPolicy.
type RetryPolicyFunc func(cfg *Config, resp *Response, err error, attempt int) (time.Duration, bool)

func (f RetryPolicyFunc) ShouldRetry(cfg *Config, resp *Response, err error, attempt int) (time.Duration, bool) {
	return f(cfg, resp, err, attempt)
}

// RetryConfig enables retries for a request or a client.
type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0,lte=100"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" validate:"gt=0"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" validate:"gtefield=InitialBackoff"`
	Multiplier     float64       `mapstructure:"multiplier" validate:"gt=0"`
	Jitter         float64       `mapstructure:"jitter" validate:"gte=0,lte=1"`
	// Strategy is "exponential" (default), "decorrelated" or "linear".
	Strategy string `mapstructure:"strategy" validate:"omitempty,oneof=exponential decorrelated linear"`
	// RetryNonIdempotent allows retrying POST and PATCH.
	RetryNonIdempotent bool `mapstructure:"retry_non_idempotent"`

	// Policy replaces the default policy built from the fields above.
	Policy RetryPolicy `mapstructure:"-" validate:"-"`
	// Budget caps retries across every request sharing it.
	Budget *RetryBudget `mapstructure:"-" validate:"-"`
}

// DefaultRetryConfig returns three exponential retries starting at 100ms.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
		Strategy:       "exponential",
	}
}

// clone copies rc. Policy and Budget stay shared: a budget caps every
// request that uses it.
func (rc *RetryConfig) clone() *RetryConfig {
	if rc == nil {
		return nil
	}
	out := *rc
	return &out
}

// withDefaults returns a copy of rc whose unset backoff fields come from
// DefaultRetryConfig. MaxRetries and Jitter are taken as given.
func (rc *RetryConfig) withDefaults() *RetryConfig {
	out := rc.clone()
	d := DefaultRetryConfig()
	if out.InitialBackoff == 0 {
		out.InitialBackoff = d.InitialBackoff
	}
	if out.MaxBackoff == 0 {
		out.MaxBackoff = max(d.MaxBackoff, out.InitialBackoff)
	}
	if out.Multiplier == 0 {
		out.Multiplier = d.Multiplier
	}
	if out.Strategy == "" {
		out.Strategy = d.Strategy
	}
	return out
}

func (rc *RetryConfig) policy() RetryPolicy {
	if rc.Policy != nil {
		return rc.Policy
	}
	return NewDefaultRetryPolicy(*rc.withDefaults())
}

// DefaultRetryPolicy retries network failures, timeouts, 429 and 5xx
// responses of idempotent requests, honouring Retry-After.
type DefaultRetryPolicy struct {
	maxRetries    int
	params        backoff.Params
	strategy      backoff.Strategy
	isIdempotent  func(method string) bool
	anyMethodSafe bool
}

// NewDefaultRetryPolicy creates a retry policy from rc.
func NewDefaultRetryPolicy(rc RetryConfig) *DefaultRetryPolicy {
	strategy, ok := backoff.ForName(rc.Strategy)
	if !ok {
		strategy = backoff.Exponential{}
	}
	return &DefaultRetryPolicy{
		maxRetries: rc.MaxRetries,
		params: backoff.Params{
			Initial:    rc.InitialBackoff,
			Max:        rc.MaxBackoff,
			Multiplier: rc.Multiplier,
			Jitter:     rc.Jitter,
		},
		strategy:      strategy,
		isIdempotent:  DefaultIsIdempotent,
		anyMethodSafe: rc.RetryNonIdempotent,
	}
}

// ShouldRetry implements the RetryPolicy interface.
func (p *DefaultRetryPolicy) ShouldRetry(cfg *Config, resp *Response, err error, attempt int) (time.Duration, bool) {
	if attempt >= p.maxRetries || err == nil || IsCancel(err) {
		return 0, false
	}
	if !p.anyMethodSafe && !p.isIdempotent(strings.ToUpper(cfg.method())) {
		return 0, false
	}

	var delay time.Duration
	if resp != nil {
		if resp.Status != http.StatusTooManyRequests && resp.Status < 500 {
			return 0, false
		}
		delay = parseRetryAfter(resp.Headers.Get("Retry-After"))
	} else if !IsTransient(err) {
		return 0, false
	}

	if delay == 0 {
		delay = p.strategy.Delay(attempt, p.params)
	}
	return delay, true
}

// DefaultIsIdempotent returns true for idempotent HTTP methods.
func DefaultIsIdempotent(method string) bool {
	switch method {
	case "GET", "HEAD", "PUT", "DELETE", "OPTIONS":
		return true
	default:
		return false
	}
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds format and HTTP-date format.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			delay := time.Duration(seconds) * time.Second
			if delay > time.Hour {
				delay = time.Hour
			}
			return delay
		}
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}

// RetryBudget caps the number of retries allowed per time window. It is safe
// for concurrent use and meant to be shared between requests.
type RetryBudget struct {
	maxRetries  int64
	perWindow   time.Duration
	current     int64
	windowStart int64
}

// NewRetryBudget creates a new retry budget tracker.
func NewRetryBudget(maxRetries int, perWindow time.Duration) *RetryBudget {
	return &RetryBudget{
		maxRetries:  int64(maxRetries),
		perWindow:   perWindow,
		windowStart: time.Now().UnixNano(),
	}
}

// Allow checks if a retry is allowed under the current budget.
func (rb *RetryBudget) Allow() bool {
	now := time.Now().UnixNano()
	windowStart := atomic.LoadInt64(&rb.windowStart)

	if now-windowStart >= int64(rb.perWindow) {
		if atomic.CompareAndSwapInt64(&rb.windowStart, windowStart, now) {
			atomic.StoreInt64(&rb.current, 0)
		}
	}

	if atomic.LoadInt64(&rb.current) >= rb.maxRetries {
		return false
	}
	return atomic.AddInt64(&rb.current, 1) <= rb.maxRetries
}

// GetStats returns current retry budget statistics.
func (rb *RetryBudget) GetStats() (current, max int64, windowStart time.Time) {
	return atomic.LoadInt64(&rb.current),
		rb.maxRetries,
		time.Unix(0, atomic.LoadInt64(&rb.windowStart))
}
