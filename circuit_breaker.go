package kurir

import (
	"sync/atomic"
	"time"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int64

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreakerConfig holds circuit breaker configuration. Zero fields take
// the defaults of NewCircuitBreaker.
type CircuitBreakerConfig struct {
	Name             string        `mapstructure:"name"`
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"gte=0"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout" validate:"gte=0"`
	SuccessThreshold int           `mapstructure:"success_threshold" validate:"gte=0"`
	// IsFailure decides which outcomes count against the breaker. The
	// default counts transient errors.
	IsFailure func(err error) bool `mapstructure:"-" validate:"-"`
}

// CircuitBreaker fails requests fast after repeated transient failures and
// lets a trial request through once RecoveryTimeout has elapsed.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	state       atomic.Int64
	failures    atomic.Int64
	successes   atomic.Int64
	lastFailure atomic.Int64

	now func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.Name == "" {
		config.Name = "default"
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 2
	}
	if config.IsFailure == nil {
		config.IsFailure = IsTransient
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Name returns the label used for metrics.
func (cb *CircuitBreaker) Name() string { return cb.config.Name }

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(cb.state.Load())
}

// Allow checks if the request should be allowed through the circuit breaker.
func (cb *CircuitBreaker) Allow() bool {
	switch cb.State() {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if cb.now().UnixNano()-cb.lastFailure.Load() >= int64(cb.config.RecoveryTimeout) {
			if cb.state.CompareAndSwap(int64(StateOpen), int64(StateHalfOpen)) {
				cb.successes.Store(0)
			}
			return true
		}
	}
	return false
}

// Record classifies the outcome of one attempt.
func (cb *CircuitBreaker) Record(err error) {
	if err != nil && cb.config.IsFailure(err) {
		cb.RecordFailure()
		return
	}
	cb.RecordSuccess()
}

// RecordFailure records a failure in the circuit breaker.
func (cb *CircuitBreaker) RecordFailure() {
	cb.lastFailure.Store(cb.now().UnixNano())

	switch cb.State() {
	case StateClosed:
		if cb.failures.Add(1) >= int64(cb.config.FailureThreshold) {
			cb.state.Store(int64(StateOpen))
		}
	case StateHalfOpen:
		cb.failures.Add(1)
		cb.successes.Store(0)
		cb.state.Store(int64(StateOpen))
	}
}

// RecordSuccess records a success in the circuit breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	switch cb.State() {
	case StateClosed:
		cb.failures.Store(0)
	case StateHalfOpen:
		if cb.successes.Add(1) >= int64(cb.config.SuccessThreshold) {
			cb.failures.Store(0)
			cb.successes.Store(0)
			cb.state.Store(int64(StateClosed))
		}
	}
}
