package kurir

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Client.
type Option func(*Client)

// WithDefaults merges cfg over the client's current defaults.
func WithDefaults(cfg *Config) Option {
	return func(c *Client) {
		c.defaults = MergeConfig(c.defaults, cfg)
	}
}

// WithBaseURL sets the default base URL
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.defaults.BaseURL = baseURL
	}
}

// WithTimeout sets the default request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.defaults.Timeout = d
	}
}

// WithHeader sets a default header sent with every request
func WithHeader(name, value string) Option {
	return func(c *Client) {
		if c.defaults.Headers == nil {
			c.defaults.Headers = make(Headers)
		}
		c.defaults.Headers.Set(name, value)
	}
}

// WithAdapter replaces the default adapter list
func WithAdapter(adapters ...any) Option {
	return func(c *Client) {
		c.defaults.Adapter = adapters
	}
}

// WithHTTPClient sends requests through a custom net/http client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.defaults.Adapter = []any{NewHTTPAdapter(client)}
	}
}

// WithValidateStatus sets the default status validator
func WithValidateStatus(fn ValidateStatusFunc) Option {
	return func(c *Client) {
		c.defaults.ValidateStatus = fn
	}
}

// WithRetry enables retries for every request. rc is copied.
func WithRetry(rc *RetryConfig) Option {
	return func(c *Client) {
		c.defaults.Retry = rc.clone()
	}
}

// WithMaxRetries enables default retries with n attempts
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		writableRetry(c).MaxRetries = n
	}
}

// WithRetryPolicy sets a custom retry policy
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		writableRetry(c).Policy = policy
	}
}

// WithRetryBudget caps retries across all requests of the client
func WithRetryBudget(maxRetries int, perWindow time.Duration) Option {
	return func(c *Client) {
		writableRetry(c).Budget = NewRetryBudget(maxRetries, perWindow)
	}
}

// writableRetry gives c a private copy of its retry config and returns it.
func writableRetry(c *Client) *RetryConfig {
	if c.defaults.Retry == nil {
		c.defaults.Retry = DefaultRetryConfig()
	} else {
		c.defaults.Retry = c.defaults.Retry.clone()
	}
	return c.defaults.Retry
}

// WithRateLimit paces requests per host
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(requestsPerSecond, burst)
	}
}

// WithRateLimiter sets a preconfigured rate limiter
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = rl
	}
}

// WithCircuitBreaker sets the circuit breaker configuration
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		if err := validateStruct(config); err != nil {
			c.validationError = multierror.Append(c.validationError, err)
			return
		}
		c.circuitBreaker = NewCircuitBreaker(config)
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracerProvider = tp
	}
}

// WithPropagator sets the propagator used to inject trace headers.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *Client) {
		c.propagator = p
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets the logger for debug output
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging to stderr in console format
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewConsoleLogger(os.Stderr, zerolog.DebugLevel)
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration checks the defaults and the option combinations.
func (c *Client) ValidateConfiguration() error {
	var result *multierror.Error

	if err := c.defaults.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen == nil {
		result = multierror.Append(result, fmt.Errorf("debug RequestIDGen must be set when debug is enabled"))
	}
	if c.rateLimiter != nil && c.rateLimiter.fallback == nil && len(c.rateLimiter.limiters) == 0 {
		result = multierror.Append(result, fmt.Errorf("rate limiter has no limits configured"))
	}

	return result.ErrorOrNil()
}
