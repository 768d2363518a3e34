package kurir

import (
	"context"
	"errors"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Client sends requests built from its defaults merged with per-request
// configs, running them through its interceptor chains. It is safe for
// concurrent use.
type Client struct {
	mu       sync.RWMutex
	defaults *Config

	// Interceptors can be modified while requests are running; each request
	// uses the chains as they were when it started.
	Interceptors Interceptors

	logger         zerolog.Logger
	debug          *DebugConfig
	metrics        *MetricsCollector
	tracerProvider trace.TracerProvider
	propagator     propagation.TextMapPropagator
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker

	validationError error
}

// New constructs a Client from DefaultConfig and the provided options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	c := &Client{
		defaults:     DefaultConfig(),
		Interceptors: newInterceptors(),
		logger:       zerolog.Nop(),
		debug:        DefaultDebugConfig(),
	}
	return c.apply(options)
}

// Create returns a new Client whose defaults are the package defaults merged
// with cfg. The new client has its own, empty interceptor chains.
func Create(cfg *Config, options ...Option) *Client {
	return Default.Create(cfg, options...)
}

// Create returns a new Client whose defaults are c's defaults merged with cfg.
// Logging, metrics, tracing and guards are shared; interceptors are not.
func (c *Client) Create(cfg *Config, options ...Option) *Client {
	child := &Client{
		defaults:       MergeConfig(c.Defaults(), cfg),
		Interceptors:   newInterceptors(),
		logger:         c.logger,
		debug:          c.debug,
		metrics:        c.metrics,
		tracerProvider: c.tracerProvider,
		propagator:     c.propagator,
		rateLimiter:    c.rateLimiter,
		circuitBreaker: c.circuitBreaker,
	}
	return child.apply(options)
}

func (c *Client) apply(options []Option) *Client {
	for _, option := range options {
		option(c)
	}
	if err := c.ValidateConfiguration(); err != nil {
		if c.validationError != nil {
			err = multierror.Append(c.validationError, err)
		}
		c.validationError = err
	}
	return c
}

// IsValid reports whether the client was configured without errors.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration error found by New, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Defaults returns a copy of the client's default config.
func (c *Client) Defaults() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaults.Clone()
}

// SetDefaults lets fn modify the defaults in place. Requests already running
// are unaffected.
func (c *Client) SetDefaults(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.defaults)
}

// Request sends cfg merged over the client defaults. ctx aborts the request
// in the same way as cfg.CancelToken. Every returned error is an *Error or a
// *CanceledError.
func (c *Client) Request(ctx context.Context, cfg *Config) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.validationError != nil {
		return nil, ErrorFrom(c.validationError, CodeBadOptionValue, cfg, nil, nil)
	}

	merged := MergeConfig(c.Defaults(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	merged.Method = merged.method()
	merged.Headers = flattenMethodHeaders(merged.Method, merged.Headers, merged.MethodHeaders)
	merged.MethodHeaders = nil

	current, err := merged, error(nil)
	requestChain := c.Interceptors.Request.snapshot()
	for i := len(requestChain) - 1; i >= 0; i-- {
		h := requestChain[i]
		if h.RunWhen != nil && !h.RunWhen(merged) {
			continue
		}
		current, err = h.run(current, err)
	}
	if err == nil && current == nil {
		err = NewError("request interceptor returned no config", CodeBadOption, merged, nil, nil)
	}

	var resp *Response
	if err == nil {
		resp, err = c.dispatchRequest(ctx, current)
	}

	for _, h := range c.Interceptors.Response.snapshot() {
		resp, err = h.run(resp, err)
	}

	if current == nil {
		current = merged
	}
	if err != nil {
		return nil, normalizeError(err, current)
	}
	if resp == nil {
		return nil, NewError("response interceptor returned no response", CodeBadResponse, current, nil, nil)
	}
	return resp, nil
}

// normalizeError makes every failure an *Error with its config attached.
func normalizeError(err error, cfg *Config) error {
	if IsCancel(err) {
		return err
	}
	var e *Error
	if errors.As(err, &e) {
		if !isSentinel(e) {
			if e.Config == nil {
				e.Config = cfg
			}
			return err
		}
		return ErrorFrom(err, e.Code, cfg, nil, nil)
	}
	return ErrorFrom(err, "", cfg, nil, nil)
}

func requestConfig(cfgs []*Config) *Config {
	if len(cfgs) == 0 || cfgs[0] == nil {
		return &Config{}
	}
	return cfgs[0].Clone()
}

func (c *Client) withoutData(ctx context.Context, method, url string, cfgs []*Config) (*Response, error) {
	cfg := requestConfig(cfgs)
	cfg.Method = method
	cfg.URL = url
	return c.Request(ctx, cfg)
}

func (c *Client) withData(ctx context.Context, method, url string, data any, form bool, cfgs []*Config) (*Response, error) {
	cfg := requestConfig(cfgs)
	cfg.Method = method
	cfg.URL = url
	cfg.Data = data
	if form {
		if cfg.Headers == nil {
			cfg.Headers = make(Headers)
		}
		cfg.Headers.Set("Content-Type", "multipart/form-data")
	}
	return c.Request(ctx, cfg)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, url string, cfg ...*Config) (*Response, error) {
	return c.withoutData(ctx, "get", url, cfg)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, cfg ...*Config) (*Response, error) {
	return c.withoutData(ctx, "delete", url, cfg)
}

// Head sends a HEAD request.
func (c *Client) Head(ctx context.Context, url string, cfg ...*Config) (*Response, error) {
	return c.withoutData(ctx, "head", url, cfg)
}

// Options sends an OPTIONS request.
func (c *Client) Options(ctx context.Context, url string, cfg ...*Config) (*Response, error) {
	return c.withoutData(ctx, "options", url, cfg)
}

// Post sends a POST request with data as the body.
func (c *Client) Post(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return c.withData(ctx, "post", url, data, false, cfg)
}

// Put sends a PUT request with data as the body.
func (c *Client) Put(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return c.withData(ctx, "put", url, data, false, cfg)
}

// Patch sends a PATCH request with data as the body.
func (c *Client) Patch(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return c.withData(ctx, "patch", url, data, false, cfg)
}

// PostForm sends data as multipart/form-data.
func (c *Client) PostForm(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return c.withData(ctx, "post", url, data, true, cfg)
}

// PutForm sends data as multipart/form-data.
func (c *Client) PutForm(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return c.withData(ctx, "put", url, data, true, cfg)
}

// PatchForm sends data as multipart/form-data.
func (c *Client) PatchForm(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return c.withData(ctx, "patch", url, data, true, cfg)
}

// GetURI returns the URL cfg would be sent to, without sending it.
func (c *Client) GetURI(cfg *Config) (string, error) {
	return MergeConfig(c.Defaults(), cfg).FullURL()
}
