package kurir

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// dispatchRequest sends a request whose interceptors already ran. It applies
// the request transforms, resolves the adapter, retries per cfg.Retry and
// transforms the outcome.
func (c *Client) dispatchRequest(ctx context.Context, cfg *Config) (*Response, error) {
	ctx, stop := joinCancellation(ctx, cfg.CancelToken)
	keep := false
	defer func() {
		if !keep {
			stop()
		}
	}()

	if err := throwIfCancellationRequested(ctx, cfg); err != nil {
		return nil, err
	}

	if cfg.Headers == nil {
		cfg.Headers = make(Headers)
	}
	data := cfg.Data
	for _, transform := range cfg.TransformRequest {
		var err error
		if data, err = transform(cfg, data, cfg.Headers); err != nil {
			return nil, err
		}
	}
	cfg.Data = data

	// A FormData body brings its own multipart boundary.
	if _, isForm := cfg.Data.(*FormData); !isForm {
		switch cfg.method() {
		case "post", "put", "patch":
			cfg.Headers.SetIfAbsent("Content-Type", "application/x-www-form-urlencoded")
		}
	}

	adapter, err := GetAdapter(cfg.Adapter...)
	if err != nil {
		return nil, ErrorFrom(err, CodeNotSupport, cfg, nil, nil)
	}

	method := strings.ToUpper(cfg.method())
	endpoint := HostKey(cfg)
	log := c.logger.With().
		Str("request_id", c.newRequestID()).
		Str("method", method).
		Str("endpoint", endpoint).
		Logger()

	ctx, span := c.startSpan(ctx, cfg, endpoint)
	start := time.Now()
	c.metrics.RecordRequestStart(method, endpoint)
	if c.debugEnabled(logsRequests) {
		log.Debug().Str("url", cfg.URL).Msg("dispatching request")
	}

	resp, attempts, err := c.sendWithRetry(ctx, adapter, cfg, method, endpoint, log)
	if err == nil && resp == nil {
		err = NewError("adapter returned no response", CodeBadResponse, cfg, nil, nil)
	}

	if err == nil {
		err = throwIfCancellationRequested(ctx, cfg)
		if err != nil {
			resp.Close()
			resp = nil
		}
	} else if !IsCancel(err) {
		if cerr := throwIfCancellationRequested(ctx, cfg); cerr != nil {
			err = cerr
		}
	}

	if err == nil {
		resp.Data, err = transformResponse(cfg, resp)
		if err != nil {
			resp.Close()
			err = ErrorFrom(err, CodeBadResponse, cfg, resp.Request, resp)
			resp = nil
		}
	} else if !IsCancel(err) {
		var e *Error
		if errors.As(err, &e) && e.Response != nil {
			if transformed, terr := transformResponse(cfg, e.Response); terr == nil {
				e.Response.Data = transformed
			} else {
				err = terr
			}
		}
	}

	duration := time.Since(start)
	c.metrics.RecordRequestEnd(method, endpoint)
	status := statusOf(err)
	if resp != nil {
		status = resp.Status
	}
	c.metrics.RecordRequest(method, endpoint, status, duration)
	endSpan(span, resp, attempts, err)

	switch {
	case err == nil:
		if c.debugEnabled(logsRequests) {
			log.Debug().Int("status", resp.Status).Dur("duration", duration).Int("attempts", attempts).Msg("request completed")
		}
	case IsCancel(err):
		c.metrics.RecordCancellation(method, endpoint)
		if c.debugEnabled(logsCancellation) {
			log.Debug().Str("reason", err.Error()).Dur("duration", duration).Msg("request canceled")
		}
	default:
		var e *Error
		code := ErrorCode("")
		if errors.As(err, &e) {
			code = e.Code
		}
		c.metrics.RecordError(code, method, endpoint)
		if c.debugEnabled(logsErrors) {
			log.Debug().Err(err).Str("code", string(code)).Int("status", status).Dur("duration", duration).Msg("request failed")
		}
	}

	if resp != nil && resp.Body != nil {
		keep = true
		resp.Body = &streamBody{Reader: resp.Body, closer: resp.Body, release: stop}
	}
	return resp, err
}

func transformResponse(cfg *Config, resp *Response) (any, error) {
	if resp.Headers == nil {
		resp.Headers = make(Headers)
	}
	data := resp.Data
	for _, transform := range cfg.TransformResponse {
		var err error
		if data, err = transform(cfg, data, resp.Headers, resp.Status); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// sendWithRetry calls the adapter until the retry policy gives up. It reports
// how many attempts were made.
func (c *Client) sendWithRetry(ctx context.Context, adapter Adapter, cfg *Config, method, endpoint string, log zerolog.Logger) (*Response, int, error) {
	var (
		policy RetryPolicy
		budget *RetryBudget
	)
	if cfg.Retry != nil {
		policy = cfg.Retry.policy()
		budget = cfg.Retry.Budget
	}
	rewind, canReplay := replayable(cfg.Data)

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			c.metrics.RecordRetry(method, endpoint, attempt)
		}

		resp, err := c.attempt(ctx, adapter, cfg)
		if err == nil || policy == nil || !canReplay {
			return resp, attempt + 1, err
		}

		var failed *Response
		var e *Error
		if errors.As(err, &e) {
			failed = e.Response
		}
		delay, retry := policy.ShouldRetry(cfg, failed, err, attempt)
		if !retry {
			return resp, attempt + 1, err
		}

		if budget != nil && !budget.Allow() {
			c.metrics.RecordRetryBudgetExceeded(endpoint)
			if c.debugEnabled(logsRetries) {
				log.Warn().Int("attempt", attempt+1).Msg("retry budget exceeded")
			}
			be := NewError("retry budget exceeded", CodeRetryBudgetExceed, cfg, nil, failed)
			if e != nil {
				be.Request = e.Request
			}
			be.Cause = err
			return nil, attempt + 1, be
		}

		if c.debugEnabled(logsRetries) {
			log.Debug().Err(err).Int("attempt", attempt+1).Dur("backoff", delay).Msg("scheduling retry")
		}
		if werr := sleepContext(ctx, delay); werr != nil {
			if cerr := throwIfCancellationRequested(ctx, cfg); cerr != nil {
				return nil, attempt + 1, cerr
			}
			return nil, attempt + 1, err
		}
		if rerr := rewind(); rerr != nil {
			return nil, attempt + 1, err
		}
	}
}

// attempt makes a single adapter call guarded by the rate limiter and the
// circuit breaker.
func (c *Client) attempt(ctx context.Context, adapter Adapter, cfg *Config) (*Response, error) {
	if cb := c.circuitBreaker; cb != nil && !cb.Allow() {
		return nil, NewError("circuit breaker is open", CodeCircuitOpen, cfg, nil, nil)
	}
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, cfg); err != nil {
			if cerr := throwIfCancellationRequested(ctx, cfg); cerr != nil {
				return nil, cerr
			}
			return nil, ErrorFrom(err, CodeConnAborted, cfg, nil, nil)
		}
	}

	resp, err := adapter.Adapt(ctx, cfg)
	if cb := c.circuitBreaker; cb != nil && !IsCancel(err) {
		cb.Record(err)
		c.metrics.RecordCircuitBreakerState(cb.Name(), cb.State())
	}
	return resp, err
}

// replayable reports whether the body can be sent again and how to rewind it.
func replayable(data any) (rewind func() error, ok bool) {
	switch v := data.(type) {
	case *FormData:
		var rewinds []func() error
		for _, e := range v.entries {
			if e.File == nil || e.File.Data != nil || e.File.Reader == nil {
				continue
			}
			r, ok := replayable(e.File.Reader)
			if !ok {
				return nil, false
			}
			rewinds = append(rewinds, r)
		}
		return func() error {
			for _, r := range rewinds {
				if err := r(); err != nil {
					return err
				}
			}
			return nil
		}, true
	case io.ReadSeeker:
		offset, err := v.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, false
		}
		return func() error {
			_, err := v.Seek(offset, io.SeekStart)
			return err
		}, true
	case io.Reader:
		return nil, false
	}
	return func() error { return nil }, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// throwIfCancellationRequested returns the cancellation error for a request
// whose token fired or whose context ended.
func throwIfCancellationRequested(ctx context.Context, cfg *Config) error {
	if cfg.CancelToken != nil {
		if reason := cfg.CancelToken.Reason(); reason != nil {
			return reason.withRequest(cfg, nil)
		}
	}
	if ctx.Err() == nil {
		return nil
	}

	cause := context.Cause(ctx)
	var canceled *CanceledError
	if errors.As(cause, &canceled) {
		return canceled.withRequest(cfg, nil)
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		code := CodeConnAborted
		if cfg.transitional().ClarifyTimeoutError {
			code = CodeTimedOut
		}
		e := NewError("context deadline exceeded", code, cfg, nil, nil)
		e.Cause = cause
		return e
	}
	ce := NewCanceledError("", cfg, nil)
	ce.base.Cause = cause
	return ce
}
