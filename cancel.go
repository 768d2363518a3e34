package kurir

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// CanceledError reports that a request was aborted through a CancelToken or
// its context. It unwraps to an *Error with code ERR_CANCELED, so both
// IsCancel and IsError hold for it.
type CanceledError struct {
	base *Error
}

// Cancel is kept as an alias of CanceledError.
type Cancel = CanceledError

// NewCanceledError builds a CanceledError. An empty message defaults to "canceled".
func NewCanceledError(message string, cfg *Config, req *http.Request) *CanceledError {
	if message == "" {
		message = "canceled"
	}
	return &CanceledError{base: &Error{
		Message:   message,
		Code:      CodeCanceled,
		Config:    cfg,
		Request:   req,
		Timestamp: time.Now(),
	}}
}

func (e *CanceledError) Error() string { return e.base.Error() }

// Unwrap exposes the underlying *Error.
func (e *CanceledError) Unwrap() error { return e.base }

// Message returns the cancellation reason given by the canceller.
func (e *CanceledError) Message() string { return e.base.Message }

// AsError returns the underlying *Error.
func (e *CanceledError) AsError() *Error { return e.base }

// withRequest returns a copy bound to the request that was aborted.
func (e *CanceledError) withRequest(cfg *Config, req *http.Request) *CanceledError {
	base := *e.base
	if base.Config == nil {
		base.Config = cfg
	}
	if base.Request == nil {
		base.Request = req
	}
	return &CanceledError{base: &base}
}

// IsCancel reports whether err is, or wraps, a CanceledError.
func IsCancel(err error) bool {
	var c *CanceledError
	return errors.As(err, &c)
}

// CancelFunc requests cancellation with an optional message. Only the first
// call has an effect.
type CancelFunc func(message string)

type cancelListener struct {
	id uint64
	fn func(*CanceledError)
}

// CancelToken signals cancellation to any number of requests. It is safe for
// concurrent use and cancels at most once.
type CancelToken struct {
	mu        sync.Mutex
	reason    *CanceledError
	done      chan struct{}
	listeners []cancelListener
	nextID    uint64
}

// NewCancelToken creates a token and hands its cancel function to executor.
// It panics if executor is nil.
func NewCancelToken(executor func(cancel CancelFunc)) *CancelToken {
	if executor == nil {
		panic("kurir: cancel token executor must not be nil")
	}
	t := &CancelToken{done: make(chan struct{})}
	executor(t.cancel)
	return t
}

// CancelTokenSource pairs a token with the function that cancels it.
type CancelTokenSource struct {
	Token  *CancelToken
	Cancel CancelFunc
}

// NewCancelTokenSource returns a fresh token and its cancel function.
func NewCancelTokenSource() *CancelTokenSource {
	var cancel CancelFunc
	token := NewCancelToken(func(c CancelFunc) { cancel = c })
	return &CancelTokenSource{Token: token, Cancel: cancel}
}

func (t *CancelToken) cancel(message string) {
	t.mu.Lock()
	if t.reason != nil {
		t.mu.Unlock()
		return
	}
	t.reason = NewCanceledError(message, nil, nil)
	listeners := t.listeners
	t.listeners = nil
	close(t.done)
	reason := t.reason
	t.mu.Unlock()

	for _, l := range listeners {
		l.fn(reason)
	}
}

// Done is closed once the token is canceled.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// Reason returns the cancellation reason, or nil while the token is live.
func (t *CancelToken) Reason() *CanceledError {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// ThrowIfRequested returns the cancellation reason once canceled.
func (t *CancelToken) ThrowIfRequested() error {
	if r := t.Reason(); r != nil {
		return r
	}
	return nil
}

// Subscribe registers fn to run on cancellation. If the token is already
// canceled fn runs immediately. The returned function removes fn.
func (t *CancelToken) Subscribe(fn func(*CanceledError)) (unsubscribe func()) {
	t.mu.Lock()
	if t.reason != nil {
		reason := t.reason
		t.mu.Unlock()
		fn(reason)
		return func() {}
	}
	t.nextID++
	id := t.nextID
	t.listeners = append(t.listeners, cancelListener{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, l := range t.listeners {
			if l.id == id {
				t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
				return
			}
		}
	}
}

func (t *CancelToken) listenerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners)
}

// Context derives a context from parent that is canceled together with the
// token. The context's cause is the token's *CanceledError. Callers must
// call the returned stop function to release the subscription.
func (t *CancelToken) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	unsubscribe := t.Subscribe(func(reason *CanceledError) { cancel(reason) })
	return ctx, func() {
		unsubscribe()
		cancel(context.Canceled)
	}
}

// joinCancellation binds the caller context and an optional token into one
// request context.
func joinCancellation(ctx context.Context, token *CancelToken) (context.Context, context.CancelFunc) {
	if token == nil {
		return context.WithCancel(ctx)
	}
	return token.Context(ctx)
}
