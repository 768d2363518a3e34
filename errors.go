package kurir

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode classifies a failed request. The values are stable strings so they
// can be logged, serialized and compared across versions.
type ErrorCode string

const (
	CodeBadOptionValue    ErrorCode = "ERR_BAD_OPTION_VALUE"
	CodeBadOption         ErrorCode = "ERR_BAD_OPTION"
	CodeConnAborted       ErrorCode = "ECONNABORTED"
	CodeTimedOut          ErrorCode = "ETIMEDOUT"
	CodeNetwork           ErrorCode = "ERR_NETWORK"
	CodeTooManyRedirects  ErrorCode = "ERR_FR_TOO_MANY_REDIRECTS"
	CodeDeprecated        ErrorCode = "ERR_DEPRECATED"
	CodeBadResponse       ErrorCode = "ERR_BAD_RESPONSE"
	CodeBadRequest        ErrorCode = "ERR_BAD_REQUEST"
	CodeCanceled          ErrorCode = "ERR_CANCELED"
	CodeNotSupport        ErrorCode = "ERR_NOT_SUPPORT"
	CodeInvalidURL        ErrorCode = "ERR_INVALID_URL"
	CodeRetryBudgetExceed ErrorCode = "ERR_RETRY_BUDGET_EXCEEDED"
	CodeCircuitOpen       ErrorCode = "ERR_CIRCUIT_OPEN"
)

// Sentinel errors for errors.Is checks against a failure class.
var (
	// ErrCanceled matches any cancellation.
	ErrCanceled = &Error{Code: CodeCanceled, Message: "canceled"}

	// ErrTimeout matches both ECONNABORTED and ETIMEDOUT failures.
	ErrTimeout = &Error{Code: CodeConnAborted, Message: "timeout exceeded"}

	// ErrNetwork matches transport level failures.
	ErrNetwork = &Error{Code: CodeNetwork, Message: "network error"}

	// ErrBadRequest matches 4xx status failures and rejected request bodies.
	ErrBadRequest = &Error{Code: CodeBadRequest, Message: "bad request"}

	// ErrBadResponse matches 5xx status failures and unreadable responses.
	ErrBadResponse = &Error{Code: CodeBadResponse, Message: "bad response"}

	// ErrNotSupported matches adapter resolution failures.
	ErrNotSupported = &Error{Code: CodeNotSupport, Message: "not supported"}

	// ErrRetryBudgetExceeded is returned when the shared retry budget is exhausted.
	ErrRetryBudgetExceeded = &Error{Code: CodeRetryBudgetExceed, Message: "retry budget exceeded"}

	// ErrCircuitOpen is returned while the circuit breaker rejects requests.
	ErrCircuitOpen = &Error{Code: CodeCircuitOpen, Message: "circuit breaker is open"}
)

// Error is the uniform failure shape returned by a Client. It carries the
// request descriptor that produced it and, when the server answered, the
// normalized response.
type Error struct {
	Message  string
	Code     ErrorCode
	Status   int
	Config   *Config
	Request  *http.Request
	Response *Response
	Cause    error

	Timestamp time.Time
}

// NewError builds an Error. The status is taken from resp when present.
func NewError(message string, code ErrorCode, cfg *Config, req *http.Request, resp *Response) *Error {
	e := &Error{
		Message:   message,
		Code:      code,
		Config:    cfg,
		Request:   req,
		Response:  resp,
		Timestamp: time.Now(),
	}
	if resp != nil {
		e.Status = resp.Status
	}
	return e
}

// ErrorFrom wraps an arbitrary error into an *Error. Existing *Error values are
// returned as-is with missing context filled in, so wrapping is idempotent.
func ErrorFrom(err error, code ErrorCode, cfg *Config, req *http.Request, resp *Response) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) && !isSentinel(existing) {
		if existing.Code == "" {
			existing.Code = code
		}
		if existing.Config == nil {
			existing.Config = cfg
		}
		if existing.Request == nil {
			existing.Request = req
		}
		if existing.Response == nil && resp != nil {
			existing.Response = resp
			existing.Status = resp.Status
		}
		return existing
	}

	e := NewError(err.Error(), code, cfg, req, resp)
	e.Cause = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error codes for errors.Is. A timeout target matches both
// timeout codes.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == CodeConnAborted && e.Code == CodeTimedOut {
		return true
	}
	return e.Code == t.Code
}

// ToJSON renders a serializable view of the error without the live request
// and response objects.
func (e *Error) ToJSON() map[string]any {
	out := map[string]any{
		"name":    "KurirError",
		"message": e.Message,
		"code":    string(e.Code),
	}
	if e.Status > 0 {
		out["status"] = e.Status
	}
	if e.Config != nil {
		out["config"] = map[string]any{
			"method":  strings.ToUpper(e.Config.Method),
			"url":     e.Config.URL,
			"baseURL": e.Config.BaseURL,
			"timeout": e.Config.Timeout.Milliseconds(),
		}
	}
	if e.Cause != nil {
		out["cause"] = e.Cause.Error()
	}
	return out
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *Error) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Code: %s\n", e.Code)
	fmt.Fprintf(&b, "Message: %s\n", e.Message)
	if e.Config != nil {
		fmt.Fprintf(&b, "Method: %s\n", strings.ToUpper(e.Config.Method))
		fmt.Fprintf(&b, "URL: %s\n", BuildFullPath(e.Config.BaseURL, e.Config.URL, e.Config.allowAbsoluteURLs()))
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, "Status Code: %d\n", e.Status)
	}
	if !e.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "Cause: %v\n", e.Cause)
	}
	return b.String()
}

// IsError reports whether err is, or wraps, an error produced by this package.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// IsTransient determines if an error represents a transient failure that might succeed on retry.
// Returns true for network errors, timeouts, 5xx server responses, and rate limiting (429).
func IsTransient(err error) bool {
	if err == nil || IsCancel(err) {
		return false
	}

	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Code {
	case CodeNetwork, CodeConnAborted, CodeTimedOut:
		return true
	case CodeBadResponse:
		return e.Status >= 500
	case CodeBadRequest:
		return e.Status == http.StatusTooManyRequests
	default:
		return false
	}
}

func isSentinel(e *Error) bool {
	switch e {
	case ErrCanceled, ErrTimeout, ErrNetwork, ErrBadRequest, ErrBadResponse, ErrNotSupported, ErrRetryBudgetExceeded, ErrCircuitOpen:
		return true
	}
	return false
}

// statusOf extracts the response status carried by err, or 0.
func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Response != nil {
		return e.Response.Status
	}
	return 0
}
