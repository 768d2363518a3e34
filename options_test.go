package kurir

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWithBaseURLAndTimeout(t *testing.T) {
	client := New(WithBaseURL("https://api.example.com"), WithTimeout(5*time.Second))

	d := client.Defaults()
	if d.BaseURL != "https://api.example.com" {
		t.Errorf("Expected base URL to be set, got %q", d.BaseURL)
	}
	if d.Timeout != 5*time.Second {
		t.Errorf("Expected timeout=5s, got %v", d.Timeout)
	}
}

func TestWithHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("Expected X-Api-Key=secret, got %q", got)
		}
	}))
	defer server.Close()

	client := New(WithHeader("x-api-key", "secret"))
	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
}

func TestWithDefaults(t *testing.T) {
	client := New(WithDefaults(&Config{ResponseType: ResponseTypeText, Headers: NewHeaders().Set("X-Team", "core")}))

	d := client.Defaults()
	if d.ResponseType != ResponseTypeText {
		t.Errorf("Expected response type text, got %q", d.ResponseType)
	}
	if d.Headers.Get("X-Team") != "core" {
		t.Errorf("Expected X-Team header, got %q", d.Headers.Get("X-Team"))
	}
	if d.MethodHeaders["common"].Get("Accept") == "" {
		t.Error("Expected built-in defaults to survive WithDefaults")
	}
}

func TestWithAdapter(t *testing.T) {
	called := false
	adapter := AdapterFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
		called = true
		return &Response{Status: 200, Data: "stub", Config: cfg, Headers: NewHeaders()}, nil
	})

	client := New(WithAdapter(adapter))
	resp, err := client.Get(context.Background(), "http://example.invalid")
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if !called {
		t.Error("Expected the custom adapter to be used")
	}
	if resp.Data != "stub" {
		t.Errorf("Expected stub data, got %v", resp.Data)
	}
}

func TestWithHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	hc := server.Client()
	client := New(WithHTTPClient(hc))
	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if _, ok := client.Defaults().Adapter[0].(*HTTPAdapter); !ok {
		t.Errorf("Expected an *HTTPAdapter, got %T", client.Defaults().Adapter[0])
	}
}

func TestWithValidateStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(WithValidateStatus(func(status int) bool { return status < 500 }))
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected 404 to resolve, got %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Status)
	}
}

func TestWithMaxRetries(t *testing.T) {
	client := New(WithMaxRetries(5))
	rc := client.Defaults().Retry
	if rc == nil {
		t.Fatal("Expected retry config to be created")
	}
	if rc.MaxRetries != 5 {
		t.Errorf("Expected MaxRetries=5, got %d", rc.MaxRetries)
	}
	if rc.InitialBackoff != 100*time.Millisecond {
		t.Errorf("Expected default initial backoff, got %v", rc.InitialBackoff)
	}
}

func TestRetryOptionsDoNotWriteThrough(t *testing.T) {
	rc := DefaultRetryConfig()
	parent := New(WithRetry(rc), WithMaxRetries(4))
	if rc.MaxRetries != 3 {
		t.Errorf("Expected caller's config to stay at 3, got %d", rc.MaxRetries)
	}

	child := parent.Create(nil, WithMaxRetries(9), WithRetryBudget(1, time.Minute))
	if got := parent.Defaults().Retry.MaxRetries; got != 4 {
		t.Errorf("Expected parent MaxRetries 4, got %d", got)
	}
	if parent.Defaults().Retry.Budget != nil {
		t.Error("Expected the child's budget not to leak into the parent")
	}
	if got := child.Defaults().Retry.MaxRetries; got != 9 {
		t.Errorf("Expected child MaxRetries 9, got %d", got)
	}

	defaults := parent.Defaults()
	defaults.Retry.MaxRetries = 1
	if got := parent.Defaults().Retry.MaxRetries; got != 4 {
		t.Errorf("Expected Defaults to return a copy, got %d", got)
	}
}

func TestWithRetryBudget(t *testing.T) {
	client := New(WithRetryBudget(10, time.Minute))
	if client.Defaults().Retry.Budget == nil {
		t.Error("Expected a retry budget")
	}
}

func TestWithRateLimitAndCircuitBreaker(t *testing.T) {
	client := New(
		WithRateLimit(10, 5),
		WithCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3}),
	)
	if client.rateLimiter == nil {
		t.Error("Expected a rate limiter")
	}
	if client.circuitBreaker == nil {
		t.Error("Expected a circuit breaker")
	}
	if !client.IsValid() {
		t.Errorf("Expected a valid client, got %v", client.ValidationError())
	}
}

func TestWithDebugRequiresRequestID(t *testing.T) {
	client := New(WithDebugConfig(&DebugConfig{Enabled: true}))
	if client.IsValid() {
		t.Fatal("Expected debug without a request ID generator to be invalid")
	}
	if !strings.Contains(client.ValidationError().Error(), "RequestIDGen") {
		t.Errorf("Unexpected validation error: %v", client.ValidationError())
	}
}

func TestWithRequestIDGenerator(t *testing.T) {
	var buf bytes.Buffer
	client := New(
		WithLogger(zerolog.New(&buf)),
		WithDebug(),
		WithRequestIDGenerator(func() string { return "req-42" }),
		WithAdapter(AdapterFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
			return &Response{Status: 204, Config: cfg, Headers: NewHeaders()}, nil
		})),
	)

	if _, err := client.Get(context.Background(), "http://example.invalid"); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("Expected custom request id in logs, got %s", buf.String())
	}
}

func TestInvalidOptionsFailRequests(t *testing.T) {
	client := New(
		WithTimeout(-time.Second),
		WithCircuitBreaker(CircuitBreakerConfig{FailureThreshold: -1}),
	)
	if client.IsValid() {
		t.Fatal("Expected client to be invalid")
	}

	_, err := client.Get(context.Background(), "http://example.invalid")
	if !errors.Is(err, &Error{Code: CodeBadOptionValue}) {
		t.Fatalf("Expected ERR_BAD_OPTION_VALUE, got %v", err)
	}
	msg := client.ValidationError().Error()
	if !strings.Contains(msg, "timeout") || !strings.Contains(msg, "failure_threshold") {
		t.Errorf("Expected both problems to be reported, got %v", msg)
	}
}

func TestWithRateLimiterWithoutLimitsIsInvalid(t *testing.T) {
	client := New(WithRateLimiter(NewRateLimiter(0, 0)))
	if client.IsValid() {
		t.Error("Expected a rate limiter without limits to be rejected")
	}
}

func TestWithSimpleLogger(t *testing.T) {
	client := New(WithSimpleLogger())
	if !client.debug.Enabled {
		t.Error("Expected debug to be enabled")
	}
	if !client.IsValid() {
		t.Errorf("Expected a valid client, got %v", client.ValidationError())
	}
}
