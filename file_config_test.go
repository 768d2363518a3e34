package kurir

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeConfigFile(t, "kurir.yaml", `
base_url: https://api.example.com
timeout: 3s
headers:
  X-Team: core
max_redirects: 2
response_type: json
retry:
  max_retries: 4
circuit_breaker:
  failure_threshold: 3
  recovery_timeout: 10s
  success_threshold: 1
rate_limit:
  requests_per_second: 5
  burst: 2
`)

	fc, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if fc.BaseURL != "https://api.example.com" {
		t.Errorf("Expected base URL, got %q", fc.BaseURL)
	}
	if fc.Timeout != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %v", fc.Timeout)
	}
	if fc.MaxContentLength != -1 || fc.MaxBodyLength != -1 {
		t.Errorf("Expected unlimited lengths by default, got %d/%d", fc.MaxContentLength, fc.MaxBodyLength)
	}
	if fc.Retry == nil || fc.Retry.MaxRetries != 4 {
		t.Fatalf("Expected retry max 4, got %+v", fc.Retry)
	}
	if fc.Retry.InitialBackoff != DefaultRetryConfig().InitialBackoff {
		t.Errorf("Expected retry defaults to fill missing fields, got %v", fc.Retry.InitialBackoff)
	}
	if fc.CircuitBreaker == nil || fc.CircuitBreaker.FailureThreshold != 3 {
		t.Errorf("Expected circuit breaker threshold 3, got %+v", fc.CircuitBreaker)
	}

	cfg := fc.ToConfig()
	if cfg.Headers.Get("x-team") != "core" {
		t.Errorf("Expected header X-Team, got %v", cfg.Headers)
	}
	if cfg.MaxRedirects == nil || *cfg.MaxRedirects != 2 {
		t.Errorf("Expected max redirects 2, got %v", cfg.MaxRedirects)
	}
	if cfg.ResponseType != ResponseTypeJSON {
		t.Errorf("Expected json response type, got %q", cfg.ResponseType)
	}
	if len(fc.Options()) != 3 {
		t.Errorf("Expected defaults, circuit breaker and rate limit options, got %d", len(fc.Options()))
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	path := writeConfigFile(t, "kurir.yaml", "base_url: https://file.example.com\n")
	t.Setenv("KURIR_BASE_URL", "https://env.example.com")
	t.Setenv("KURIR_TIMEOUT", "750ms")

	fc, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if fc.BaseURL != "https://env.example.com" {
		t.Errorf("Expected environment to win, got %q", fc.BaseURL)
	}
	if fc.Timeout != 750*time.Millisecond {
		t.Errorf("Expected 750ms timeout, got %v", fc.Timeout)
	}
}

func TestLoadConfigEnvironmentOnly(t *testing.T) {
	t.Setenv("KURIR_BASE_URL", "https://env.example.com")

	fc, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if fc.BaseURL != "https://env.example.com" {
		t.Errorf("Expected base URL from environment, got %q", fc.BaseURL)
	}
	if fc.Retry != nil {
		t.Errorf("Expected no retry config, got %+v", fc.Retry)
	}
}

func TestLoadConfigEnvironmentNestedKeys(t *testing.T) {
	t.Setenv("KURIR_RETRY_MAX_RETRIES", "5")
	t.Setenv("KURIR_MAX_REDIRECTS", "3")
	t.Setenv("KURIR_DECOMPRESS", "false")
	t.Setenv("KURIR_AUTH_USERNAME", "ada")
	t.Setenv("KURIR_CIRCUIT_BREAKER_FAILURE_THRESHOLD", "7")
	t.Setenv("KURIR_RATE_LIMIT_REQUESTS_PER_SECOND", "2.5")

	fc, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if fc.Retry == nil || fc.Retry.MaxRetries != 5 {
		t.Fatalf("Expected retry max 5 from the environment, got %+v", fc.Retry)
	}
	if fc.Retry.Multiplier != DefaultRetryConfig().Multiplier {
		t.Errorf("Expected retry defaults for unset fields, got multiplier %v", fc.Retry.Multiplier)
	}
	if fc.MaxRedirects == nil || *fc.MaxRedirects != 3 {
		t.Errorf("Expected max redirects 3, got %v", fc.MaxRedirects)
	}
	if fc.Decompress == nil || *fc.Decompress {
		t.Errorf("Expected decompress false, got %v", fc.Decompress)
	}
	if fc.Auth == nil || fc.Auth.Username != "ada" {
		t.Errorf("Expected auth username ada, got %+v", fc.Auth)
	}
	if fc.CircuitBreaker == nil || fc.CircuitBreaker.FailureThreshold != 7 {
		t.Errorf("Expected failure threshold 7, got %+v", fc.CircuitBreaker)
	}
	if fc.RateLimit == nil || fc.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("Expected 2.5 requests per second, got %+v", fc.RateLimit)
	}
}

func TestConfigKeys(t *testing.T) {
	keys := configKeys(reflect.TypeOf((*FileConfig)(nil)).Elem(), "")
	want := []string{"base_url", "retry.max_retries", "retry.retry_non_idempotent", "circuit_breaker.recovery_timeout", "transitional.clarify_timeout_error", "adapter"}
	for _, k := range want {
		if !slices.Contains(keys, k) {
			t.Errorf("Expected key %q in %v", k, keys)
		}
	}
	for _, k := range []string{"headers", "retry.policy", "retry.budget", "circuit_breaker.isfailure"} {
		if slices.Contains(keys, k) {
			t.Errorf("Expected key %q to be skipped", k)
		}
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}

	path := writeConfigFile(t, "bad.yaml", "base_url: not a url\nmax_body_length: -5\n")
	_, err := LoadConfig(path)
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if e.Code != CodeBadOptionValue {
		t.Errorf("Expected ERR_BAD_OPTION_VALUE, got %s", e.Code)
	}
}

func TestFileConfigOptionsApply(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Team") != "core" {
			t.Errorf("Expected X-Team header, got %q", r.Header.Get("X-Team"))
		}
		if r.URL.Path != "/v1/ping" {
			t.Errorf("Expected /v1/ping, got %s", r.URL.Path)
		}
	})

	fc := &FileConfig{
		BaseURL:          server.URL + "/v1",
		Headers:          map[string]string{"X-Team": "core"},
		MaxContentLength: -1,
		MaxBodyLength:    -1,
	}
	if err := fc.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}

	client := New(fc.Options()...)
	if _, err := client.Get(context.Background(), "/ping"); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
}
