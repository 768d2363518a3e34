package kurir

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type unavailableAdapter struct{}

func (unavailableAdapter) Adapt(context.Context, *Config) (*Response, error) { return nil, nil }
func (unavailableAdapter) Available() bool                                { return false }

func TestGetAdapterByName(t *testing.T) {
	a, err := GetAdapter("HTTP")
	if err != nil {
		t.Fatalf("GetAdapter() returned error: %v", err)
	}
	if _, ok := a.(*HTTPAdapter); !ok {
		t.Errorf("Expected *HTTPAdapter, got %T", a)
	}
}

func TestGetAdapterFallsThrough(t *testing.T) {
	a, err := GetAdapter("xhr", "fetch", "http")
	if err != nil {
		t.Fatalf("GetAdapter() returned error: %v", err)
	}
	if _, ok := a.(*HTTPAdapter); !ok {
		t.Errorf("Expected the first usable adapter, got %T", a)
	}
}

func TestGetAdapterValues(t *testing.T) {
	fn := func(ctx context.Context, cfg *Config) (*Response, error) { return nil, nil }
	if a, err := GetAdapter(fn); err != nil || a == nil {
		t.Errorf("Expected a function adapter, got %v %v", a, err)
	}
	if a, err := GetAdapter(AdapterFunc(fn)); err != nil || a == nil {
		t.Errorf("Expected an AdapterFunc, got %v %v", a, err)
	}
}

func TestGetAdapterErrors(t *testing.T) {
	tests := []struct {
		name       string
		candidates []any
		want       string
	}{
		{"none", nil, "There is no suitable adapter to dispatch the request as no adapter specified"},
		{"unknown", []any{"carrier-pigeon"}, "Unknown adapter 'carrier-pigeon'"},
		{"unsupported", []any{"xhr"}, "There is no suitable adapter to dispatch the request - adapter xhr is not supported by the environment"},
		{"unavailable value", []any{unavailableAdapter{}}, "- adapter #0 is not supported by the environment"},
		{"nil value", []any{nil}, "- adapter #0 is not available in the build"},
		{"several", []any{"xhr", "fetch"}, "since :\n- adapter xhr is not supported by the environment\n- adapter fetch is not supported by the environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetAdapter(tt.candidates...)
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("Expected *Error, got %v", err)
			}
			if e.Code != CodeNotSupport {
				t.Errorf("Expected ERR_NOT_SUPPORT, got %s", e.Code)
			}
			if !strings.Contains(e.Message, tt.want) {
				t.Errorf("Expected message containing %q, got %q", tt.want, e.Message)
			}
		})
	}
}

func TestRegisterAdapter(t *testing.T) {
	RegisterAdapter("Mock-Test", AdapterFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
		return &Response{Status: 200, Data: "mocked", Config: cfg}, nil
	}))
	t.Cleanup(func() {
		adaptersMu.Lock()
		delete(adapters, "mock-test")
		adaptersMu.Unlock()
	})

	names := AdapterNames()
	found := false
	for _, n := range names {
		found = found || n == "mock-test"
	}
	if !found {
		t.Fatalf("Expected mock-test in %v", names)
	}

	resp, err := New(WithAdapter("mock-test")).Get(context.Background(), "http://example.invalid")
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if resp.Data != "mocked" {
		t.Errorf("Expected mocked data, got %v", resp.Data)
	}
}

func TestClientUnknownAdapter(t *testing.T) {
	_, err := New(WithAdapter("nope")).Get(context.Background(), "http://example.invalid")
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("Expected ErrNotSupported, got %v", err)
	}
}

func TestClientNilAdapterResponse(t *testing.T) {
	client := New(WithAdapter(func(ctx context.Context, cfg *Config) (*Response, error) { return nil, nil }))
	_, err := client.Get(context.Background(), "http://example.invalid")
	if !errors.Is(err, ErrBadResponse) {
		t.Errorf("Expected ErrBadResponse for a missing response, got %v", err)
	}
}
