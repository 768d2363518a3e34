// Package kurir is a context-driven HTTP client engine:
//
//   - Config merging of per-request options over client defaults
//   - Request and response interceptor chains with promise-style error recovery
//   - Pluggable transport adapters, with a net/http adapter built in
//   - Cancellation through context.Context or a shared CancelToken
//   - A uniform *Error for every failure, classified by ErrorCode
//   - Optional retries, rate limiting and circuit breaking around the adapter
//   - Prometheus metrics, OpenTelemetry spans and zerolog debug logging
//
// Typical usage:
//
//	client := kurir.New(
//	    kurir.WithBaseURL("https://api.example.com"),
//	    kurir.WithTimeout(5*time.Second),
//	    kurir.WithMaxRetries(3),
//	)
//	client.Interceptors.Request.Use(func(cfg *kurir.Config) (*kurir.Config, error) {
//	    cfg.Headers.SetAuthorization("Bearer " + token)
//	    return cfg, nil
//	}, nil)
//	resp, err := client.Get(ctx, "/users", &kurir.Config{Params: map[string]any{"page": 2}})
//	if kurir.IsCancel(err) { ... }
//	name := resp.JSON("0.name").String()
//
// Responses outside 2xx fail with ERR_BAD_REQUEST or ERR_BAD_RESPONSE; set
// Config.ValidateStatus to change that. JSON bodies are decoded into
// Response.Data automatically while Response.Raw keeps the original bytes.
package kurir
