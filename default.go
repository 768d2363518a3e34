package kurir

import "context"

// Default is the package-level client used by the request functions below.
var Default = New()

// Request sends cfg with the Default client.
func Request(ctx context.Context, cfg *Config) (*Response, error) {
	return Default.Request(ctx, cfg)
}

// Get sends a GET request with the Default client.
func Get(ctx context.Context, url string, cfg ...*Config) (*Response, error) {
	return Default.Get(ctx, url, cfg...)
}

// Delete sends a DELETE request with the Default client.
func Delete(ctx context.Context, url string, cfg ...*Config) (*Response, error) {
	return Default.Delete(ctx, url, cfg...)
}

// Head sends a HEAD request with the Default client.
func Head(ctx context.Context, url string, cfg ...*Config) (*Response, error) {
	return Default.Head(ctx, url, cfg...)
}

// Options sends an OPTIONS request with the Default client.
func Options(ctx context.Context, url string, cfg ...*Config) (*Response, error) {
	return Default.Options(ctx, url, cfg...)
}

// Post sends a POST request with the Default client.
func Post(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return Default.Post(ctx, url, data, cfg...)
}

// Put sends a PUT request with the Default client.
func Put(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return Default.Put(ctx, url, data, cfg...)
}

// Patch sends a PATCH request with the Default client.
func Patch(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return Default.Patch(ctx, url, data, cfg...)
}

// PostForm sends a multipart POST request with the Default client.
func PostForm(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return Default.PostForm(ctx, url, data, cfg...)
}

// PutForm sends a multipart PUT request with the Default client.
func PutForm(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return Default.PutForm(ctx, url, data, cfg...)
}

// PatchForm sends a multipart PATCH request with the Default client.
func PatchForm(ctx context.Context, url string, data any, cfg ...*Config) (*Response, error) {
	return Default.PatchForm(ctx, url, data, cfg...)
}
