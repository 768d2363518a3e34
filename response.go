package kurir

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// Response is the normalized result of a request.
type Response struct {
	// Data is the transformed body: decoded JSON, a string, []byte, or nil
	// for stream responses.
	Data any
	// Raw holds the undecoded body. It is nil for stream responses.
	Raw []byte
	// Body is set only for ResponseTypeStream and must be closed by the caller.
	Body io.ReadCloser

	Status     int
	StatusText string
	Headers    Headers
	Config     *Config
	Request    *http.Request
}

// StatusCode returns the status as an HTTPStatusCode.
func (r *Response) StatusCode() HTTPStatusCode {
	return HTTPStatusCode(r.Status)
}

// Text returns the raw body as a string.
func (r *Response) Text() string {
	return string(r.Raw)
}

// JSON evaluates a gjson path against the raw body.
func (r *Response) JSON(path string) gjson.Result {
	return gjson.GetBytes(r.Raw, path)
}

// Decode unmarshals the raw JSON body into v.
func (r *Response) Decode(v any) error {
	if r.Raw == nil {
		return errors.New("response has no buffered body")
	}
	return json.Unmarshal(r.Raw, v)
}

// Close releases a stream body. It is a no-op for buffered responses.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
