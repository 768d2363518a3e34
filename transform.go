package kurir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// RequestTransformer rewrites the request body before it is sent. It may
// also adjust headers.
type RequestTransformer func(cfg *Config, data any, headers Headers) (any, error)

// ResponseTransformer rewrites the decoded response body. status is 0 when
// the transform runs on a request that never got a response.
type ResponseTransformer func(cfg *Config, data any, headers Headers, status int) (any, error)

const (
	contentTypeJSON       = "application/json"
	contentTypeURLEncoded = "application/x-www-form-urlencoded"
	contentTypeMultipart  = "multipart/form-data"
)

func isJSONContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

// DefaultTransformRequest serializes Data according to its type and the
// Content-Type header.
//
//   - nil, []byte, io.Reader and *FormData bodies are passed through, except
//     that a FormData is sent as JSON when the Content-Type asks for it.
//   - url.Values are url encoded.
//   - strings are sent verbatim; with a JSON Content-Type a string that is
//     not already JSON is quoted.
//   - maps, slices and structs are url encoded or multipart encoded when the
//     Content-Type asks for it and sent as JSON otherwise.
func DefaultTransformRequest(cfg *Config, data any, headers Headers) (any, error) {
	contentType := headers.ContentType()
	wantsJSON := isJSONContentType(contentType)

	switch v := data.(type) {
	case nil:
		return nil, nil
	case *FormData:
		if wantsJSON {
			return marshalJSON(FormToJSON(v))
		}
		return v, nil
	case []byte, io.Reader:
		return v, nil
	case url.Values:
		headers.SetContentType(contentTypeURLEncoded + ";charset=utf-8")
		return v.Encode(), nil
	case string:
		if wantsJSON {
			return stringifySafely(v)
		}
		return v, nil
	}

	lowerCT := strings.ToLower(contentType)
	switch {
	case strings.Contains(lowerCT, contentTypeURLEncoded):
		return ToURLEncodedForm(data, formOptions(cfg))
	case strings.Contains(lowerCT, contentTypeMultipart):
		headers.Delete("Content-Type")
		return ToFormData(data, nil, formOptions(cfg))
	}

	headers.SetIfAbsent("Content-Type", contentTypeJSON)
	return marshalJSON(data)
}

func formOptions(cfg *Config) *FormSerializerOptions {
	if cfg != nil && cfg.FormSerializer != nil {
		return cfg.FormSerializer
	}
	return DefaultFormSerializerOptions()
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// stringifySafely keeps strings that are already JSON and quotes the rest.
func stringifySafely(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	return marshalJSON(s)
}

// DefaultTransformResponse decodes JSON bodies. With ResponseTypeAuto and
// forced parsing a failed parse keeps the raw text; with ResponseTypeJSON and
// silent parsing disabled it fails with ERR_BAD_RESPONSE.
func DefaultTransformResponse(cfg *Config, data any, headers Headers, status int) (any, error) {
	t := cfg.transitional()
	rt := cfg.ResponseType

	if rt == ResponseTypeStream || rt == ResponseTypeBytes {
		return data, nil
	}

	var text string
	switch v := data.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return data, nil
	}
	if text == "" || rt == ResponseTypeText {
		return data, nil
	}

	forced := t.ForcedJSONParsing && rt == ResponseTypeAuto
	if !forced && rt != ResponseTypeJSON {
		return data, nil
	}

	strict := !t.SilentJSONParsing && rt == ResponseTypeJSON
	parsed, err := decodeJSON([]byte(text))
	if err != nil {
		if strict {
			e := NewError(err.Error(), CodeBadResponse, cfg, nil, nil)
			e.Cause = err
			e.Status = status
			return nil, e
		}
		return data, nil
	}
	return parsed, nil
}

func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid character after top-level value at offset %d", dec.InputOffset())
	}
	return out, nil
}

// decodeLatin1 maps ISO-8859-1 bytes to their Unicode code points.
func decodeLatin1(b []byte) string {
	if isASCII(b) {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
