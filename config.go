package kurir

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ResponseType selects how a response body is decoded into Response.Data.
type ResponseType string

const (
	// ResponseTypeAuto decodes JSON when the body parses as JSON and keeps
	// the text otherwise.
	ResponseTypeAuto   ResponseType = ""
	ResponseTypeJSON   ResponseType = "json"
	ResponseTypeText   ResponseType = "text"
	ResponseTypeBytes  ResponseType = "bytes"
	ResponseTypeStream ResponseType = "stream"
)

// DefaultMaxRedirects applies when Config.MaxRedirects is nil.
const DefaultMaxRedirects = 21

// BasicAuth sends an Authorization: Basic header and overrides any
// Authorization header already set.
type BasicAuth struct {
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password"`
}

// Transitional toggles legacy behaviours.
type Transitional struct {
	// SilentJSONParsing swallows JSON parse errors when ResponseType is json.
	SilentJSONParsing bool `mapstructure:"silent_json_parsing"`
	// ForcedJSONParsing tries to parse JSON even when ResponseType is auto.
	ForcedJSONParsing bool `mapstructure:"forced_json_parsing"`
	// ClarifyTimeoutError reports timeouts as ETIMEDOUT instead of ECONNABORTED.
	ClarifyTimeoutError bool `mapstructure:"clarify_timeout_error"`
}

// DefaultTransitional returns the transitional options used by DefaultConfig.
func DefaultTransitional() *Transitional {
	return &Transitional{SilentJSONParsing: true, ForcedJSONParsing: true}
}

// ValidateStatusFunc decides whether a response status resolves or fails the request.
type ValidateStatusFunc func(status int) bool

// DefaultValidateStatus accepts 2xx responses.
func DefaultValidateStatus(status int) bool {
	return status >= 200 && status < 300
}

// AcceptAnyStatus accepts every response. Use it to disable status
// validation inherited from defaults.
func AcceptAnyStatus(int) bool { return true }

// Config describes a single request, or the defaults of a Client. Zero
// values mean "not set" and are filled from the defaults on merge.
type Config struct {
	URL               string
	Method            string
	BaseURL           string
	AllowAbsoluteURLs *bool

	Headers Headers
	// MethodHeaders holds defaults keyed by "common" or a lower-case method.
	MethodHeaders map[string]Headers

	Params           any
	ParamsSerializer *ParamsSerializer
	Data             any

	Timeout             time.Duration
	TimeoutErrorMessage string

	ResponseType     ResponseType
	ResponseEncoding string

	Auth           *BasicAuth
	ValidateStatus ValidateStatusFunc

	MaxRedirects     *int
	MaxContentLength int64
	MaxBodyLength    int64
	// MaxRate limits upload and download bandwidth in bytes per second.
	MaxRate    [2]float64
	Decompress *bool

	TransformRequest  []RequestTransformer
	TransformResponse []ResponseTransformer

	// Adapter lists adapter names or Adapter values; the first usable one wins.
	Adapter []any

	CancelToken  *CancelToken
	Transitional *Transitional

	OnUploadProgress   func(ProgressEvent)
	OnDownloadProgress func(ProgressEvent)

	Retry          *RetryConfig
	FormSerializer *FormSerializerOptions
}

var methodHeaderKeys = []string{"common", "delete", "get", "head", "options", "post", "put", "patch", "query"}

// DefaultConfig returns the built-in defaults every Client starts from.
func DefaultConfig() *Config {
	methodHeaders := make(map[string]Headers, len(methodHeaderKeys))
	for _, k := range methodHeaderKeys {
		methodHeaders[k] = make(Headers)
	}
	methodHeaders["common"].Set("Accept", "application/json, text/plain, */*")

	return &Config{
		Headers:           make(Headers),
		MethodHeaders:     methodHeaders,
		MaxContentLength:  -1,
		MaxBodyLength:     -1,
		ValidateStatus:    DefaultValidateStatus,
		TransformRequest:  []RequestTransformer{DefaultTransformRequest},
		TransformResponse: []ResponseTransformer{DefaultTransformResponse},
		Adapter:           []any{"http"},
		Transitional:      DefaultTransitional(),
	}
}

// Clone returns a copy whose headers and slices can be mutated independently.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.Headers != nil {
		out.Headers = c.Headers.Clone()
	}
	if c.MethodHeaders != nil {
		out.MethodHeaders = make(map[string]Headers, len(c.MethodHeaders))
		for k, h := range c.MethodHeaders {
			out.MethodHeaders[k] = h.Clone()
		}
	}
	out.TransformRequest = append([]RequestTransformer(nil), c.TransformRequest...)
	out.TransformResponse = append([]ResponseTransformer(nil), c.TransformResponse...)
	out.Adapter = append([]any(nil), c.Adapter...)
	if c.Transitional != nil {
		t := *c.Transitional
		out.Transitional = &t
	}
	out.Retry = c.Retry.clone()
	return &out
}

func (c *Config) allowAbsoluteURLs() bool {
	return c.AllowAbsoluteURLs == nil || *c.AllowAbsoluteURLs
}

func (c *Config) maxRedirects() int {
	if c.MaxRedirects == nil {
		return DefaultMaxRedirects
	}
	return *c.MaxRedirects
}

func (c *Config) decompress() bool {
	return c.Decompress == nil || *c.Decompress
}

func (c *Config) transitional() Transitional {
	if c.Transitional == nil {
		return *DefaultTransitional()
	}
	return *c.Transitional
}

func (c *Config) method() string {
	if c.Method == "" {
		return "get"
	}
	return strings.ToLower(c.Method)
}

// FullURL resolves BaseURL, URL and Params into the URL the request is sent to.
func (c *Config) FullURL() (string, error) {
	return BuildURL(BuildFullPath(c.BaseURL, c.URL, c.allowAbsoluteURLs()), c.Params, c.ParamsSerializer)
}

// Validate checks option values. Unknown method header groups fail with
// ERR_BAD_OPTION; invalid values are collected into one ERR_BAD_OPTION_VALUE.
func (c *Config) Validate() error {
	for key := range c.MethodHeaders {
		if !isMethodHeaderKey(key) {
			return NewError(fmt.Sprintf("Unknown option %s", key), CodeBadOption, c, nil, nil)
		}
	}

	var result *multierror.Error
	if c.Method != "" && !isToken(c.Method) {
		result = multierror.Append(result, fmt.Errorf("method %q is not a valid HTTP token", c.Method))
	}
	if c.Timeout < 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must be non-negative, got %s", c.Timeout))
	}
	if c.MaxRedirects != nil && *c.MaxRedirects < 0 {
		result = multierror.Append(result, fmt.Errorf("maxRedirects must be non-negative, got %d", *c.MaxRedirects))
	}
	if c.MaxContentLength < -1 {
		result = multierror.Append(result, fmt.Errorf("maxContentLength must be -1 or greater, got %d", c.MaxContentLength))
	}
	if c.MaxBodyLength < -1 {
		result = multierror.Append(result, fmt.Errorf("maxBodyLength must be -1 or greater, got %d", c.MaxBodyLength))
	}
	if c.MaxRate[0] < 0 || c.MaxRate[1] < 0 {
		result = multierror.Append(result, fmt.Errorf("maxRate must be non-negative, got %v", c.MaxRate))
	}
	switch c.ResponseType {
	case ResponseTypeAuto, ResponseTypeJSON, ResponseTypeText, ResponseTypeBytes, ResponseTypeStream:
	default:
		result = multierror.Append(result, fmt.Errorf("responseType %q is not supported", c.ResponseType))
	}
	switch strings.ToLower(c.ResponseEncoding) {
	case "", "utf8", "utf-8", "latin1", "binary":
	default:
		result = multierror.Append(result, fmt.Errorf("responseEncoding %q is not supported", c.ResponseEncoding))
	}
	if c.Retry != nil && c.Retry.Policy == nil {
		if err := validateStruct(c.Retry.withDefaults()); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		e := NewError(err.Error(), CodeBadOptionValue, c, nil, nil)
		e.Cause = err
		return e
	}
	return nil
}

func isMethodHeaderKey(key string) bool {
	for _, k := range methodHeaderKeys {
		if k == key {
			return true
		}
	}
	return false
}

func isToken(s string) bool {
	for _, r := range s {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune(`()<>@,;:\"/[]?={}`, r) {
			return false
		}
	}
	return s != ""
}
