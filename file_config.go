package kurir

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig,
// e.g. KURIR_BASE_URL or KURIR_RETRY_MAX_RETRIES.
const EnvPrefix = "KURIR"

// FileConfig is the file and environment representation of client defaults.
type FileConfig struct {
	BaseURL             string            `mapstructure:"base_url" validate:"omitempty,url"`
	AllowAbsoluteURLs   *bool             `mapstructure:"allow_absolute_urls"`
	Timeout             time.Duration     `mapstructure:"timeout" validate:"gte=0"`
	TimeoutErrorMessage string            `mapstructure:"timeout_error_message"`
	Headers             map[string]string `mapstructure:"headers"`

	ResponseType     string `mapstructure:"response_type" validate:"omitempty,oneof=json text bytes stream"`
	ResponseEncoding string `mapstructure:"response_encoding" validate:"omitempty,oneof=utf8 utf-8 latin1 binary"`

	MaxRedirects     *int    `mapstructure:"max_redirects" validate:"omitempty,gte=0"`
	MaxContentLength int64   `mapstructure:"max_content_length" validate:"gte=-1"`
	MaxBodyLength    int64   `mapstructure:"max_body_length" validate:"gte=-1"`
	MaxUploadRate    float64 `mapstructure:"max_upload_rate" validate:"gte=0"`
	MaxDownloadRate  float64 `mapstructure:"max_download_rate" validate:"gte=0"`
	Decompress       *bool   `mapstructure:"decompress"`

	Adapter      []string      `mapstructure:"adapter"`
	Auth         *BasicAuth    `mapstructure:"auth"`
	Transitional *Transitional `mapstructure:"transitional"`
	Retry        *RetryConfig  `mapstructure:"retry"`

	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	RateLimit      *RateLimitConfig      `mapstructure:"rate_limit"`
}

// RateLimitConfig configures the per-host request rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

var fileConfigDefaults = map[string]any{
	"base_url":              "",
	"timeout":               "0s",
	"timeout_error_message": "",
	"response_type":         "",
	"response_encoding":     "",
	"max_content_length":    -1,
	"max_body_length":       -1,
	"max_upload_rate":       0,
	"max_download_rate":     0,
}

// LoadConfig reads client defaults from a YAML, JSON or TOML file and from
// KURIR_* environment variables, which take precedence. An empty path reads
// the environment only.
func LoadConfig(path string) (*FileConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return LoadConfigFromViper(v)
}

// LoadConfigFromViper decodes and validates client defaults held by v.
func LoadConfigFromViper(v *viper.Viper) (*FileConfig, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys(reflect.TypeOf((*FileConfig)(nil)).Elem(), "") {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if v.IsSet("retry") || anySet(v, "retry.") {
		rd := DefaultRetryConfig()
		v.SetDefault("retry.max_retries", rd.MaxRetries)
		v.SetDefault("retry.initial_backoff", rd.InitialBackoff)
		v.SetDefault("retry.max_backoff", rd.MaxBackoff)
		v.SetDefault("retry.multiplier", rd.Multiplier)
		v.SetDefault("retry.jitter", rd.Jitter)
		v.SetDefault("retry.strategy", rd.Strategy)
	}
	for key, value := range fileConfigDefaults {
		v.SetDefault(key, value)
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// configKeys lists the dotted mapstructure keys of t, descending into nested
// structs. Maps are skipped; they cannot be expressed as one variable.
func configKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" || !f.IsExported() {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch {
		case ft.Kind() == reflect.Struct && ft != reflect.TypeOf((*time.Time)(nil)).Elem():
			keys = append(keys, configKeys(ft, prefix+name+".")...)
		case ft.Kind() == reflect.Map, ft.Kind() == reflect.Func, ft.Kind() == reflect.Interface:
		default:
			keys = append(keys, prefix+name)
		}
	}
	return keys
}

func anySet(v *viper.Viper, prefix string) bool {
	for _, key := range v.AllKeys() {
		if strings.HasPrefix(key, prefix) && v.IsSet(key) {
			return true
		}
	}
	return false
}

// Validate checks field constraints and reports every violation at once.
func (fc *FileConfig) Validate() error {
	if err := validateStruct(fc); err != nil {
		e := NewError(err.Error(), CodeBadOptionValue, nil, nil, nil)
		e.Cause = err
		return e
	}
	return nil
}

// ToConfig converts fc into a Config suitable for MergeConfig or WithDefaults.
func (fc *FileConfig) ToConfig() *Config {
	cfg := &Config{
		BaseURL:             fc.BaseURL,
		AllowAbsoluteURLs:   fc.AllowAbsoluteURLs,
		Timeout:             fc.Timeout,
		TimeoutErrorMessage: fc.TimeoutErrorMessage,
		ResponseType:        ResponseType(fc.ResponseType),
		ResponseEncoding:    fc.ResponseEncoding,
		MaxRedirects:        fc.MaxRedirects,
		MaxContentLength:    fc.MaxContentLength,
		MaxBodyLength:       fc.MaxBodyLength,
		MaxRate:             [2]float64{fc.MaxUploadRate, fc.MaxDownloadRate},
		Decompress:          fc.Decompress,
		Auth:                fc.Auth,
		Transitional:        fc.Transitional,
		Retry:               fc.Retry,
	}
	if len(fc.Headers) > 0 {
		cfg.Headers = HeadersFrom(fc.Headers)
	}
	for _, name := range fc.Adapter {
		cfg.Adapter = append(cfg.Adapter, name)
	}
	return cfg
}

// Options returns the client options described by fc.
func (fc *FileConfig) Options() []Option {
	opts := []Option{WithDefaults(fc.ToConfig())}
	if fc.CircuitBreaker != nil {
		opts = append(opts, WithCircuitBreaker(*fc.CircuitBreaker))
	}
	if fc.RateLimit != nil {
		opts = append(opts, WithRateLimit(fc.RateLimit.RequestsPerSecond, fc.RateLimit.Burst))
	}
	return opts
}
