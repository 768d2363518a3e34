package kurir

import (
	"net/url"
	"regexp"
	"strings"
)

// ParamsSerializer customizes how Config.Params become a query string.
type ParamsSerializer struct {
	// Encode escapes a single key or value. Defaults to query escaping that
	// leaves : $ , [ ] readable.
	Encode func(string) string
	// Serialize replaces the built-in serializer entirely.
	Serialize func(params any) (string, error)
	Indexes   IndexFormat
	Dots      bool
}

var paramUnescaper = strings.NewReplacer(
	"%3A", ":", "%24", "$", "%2C", ",", "%5B", "[", "%5D", "]",
	"%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*",
)

func encodeParam(s string) string {
	return paramUnescaper.Replace(url.QueryEscape(s))
}

// SerializeParams renders params as a query string without the leading '?'.
func SerializeParams(params any, ser *ParamsSerializer) (string, error) {
	if params == nil {
		return "", nil
	}
	if ser == nil {
		ser = &ParamsSerializer{}
	}
	if ser.Serialize != nil {
		return ser.Serialize(params)
	}
	if values, ok := params.(url.Values); ok {
		return values.Encode(), nil
	}

	fd, err := ToFormData(params, nil, &FormSerializerOptions{
		Dots:       ser.Dots,
		Indexes:    ser.Indexes,
		MetaTokens: true,
	})
	if err != nil {
		return "", err
	}

	encode := ser.Encode
	if encode == nil {
		encode = encodeParam
	}
	pairs := make([]string, 0, fd.Len())
	for _, e := range fd.entries {
		value := e.Value
		if e.File != nil {
			value = string(e.File.Data)
		}
		pairs = append(pairs, encode(e.Name)+"="+encode(value))
	}
	return strings.Join(pairs, "&"), nil
}

// BuildURL appends serialized params to rawURL. Any fragment is dropped once
// params are present.
func BuildURL(rawURL string, params any, ser *ParamsSerializer) (string, error) {
	query, err := SerializeParams(params, ser)
	if err != nil {
		return "", err
	}
	if query == "" {
		return rawURL, nil
	}
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL = rawURL[:i]
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + query, nil
}

var (
	absoluteURLPattern = regexp.MustCompile(`(?i)^([a-z][a-z\d+\-.]*:)?//`)
	trailingSlashes    = regexp.MustCompile(`/?/$`)
	leadingSlashes     = regexp.MustCompile(`^/+`)
)

// IsAbsoluteURL reports whether u starts with a scheme or is protocol-relative.
func IsAbsoluteURL(u string) bool {
	return absoluteURLPattern.MatchString(u)
}

// CombineURLs joins a base URL and a relative path with exactly one slash.
func CombineURLs(baseURL, relativeURL string) string {
	if relativeURL == "" {
		return baseURL
	}
	return trailingSlashes.ReplaceAllString(baseURL, "") + "/" + leadingSlashes.ReplaceAllString(relativeURL, "")
}

// BuildFullPath resolves requestedURL against baseURL. Absolute request URLs
// are kept unless allowAbsolute is false.
func BuildFullPath(baseURL, requestedURL string, allowAbsolute bool) string {
	if baseURL != "" && (!IsAbsoluteURL(requestedURL) || !allowAbsolute) {
		return CombineURLs(baseURL, requestedURL)
	}
	return requestedURL
}
