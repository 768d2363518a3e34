package kurir

import (
	"fmt"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
)

// Headers is a case-insensitive header multimap. Keys are stored in canonical
// MIME form; use Normalize after building a Headers literal by hand.
type Headers map[string][]string

// HeaderMatcher filters headers by name and first value.
type HeaderMatcher func(name, value string) bool

// MatchValue returns a matcher that compares the header value exactly.
func MatchValue(value string) HeaderMatcher {
	return func(_, v string) bool { return v == value }
}

// MatchPrefix returns a matcher that compares the header name prefix, case-insensitively.
func MatchPrefix(prefix string) HeaderMatcher {
	prefix = strings.ToLower(prefix)
	return func(name, _ string) bool { return strings.HasPrefix(strings.ToLower(name), prefix) }
}

// Headers that the server may send at most once. Duplicates are ignored on parse.
var ignoreDuplicateOf = map[string]bool{
	"age": true, "authorization": true, "content-length": true, "content-type": true, "etag": true,
	"expires": true, "from": true, "host": true, "if-modified-since": true, "if-unmodified-since": true,
	"last-modified": true, "location": true, "max-forwards": true, "proxy-authorization": true,
	"referer": true, "retry-after": true, "user-agent": true,
}

func canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))
}

func normalizeValue(v string) string {
	return strings.TrimSpace(strings.TrimRight(v, "\r\n"))
}

// NewHeaders returns an empty Headers.
func NewHeaders() Headers {
	return make(Headers)
}

// Set replaces the values of name.
func (h Headers) Set(name, value string) Headers {
	if name = canonical(name); name == "" {
		return h
	}
	h[name] = []string{normalizeValue(value)}
	return h
}

// SetIfAbsent sets name only when it has no value yet.
func (h Headers) SetIfAbsent(name, value string) Headers {
	if !h.Has(name) {
		h.Set(name, value)
	}
	return h
}

// Add appends a value to name.
func (h Headers) Add(name, value string) Headers {
	if name = canonical(name); name == "" {
		return h
	}
	h[name] = append(h[name], normalizeValue(value))
	return h
}

// Get returns the first value of name, or "".
func (h Headers) Get(name string) string {
	if v := h[canonical(name)]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Values returns all values of name.
func (h Headers) Values(name string) []string {
	return h[canonical(name)]
}

// Has reports whether name is present and, when matchers are given, whether
// any of them accepts it.
func (h Headers) Has(name string, matchers ...HeaderMatcher) bool {
	key := canonical(name)
	v, ok := h[key]
	if !ok {
		return false
	}
	return matchAny(key, v, matchers)
}

// Delete removes name. With matchers, only removes it when one accepts it.
func (h Headers) Delete(name string, matchers ...HeaderMatcher) bool {
	key := canonical(name)
	v, ok := h[key]
	if !ok || !matchAny(key, v, matchers) {
		return false
	}
	delete(h, key)
	return true
}

// Clear removes every header accepted by the matchers, or all headers when
// none are given. It reports whether anything was removed.
func (h Headers) Clear(matchers ...HeaderMatcher) bool {
	deleted := false
	for key, v := range h {
		if matchAny(key, v, matchers) {
			delete(h, key)
			deleted = true
		}
	}
	return deleted
}

func matchAny(key string, values []string, matchers []HeaderMatcher) bool {
	if len(matchers) == 0 {
		return true
	}
	first := ""
	if len(values) > 0 {
		first = values[0]
	}
	for _, m := range matchers {
		if m != nil && m(key, first) {
			return true
		}
	}
	return false
}

// Normalize rewrites keys into canonical form, merging keys that only differ
// in case, and trims values.
func (h Headers) Normalize() Headers {
	for key, values := range h {
		c := canonical(key)
		trimmed := make([]string, 0, len(values))
		for _, v := range values {
			trimmed = append(trimmed, normalizeValue(v))
		}
		if c != key {
			delete(h, key)
			trimmed = append(h[c], trimmed...)
		}
		if c == "" {
			continue
		}
		h[c] = trimmed
	}
	return h
}

// Clone returns a deep copy. A nil Headers clones to an empty one.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		out[canonical(k)] = append([]string(nil), v...)
	}
	return out
}

// Merge copies every key of other into h, replacing existing values.
func (h Headers) Merge(other Headers) Headers {
	for k, v := range other {
		h[canonical(k)] = append([]string(nil), v...)
	}
	return h
}

// Concat merges sources into a copy of h. Later sources win per key.
func (h Headers) Concat(sources ...any) Headers {
	out := h.Clone()
	for _, src := range sources {
		out.Merge(HeadersFrom(src))
	}
	return out
}

// ToHTTP converts to a net/http header.
func (h Headers) ToHTTP() http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out[canonical(k)] = append([]string(nil), v...)
	}
	return out
}

// ToMap flattens to single values. Repeated values are joined with ", ",
// except Set-Cookie which keeps only the values joined by newlines.
func (h Headers) ToMap() map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if canonical(k) == "Set-Cookie" {
			out[k] = strings.Join(v, "\n")
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// String renders the headers in raw wire form, sorted by name.
func (h Headers) String() string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range h[k] {
			lines = append(lines, k+": "+v)
		}
	}
	return strings.Join(lines, "\r\n")
}

func (h Headers) ContentType() string            { return h.Get("Content-Type") }
func (h Headers) SetContentType(v string) Headers { return h.Set("Content-Type", v) }
func (h Headers) Accept() string                 { return h.Get("Accept") }
func (h Headers) SetAccept(v string) Headers     { return h.Set("Accept", v) }
func (h Headers) UserAgent() string              { return h.Get("User-Agent") }
func (h Headers) SetUserAgent(v string) Headers  { return h.Set("User-Agent", v) }
func (h Headers) ContentEncoding() string        { return h.Get("Content-Encoding") }
func (h Headers) Authorization() string          { return h.Get("Authorization") }

func (h Headers) SetAuthorization(v string) Headers {
	return h.Set("Authorization", v)
}

// ContentLength returns the parsed Content-Length, or -1 when absent or invalid.
func (h Headers) ContentLength() int64 {
	n, err := strconv.ParseInt(h.Get("Content-Length"), 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func (h Headers) SetContentLength(n int64) Headers {
	return h.Set("Content-Length", strconv.FormatInt(n, 10))
}

// ParseHeaders parses raw "Name: value" lines as received from a server.
// Duplicates of single-valued headers are dropped, Set-Cookie values are
// accumulated and other duplicates are joined with ", ".
func ParseHeaders(raw string) Headers {
	out := make(Headers)
	for _, line := range strings.Split(raw, "\n") {
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		val := normalizeValue(line[i+1:])
		if key == "" {
			continue
		}
		c := canonical(key)
		existing, seen := out[c]
		switch {
		case seen && ignoreDuplicateOf[key]:
		case key == "set-cookie":
			out[c] = append(existing, val)
		case seen:
			out[c] = []string{existing[0] + ", " + val}
		default:
			out[c] = []string{val}
		}
	}
	return out
}

// HeadersFrom converts a header-like value into Headers. Supported inputs are
// Headers, http.Header, map[string]string, map[string][]string, map[string]any
// and raw header text.
func HeadersFrom(v any) Headers {
	switch src := v.(type) {
	case nil:
		return make(Headers)
	case Headers:
		return src.Clone()
	case http.Header:
		return Headers(src).Clone()
	case map[string][]string:
		return Headers(src).Clone()
	case map[string]string:
		out := make(Headers, len(src))
		for k, val := range src {
			out.Set(k, val)
		}
		return out
	case map[string]any:
		out := make(Headers, len(src))
		for k, val := range src {
			switch vv := val.(type) {
			case nil:
			case []string:
				for _, s := range vv {
					out.Add(k, s)
				}
			default:
				out.Set(k, fmt.Sprint(vv))
			}
		}
		return out
	case string:
		return ParseHeaders(src)
	default:
		return make(Headers)
	}
}

// ConcatHeaders merges header-like sources left to right into a new Headers.
func ConcatHeaders(sources ...any) Headers {
	return Headers(nil).Concat(sources...)
}

// flattenMethodHeaders merges common and method-specific defaults under the
// explicit headers of a request.
func flattenMethodHeaders(method string, headers Headers, byMethod map[string]Headers) Headers {
	out := make(Headers)
	if byMethod != nil {
		out.Merge(byMethod["common"])
		out.Merge(byMethod[strings.ToLower(method)])
	}
	out.Merge(headers)
	return out
}
