package kurir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FormFile is a binary form value. Data takes precedence over Reader.
type FormFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Reader      io.Reader
}

// FormEntry is one name/value pair of a FormData. Exactly one of Value and
// File is meaningful.
type FormEntry struct {
	Name  string
	Value string
	File  *FormFile
}

// IsFile reports whether the entry carries a file.
func (e FormEntry) IsFile() bool { return e.File != nil }

// FormData is an ordered multipart form.
type FormData struct {
	entries []FormEntry
}

// NewFormData returns an empty form.
func NewFormData() *FormData {
	return &FormData{}
}

// Append adds a string field.
func (f *FormData) Append(name, value string) {
	f.entries = append(f.entries, FormEntry{Name: name, Value: value})
}

// AppendFile adds a file field.
func (f *FormData) AppendFile(name string, file *FormFile) {
	f.entries = append(f.entries, FormEntry{Name: name, File: file})
}

// Set replaces every field called name with a single string value.
func (f *FormData) Set(name, value string) {
	f.Delete(name)
	f.Append(name, value)
}

// Get returns the first string value of name.
func (f *FormData) Get(name string) (string, bool) {
	for _, e := range f.entries {
		if e.Name == name && e.File == nil {
			return e.Value, true
		}
	}
	return "", false
}

// GetAll returns every entry called name.
func (f *FormData) GetAll(name string) []FormEntry {
	var out []FormEntry
	for _, e := range f.entries {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (f *FormData) Has(name string) bool {
	for _, e := range f.entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

func (f *FormData) Delete(name string) {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	f.entries = kept
}

// Entries returns a copy of the entries in insertion order.
func (f *FormData) Entries() []FormEntry {
	return append([]FormEntry(nil), f.entries...)
}

func (f *FormData) Len() int { return len(f.entries) }

// Encode builds a multipart/form-data body and its Content-Type header.
func (f *FormData) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, e := range f.entries {
		if e.File == nil {
			if err := w.WriteField(e.Name, e.Value); err != nil {
				return nil, "", err
			}
			continue
		}

		filename := e.File.Filename
		if filename == "" {
			filename = "blob"
		}
		contentType := e.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			`form-data; name="`+escapeQuotes(e.Name)+`"; filename="`+escapeQuotes(filename)+`"`)
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}

		if e.File.Data != nil {
			if _, err := part.Write(e.File.Data); err != nil {
				return nil, "", err
			}
		} else if e.File.Reader != nil {
			if _, err := io.Copy(part, e.File.Reader); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}

// IndexFormat selects how array elements are named when an object is flattened.
type IndexFormat int

const (
	// IndexesBrackets renders a[]=1&a[]=2.
	IndexesBrackets IndexFormat = iota
	// IndexesNone renders a=1&a=2.
	IndexesNone
	// IndexesNumbered renders a[0]=1&a[1]=2.
	IndexesNumbered
)

// FormVisitor may take over serialization of a single value. Returning
// handled=false hands the value to the default visitor.
type FormVisitor func(fd *FormData, value any, key string, path []string) (handled bool, err error)

// FormSerializerOptions controls how objects are flattened into form fields.
type FormSerializerOptions struct {
	// Dots renders nested keys as a.b instead of a[b].
	Dots bool
	// MetaTokens keeps the {} suffix on keys whose value is JSON encoded.
	MetaTokens bool
	Indexes    IndexFormat
	Visitor    FormVisitor
}

// DefaultFormSerializerOptions returns bracket notation with meta tokens kept.
func DefaultFormSerializerOptions() *FormSerializerOptions {
	return &FormSerializerOptions{MetaTokens: true}
}

// ToFormData flattens obj into fd, which is allocated when nil. obj may be a
// map with string keys, a struct (serialized through its JSON form) or a
// pointer to either.
func ToFormData(obj any, fd *FormData, opts *FormSerializerOptions) (*FormData, error) {
	if fd == nil {
		fd = NewFormData()
	}
	if opts == nil {
		opts = DefaultFormSerializerOptions()
	}

	root, err := toGeneric(obj)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return fd, nil
	}
	if !isVisitable(root) {
		return nil, fmt.Errorf("data must be an object, got %T", obj)
	}

	s := &formSerializer{fd: fd, opts: opts}
	if err := s.build(root, nil); err != nil {
		return nil, err
	}
	return fd, nil
}

type formSerializer struct {
	fd   *FormData
	opts *FormSerializerOptions
}

func (s *formSerializer) build(value any, path []string) error {
	if value == nil {
		return nil
	}

	for _, kv := range entriesOf(value) {
		if kv.value == nil {
			continue
		}
		key := strings.TrimSpace(kv.key)

		recurse := false
		handled := false
		if s.opts.Visitor != nil {
			var err error
			if handled, err = s.opts.Visitor(s.fd, kv.value, key, path); err != nil {
				return err
			}
		}
		if !handled {
			var err error
			if recurse, err = s.visit(kv.value, key, path); err != nil {
				return err
			}
		}
		if recurse {
			child := append(append([]string(nil), path...), key)
			if err := s.build(kv.value, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// visit is the default visitor. It reports whether value must be descended into.
func (s *formSerializer) visit(value any, key string, path []string) (bool, error) {
	if path == nil && isVisitable(value) {
		if strings.HasSuffix(key, "{}") {
			if !s.opts.MetaTokens {
				key = key[:len(key)-2]
			}
			b, err := json.Marshal(value)
			if err != nil {
				return false, err
			}
			s.fd.Append(key, string(b))
			return false, nil
		}

		if arr, ok := value.([]any); ok && (isFlatArray(arr) || strings.HasSuffix(key, "[]")) {
			key = removeBrackets(key)
			for i, el := range arr {
				if el == nil {
					continue
				}
				name := key + "[]"
				switch s.opts.Indexes {
				case IndexesNumbered:
					name = renderKey([]string{key}, strconv.Itoa(i), s.opts.Dots)
				case IndexesNone:
					name = key
				}
				s.appendValue(name, el)
			}
			return false, nil
		}
	}

	if isVisitable(value) {
		return true, nil
	}

	s.appendValue(renderKey(path, key, s.opts.Dots), value)
	return false, nil
}

func (s *formSerializer) appendValue(name string, value any) {
	switch v := value.(type) {
	case *FormFile:
		s.fd.AppendFile(name, v)
	case []byte:
		s.fd.AppendFile(name, &FormFile{Filename: "blob", Data: v})
	default:
		s.fd.Append(name, convertValue(v))
	}
}

func convertValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format("2006-01-02T15:04:05.000Z")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func renderKey(path []string, key string, dots bool) string {
	if len(path) == 0 {
		return key
	}
	tokens := append(append([]string(nil), path...), key)
	for i, t := range tokens {
		t = removeBrackets(t)
		if !dots && i > 0 {
			t = "[" + t + "]"
		}
		tokens[i] = t
	}
	sep := ""
	if dots {
		sep = "."
	}
	return strings.Join(tokens, sep)
}

func removeBrackets(key string) string {
	key = strings.TrimSuffix(key, "[]")
	return strings.TrimSuffix(key, "{}")
}

func isVisitable(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func isFlatArray(arr []any) bool {
	for _, el := range arr {
		if isVisitable(el) {
			return false
		}
	}
	return true
}

type keyValue struct {
	key   string
	value any
}

// entriesOf lists the children of a generic container with map keys sorted.
func entriesOf(v any) []keyValue {
	switch c := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]keyValue, 0, len(keys))
		for _, k := range keys {
			out = append(out, keyValue{key: k, value: c[k]})
		}
		return out
	case []any:
		out := make([]keyValue, 0, len(c))
		for i, el := range c {
			out = append(out, keyValue{key: strconv.Itoa(i), value: el})
		}
		return out
	}
	return nil
}

// toGeneric rewrites arbitrary Go values into map[string]any / []any trees.
// Leaves such as strings, numbers, times, byte slices and files are kept.
func toGeneric(v any) (any, error) {
	return toGenericDepth(v, 0)
}

const maxGenericDepth = 64

func toGenericDepth(v any, depth int) (any, error) {
	if depth > maxGenericDepth {
		return nil, fmt.Errorf("circular reference detected: nesting deeper than %d levels", maxGenericDepth)
	}
	switch val := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, el := range val {
			g, err := toGenericDepth(el, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = g
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, el := range val {
			g, err := toGenericDepth(el, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case string, bool, json.Number, time.Time, []byte, *FormFile:
		return val, nil
	case url.Values:
		out := make(map[string]any, len(val))
		for k, vs := range val {
			items := make([]any, len(vs))
			for i, s := range vs {
				items[i] = s
			}
			out[k] = items
		}
		return out, nil
	case fmt.Stringer:
		return val.String(), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			g, err := toGenericDepth(iter.Value().Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = g
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			g, err := toGenericDepth(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case reflect.Struct:
		b, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, err
		}
		var out any
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	return fmt.Sprint(v), nil
}

var propPathPattern = regexp.MustCompile(`\w+|\[(\w*)]`)

func parsePropPath(name string) []string {
	matches := propPathPattern.FindAllStringSubmatch(name, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		switch {
		case m[0] == "[]":
			out = append(out, "")
		case m[1] != "":
			out = append(out, m[1])
		default:
			out = append(out, m[0])
		}
	}
	return out
}

// formNode is an intermediate container. It turns into a slice when every
// key it received was numeric, otherwise into a map.
type formNode struct {
	keys   []string
	values map[string]any
	object bool
}

func newFormNode() *formNode {
	return &formNode{values: make(map[string]any)}
}

func (n *formNode) put(key string, v any) {
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = v
}

func isNumericKey(k string) bool {
	if k == "" {
		return true
	}
	f, err := strconv.ParseFloat(k, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (n *formNode) insert(path []string, value any) {
	name := path[0]
	if name == "" && !n.object {
		name = strconv.Itoa(len(n.keys))
	}
	if name == "__proto__" {
		return
	}
	if !isNumericKey(name) {
		n.object = true
	}

	if len(path) == 1 {
		existing, ok := n.values[name]
		switch {
		case !ok:
			n.put(name, value)
		default:
			if dup, isDup := existing.(formDuplicates); isDup {
				n.put(name, append(dup, value))
			} else {
				n.put(name, formDuplicates{existing, value})
			}
		}
		return
	}

	child, ok := n.values[name].(*formNode)
	if !ok {
		child = newFormNode()
		n.put(name, child)
	}
	child.insert(path[1:], value)
}

type formDuplicates []any

func (n *formNode) finalize() any {
	if !n.object {
		keys := append([]string(nil), n.keys...)
		sort.SliceStable(keys, func(i, j int) bool {
			a, _ := strconv.ParseFloat(keys[i], 64)
			b, _ := strconv.ParseFloat(keys[j], 64)
			return a < b
		})
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, finalizeValue(n.values[k]))
		}
		return out
	}
	out := make(map[string]any, len(n.values))
	for k, v := range n.values {
		out[k] = finalizeValue(v)
	}
	return out
}

func finalizeValue(v any) any {
	switch val := v.(type) {
	case *formNode:
		return val.finalize()
	case formDuplicates:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = finalizeValue(el)
		}
		return out
	}
	return v
}

// FormToJSON rebuilds a nested object from bracket-notation field names.
// Names such as a[b][] append to slices and containers whose keys are all
// numeric come back as slices. File entries are kept as *FormFile values.
func FormToJSON(fd *FormData) map[string]any {
	if fd == nil {
		return nil
	}
	root := newFormNode()
	root.object = true
	for _, e := range fd.entries {
		path := parsePropPath(e.Name)
		if len(path) == 0 {
			continue
		}
		var value any = e.Value
		if e.File != nil {
			value = e.File
		}
		root.insert(path, value)
	}
	return root.finalize().(map[string]any)
}

// ToURLEncodedForm flattens obj into an application/x-www-form-urlencoded body.
func ToURLEncodedForm(obj any, opts *FormSerializerOptions) (string, error) {
	fd, err := ToFormData(obj, nil, opts)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, e := range fd.entries {
		if i > 0 {
			b.WriteByte('&')
		}
		value := e.Value
		if e.File != nil {
			value = string(e.File.Data)
		}
		b.WriteString(url.QueryEscape(e.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}
	return b.String(), nil
}
