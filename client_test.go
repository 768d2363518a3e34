package kurir

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	contentTypeJSONHeader  = "application/json"
	expectedStatus200Msg   = "Expected status 200, got %d"
	failedWriteResponseMsg = "Failed to write response: %v"
)

func newJSONServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func stubAdapter(status int, data any) AdapterFunc {
	return func(ctx context.Context, cfg *Config) (*Response, error) {
		resp := &Response{Status: status, Data: data, Config: cfg, Headers: NewHeaders()}
		return resp, Settle(resp)
	}
}

func TestNew(t *testing.T) {
	client := New()

	if client == nil {
		t.Fatal("New() returned nil")
	}
	if !client.IsValid() {
		t.Fatalf("Expected default client to be valid, got %v", client.ValidationError())
	}

	d := client.Defaults()
	if d.MaxContentLength != -1 || d.MaxBodyLength != -1 {
		t.Errorf("Expected unlimited body sizes, got %d/%d", d.MaxContentLength, d.MaxBodyLength)
	}
	if d.MethodHeaders["common"].Get("Accept") != "application/json, text/plain, */*" {
		t.Errorf("Unexpected common Accept header: %q", d.MethodHeaders["common"].Get("Accept"))
	}
	if len(d.Adapter) != 1 || d.Adapter[0] != "http" {
		t.Errorf("Expected adapter [http], got %v", d.Adapter)
	}
	if client.Interceptors.Request.Len() != 0 || client.Interceptors.Response.Len() != 0 {
		t.Error("Expected empty interceptor chains")
	}
}

func TestGet(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("Expected page=2, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json, text/plain, */*" {
			t.Errorf("Unexpected Accept header %q", got)
		}
		w.Header().Set("Content-Type", contentTypeJSONHeader)
		if _, err := w.Write([]byte(`[{"name":"ada"},{"name":"linus"}]`)); err != nil {
			t.Errorf(failedWriteResponseMsg, err)
		}
	})

	client := New()
	resp, err := client.Get(context.Background(), server.URL+"/users", &Config{Params: map[string]any{"page": 2}})
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}

	if resp.Status != http.StatusOK {
		t.Errorf(expectedStatus200Msg, resp.Status)
	}
	if resp.StatusText != "OK" {
		t.Errorf("Expected status text OK, got %q", resp.StatusText)
	}
	users, ok := resp.Data.([]any)
	if !ok || len(users) != 2 {
		t.Fatalf("Expected decoded JSON array, got %T %v", resp.Data, resp.Data)
	}
	if got := resp.JSON("1.name").String(); got != "linus" {
		t.Errorf("Expected linus, got %q", got)
	}
	if resp.Headers.ContentType() != contentTypeJSONHeader {
		t.Errorf("Expected Content-Type header, got %q", resp.Headers.ContentType())
	}
	if resp.Config == nil || resp.Request == nil {
		t.Error("Expected config and request on the response")
	}
}

func TestPostJSON(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != contentTypeJSONHeader {
			t.Errorf("Expected Content-Type application/json, got %s", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "name": body["name"]})
	})

	resp, err := New().Post(context.Background(), server.URL, map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("Post() returned error: %v", err)
	}
	if resp.Status != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", resp.Status)
	}

	var out struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("Decode() returned error: %v", err)
	}
	if out.ID != 7 || out.Name != "ada" {
		t.Errorf("Unexpected decoded body: %+v", out)
	}
}

func TestPostURLValues(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
			t.Errorf("Expected urlencoded body, got %s", ct)
		}
		r.ParseForm()
		if r.PostForm.Get("q") != "go http" {
			t.Errorf("Expected q=go http, got %q", r.PostForm.Get("q"))
		}
	})

	form := url.Values{"q": {"go http"}}
	if _, err := New().Post(context.Background(), server.URL, form); err != nil {
		t.Fatalf("Post() returned error: %v", err)
	}
}

func TestPostForm(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() returned error: %v", err)
			return
		}
		if r.FormValue("user[name]") != "ada" {
			t.Errorf("Expected user[name]=ada, got %q", r.FormValue("user[name]"))
		}
		f, header, err := r.FormFile("avatar")
		if err != nil {
			t.Errorf("Expected avatar file: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if header.Filename != "me.png" || string(b) != "PNG" {
			t.Errorf("Unexpected file %s %q", header.Filename, b)
		}
	})

	data := map[string]any{
		"user":   map[string]any{"name": "ada"},
		"avatar": &FormFile{Filename: "me.png", ContentType: "image/png", Data: []byte("PNG")},
	}
	if _, err := New().PostForm(context.Background(), server.URL, data); err != nil {
		t.Fatalf("PostForm() returned error: %v", err)
	}
}

func TestFormDataBodyKeepsContentTypeUnset(t *testing.T) {
	var contentTypes []string
	client := New(WithAdapter(AdapterFunc(func(ctx context.Context, cfg *Config) (*Response, error) {
		if _, ok := cfg.Data.(*FormData); !ok {
			t.Errorf("Expected *FormData to reach the adapter, got %T", cfg.Data)
		}
		contentTypes = append(contentTypes, cfg.Headers.Get("Content-Type"))
		return &Response{Status: 200, Config: cfg, Headers: NewHeaders()}, nil
	})))

	if _, err := client.PostForm(context.Background(), "http://example.invalid", map[string]any{"a": "1"}); err != nil {
		t.Fatalf("PostForm() returned error: %v", err)
	}
	fd := NewFormData()
	fd.Append("a", "1")
	if _, err := client.Put(context.Background(), "http://example.invalid", fd); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}
	if _, err := client.Post(context.Background(), "http://example.invalid", "a=1"); err != nil {
		t.Fatalf("Post() returned error: %v", err)
	}

	want := []string{"", "", "application/x-www-form-urlencoded"}
	if len(contentTypes) != len(want) {
		t.Fatalf("Expected %d requests, got %d", len(want), len(contentTypes))
	}
	for i := range want {
		if contentTypes[i] != want[i] {
			t.Errorf("Request %d: expected Content-Type %q, got %q", i, want[i], contentTypes[i])
		}
	}
}

func TestPostFormDataSendsMultipartBoundary(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data; boundary=") {
			t.Errorf("Expected a multipart Content-Type, got %q", ct)
		}
		if r.FormValue("a") != "1" {
			t.Errorf("Expected a=1, got %q", r.FormValue("a"))
		}
	})

	fd := NewFormData()
	fd.Append("a", "1")
	if _, err := New().Post(context.Background(), server.URL, fd); err != nil {
		t.Fatalf("Post() returned error: %v", err)
	}
}

func TestMethodShortcuts(t *testing.T) {
	var (
		mu      sync.Mutex
		methods []string
	)
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()
	})

	client := New()
	ctx := context.Background()
	calls := []func() (*Response, error){
		func() (*Response, error) { return client.Get(ctx, server.URL) },
		func() (*Response, error) { return client.Delete(ctx, server.URL) },
		func() (*Response, error) { return client.Head(ctx, server.URL) },
		func() (*Response, error) { return client.Options(ctx, server.URL) },
		func() (*Response, error) { return client.Post(ctx, server.URL, "a=1") },
		func() (*Response, error) { return client.Put(ctx, server.URL, "a=1") },
		func() (*Response, error) { return client.Patch(ctx, server.URL, "a=1") },
	}
	for _, call := range calls {
		if _, err := call(); err != nil {
			t.Fatalf("request returned error: %v", err)
		}
	}

	want := []string{"GET", "DELETE", "HEAD", "OPTIONS", "POST", "PUT", "PATCH"}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(methods, ",") != strings.Join(want, ",") {
		t.Errorf("Expected methods %v, got %v", want, methods)
	}
}

func TestMethodHeadersAreFlattened(t *testing.T) {
	var seen *Config
	client := New(WithAdapter(func(ctx context.Context, cfg *Config) (*Response, error) {
		seen = cfg
		return &Response{Status: 200, Config: cfg, Headers: NewHeaders()}, nil
	}))
	client.SetDefaults(func(d *Config) {
		d.MethodHeaders["post"].Set("X-Post-Only", "yes")
		d.MethodHeaders["get"].Set("X-Get-Only", "yes")
	})

	if _, err := client.Post(context.Background(), "http://example.invalid", "x"); err != nil {
		t.Fatalf("Post() returned error: %v", err)
	}
	if seen.MethodHeaders != nil {
		t.Error("Expected method headers to be removed after flattening")
	}
	if seen.Headers.Get("X-Post-Only") != "yes" {
		t.Error("Expected post headers to be applied")
	}
	if seen.Headers.Has("X-Get-Only") {
		t.Error("Expected get headers to be dropped for POST")
	}
	if seen.Headers.Get("Accept") == "" {
		t.Error("Expected common headers to be applied")
	}
	if seen.Method != "post" {
		t.Errorf("Expected lower-case method, got %q", seen.Method)
	}
}

func TestStatusValidation(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSONHeader)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"missing"}`))
	})

	_, err := New().Get(context.Background(), server.URL)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("Expected *Error, got %T %v", err, err)
	}
	if e.Code != CodeBadRequest || e.Status != http.StatusNotFound {
		t.Errorf("Expected ERR_BAD_REQUEST 404, got %s %d", e.Code, e.Status)
	}
	if e.Response == nil {
		t.Fatal("Expected response on the error")
	}
	body, ok := e.Response.Data.(map[string]any)
	if !ok || body["error"] != "missing" {
		t.Errorf("Expected error body to be transformed, got %v", e.Response.Data)
	}
	if e.Config == nil {
		t.Error("Expected config on the error")
	}
}

func TestAcceptAnyStatusOverridesDefaults(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	resp, err := New().Get(context.Background(), server.URL, &Config{ValidateStatus: AcceptAnyStatus})
	if err != nil {
		t.Fatalf("Expected 500 to resolve, got %v", err)
	}
	if resp.Status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", resp.Status)
	}
}

func TestRequestInterceptorsRunInReverse(t *testing.T) {
	var order []string
	client := New(WithAdapter(stubAdapter(200, "ok")))

	client.Interceptors.Request.Use(func(cfg *Config) (*Config, error) {
		order = append(order, "first")
		return cfg, nil
	}, nil)
	client.Interceptors.Request.Use(func(cfg *Config) (*Config, error) {
		order = append(order, "second")
		return cfg, nil
	}, nil)
	client.Interceptors.Response.Use(func(resp *Response) (*Response, error) {
		order = append(order, "response-first")
		return resp, nil
	}, nil)
	client.Interceptors.Response.Use(func(resp *Response) (*Response, error) {
		order = append(order, "response-second")
		return resp, nil
	}, nil)

	if _, err := client.Get(context.Background(), "http://example.invalid"); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}

	want := "second,first,response-first,response-second"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("Expected order %s, got %s", want, got)
	}
}

func TestRequestInterceptorModifiesConfig(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Expected bearer token, got %q", got)
		}
	})

	client := New()
	client.Interceptors.Request.Use(func(cfg *Config) (*Config, error) {
		cfg.Headers.SetAuthorization("Bearer token")
		return cfg, nil
	}, nil)

	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
}

func TestRequestInterceptorRejectionSkipsDispatch(t *testing.T) {
	dispatched := false
	client := New(WithAdapter(func(ctx context.Context, cfg *Config) (*Response, error) {
		dispatched = true
		return &Response{Status: 200, Config: cfg}, nil
	}))

	boom := errors.New("no credentials")
	client.Interceptors.Request.Use(func(cfg *Config) (*Config, error) {
		return nil, boom
	}, nil)

	var seen error
	client.Interceptors.Response.Use(nil, func(err error) (*Response, error) {
		seen = err
		return nil, err
	})

	_, err := client.Get(context.Background(), "http://example.invalid")
	if dispatched {
		t.Error("Expected the adapter not to run")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Expected interceptor error to surface, got %v", err)
	}
	if !errors.Is(seen, boom) {
		t.Errorf("Expected response rejection handler to see the error, got %v", seen)
	}
	if !IsError(err) {
		t.Error("Expected the error to be normalized into *Error")
	}
}

func TestResponseInterceptorRecovers(t *testing.T) {
	client := New(WithAdapter(stubAdapter(503, "down")))
	client.Interceptors.Response.Use(nil, func(err error) (*Response, error) {
		var e *Error
		if errors.As(err, &e) && e.Status == 503 {
			return &Response{Status: 200, Data: "fallback"}, nil
		}
		return nil, err
	})

	resp, err := client.Get(context.Background(), "http://example.invalid")
	if err != nil {
		t.Fatalf("Expected recovery, got %v", err)
	}
	if resp.Data != "fallback" {
		t.Errorf("Expected fallback data, got %v", resp.Data)
	}
}

func TestRunWhenSkipsInterceptor(t *testing.T) {
	client := New(WithAdapter(stubAdapter(200, nil)))
	ran := 0
	client.Interceptors.Request.Use(func(cfg *Config) (*Config, error) {
		ran++
		return cfg, nil
	}, nil, RunWhen(func(cfg *Config) bool { return cfg.Method == "post" }))

	client.Get(context.Background(), "http://example.invalid")
	client.Post(context.Background(), "http://example.invalid", "x")

	if ran != 1 {
		t.Errorf("Expected interceptor to run once, ran %d times", ran)
	}
}

func TestCreateInheritsDefaults(t *testing.T) {
	parent := New(WithBaseURL("https://api.example.com"), WithHeader("X-Parent", "1"))
	parent.Interceptors.Request.Use(func(cfg *Config) (*Config, error) { return cfg, nil }, nil)

	child := parent.Create(&Config{Timeout: time.Second, Headers: NewHeaders().Set("X-Child", "1")})

	d := child.Defaults()
	if d.BaseURL != "https://api.example.com" {
		t.Errorf("Expected inherited base URL, got %q", d.BaseURL)
	}
	if d.Timeout != time.Second {
		t.Errorf("Expected child timeout, got %v", d.Timeout)
	}
	if d.Headers.Get("X-Parent") != "1" || d.Headers.Get("X-Child") != "1" {
		t.Errorf("Expected merged headers, got %v", d.Headers)
	}
	if child.Interceptors.Request.Len() != 0 {
		t.Error("Expected the child to start with empty interceptors")
	}
	if parent.Defaults().Timeout != 0 {
		t.Error("Expected the parent defaults to be unchanged")
	}
}

func TestPackageCreate(t *testing.T) {
	client := Create(&Config{BaseURL: "https://api.example.com/v1/"})
	uri, err := client.GetURI(&Config{URL: "/users", Params: map[string]any{"q": "a b"}})
	if err != nil {
		t.Fatalf("GetURI() returned error: %v", err)
	}
	if uri != "https://api.example.com/v1/users?q=a+b" {
		t.Errorf("Unexpected URI %q", uri)
	}
}

func TestDefaultsAreCopied(t *testing.T) {
	client := New()
	d := client.Defaults()
	d.Headers.Set("X-Leak", "1")
	d.MethodHeaders["common"].Set("X-Leak", "1")

	again := client.Defaults()
	if again.Headers.Has("X-Leak") || again.MethodHeaders["common"].Has("X-Leak") {
		t.Error("Expected Defaults() to return an independent copy")
	}
}

func TestUnknownMethodHeaderGroup(t *testing.T) {
	client := New(WithAdapter(stubAdapter(200, nil)))
	_, err := client.Request(context.Background(), &Config{
		URL:           "http://example.invalid",
		MethodHeaders: map[string]Headers{"bogus": NewHeaders()},
	})
	if !errors.Is(err, &Error{Code: CodeBadOption}) {
		t.Errorf("Expected ERR_BAD_OPTION, got %v", err)
	}
}

func TestInvalidRequestOptions(t *testing.T) {
	client := New(WithAdapter(stubAdapter(200, nil)))
	_, err := client.Request(context.Background(), &Config{URL: "http://example.invalid", Method: "GE T"})
	if !errors.Is(err, &Error{Code: CodeBadOptionValue}) {
		t.Errorf("Expected ERR_BAD_OPTION_VALUE, got %v", err)
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Method))
	})

	ctx := context.Background()
	resp, err := Get(ctx, server.URL)
	if err != nil || resp.Data != "GET" {
		t.Fatalf("Get() = %v, %v", resp, err)
	}
	resp, err = Post(ctx, server.URL, "x=1")
	if err != nil || resp.Data != "POST" {
		t.Fatalf("Post() = %v, %v", resp, err)
	}
	resp, err = Request(ctx, &Config{URL: server.URL, Method: "PUT", Data: "x=1"})
	if err != nil || resp.Data != "PUT" {
		t.Fatalf("Request() = %v, %v", resp, err)
	}
}

func TestConcurrentRequests(t *testing.T) {
	server := newJSONServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Query().Get("n")))
	})

	client := New()
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			client.Interceptors.Request.Use(func(cfg *Config) (*Config, error) { return cfg, nil }, nil)
			_, err := client.Get(context.Background(), server.URL, &Config{Params: map[string]any{"n": n}})
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("request failed: %v", err)
	}
}
