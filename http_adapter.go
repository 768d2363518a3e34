package kurir

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var errTooManyRedirects = errors.New("maximum number of redirects exceeded")

// HTTPAdapter sends requests with net/http.
type HTTPAdapter struct {
	client *http.Client
}

// NewHTTPAdapter wraps client. A nil client uses http.DefaultTransport.
func NewHTTPAdapter(client *http.Client) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Transport: http.DefaultTransport}
	}
	return &HTTPAdapter{client: client}
}

// Adapt implements Adapter.
func (a *HTTPAdapter) Adapt(ctx context.Context, cfg *Config) (*Response, error) {
	fullPath := BuildFullPath(cfg.BaseURL, cfg.URL, cfg.allowAbsoluteURLs())
	parsed, err := url.Parse(fullPath)
	if err != nil || parsed.Scheme == "" {
		e := NewError("Invalid URL", CodeInvalidURL, cfg, nil, nil)
		e.Cause = err
		return nil, e
	}
	if scheme := strings.ToLower(parsed.Scheme); scheme != "http" && scheme != "https" {
		return nil, NewError(fmt.Sprintf("Unsupported protocol %s:", scheme), CodeBadRequest, cfg, nil, nil)
	}

	target, err := BuildURL(fullPath, cfg.Params, cfg.ParamsSerializer)
	if err != nil {
		return nil, ErrorFrom(err, CodeBadOptionValue, cfg, nil, nil)
	}

	headers := cfg.Headers.Clone()
	body, length, err := requestBody(cfg, headers)
	if err != nil {
		return nil, err
	}

	reqCtx, release := ctx, context.CancelFunc(func() {})
	var timeoutErr *Error
	if cfg.Timeout > 0 {
		timeoutErr = newTimeoutError(cfg)
		reqCtx, release = context.WithTimeoutCause(ctx, cfg.Timeout, timeoutErr)
	}
	keep := false
	defer func() {
		if !keep {
			release()
		}
	}()

	if body != nil {
		body = newThrottledReader(reqCtx, body, cfg.MaxRate[0])
		body = newProgressReader(body, length, true, cfg.OnUploadProgress)
	}

	req, err := http.NewRequestWithContext(reqCtx, strings.ToUpper(cfg.method()), target, body)
	if err != nil {
		return nil, ErrorFrom(err, CodeBadRequest, cfg, nil, nil)
	}
	if length >= 0 && body != nil {
		req.ContentLength = length
	}
	req.Header = headers.ToHTTP()
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent())
	}
	if !cfg.decompress() && req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, deflate")
	}
	if cfg.Auth != nil {
		req.SetBasicAuth(cfg.Auth.Username, cfg.Auth.Password)
	}

	client := *a.client
	maxRedirects := cfg.maxRedirects()
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if maxRedirects == 0 {
			return http.ErrUseLastResponse
		}
		if len(via) > maxRedirects {
			return errTooManyRedirects
		}
		return nil
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, transportError(reqCtx, err, cfg, req)
	}

	resp := &Response{
		Status:     res.StatusCode,
		StatusText: strings.TrimSpace(strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode))),
		Headers:    Headers(res.Header.Clone()),
		Config:     cfg,
		Request:    req,
	}

	stream, err := responseStream(res, resp.Headers, cfg)
	if err != nil {
		res.Body.Close()
		return nil, ErrorFrom(err, CodeBadResponse, cfg, req, resp)
	}
	stream = newThrottledReader(reqCtx, stream, cfg.MaxRate[1])
	stream = newProgressReader(stream, res.ContentLength, false, cfg.OnDownloadProgress)

	if cfg.ResponseType == ResponseTypeStream {
		if settleErr := settle(resp); settleErr != nil {
			raw, _ := io.ReadAll(stream)
			res.Body.Close()
			resp.Raw = raw
			resp.Data = decodeBody(raw, cfg)
			return nil, settleErr
		}
		keep = true
		resp.Body = &streamBody{Reader: stream, closer: res.Body, release: release}
		return resp, nil
	}
	defer res.Body.Close()

	raw, err := readLimited(stream, cfg.MaxContentLength)
	if err != nil {
		if errors.Is(err, errContentTooLarge) {
			return nil, NewError(fmt.Sprintf("maxContentLength size of %d exceeded", cfg.MaxContentLength), CodeBadResponse, cfg, req, nil)
		}
		return nil, transportError(reqCtx, err, cfg, req)
	}
	resp.Raw = raw
	resp.Data = decodeBody(raw, cfg)

	if err := settle(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Settle resolves resp against its config's ValidateStatus. Custom adapters
// call it before returning a response.
func Settle(resp *Response) error {
	return settle(resp)
}

func settle(resp *Response) error {
	var validate ValidateStatusFunc
	if resp.Config != nil {
		validate = resp.Config.ValidateStatus
	}
	if resp.Status == 0 || validate == nil || validate(resp.Status) {
		return nil
	}

	var code ErrorCode
	switch resp.Status / 100 {
	case 4:
		code = CodeBadRequest
	case 5:
		code = CodeBadResponse
	}
	return NewError(fmt.Sprintf("Request failed with status code %d", resp.Status), code, resp.Config, resp.Request, resp)
}

func newTimeoutError(cfg *Config) *Error {
	msg := cfg.TimeoutErrorMessage
	if msg == "" {
		msg = fmt.Sprintf("timeout of %dms exceeded", cfg.Timeout.Milliseconds())
	}
	code := CodeConnAborted
	if cfg.transitional().ClarifyTimeoutError {
		code = CodeTimedOut
	}
	return NewError(msg, code, cfg, nil, nil)
}

// transportError classifies a failure of the round trip or of reading the body.
func transportError(ctx context.Context, err error, cfg *Config, req *http.Request) error {
	if errors.Is(err, errTooManyRedirects) {
		e := NewError("Maximum number of redirects exceeded", CodeTooManyRedirects, cfg, req, nil)
		e.Cause = err
		return e
	}

	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		var timeout *Error
		if errors.As(cause, &timeout) && (timeout.Code == CodeConnAborted || timeout.Code == CodeTimedOut) {
			e := *timeout
			e.Request = req
			e.Cause = err
			return &e
		}
		var canceled *CanceledError
		if errors.As(cause, &canceled) {
			return canceled.withRequest(cfg, req)
		}
		if errors.Is(cause, context.DeadlineExceeded) {
			e := NewError(err.Error(), CodeConnAborted, cfg, req, nil)
			e.Cause = err
			return e
		}
		c := NewCanceledError("", cfg, req)
		c.base.Cause = err
		return c
	}

	return ErrorFrom(err, CodeNetwork, cfg, req, nil)
}

// requestBody turns transformed data into a reader and its length, or -1 when
// the length is unknown.
func requestBody(cfg *Config, headers Headers) (io.Reader, int64, error) {
	var buf []byte
	switch v := cfg.Data.(type) {
	case nil:
		return nil, 0, nil
	case string:
		buf = []byte(v)
	case []byte:
		buf = v
	case *FormData:
		encoded, contentType, err := v.Encode()
		if err != nil {
			return nil, 0, ErrorFrom(err, CodeBadRequest, cfg, nil, nil)
		}
		headers.Set("Content-Type", contentType)
		buf = encoded
	case io.Reader:
		length := int64(-1)
		switch r := v.(type) {
		case *bytes.Reader:
			length = int64(r.Len())
		case *strings.Reader:
			length = int64(r.Len())
		case *bytes.Buffer:
			length = int64(r.Len())
		}
		if cfg.MaxBodyLength > -1 {
			if length > cfg.MaxBodyLength {
				return nil, 0, NewError("Request body larger than maxBodyLength limit", CodeBadRequest, cfg, nil, nil)
			}
			return &maxBodyReader{r: v, remaining: cfg.MaxBodyLength, cfg: cfg}, length, nil
		}
		return v, length, nil
	default:
		return nil, 0, NewError("Data after transformation must be a string, a []byte, a FormData or an io.Reader", CodeBadRequest, cfg, nil, nil)
	}

	if cfg.MaxBodyLength > -1 && int64(len(buf)) > cfg.MaxBodyLength {
		return nil, 0, NewError("Request body larger than maxBodyLength limit", CodeBadRequest, cfg, nil, nil)
	}
	return bytes.NewReader(buf), int64(len(buf)), nil
}

type maxBodyReader struct {
	r         io.Reader
	remaining int64
	cfg       *Config
}

func (m *maxBodyReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	m.remaining -= int64(n)
	if m.remaining < 0 {
		return n, NewError("Request body larger than maxBodyLength limit", CodeBadRequest, m.cfg, nil, nil)
	}
	return n, err
}

// responseStream decompresses the body when the transport did not.
func responseStream(res *http.Response, headers Headers, cfg *Config) (io.Reader, error) {
	if !cfg.decompress() || res.Uncompressed || res.Request.Method == http.MethodHead || res.StatusCode == http.StatusNoContent {
		return res.Body, nil
	}

	switch strings.ToLower(strings.TrimSpace(headers.ContentEncoding())) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(res.Body)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return res.Body, nil
			}
			return nil, err
		}
		headers.Delete("Content-Encoding")
		return zr, nil
	case "deflate":
		headers.Delete("Content-Encoding")
		return flate.NewReader(res.Body), nil
	}
	return res.Body, nil
}

var errContentTooLarge = errors.New("content length exceeded")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit < 0 {
		return io.ReadAll(r)
	}
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errContentTooLarge
	}
	return b, nil
}

// decodeBody renders a buffered body according to ResponseType and ResponseEncoding.
func decodeBody(raw []byte, cfg *Config) any {
	if cfg.ResponseType == ResponseTypeBytes {
		return raw
	}
	switch strings.ToLower(cfg.ResponseEncoding) {
	case "latin1", "binary":
		return decodeLatin1(raw)
	}
	return string(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
}

// streamBody releases the request context once the caller closes the body.
type streamBody struct {
	io.Reader
	closer  io.Closer
	release context.CancelFunc
}

func (s *streamBody) Close() error {
	err := s.closer.Close()
	if s.release != nil {
		s.release()
	}
	return err
}
