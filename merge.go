package kurir

// MergeConfig layers c2 over c1 and returns a new Config; neither input is
// modified. URL, Method and Data are request-specific and only ever come
// from c2. Headers and MethodHeaders are merged key by key with c2 winning.
// Every other option takes c2's value when set and c1's otherwise.
func MergeConfig(c1, c2 *Config) *Config {
	if c1 == nil {
		c1 = &Config{}
	}
	if c2 == nil {
		c2 = &Config{}
	}

	out := &Config{
		URL:    c2.URL,
		Method: c2.Method,
		Data:   c2.Data,

		BaseURL:             pick(c1.BaseURL, c2.BaseURL),
		Timeout:             pick(c1.Timeout, c2.Timeout),
		TimeoutErrorMessage: pick(c1.TimeoutErrorMessage, c2.TimeoutErrorMessage),
		ResponseType:        pick(c1.ResponseType, c2.ResponseType),
		ResponseEncoding:    pick(c1.ResponseEncoding, c2.ResponseEncoding),
		MaxContentLength:    pick(c1.MaxContentLength, c2.MaxContentLength),
		MaxBodyLength:       pick(c1.MaxBodyLength, c2.MaxBodyLength),
		MaxRate:             pick(c1.MaxRate, c2.MaxRate),

		AllowAbsoluteURLs: pick(c1.AllowAbsoluteURLs, c2.AllowAbsoluteURLs),
		MaxRedirects:      pick(c1.MaxRedirects, c2.MaxRedirects),
		Decompress:        pick(c1.Decompress, c2.Decompress),
		ParamsSerializer:  pick(c1.ParamsSerializer, c2.ParamsSerializer),
		Auth:              pick(c1.Auth, c2.Auth),
		CancelToken:       pick(c1.CancelToken, c2.CancelToken),
		Retry:             pick(c1.Retry, c2.Retry).clone(),
		FormSerializer:    pick(c1.FormSerializer, c2.FormSerializer),

		Headers:       mergeHeaders(c1.Headers, c2.Headers),
		MethodHeaders: mergeMethodHeaders(c1.MethodHeaders, c2.MethodHeaders),
	}

	out.Params = c1.Params
	if c2.Params != nil {
		out.Params = c2.Params
	}

	out.ValidateStatus = c1.ValidateStatus
	if c2.ValidateStatus != nil {
		out.ValidateStatus = c2.ValidateStatus
	}

	out.OnUploadProgress = c1.OnUploadProgress
	if c2.OnUploadProgress != nil {
		out.OnUploadProgress = c2.OnUploadProgress
	}
	out.OnDownloadProgress = c1.OnDownloadProgress
	if c2.OnDownloadProgress != nil {
		out.OnDownloadProgress = c2.OnDownloadProgress
	}

	out.TransformRequest = pickSlice(c1.TransformRequest, c2.TransformRequest)
	out.TransformResponse = pickSlice(c1.TransformResponse, c2.TransformResponse)
	out.Adapter = pickSlice(c1.Adapter, c2.Adapter)

	if t := pick(c1.Transitional, c2.Transitional); t != nil {
		copied := *t
		out.Transitional = &copied
	}

	return out
}

func pick[T comparable](a, b T) T {
	var zero T
	if b != zero {
		return b
	}
	return a
}

func pickSlice[T any](a, b []T) []T {
	if len(b) > 0 {
		return append([]T(nil), b...)
	}
	if a == nil {
		return nil
	}
	return append([]T(nil), a...)
}

func mergeHeaders(a, b Headers) Headers {
	if a == nil && b == nil {
		return nil
	}
	out := a.Clone()
	out.Merge(b.Clone())
	return out
}

func mergeMethodHeaders(a, b map[string]Headers) map[string]Headers {
	if a == nil && b == nil {
		return nil
	}
	out := make(map[string]Headers, len(a)+len(b))
	for k, h := range a {
		out[k] = h.Clone()
	}
	for k, h := range b {
		out[k] = mergeHeaders(out[k], h)
	}
	return out
}
