package kurir

import (
	"context"
	"io"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing requests per key. Keys default to the request
// host; hosts without a dedicated limit share the fallback limit.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	fallback *rate.Limiter
	keyFunc  func(*Config) string
}

// NewRateLimiter allows requestsPerSecond with the given burst for any host
// without a dedicated limit. A non-positive rate disables the fallback.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		keyFunc:  HostKey,
	}
	if requestsPerSecond > 0 {
		rl.fallback = rate.NewLimiter(rate.Limit(requestsPerSecond), max(burst, 1))
	}
	return rl
}

// SetLimit installs a dedicated limit for key.
func (rl *RateLimiter) SetLimit(key string, requestsPerSecond float64, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiters[key] = rate.NewLimiter(rate.Limit(requestsPerSecond), max(burst, 1))
}

// SetKeyFunc changes how requests are grouped.
func (rl *RateLimiter) SetKeyFunc(fn func(*Config) string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.keyFunc = fn
}

func (rl *RateLimiter) limiterFor(cfg *Config) (*rate.Limiter, string) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	key := "default"
	if rl.keyFunc != nil {
		key = rl.keyFunc(cfg)
	}
	if l, ok := rl.limiters[key]; ok {
		return l, key
	}
	return rl.fallback, key
}

// Allow reports whether a request may be sent right now, consuming a token if so.
func (rl *RateLimiter) Allow(cfg *Config) bool {
	l, _ := rl.limiterFor(cfg)
	return l == nil || l.Allow()
}

// Wait blocks until a request may be sent or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, cfg *Config) error {
	l, _ := rl.limiterFor(cfg)
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}

// HostKey groups requests by the host of their resolved URL.
func HostKey(cfg *Config) string {
	u, err := url.Parse(BuildFullPath(cfg.BaseURL, cfg.URL, cfg.allowAbsoluteURLs()))
	if err != nil || u.Host == "" {
		return "default"
	}
	return u.Host
}

// throttledReader caps the throughput of r at a fixed number of bytes per second.
type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func newThrottledReader(ctx context.Context, r io.Reader, bytesPerSecond float64) io.Reader {
	if bytesPerSecond <= 0 {
		return r
	}
	burst := int(bytesPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &throttledReader{
		ctx:     ctx,
		r:       r,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
	}
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if burst := t.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
