package kurir

import "sync"

// Interceptor is one registered stage of an interceptor chain. Fulfilled runs
// when the previous stage succeeded and Rejected when it failed; either may be
// nil, in which case the value or error passes through unchanged.
type Interceptor[T any] struct {
	ID        int
	Fulfilled func(T) (T, error)
	Rejected  func(error) (T, error)
	// RunWhen, for request interceptors, skips the stage when it returns false.
	RunWhen func(*Config) bool
}

// InterceptorOption configures a registered interceptor.
type InterceptorOption func(*interceptorOptions)

type interceptorOptions struct {
	runWhen func(*Config) bool
}

// RunWhen makes a request interceptor conditional on the merged request
// config. It has no effect on response interceptors.
func RunWhen(fn func(*Config) bool) InterceptorOption {
	return func(o *interceptorOptions) {
		o.runWhen = fn
	}
}

// InterceptorManager holds an ordered set of interceptors. Registration and
// ejection are safe while requests are running; each request works on a
// snapshot taken when it starts.
type InterceptorManager[T any] struct {
	mu       sync.RWMutex
	handlers []Interceptor[T]
	nextID   int
}

// NewInterceptorManager returns an empty manager.
func NewInterceptorManager[T any]() *InterceptorManager[T] {
	return &InterceptorManager[T]{}
}

// Use registers a stage and returns its id for Eject.
func (m *InterceptorManager[T]) Use(fulfilled func(T) (T, error), rejected func(error) (T, error), opts ...InterceptorOption) int {
	var o interceptorOptions
	for _, opt := range opts {
		opt(&o)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.handlers = append(m.handlers, Interceptor[T]{
		ID:        id,
		Fulfilled: fulfilled,
		Rejected:  rejected,
		RunWhen:   o.runWhen,
	})
	return id
}

// Eject removes the interceptor with id. It reports whether one was removed.
func (m *InterceptorManager[T]) Eject(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, h := range m.handlers {
		if h.ID == id {
			m.handlers = append(m.handlers[:i:i], m.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every interceptor.
func (m *InterceptorManager[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = nil
}

// Len returns the number of registered interceptors.
func (m *InterceptorManager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers)
}

// ForEach calls fn for each interceptor in registration order.
func (m *InterceptorManager[T]) ForEach(fn func(Interceptor[T])) {
	for _, h := range m.snapshot() {
		fn(h)
	}
}

func (m *InterceptorManager[T]) snapshot() []Interceptor[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Interceptor[T](nil), m.handlers...)
}

// run applies one stage the way a promise continuation would.
func (h Interceptor[T]) run(value T, err error) (T, error) {
	if err == nil {
		if h.Fulfilled == nil {
			return value, nil
		}
		return h.Fulfilled(value)
	}
	if h.Rejected == nil {
		return value, err
	}
	return h.Rejected(err)
}

// Interceptors groups the request and response chains of a Client.
type Interceptors struct {
	Request  *InterceptorManager[*Config]
	Response *InterceptorManager[*Response]
}

func newInterceptors() Interceptors {
	return Interceptors{
		Request:  NewInterceptorManager[*Config](),
		Response: NewInterceptorManager[*Response](),
	}
}
