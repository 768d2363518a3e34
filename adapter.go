package kurir

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Adapter sends a fully transformed request and returns its response. It must
// settle the response against cfg.ValidateStatus and honour ctx cancellation.
type Adapter interface {
	Adapt(ctx context.Context, cfg *Config) (*Response, error)
}

// AdapterFunc adapts a function to Adapter.
type AdapterFunc func(ctx context.Context, cfg *Config) (*Response, error)

func (f AdapterFunc) Adapt(ctx context.Context, cfg *Config) (*Response, error) {
	return f(ctx, cfg)
}

// Availability is implemented by adapters that can be compiled in but not
// usable at runtime.
type Availability interface {
	Available() bool
}

var (
	adaptersMu sync.RWMutex
	adapters   = map[string]Adapter{}
)

func init() {
	RegisterAdapter("http", NewHTTPAdapter(nil))
	// Browser transports are known by name so configs written for them fail
	// with a clear reason instead of an unknown-adapter error.
	RegisterAdapter("xhr", nil)
	RegisterAdapter("fetch", nil)
}

// RegisterAdapter makes adapter resolvable by name, case-insensitively.
// Registering nil marks the name as known but unsupported.
func RegisterAdapter(name string, adapter Adapter) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	adapters[strings.ToLower(name)] = adapter
}

// AdapterNames lists the registered adapter names in sorted order.
func AdapterNames() []string {
	adaptersMu.RLock()
	defer adaptersMu.RUnlock()
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAdapter resolves the first usable adapter from candidates. Candidates
// are registered names, Adapter values or adapter functions.
func GetAdapter(candidates ...any) (Adapter, error) {
	type rejection struct {
		id          string
		unsupported bool
	}
	var rejected []rejection

	for i, candidate := range candidates {
		id := ""
		var adapter Adapter
		unsupported := false

		switch v := candidate.(type) {
		case string:
			id = v
			adaptersMu.RLock()
			a, known := adapters[strings.ToLower(v)]
			adaptersMu.RUnlock()
			if !known {
				return nil, NewError(fmt.Sprintf("Unknown adapter '%s'", v), CodeNotSupport, nil, nil, nil)
			}
			adapter = a
			unsupported = a == nil
		case Adapter:
			adapter = v
		case func(context.Context, *Config) (*Response, error):
			adapter = AdapterFunc(v)
		}

		if adapter != nil {
			if av, ok := adapter.(Availability); ok && !av.Available() {
				adapter = nil
				unsupported = true
			}
		}
		if adapter != nil {
			return adapter, nil
		}

		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		rejected = append(rejected, rejection{id: id, unsupported: unsupported})
	}

	if len(rejected) == 0 {
		return nil, NewError("There is no suitable adapter to dispatch the request as no adapter specified", CodeNotSupport, nil, nil, nil)
	}

	reasons := make([]string, len(rejected))
	for i, r := range rejected {
		state := "is not available in the build"
		if r.unsupported {
			state = "is not supported by the environment"
		}
		reasons[i] = fmt.Sprintf("- adapter %s %s", r.id, state)
	}

	var msg string
	if len(reasons) > 1 {
		msg = "since :\n" + strings.Join(reasons, "\n")
	} else {
		msg = reasons[0]
	}
	return nil, NewError("There is no suitable adapter to dispatch the request "+msg, CodeNotSupport, nil, nil, nil)
}
