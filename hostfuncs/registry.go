package hostfuncs

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// HandlerRegistry maps devkit_host import names to handlers. It is built
// once per session and shared read-only by every plugin instance, so
// dispatch takes no locks.
type HandlerRegistry struct {
	functions map[string]HostFunction
	names     []string
}

type registryBuilder struct {
	functions  map[string]HostFunction
	middleware []Middleware
	errs       []error
}

// NewRegistry builds a registry from opts. Every invalid or duplicate name
// is reported, joined into one error.
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware(), LoggingMiddleware(logger)),
//	    WithBundle(CapabilityBundle(caps), HandleBundle(), StateBundle()),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{functions: make(map[string]HostFunction)}
	for _, opt := range opts {
		opt(b)
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}

	r := &HandlerRegistry{
		functions: make(map[string]HostFunction, len(b.functions)),
		names:     make([]string, 0, len(b.functions)),
	}
	for name, fn := range b.functions {
		fn.Handler = chain(fn.Handler, b.middleware)
		r.functions[name] = fn
		r.names = append(r.names, name)
	}
	slices.Sort(r.names)
	return r, nil
}

// chain wraps h so that mw[0] runs outermost.
func chain(h ByteHandler, mw []Middleware) ByteHandler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// Invoke serves one call of the named import. An unknown name is answered
// with a not_found ErrorResponse so the guest sees the failure.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	fn, ok := r.functions[name]
	if !ok {
		return NewNotFoundError(name).ToJSON(), nil
	}
	return fn.Handler(withFunction(ctx, name), payload)
}

// Lookup returns the named function with middleware applied.
func (r *HandlerRegistry) Lookup(name string) (HostFunction, bool) {
	fn, ok := r.functions[name]
	return fn, ok
}

// Has reports whether name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.functions[name]
	return ok
}

// IsVoid reports whether the named function answers nothing.
func (r *HandlerRegistry) IsVoid(name string) bool {
	return r.functions[name].Void
}

// Names returns the registered import names in sorted order.
func (r *HandlerRegistry) Names() []string {
	return slices.Clone(r.names)
}

func (b *registryBuilder) add(name string, fn HostFunction) {
	switch {
	case !validImportName(name):
		b.errs = append(b.errs, fmt.Errorf("invalid host function name %q", name))
	case fn.Handler == nil:
		b.errs = append(b.errs, fmt.Errorf("host function %q has no handler", name))
	default:
		if _, exists := b.functions[name]; exists {
			b.errs = append(b.errs, fmt.Errorf("host function %q registered twice", name))
			return
		}
		b.functions[name] = fn
	}
}

// validImportName accepts the snake_case names guests import from
// devkit_host.
func validImportName(name string) bool {
	if name == "" || name[0] == '_' {
		return false
	}
	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

// WithByteHandler registers a raw handler that does its own decoding.
func WithByteHandler(name string, handler ByteHandler) RegistryOption {
	return func(b *registryBuilder) {
		b.add(name, HostFunction{Handler: handler})
	}
}

// WithMiddleware appends middleware. The first one given runs outermost.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
