package hostfuncs

import (
	"context"

	"github.com/reglet-dev/devkit/domain/value"
)

// Scope is the plugin-specific state a boundary call runs against: the
// calling plugin's name, the arena its handles live in and its opaque state.
type Scope struct {
	Arena  *value.Arena
	State  *State
	Plugin string
}

type (
	scopeKey    struct{}
	functionKey struct{}
)

// WithScope attaches s to ctx for the duration of one boundary call.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the scope attached by WithScope.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}

// PluginFrom returns the name of the plugin whose call ctx belongs to, or
// the empty string outside a plugin call.
func PluginFrom(ctx context.Context) string {
	if s, ok := ScopeFrom(ctx); ok {
		return s.Plugin
	}
	return ""
}

func withFunction(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, functionKey{}, name)
}

// FunctionFrom returns the devkit_host import being served, as set by
// HandlerRegistry.Invoke.
func FunctionFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(functionKey{}).(string)
	return name, ok
}
