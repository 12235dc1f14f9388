package wazero

import (
	"context"

	"github.com/reglet-dev/devkit/domain/value"
	"github.com/reglet-dev/devkit/hostfuncs"
	"github.com/tetratelabs/wazero/api"
)

// CallContext binds ctx to one plugin for the duration of a boundary call.
// Host functions invoked by the guest during that call act on the given
// arena and state.
func CallContext(ctx context.Context, plugin string, arena *value.Arena, state *hostfuncs.State) context.Context {
	return hostfuncs.WithScope(ctx, &hostfuncs.Scope{Plugin: plugin, Arena: arena, State: state})
}

// caller names the plugin behind a host call in log lines. Calls made
// outside CallContext, such as from a module's start function, fall back
// to the guest module name.
func caller(ctx context.Context, mod api.Module) string {
	if name := hostfuncs.PluginFrom(ctx); name != "" {
		return name
	}
	return mod.Name()
}
