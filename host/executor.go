package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reglet-dev/devkit/domain/value"
	"github.com/reglet-dev/devkit/hostfuncs"
	adapter "github.com/reglet-dev/devkit/infrastructure/wazero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Sentinel errors for plugin calls.
var (
	ErrExportNotFound = errors.New("export not found")
	ErrPluginDisabled = errors.New("plugin disabled after a timed out call")
	ErrNullResponse   = errors.New("null response from plugin")
)

// Executor manages the wazero runtime shared by all plugins of a session.
type Executor struct {
	runtime  wazero.Runtime
	registry *hostfuncs.HandlerRegistry
	tracer   trace.Tracer
	logger   *slog.Logger
	timeout  time.Duration
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		tracer:  noop.NewTracerProvider().Tracer("devkit/host"),
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		reg, err := hostfuncs.NewRegistry(
			hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
			hostfuncs.WithBundle(hostfuncs.HandleBundle(), hostfuncs.StateBundle()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		e.registry = reg
	}

	// A call whose context expires is interrupted instead of blocking the
	// session forever.
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := adapter.RegisterWithRuntime(ctx, rt, e.registry, adapter.WithLogger(e.logger)); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Close releases resources held by the executor, including every plugin
// module it instantiated.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// LoadPlugin compiles and instantiates a plugin module under name. state
// seeds the plugin's opaque state store.
func (e *Executor) LoadPlugin(ctx context.Context, name string, wasmBytes []byte, state map[string][]byte) (*PluginInstance, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module %s: %w", name, err)
	}

	// Plugins are reactors: the host drives them through exports, so _start
	// must not run.
	cfg := wazero.NewModuleConfig().WithName(name).WithStartFunctions()
	mod, err := e.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module %s: %w", name, err)
	}

	p := &PluginInstance{
		module:  mod,
		arena:   value.NewArena(),
		state:   hostfuncs.NewState(state),
		tracer:  e.tracer,
		logger:  e.logger.With("plugin", name),
		timeout: e.timeout,
		name:    name,
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		initCtx := adapter.CallContext(ctx, name, p.arena, p.state)
		if _, err := init.Call(initCtx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	return p, nil
}
