package host

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/reglet-dev/devkit/domain/entities"
	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/reglet-dev/devkit/domain/ports"
	"github.com/reglet-dev/devkit/domain/value"
	"github.com/reglet-dev/devkit/hostfuncs"
	adapter "github.com/reglet-dev/devkit/infrastructure/wazero"
	"github.com/reglet-dev/devkit/wireformat"
	"github.com/tetratelabs/wazero/api"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	_ ports.Plugin       = (*PluginInstance)(nil)
	_ ports.PluginCloser = (*PluginInstance)(nil)
)

// PluginInstance is an instantiated plugin module. It is not safe for
// concurrent use.
type PluginInstance struct {
	module   api.Module
	arena    *value.Arena
	state    *hostfuncs.State
	tracer   trace.Tracer
	logger   *slog.Logger
	name     string
	timeout  time.Duration
	disabled bool
}

// Name returns the plugin's lock file key.
func (p *PluginInstance) Name() string { return p.name }

// State returns a copy of the plugin's opaque state.
func (p *PluginInstance) State() map[string][]byte { return p.state.Snapshot() }

// Close releases the module.
func (p *PluginInstance) Close(ctx context.Context) error {
	return p.module.Close(ctx)
}

// Describe calls the optional "describe" export.
func (p *PluginInstance) Describe(ctx context.Context) (entities.Metadata, error) {
	defer p.arena.Reset()
	var meta wireformat.MetadataWire
	if err := p.call(ctx, "describe", nil, &meta); err != nil {
		return entities.Metadata{}, err
	}
	return entities.Metadata(meta), nil
}

// GetDefaultConfig calls get_default_config. The plugin may answer with an
// inline value or with a handle it created through toml_new.
func (p *PluginInstance) GetDefaultConfig(ctx context.Context) (value.Value, error) {
	defer p.arena.Reset()
	export := string(entities.HookGetDefaultConfig)

	var resp wireformat.HandleValueWire
	if err := p.call(ctx, export, nil, &resp); err != nil {
		return value.Value{}, err
	}
	if resp.Error != nil {
		return value.Value{}, resp.Error
	}
	if resp.Value != nil {
		return wireformat.DecodeValue(*resp.Value)
	}
	h, err := p.arena.Lookup(value.HandleID(resp.Handle))
	if err != nil {
		return value.Value{}, &derrors.TransportError{Operation: "decode", Type: export, Err: err}
	}
	v, err := h.Get()
	if err != nil {
		return value.Value{}, &derrors.TransportError{Operation: "decode", Type: export, Err: err}
	}
	if err := v.Validate(); err != nil {
		return value.Value{}, &derrors.TransportError{Operation: "decode", Type: export, Err: err}
	}
	return v, nil
}

// ApplyConfig hands config to the plugin behind a fresh handle.
func (p *PluginInstance) ApplyConfig(ctx context.Context, config value.Value) error {
	defer p.arena.Reset()
	export := string(entities.HookApplyConfig)

	if err := config.Validate(); err != nil {
		return &derrors.TransportError{Operation: "encode", Type: export, Err: err}
	}
	h := p.arena.New(config)

	var resp wireformat.ResultWire
	if err := p.call(ctx, export, wireformat.HandleWire{Handle: uint32(h.ID())}, &resp); err != nil {
		return err
	}
	return resultError(resp)
}

// Register calls register.
func (p *PluginInstance) Register(ctx context.Context) error {
	return p.fallible(ctx, entities.HookRegister)
}

// BeforeBuild calls before_build.
func (p *PluginInstance) BeforeBuild(ctx context.Context) error {
	return p.fallible(ctx, entities.HookBeforeBuild)
}

// BeforeServe calls before_serve.
func (p *PluginInstance) BeforeServe(ctx context.Context) error {
	return p.fallible(ctx, entities.HookBeforeServe)
}

// OnRebuild calls on_rebuild.
func (p *PluginInstance) OnRebuild(ctx context.Context) error {
	return p.fallible(ctx, entities.HookOnRebuild)
}

// OnHotReload calls on_hot_reload. The export returns nothing.
func (p *PluginInstance) OnHotReload(ctx context.Context) error {
	defer p.arena.Reset()
	return p.call(ctx, string(entities.HookOnHotReload), nil, nil)
}

// OnWatchedPathsChange delivers the complete watched-path set.
func (p *PluginInstance) OnWatchedPathsChange(ctx context.Context, paths []string) error {
	defer p.arena.Reset()
	if paths == nil {
		paths = []string{}
	}
	return p.call(ctx, string(entities.HookOnWatchedPathsChange), wireformat.PathsWire{Paths: paths}, nil)
}

func (p *PluginInstance) fallible(ctx context.Context, hook entities.Hook) error {
	defer p.arena.Reset()
	var resp wireformat.ResultWire
	if err := p.call(ctx, string(hook), nil, &resp); err != nil {
		return err
	}
	return resultError(resp)
}

// call performs one boundary call: encode input, invoke the export under
// the hook timeout with the plugin scope attached, decode the response
// into out when out is non-nil.
func (p *PluginInstance) call(ctx context.Context, export string, input, out any) (err error) {
	ctx, span := p.tracer.Start(ctx, "PluginInstance.Call",
		trace.WithAttributes(
			attribute.String("plugin.name", p.name),
			attribute.String("plugin.export", export),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if p.disabled {
		return ErrPluginDisabled
	}

	var payload []byte
	if input != nil {
		payload, err = json.Marshal(input)
		if err != nil {
			return &derrors.TransportError{Operation: "encode", Type: export, Err: err}
		}
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	callCtx = adapter.CallContext(callCtx, p.name, p.arena, p.state)

	packed, err := p.invokeExport(callCtx, export, payload)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			// The runtime closed the module; it cannot be called again.
			p.disabled = true
			p.logger.WarnContext(ctx, "plugin call timed out", "export", export, "timeout", p.timeout)
			return &derrors.TimeoutError{Operation: export, Target: p.name, Duration: p.timeout}
		}
		return err
	}
	if out == nil {
		return nil
	}
	return p.decodeResult(export, packed, out)
}

// resultError turns a success|failure result into an error.
func resultError(resp wireformat.ResultWire) error {
	if resp.OK {
		return nil
	}
	if resp.Error != nil {
		return resp.Error
	}
	return errors.New("plugin reported failure")
}
