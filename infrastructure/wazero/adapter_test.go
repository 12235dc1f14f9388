package wazero

import (
	"context"
	"log/slog"
	"testing"

	"github.com/reglet-dev/devkit/domain/value"
	"github.com/reglet-dev/devkit/hostfuncs"
	"github.com/tetratelabs/wazero"
)

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()

	if cfg.ModuleName != "devkit_host" {
		t.Errorf("ModuleName = %q, want %q", cfg.ModuleName, "devkit_host")
	}
	if cfg.MaxRequestSize != hostfuncs.DefaultMaxRequestSize {
		t.Errorf("MaxRequestSize = %d, want %d", cfg.MaxRequestSize, hostfuncs.DefaultMaxRequestSize)
	}
	if cfg.Logger == nil {
		t.Error("Logger is nil")
	}
}

func TestOptions(t *testing.T) {
	cfg := defaultAdapterConfig()
	logger := slog.New(slog.DiscardHandler)
	WithModuleName("custom_module")(&cfg)
	WithMaxRequestSize(2048)(&cfg)
	WithLogger(logger)(&cfg)
	WithLogger(nil)(&cfg)

	if cfg.ModuleName != "custom_module" {
		t.Errorf("ModuleName = %q, want %q", cfg.ModuleName, "custom_module")
	}
	if cfg.MaxRequestSize != 2048 {
		t.Errorf("MaxRequestSize = %d, want %d", cfg.MaxRequestSize, 2048)
	}
	if cfg.Logger != logger {
		t.Error("WithLogger(nil) must keep the previous logger")
	}
}

func TestRegisterWithRuntime_Signatures(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithBundle(
			hostfuncs.CapabilityBundle(hostfuncs.Capabilities{}),
			hostfuncs.HandleBundle(),
			hostfuncs.StateBundle(),
		),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if err := RegisterWithRuntime(ctx, runtime, registry); err != nil {
		t.Fatalf("RegisterWithRuntime: %v", err)
	}

	mod := runtime.Module(DefaultModuleName)
	if mod == nil {
		t.Fatalf("host module %q not instantiated", DefaultModuleName)
	}

	defs := mod.ExportedFunctionDefinitions()
	if len(defs) != len(registry.Names()) {
		t.Errorf("exported %d functions, registry has %d", len(defs), len(registry.Names()))
	}
	for _, name := range registry.Names() {
		def, ok := defs[name]
		if !ok {
			t.Errorf("function %q not exported", name)
			continue
		}
		if got := len(def.ParamTypes()); got != 1 {
			t.Errorf("%s: %d params, want 1", name, got)
		}
		wantResults := 1
		if registry.IsVoid(name) {
			wantResults = 0
		}
		if got := len(def.ResultTypes()); got != wantResults {
			t.Errorf("%s: %d results, want %d", name, got, wantResults)
		}
	}
}

func TestCallContext(t *testing.T) {
	arena := value.NewArena()
	state := hostfuncs.NewState(nil)
	ctx := CallContext(context.Background(), "tailwind", arena, state)

	scope, ok := hostfuncs.ScopeFrom(ctx)
	if !ok || scope.Plugin != "tailwind" || scope.Arena != arena || scope.State != state {
		t.Fatal("scope does not carry the plugin, arena and state")
	}
	if got := hostfuncs.PluginFrom(ctx); got != "tailwind" {
		t.Errorf("PluginFrom = %q, want tailwind", got)
	}
}
