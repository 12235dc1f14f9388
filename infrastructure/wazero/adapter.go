package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/devkit/hostfuncs"
	"github.com/reglet-dev/devkit/internal/abi"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// DefaultModuleName is the import module plugins link host functions from.
const DefaultModuleName = "devkit_host"

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	// Logger receives adapter failures. Defaults to slog.Default().
	Logger *slog.Logger

	// ModuleName is the host module name (default: "devkit_host").
	ModuleName string

	// MaxRequestSize limits the size of incoming requests from guest memory.
	// Default is 1MB.
	MaxRequestSize uint32
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "devkit_host").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		c.MaxRequestSize = size
	}
}

// WithLogger sets the logger used for adapter failures.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// defaultAdapterConfig returns the default adapter configuration.
func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Logger:         slog.Default(),
		ModuleName:     DefaultModuleName,
		MaxRequestSize: hostfuncs.DefaultMaxRequestSize,
	}
}

// RegisterWithRuntime instantiates a host module exporting every function of
// registry. Each export copies its request out of guest memory and invokes
// the handler under the plugin scope carried by ctx. Value functions copy
// the response into a buffer from the guest's "allocate" export and return
// it packed; void functions only log failures.
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) error {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)

	params := []api.ValueType{api.ValueTypeI64}
	for _, name := range registry.Names() {
		fn, _ := registry.Lookup(name)
		results := []api.ValueType{api.ValueTypeI64}
		call := func(ctx context.Context, mod api.Module, stack []uint64) {
			handleRegistryCall(ctx, mod, stack, registry, name, cfg)
		}
		if fn.Void {
			results = nil
			call = func(ctx context.Context, mod api.Module, stack []uint64) {
				handleVoidCall(ctx, mod, stack, registry, name, cfg)
			}
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(call), params, results).
			Export(name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("instantiate host module %s: %w", cfg.ModuleName, err)
	}
	return nil
}

// readRequest copies the request bytes out of guest memory.
func readRequest(mod api.Module, packed uint64, maxRequestSize uint32) ([]byte, *hostfuncs.ErrorResponse) {
	ptr, length := abi.Split(packed)
	if length == 0 {
		return nil, nil
	}
	if length > maxRequestSize {
		e := hostfuncs.NewValidationError(fmt.Sprintf("request size %d exceeds maximum %d bytes", length, maxRequestSize))
		return nil, &e
	}
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		e := hostfuncs.NewInternalError("failed to read request from guest memory")
		return nil, &e
	}
	// Read returns a view; the guest may reuse the buffer.
	return append([]byte(nil), data...), nil
}

// handleRegistryCall handles a value-returning host function call from WASM.
func handleRegistryCall(ctx context.Context, mod api.Module, stack []uint64, registry *hostfuncs.HandlerRegistry, name string, cfg AdapterConfig) {
	requestBytes, errResp := readRequest(mod, stack[0], cfg.MaxRequestSize)
	if errResp != nil {
		cfg.Logger.ErrorContext(ctx, "wazero: "+errResp.Err.Message, "function", name, "plugin", caller(ctx, mod))
		stack[0] = writeResponse(ctx, cfg.Logger, mod, errResp.ToJSON())
		return
	}

	responseBytes, err := registry.Invoke(ctx, name, requestBytes)
	if err != nil {
		cfg.Logger.ErrorContext(ctx, "wazero: handler invocation failed", "function", name, "plugin", caller(ctx, mod), "error", err)
		stack[0] = writeResponse(ctx, cfg.Logger, mod, hostfuncs.NewInternalError(err.Error()).ToJSON())
		return
	}

	stack[0] = writeResponse(ctx, cfg.Logger, mod, responseBytes)
}

// handleVoidCall handles a host function call with no result. Failures can
// only be logged.
func handleVoidCall(ctx context.Context, mod api.Module, stack []uint64, registry *hostfuncs.HandlerRegistry, name string, cfg AdapterConfig) {
	requestBytes, errResp := readRequest(mod, stack[0], cfg.MaxRequestSize)
	if errResp != nil {
		cfg.Logger.ErrorContext(ctx, "wazero: "+errResp.Err.Message, "function", name, "plugin", caller(ctx, mod))
		return
	}
	if _, err := registry.Invoke(ctx, name, requestBytes); err != nil {
		cfg.Logger.WarnContext(ctx, "wazero: void host function failed", "function", name, "plugin", caller(ctx, mod), "error", err)
	}
}

// writeResponse allocates memory in the guest and writes the response bytes.
// Returns packed ptr+len or 0 on failure.
func writeResponse(ctx context.Context, logger *slog.Logger, mod api.Module, data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}

	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		logger.ErrorContext(ctx, "wazero: guest module missing 'allocate' export")
		return 0
	}

	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil {
		logger.ErrorContext(ctx, "wazero: failed to call guest allocate", "error", err)
		return 0
	}
	if len(results) == 0 || uint32(results[0]) == 0 { //nolint:gosec // G115: WASM32 pointers are always 32-bit
		logger.ErrorContext(ctx, "wazero: guest allocate returned no buffer", "size", len(data))
		return 0
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit

	if !mod.Memory().Write(ptr, data) {
		logger.ErrorContext(ctx, "wazero: failed to write response to guest memory")
		return 0
	}

	return abi.PackPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: Data length is bounded by config
}
