package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware decorates every handler of a registry.
type Middleware func(next ByteHandler) ByteHandler

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware answers a panicking handler with an internal
// ErrorResponse. The plugin call continues.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = NewPanicError(r).ToJSON(), nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs each host call at debug level, and failed ones at
// warn, with the import name and the calling plugin.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			fn, ok := FunctionFrom(ctx)
			if !ok {
				fn = "unknown"
			}
			start := time.Now()
			resp, err := next(ctx, payload)
			attrs := []any{"function", fn, "plugin", PluginFrom(ctx)}
			if err != nil {
				logger.WarnContext(ctx, "host function failed", append(attrs, "error", err)...)
				return resp, err
			}
			logger.DebugContext(ctx, "host function completed", append(attrs, "duration", time.Since(start))...)
			return resp, err
		}
	}
}
