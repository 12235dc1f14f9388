package host

import (
	"log/slog"
	"time"

	"github.com/reglet-dev/devkit/hostfuncs"
	"go.opentelemetry.io/otel/trace"
)

// DefaultHookTimeout bounds every boundary call unless overridden.
const DefaultHookTimeout = 30 * time.Second

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithHostFunctions configures the executor with a host function registry.
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) Option {
	return func(e *Executor) {
		e.registry = registry
	}
}

// WithTracer sets the tracer used for boundary call spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHookTimeout bounds each boundary call. Zero disables the timeout.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.timeout = d
		}
	}
}
