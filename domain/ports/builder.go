package ports

import (
	"context"

	"github.com/reglet-dev/devkit/domain/entities"
)

// Builder runs the external build pipeline that produces the application
// artifact. Diagnostics are delivered to emit as they are produced.
// A non-zero terminal status is returned as an error.
type Builder interface {
	Build(ctx context.Context, opts entities.BuildOptions, emit func(entities.Diagnostic)) (*entities.BuildResult, error)
}
