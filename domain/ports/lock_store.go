package ports

import (
	"context"

	"github.com/reglet-dev/devkit/domain/entities"
)

// LockStore loads and persists the lock file.
type LockStore interface {
	// Load reads the lock file. An absent file yields an empty state bound
	// to the canonical path, not an error.
	Load(ctx context.Context) (*entities.LockState, error)

	// Save writes the whole state as one atomic replace.
	Save(ctx context.Context, state *entities.LockState) error
}
