package ports

import (
	"context"

	"github.com/reglet-dev/devkit/domain/value"
)

// Plugin is the lifecycle interface every loaded plugin implements.
//
// Fallible hooks return nil on success. A non-nil error is either the
// plugin's own failure report or a failure of the boundary call itself
// (transport, trap, timeout); callers treat both as a failure of that hook.
// Calls on one Plugin are never concurrent.
type Plugin interface {
	// Name is the unique key of the plugin in the lock file.
	Name() string

	// GetDefaultConfig returns the configuration used to seed a project the
	// first time the plugin is referenced.
	GetDefaultConfig(ctx context.Context) (value.Value, error)

	// ApplyConfig hands the plugin its configuration for this session.
	ApplyConfig(ctx context.Context, config value.Value) error

	// Register runs once across the plugin's persisted lifetime.
	Register(ctx context.Context) error

	BeforeBuild(ctx context.Context) error
	BeforeServe(ctx context.Context) error
	OnRebuild(ctx context.Context) error

	// OnHotReload is a best-effort notification. The error only reports
	// that the call could not be delivered.
	OnHotReload(ctx context.Context) error

	// OnWatchedPathsChange delivers the complete watched-path set.
	OnWatchedPathsChange(ctx context.Context, paths []string) error

	// State returns a copy of the plugin's opaque state.
	State() map[string][]byte
}

// PluginCloser is implemented by plugins that own runtime resources.
type PluginCloser interface {
	Close(ctx context.Context) error
}
