package pluginsdk

import (
	"github.com/reglet-dev/devkit/domain/value"
)

// Metadata describes a plugin to the host's describe call.
type Metadata struct {
	Name        string
	Version     string
	Description string
}

// Plugin is implemented by a devkit plugin. Embed Base to implement only
// the hooks the plugin cares about.
//
// A returned error marks the hook as failed. Returning a
// *wireformat.ErrorDetail controls the type and code the host logs;
// any other error is reported with type "hook".
type Plugin interface {
	Describe() Metadata
	// DefaultConfig is called when the project has no configuration
	// section for the plugin. The result is written back to the project.
	DefaultConfig() (value.Value, error)
	// ApplyConfig receives the plugin's configuration section. An error
	// skips the plugin for the session.
	ApplyConfig(config Handle) error
	// Register is called once per project, the first time the plugin is
	// loaded. An error leaves the plugin unregistered and it is retried
	// next session.
	Register() error
	BeforeBuild() error
	BeforeServe() error
	OnRebuild() error
	OnHotReload()
	// OnWatchedPathsChange receives the complete watched set after any
	// plugin changes it.
	OnWatchedPathsChange(paths []string)
}

// Base implements every hook as a no-op. DefaultConfig returns an empty
// table.
type Base struct{}

func (Base) Describe() Metadata { return Metadata{} }

func (Base) DefaultConfig() (value.Value, error) { return value.Table(), nil }

func (Base) ApplyConfig(Handle) error { return nil }

func (Base) Register() error { return nil }

func (Base) BeforeBuild() error { return nil }

func (Base) BeforeServe() error { return nil }

func (Base) OnRebuild() error { return nil }

func (Base) OnHotReload() {}

func (Base) OnWatchedPathsChange([]string) {}

var registered Plugin

// Register installs p as the module's plugin. Call it from init.
func Register(p Plugin) {
	registered = p
}
