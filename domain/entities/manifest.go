package entities

// PluginManifest describes an installed plugin. It is read from the
// plugin.yaml file found in each plugin directory.
type PluginManifest struct {
	// Name is the unique plugin key used in the lock file.
	Name string `json:"name" yaml:"name" validate:"required,max=64,pluginname" jsonschema:"pattern=^[a-z0-9][a-z0-9_-]*$"`

	// Version is informational and reported by `devkit plugin list`.
	Version string `json:"version" yaml:"version" validate:"required"`

	// Description is a one-line summary.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Module is the path of the compiled WASM module, relative to the
	// plugin directory.
	Module string `json:"module" yaml:"module" validate:"required,endswith=.wasm"`
}

// Metadata is what a plugin reports about itself through the optional
// describe export.
type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
}
