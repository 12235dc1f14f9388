package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/reglet-dev/devkit/application/validation"
	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/domain/ports"
)

// SDKModule is the import path plugins build against.
const SDKModule = "github.com/reglet-dev/devkit"

//go:embed skeleton/*.tmpl
var skeleton embed.FS

// ErrExists is returned when a skeleton file would overwrite an existing file.
var ErrExists = errors.New("file already exists")

// Plugin describes the plugin to scaffold.
type Plugin struct {
	Name        string
	Description string
	// Module is the Go module path of the new plugin. Defaults to Name.
	Module string
}

type scaffoldConfig struct {
	engine     ports.TemplateEngine
	sdkVersion string
}

// ScaffoldOption configures a Scaffolder.
type ScaffoldOption func(*scaffoldConfig)

// WithEngine replaces the template engine.
func WithEngine(e ports.TemplateEngine) ScaffoldOption {
	return func(c *scaffoldConfig) {
		c.engine = e
	}
}

// WithSDKVersion sets the devkit version required by the generated go.mod.
func WithSDKVersion(v string) ScaffoldOption {
	return func(c *scaffoldConfig) {
		if v != "" {
			c.sdkVersion = v
		}
	}
}

// Scaffolder writes new plugin projects.
type Scaffolder struct {
	config    scaffoldConfig
	validator *validation.Validator
}

// NewScaffolder creates a Scaffolder with strict rendering.
func NewScaffolder(opts ...ScaffoldOption) *Scaffolder {
	cfg := scaffoldConfig{
		engine:     NewGoTemplateEngine(),
		sdkVersion: "v0.1.0",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scaffolder{config: cfg, validator: validation.New()}
}

// Scaffold renders the plugin skeleton into dir, creating it if needed,
// and returns the written file names in order. Nothing is written if any
// target file already exists.
func (s *Scaffolder) Scaffold(dir string, p Plugin) ([]string, error) {
	if err := s.validator.ValidateManifest(&entities.PluginManifest{
		Name:    p.Name,
		Version: "0.1.0",
		Module:  p.Name + ".wasm",
	}); err != nil {
		return nil, err
	}
	if p.Module == "" {
		p.Module = p.Name
	}
	if p.Description == "" {
		p.Description = "A devkit plugin"
	}
	data := map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"module":      p.Module,
		"sdk":         SDKModule,
		"sdk_version": s.config.sdkVersion,
	}

	entries, err := fs.Glob(skeleton, "skeleton/*.tmpl")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	rendered := make(map[string][]byte, len(entries))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		raw, err := skeleton.ReadFile(entry)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(path.Base(entry), ".tmpl")
		out, err := s.config.engine.Render(name, raw, data)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return nil, fmt.Errorf("%s: %w", filepath.Join(dir, name), ErrExists)
		}
		rendered[name] = out
		names = append(names, name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), rendered[name], 0o644); err != nil { //nolint:gosec // G306: source files
			return nil, err
		}
	}
	return names, nil
}
