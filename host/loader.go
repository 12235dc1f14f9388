package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/reglet-dev/devkit/application/validation"
	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/domain/ports"
	"github.com/reglet-dev/devkit/infrastructure/parser"
)

// ManifestFile is the manifest name looked up in every plugin directory.
const ManifestFile = "plugin.yaml"

// Discovered is a plugin directory with a parsed, validated manifest.
type Discovered struct {
	Manifest *entities.PluginManifest
	Dir      string
}

// ModulePath returns the path of the plugin's WASM module.
func (d Discovered) ModulePath() string {
	return filepath.Join(d.Dir, d.Manifest.Module)
}

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	parser    ports.ManifestParser
	validator ports.ManifestValidator
	logger    *slog.Logger
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:    parser.NewYamlManifestParser(),
		validator: validation.New(),
		logger:    slog.Default(),
	}
}

// Loader finds plugin directories and loads their modules.
type Loader struct {
	config loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom manifest parser.
func WithParser(p ports.ManifestParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithValidator replaces the manifest validator.
func WithValidator(v ports.ManifestValidator) LoaderOption {
	return func(c *loaderConfig) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithLoaderLogger sets the logger used to report skipped plugins.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{config: cfg}
}

// LoadManifest reads, parses and validates dir/plugin.yaml.
func (l *Loader) LoadManifest(dir string) (*Discovered, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest, err := l.config.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := l.config.validator.ValidateManifest(manifest); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", filepath.Join(dir, ManifestFile), err)
	}
	if !filepath.IsLocal(manifest.Module) {
		return nil, fmt.Errorf("manifest %s: module %q must stay inside the plugin directory", filepath.Join(dir, ManifestFile), manifest.Module)
	}

	return &Discovered{Manifest: manifest, Dir: dir}, nil
}

// Discover returns every plugin under root, ordered by directory name.
// A missing root yields no plugins. Directories whose manifest is invalid,
// and later duplicates of a plugin name, are logged and skipped so one
// broken plugin cannot block the others.
func (l *Loader) Discover(root string) ([]Discovered, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	seen := make(map[string]string)
	var found []Discovered
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
			continue
		}

		d, err := l.LoadManifest(dir)
		if err != nil {
			l.config.logger.Warn("skipping plugin", "dir", dir, "error", err)
			continue
		}
		if prev, dup := seen[d.Manifest.Name]; dup {
			l.config.logger.Warn("skipping duplicate plugin", "plugin", d.Manifest.Name, "dir", dir, "first", prev)
			continue
		}
		seen[d.Manifest.Name] = dir
		found = append(found, *d)
	}
	return found, nil
}

// Load reads the plugin's module and instantiates it, seeding its state.
func (l *Loader) Load(ctx context.Context, exec *Executor, d Discovered, state map[string][]byte) (*PluginInstance, error) {
	wasm, err := os.ReadFile(d.ModulePath())
	if err != nil {
		return nil, fmt.Errorf("failed to read module: %w", err)
	}
	return exec.LoadPlugin(ctx, d.Manifest.Name, wasm, state)
}
