// Package config loads the host settings file (devkit.yaml) and the
// per-plugin configuration sections it carries.
//
// Values are layered in this order, later layers winning: built-in
// defaults, the settings file, then command-line flags that were set
// explicitly.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/reglet-dev/devkit/application/validation"
	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/spf13/pflag"
)

// DefaultFile is the settings file looked up at the project root.
const DefaultFile = "devkit.yaml"

// Settings are the host settings.
type Settings struct {
	Platform    string          `koanf:"platform" yaml:"platform" json:"platform" validate:"required,platform" jsonschema:"enum=web,enum=desktop,default=web"`
	OutDir      string          `koanf:"out_dir" yaml:"out_dir" json:"out_dir" validate:"required" jsonschema:"default=dist"`
	PluginsDir  string          `koanf:"plugins_dir" yaml:"plugins_dir" json:"plugins_dir" validate:"required" jsonschema:"default=plugins"`
	LockFile    string          `koanf:"lock_file" yaml:"lock_file,omitempty" json:"lock_file,omitempty" jsonschema:"description=Overrides lock file discovery"`
	HookTimeout time.Duration   `koanf:"hook_timeout" yaml:"hook_timeout" json:"hook_timeout" validate:"gte=0" jsonschema:"type=string,description=Go duration; 0 disables the timeout"`
	Log         LogSettings     `koanf:"log" yaml:"log" json:"log"`
	Serve       ServeSettings   `koanf:"serve" yaml:"serve" json:"serve"`
	Build       BuildSettings   `koanf:"build" yaml:"build" json:"build"`
	Desktop     DesktopSettings `koanf:"desktop" yaml:"desktop" json:"desktop"`

	// Plugins holds one free-form section per plugin, keyed by plugin name.
	Plugins map[string]any `koanf:"plugins" yaml:"plugins,omitempty" json:"plugins,omitempty"`
}

// LogSettings configure the host logger.
type LogSettings struct {
	Level  string `koanf:"level" yaml:"level" json:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Format string `koanf:"format" yaml:"format" json:"format" validate:"oneof=text json" jsonschema:"enum=text,enum=json,default=text"`
}

// ServeSettings configure the dev server.
type ServeSettings struct {
	Addr string `koanf:"addr" yaml:"addr" json:"addr" validate:"required,hostname_port" jsonschema:"default=127.0.0.1:8080"`

	// Watch lists the source paths that trigger a rebuild, in addition to
	// the paths plugins watch.
	Watch []string `koanf:"watch" yaml:"watch,omitempty" json:"watch,omitempty"`

	// HotReload lists glob patterns of files that are picked up without a
	// rebuild.
	HotReload []string `koanf:"hot_reload" yaml:"hot_reload,omitempty" json:"hot_reload,omitempty"`
}

// BuildSettings describe the external build command.
type BuildSettings struct {
	Command  string   `koanf:"command" yaml:"command" json:"command"`
	Args     []string `koanf:"args" yaml:"args,omitempty" json:"args,omitempty"`
	Artifact string   `koanf:"artifact" yaml:"artifact,omitempty" json:"artifact,omitempty"`
}

// DesktopSettings apply when the platform is desktop.
type DesktopSettings struct {
	AlwaysOnTop bool `koanf:"always_on_top" yaml:"always_on_top" json:"always_on_top" jsonschema:"default=true"`
}

// PlatformValue returns the parsed platform.
func (s *Settings) PlatformValue() entities.Platform {
	return entities.Platform(s.Platform)
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"platform":              string(entities.PlatformWeb),
		"out_dir":               "dist",
		"plugins_dir":           "plugins",
		"hook_timeout":          "30s",
		"log.level":             "info",
		"log.format":            "text",
		"serve.addr":            "127.0.0.1:8080",
		"serve.watch":           []string{"src"},
		"serve.hot_reload":      []string{"**.css", "**.html"},
		"desktop.always_on_top": true,
	}
}

// flagKeys maps command-line flag names to settings keys.
var flagKeys = map[string]string{
	"platform":     "platform",
	"out-dir":      "out_dir",
	"plugins-dir":  "plugins_dir",
	"lock-file":    "lock_file",
	"hook-timeout": "hook_timeout",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"addr":         "serve.addr",
}

// BindFlags registers the flags that override settings. Flags left unset
// never override the settings file.
func BindFlags(flags *pflag.FlagSet) {
	flags.String("platform", "web", "target platform (web or desktop)")
	flags.String("out-dir", "dist", "build output directory")
	flags.String("plugins-dir", "plugins", "directory holding installed plugins")
	flags.String("lock-file", "", "lock file path (default: Devkit.lock at the project root)")
	flags.Duration("hook-timeout", 30*time.Second, "timeout for each plugin hook call (0 disables)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")
}

// Config is the loaded settings plus the underlying document.
type Config struct {
	Settings

	k    *koanf.Koanf
	path string
}

// Path returns the settings file path.
func (c *Config) Path() string { return c.path }

// Load reads the settings file at path, if present, and applies the
// explicitly set flags. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, v := range Defaults() {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to apply flags: %w", err)
		}
	}

	cfg := &Config{k: k, path: path}
	if err := k.UnmarshalWithConf("", &cfg.Settings, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	cfg.Platform = strings.ToLower(cfg.Platform)

	res, err := validation.New().Validate(&cfg.Settings)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
