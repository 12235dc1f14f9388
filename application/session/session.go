// Package session ties the plugin host together for one run of the CLI:
// settings, lock state, the WASM executor, the registry and the
// collaborators the lifecycle hooks drive (build command, dev server,
// live reload and file watching).
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/reglet-dev/devkit/application/config"
	"github.com/reglet-dev/devkit/application/registry"
	"github.com/reglet-dev/devkit/application/watchset"
	"github.com/reglet-dev/devkit/domain/entities"
	"github.com/reglet-dev/devkit/domain/ports"
	"github.com/reglet-dev/devkit/domain/value"
	"github.com/reglet-dev/devkit/host"
	"github.com/reglet-dev/devkit/hostfuncs"
	"github.com/reglet-dev/devkit/infrastructure/builder"
	"github.com/reglet-dev/devkit/infrastructure/lockstore"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	tracer     trace.Tracer
	builder    ports.Builder
	flags      *pflag.FlagSet
	configPath string
	config     *config.Config
	readOnly   bool
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegisterer registers hook metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracer traces every plugin boundary call.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithBuilder replaces the build command from the settings.
func WithBuilder(b ports.Builder) Option {
	return func(o *options) {
		o.builder = b
	}
}

// WithFlags applies explicitly set command-line flags over the settings
// file.
func WithFlags(flags *pflag.FlagSet) Option {
	return func(o *options) {
		o.flags = flags
	}
}

// WithConfigFile reads settings from path instead of devkit.yaml at the
// project root.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithConfig uses already loaded settings. The settings file and flags
// options are then ignored.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithReadOnly opens the session for inspection. Plugins are loaded but
// receive no configuration, the settings file is not seeded with defaults
// and Close does not write the lock file.
func WithReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// PluginInfo describes a loaded plugin.
type PluginInfo struct {
	Manifest entities.PluginManifest
	Record   entities.PluginRecord
	Dir      string
	Skipped  bool
}

// Session is one run of the plugin host over a project.
type Session struct {
	ID     string
	Config *config.Config

	root      string
	logger    *slog.Logger
	exec      *host.Executor
	loader    *host.Loader
	registry  *registry.Registry
	paths     *watchset.Set
	reloader  *reloadGate
	builder   ports.Builder
	plugins   map[string]*host.PluginInstance
	installed map[string]host.Discovered
	readOnly  bool
}

// Open loads the settings and lock file of the project at root, loads every
// installed plugin and hands each its configuration. Plugins whose section
// is missing from the settings file get their defaults written back.
// Registration is left to Initialize.
func Open(ctx context.Context, root string, opts ...Option) (s *Session, err error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if o.configPath == "" {
		o.configPath = filepath.Join(root, config.DefaultFile)
	}

	cfg := o.config
	if cfg == nil {
		cfg, err = config.Load(o.configPath, o.flags)
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", o.configPath).Wrap(err)
		}
	}

	s = &Session{
		ID:        ulid.Make().String(),
		Config:    cfg,
		root:      root,
		paths:     watchset.New(),
		reloader:  &reloadGate{},
		builder:   o.builder,
		plugins:   make(map[string]*host.PluginInstance),
		installed: make(map[string]host.Discovered),
		readOnly:  o.readOnly,
	}
	s.logger = o.logger.With("session", s.ID)
	if s.builder == nil && cfg.Build.Command != "" {
		s.builder = &builder.Command{
			Name:     cfg.Build.Command,
			Args:     cfg.Build.Args,
			Artifact: cfg.Build.Artifact,
			Dir:      root,
		}
	}

	store := lockstore.New(root, lockstore.WithPath(cfg.LockFile))
	lock, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	hostFuncs, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware(), hostfuncs.LoggingMiddleware(s.logger)),
		hostfuncs.WithBundle(hostfuncs.CapabilityBundle(hostfuncs.Capabilities{
			Reloader:  s.reloader,
			Paths:     s.paths,
			Logger:    s.logger,
			Platform:  cfg.PlatformValue(),
			OutputDir: s.OutDir(),
		})),
		hostfuncs.WithBundle(hostfuncs.HandleBundle(), hostfuncs.StateBundle()),
	)
	if err != nil {
		return nil, err
	}

	s.exec, err = host.NewExecutor(ctx,
		host.WithHostFunctions(hostFuncs),
		host.WithLogger(s.logger),
		host.WithTracer(o.tracer),
		host.WithHookTimeout(cfg.HookTimeout),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = s.exec.Close(ctx)
		}
	}()

	regOpts := []registry.Option{
		registry.WithLogger(s.logger),
		registry.WithWatchedPaths(s.paths),
	}
	if o.registerer != nil {
		regOpts = append(regOpts, registry.WithMetrics(registry.NewMetrics(o.registerer)))
	}
	s.registry = registry.New(lock, store, regOpts...)
	s.loader = host.NewLoader(host.WithLoaderLogger(s.logger))

	discovered, err := s.loader.Discover(s.PluginsDir())
	if err != nil {
		return nil, err
	}

	configs := make(map[string]value.Value, len(discovered))
	var missing []string
	for _, d := range discovered {
		name := d.Manifest.Name
		s.registry.MarkInstalled(name)
		v, ok, err := cfg.PluginConfig(name)
		if err != nil {
			s.logger.ErrorContext(ctx, "invalid plugin configuration, plugin not loaded", "plugin", name, "error", err)
			continue
		}

		inst, err := s.loader.Load(ctx, s.exec, d, s.registry.Record(name).State)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to load plugin", "plugin", name, "error", err)
			continue
		}
		if err := s.registry.Add(inst); err != nil {
			_ = inst.Close(ctx)
			return nil, err
		}
		s.plugins[name] = inst
		s.installed[name] = d

		if ok {
			configs[name] = v
		} else {
			missing = append(missing, name)
		}
	}

	if !s.readOnly {
		for _, name := range missing {
			if v, ok := s.seedDefaults(ctx, name); ok {
				configs[name] = v
			}
		}
		s.registry.ApplyConfig(ctx, configs)
	}

	s.logger.DebugContext(ctx, "session opened", "root", root, "plugins", len(s.plugins), "read_only", s.readOnly)
	return s, nil
}

// seedDefaults fetches the plugin's default configuration and writes it
// back to the settings file.
func (s *Session) seedDefaults(ctx context.Context, name string) (value.Value, bool) {
	v, err := s.registry.DefaultConfig(ctx, name)
	if err != nil {
		s.logger.WarnContext(ctx, "no default configuration", "plugin", name, "error", err)
		return value.Value{}, false
	}
	if err := s.Config.SeedPlugin(name, v); err != nil {
		s.logger.WarnContext(ctx, "failed to write default configuration", "plugin", name, "error", err)
	}
	return v, true
}

// Root returns the project root.
func (s *Session) Root() string { return s.root }

// OutDir returns the absolute build output directory.
func (s *Session) OutDir() string { return s.abs(s.Config.OutDir) }

// PluginsDir returns the absolute plugins directory.
func (s *Session) PluginsDir() string { return s.abs(s.Config.PluginsDir) }

// WatchedPaths returns the watched-path set shared with plugins.
func (s *Session) WatchedPaths() *watchset.Set { return s.paths }

// Initialize registers plugins that were never registered in this project
// and saves the lock file.
func (s *Session) Initialize(ctx context.Context) ([]entities.HookFailure, error) {
	return s.registry.InitializeNew(ctx)
}

// Plugins describes the loaded plugins in dispatch order.
func (s *Session) Plugins() []PluginInfo {
	records := s.registry.Records()
	out := make([]PluginInfo, 0, len(records))
	for _, rec := range records {
		d := s.installed[rec.Name]
		info := PluginInfo{Record: rec, Dir: d.Dir, Skipped: s.registry.Skipped(rec.Name)}
		if d.Manifest != nil {
			info.Manifest = *d.Manifest
		}
		out = append(out, info)
	}
	return out
}

// Close saves the lock file, capturing plugin state, and releases every
// plugin. A project without plugins, or a read-only session, gets no lock
// file. The save error, if any, is returned alongside release errors.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if len(s.plugins) > 0 && !s.readOnly {
		if err := s.registry.Save(ctx, true); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.registry.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.exec.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close runtime: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Session) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, p)
}
