// Package registry drives plugin lifecycle hooks and owns the lock state.
//
// Every operation dispatches one hook to every loaded plugin, in the order
// the plugins were added, before returning. Plugin failures are isolated:
// they are logged, counted and reported back as entities.HookFailure values
// but never stop the remaining plugins. Only lock file persistence errors
// are returned as errors.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/reglet-dev/devkit/domain/entities"
	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/reglet-dev/devkit/domain/ports"
	"github.com/reglet-dev/devkit/domain/value"
	"github.com/samber/oops"
)

// maxNotifyRounds bounds how often NotifyWatchedPaths redelivers when
// plugins keep changing the set from inside on_watched_paths_change.
const maxNotifyRounds = 8

// ChangeSource reports watched-path changes since the last call.
type ChangeSource interface {
	TakeChanged() ([]string, bool)
}

type loaded struct {
	plugin ports.Plugin

	// skipped is set when apply_config failed or a call timed out. The
	// plugin receives no further hooks this session.
	skipped bool
}

// Registry dispatches lifecycle hooks to loaded plugins.
type Registry struct {
	lock    *entities.LockState
	store   ports.LockStore
	paths   ChangeSource
	metrics *Metrics
	logger  *slog.Logger
	plugins []*loaded

	// installed names plugins present on disk, loaded or not. Their
	// records survive pruning.
	installed map[string]struct{}
	mu        sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report plugin failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records hook calls on m.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithWatchedPaths makes the registry deliver on_watched_paths_change
// after every dispatched hook that changed the set.
func WithWatchedPaths(src ChangeSource) Option {
	return func(r *Registry) {
		r.paths = src
	}
}

// New creates a registry over lock, persisted through store.
func New(lock *entities.LockState, store ports.LockStore, opts ...Option) *Registry {
	if lock == nil {
		lock = entities.NewLockState("")
	}
	r := &Registry{
		lock:   lock,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends p to the dispatch order. Plugin names are unique.
func (r *Registry) Add(p ports.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(p.Name()) != nil {
		return oops.Code("PLUGIN_DUPLICATE").With("plugin", p.Name()).Errorf("plugin %s already loaded", p.Name())
	}
	r.plugins = append(r.plugins, &loaded{plugin: p})
	return nil
}

// MarkInstalled records that the named plugins are installed, whether or
// not they load this session.
func (r *Registry) MarkInstalled(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.installed == nil {
		r.installed = make(map[string]struct{}, len(names))
	}
	for _, name := range names {
		r.installed[name] = struct{}{}
	}
}

// Names returns the loaded plugin names in dispatch order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.plugins))
	for i, l := range r.plugins {
		names[i] = l.plugin.Name()
	}
	return names
}

// Records returns the lock records of the loaded plugins in dispatch order.
// A plugin without a record yet reports an empty, uninitialized one.
func (r *Registry) Records() []entities.PluginRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entities.PluginRecord, 0, len(r.plugins))
	for _, l := range r.plugins {
		name := l.plugin.Name()
		rec, ok := r.lock.Plugins[name]
		if !ok {
			rec = entities.PluginRecord{Name: name}
		}
		out = append(out, rec.Clone())
	}
	return out
}

// Record returns a copy of the named plugin's lock record, loaded or not.
func (r *Registry) Record(name string) entities.PluginRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.lock.Plugins[name]
	if !ok {
		return entities.PluginRecord{Name: name}
	}
	return rec.Clone()
}

// Skipped reports whether the named plugin is excluded from further hooks
// this session.
func (r *Registry) Skipped(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.find(name)
	return l != nil && l.skipped
}

// DefaultConfig asks the named plugin for its default configuration.
func (r *Registry) DefaultConfig(ctx context.Context, name string) (value.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.find(name)
	if l == nil {
		return value.Value{}, oops.Code("PLUGIN_NOT_FOUND").With("plugin", name).Errorf("plugin %s not loaded", name)
	}

	start := time.Now()
	v, err := l.plugin.GetDefaultConfig(ctx)
	r.metrics.observe(name, entities.HookGetDefaultConfig, outcome(err), time.Since(start))
	if err != nil {
		r.noteTimeout(l, err)
		return value.Value{}, &derrors.HookError{Plugin: name, Hook: entities.HookGetDefaultConfig, Err: err}
	}
	return v, nil
}

// ApplyConfig hands each plugin its configuration. A plugin missing from
// configs receives an empty table. A plugin that rejects its configuration
// is skipped for the rest of the session.
func (r *Registry) ApplyConfig(ctx context.Context, configs map[string]value.Value) []entities.HookFailure {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures := r.dispatch(ctx, entities.HookApplyConfig, func(l *loaded) error {
		cfg, ok := configs[l.plugin.Name()]
		if !ok {
			cfg = value.Table()
		}
		return l.plugin.ApplyConfig(ctx, cfg)
	})
	for _, f := range failures {
		if l := r.find(f.Plugin); l != nil {
			l.skipped = true
		}
	}
	return failures
}

// InitializeNew registers every plugin whose record is not yet initialized,
// then drops the records of plugins that are neither loaded nor installed.
// A plugin that is installed but failed to load keeps its record untouched.
// When any plugin is loaded the lock file is saved, capturing the state of
// initialized plugins.
func (r *Registry) InitializeNew(ctx context.Context) ([]entities.HookFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures := r.register(ctx)

	kept := make(map[string]entities.PluginRecord, len(r.plugins)+len(r.installed))
	for name := range r.installed {
		if rec, ok := r.lock.Plugins[name]; ok {
			kept[name] = rec
		}
	}
	for _, l := range r.plugins {
		name := l.plugin.Name()
		kept[name] = r.lock.Record(name)
	}
	r.lock.Plugins = kept

	if len(r.plugins) == 0 {
		return failures, nil
	}
	return failures, r.save(ctx, true)
}

// AddPlugin adds p, registers it if its record is not initialized, captures
// its state whether or not registration succeeded and saves the lock file
// without touching other plugins' records.
func (r *Registry) AddPlugin(ctx context.Context, p ports.Plugin) ([]entities.HookFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	l := r.find(name)
	if l == nil {
		l = &loaded{plugin: p}
		r.plugins = append(r.plugins, l)
	}

	var failures []entities.HookFailure
	rec := r.lock.Record(name)
	if !rec.Initialized && !l.skipped {
		if f := r.call(ctx, l, entities.HookRegister, l.plugin.Register); f != nil {
			failures = append(failures, *f)
		} else {
			rec.Initialized = true
		}
	}
	rec.State = l.plugin.State()
	r.lock.Put(rec)
	failures = append(failures, r.notifyPaths(ctx)...)

	return failures, r.save(ctx, false)
}

// BeforeBuild dispatches before_build. A failure never stops the build.
func (r *Registry) BeforeBuild(ctx context.Context) []entities.HookFailure {
	return r.hook(ctx, entities.HookBeforeBuild, ports.Plugin.BeforeBuild)
}

// BeforeServe dispatches before_serve.
func (r *Registry) BeforeServe(ctx context.Context) []entities.HookFailure {
	return r.hook(ctx, entities.HookBeforeServe, ports.Plugin.BeforeServe)
}

// OnRebuild dispatches on_rebuild.
func (r *Registry) OnRebuild(ctx context.Context) []entities.HookFailure {
	return r.hook(ctx, entities.HookOnRebuild, ports.Plugin.OnRebuild)
}

// OnHotReload notifies every plugin of a hot reload. Delivery failures are
// logged and otherwise ignored.
func (r *Registry) OnHotReload(ctx context.Context) {
	_ = r.hook(ctx, entities.HookOnHotReload, ports.Plugin.OnHotReload)
}

// NotifyWatchedPaths delivers the complete watched-path set to every plugin
// if it changed since the last delivery.
func (r *Registry) NotifyWatchedPaths(ctx context.Context) []entities.HookFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notifyPaths(ctx)
}

// Save writes the lock file. With captureState the opaque state of every
// initialized plugin is copied into its record first; records of
// uninitialized plugins are left as they are.
func (r *Registry) Save(ctx context.Context, captureState bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, captureState)
}

// Close releases plugins that own runtime resources.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, l := range r.plugins {
		if c, ok := l.plugin.(ports.PluginCloser); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, oops.With("plugin", l.plugin.Name()).Wrapf(err, "close plugin"))
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) hook(ctx context.Context, hook entities.Hook, fn func(ports.Plugin, context.Context) error) []entities.HookFailure {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures := r.dispatch(ctx, hook, func(l *loaded) error { return fn(l.plugin, ctx) })
	return append(failures, r.notifyPaths(ctx)...)
}

func (r *Registry) register(ctx context.Context) []entities.HookFailure {
	var failures []entities.HookFailure
	for _, l := range r.plugins {
		name := l.plugin.Name()
		rec := r.lock.Record(name)
		if rec.Initialized {
			continue
		}
		if l.skipped {
			r.metrics.observe(name, entities.HookRegister, OutcomeSkipped, 0)
			continue
		}
		if f := r.call(ctx, l, entities.HookRegister, l.plugin.Register); f != nil {
			failures = append(failures, *f)
			continue
		}
		rec.Initialized = true
		r.lock.Put(rec)
		r.logger.InfoContext(ctx, "plugin registered", "plugin", name)
	}
	return append(failures, r.notifyPaths(ctx)...)
}

func (r *Registry) notifyPaths(ctx context.Context) []entities.HookFailure {
	if r.paths == nil {
		return nil
	}
	var failures []entities.HookFailure
	for round := 0; ; round++ {
		paths, changed := r.paths.TakeChanged()
		if !changed {
			return failures
		}
		if round == maxNotifyRounds {
			r.logger.WarnContext(ctx, "watched paths still changing, giving up", "rounds", round)
			return failures
		}
		failures = append(failures, r.dispatch(ctx, entities.HookOnWatchedPathsChange, func(l *loaded) error {
			return l.plugin.OnWatchedPathsChange(ctx, slices.Clone(paths))
		})...)
	}
}

// dispatch calls fn for every plugin not skipped, in order.
func (r *Registry) dispatch(ctx context.Context, hook entities.Hook, fn func(*loaded) error) []entities.HookFailure {
	var failures []entities.HookFailure
	for _, l := range r.plugins {
		if l.skipped {
			r.metrics.observe(l.plugin.Name(), hook, OutcomeSkipped, 0)
			continue
		}
		if f := r.call(ctx, l, hook, func(context.Context) error { return fn(l) }); f != nil {
			failures = append(failures, *f)
		}
	}
	return failures
}

// call runs one hook on one plugin and classifies a failure.
func (r *Registry) call(ctx context.Context, l *loaded, hook entities.Hook, fn func(context.Context) error) *entities.HookFailure {
	name := l.plugin.Name()
	start := time.Now()
	err := fn(ctx)
	r.metrics.observe(name, hook, outcome(err), time.Since(start))
	if err == nil {
		return nil
	}

	r.noteTimeout(l, err)
	wrapped := classify(name, hook, err)
	r.logger.WarnContext(ctx, "plugin hook failed", "plugin", name, "hook", hook, "error", wrapped)
	return &entities.HookFailure{Plugin: name, Hook: hook, Err: wrapped}
}

func (r *Registry) noteTimeout(l *loaded, err error) {
	var te *derrors.TimeoutError
	if errors.As(err, &te) {
		l.skipped = true
	}
}

func (r *Registry) save(ctx context.Context, captureState bool) error {
	if captureState {
		for _, l := range r.plugins {
			rec, ok := r.lock.Plugins[l.plugin.Name()]
			if !ok || !rec.Initialized {
				continue
			}
			rec.State = l.plugin.State()
			r.lock.Put(rec)
		}
	}
	if r.store == nil {
		return nil
	}
	if err := r.store.Save(ctx, r.lock); err != nil {
		return oops.Code("LOCK_WRITE_FAILED").With("path", r.lock.Path).Wrap(err)
	}
	return nil
}

func (r *Registry) find(name string) *loaded {
	for _, l := range r.plugins {
		if l.plugin.Name() == name {
			return l
		}
	}
	return nil
}

func classify(plugin string, hook entities.Hook, err error) error {
	switch hook {
	case entities.HookApplyConfig:
		return &derrors.ConfigurationError{Plugin: plugin, Err: err}
	case entities.HookRegister:
		return &derrors.RegistrationError{Plugin: plugin, Err: err}
	default:
		return &derrors.HookError{Plugin: plugin, Hook: hook, Err: err}
	}
}

func outcome(err error) string {
	var te *derrors.TimeoutError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &te):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
