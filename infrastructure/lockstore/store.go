// Package lockstore persists plugin lock state as a TOML file at the
// project root.
//
// The file looks like:
//
//	[plugins.tailwind]
//	initialized = true
//
//	[plugins.tailwind.state]
//	cache = "AAH/"
//
// State values are base64 encoded so the file stays human-editable.
package lockstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/reglet-dev/devkit/domain/entities"
	derrors "github.com/reglet-dev/devkit/domain/errors"
	"github.com/reglet-dev/devkit/domain/ports"
)

// Lock file names, in lookup order.
const (
	CanonicalName = "Devkit.lock"
	FallbackName  = "devkit.lock"
)

var _ ports.LockStore = (*Store)(nil)

type lockFile struct {
	Plugins map[string]pluginEntry `toml:"plugins"`
}

type pluginEntry struct {
	State       map[string]string `toml:"state,omitempty"`
	Initialized bool              `toml:"initialized"`
}

// Store reads and writes the lock file of one project.
type Store struct {
	root string
	path string
}

// Option configures a Store.
type Option func(*Store)

// WithPath pins the lock file to path, skipping name discovery. A relative
// path is resolved against the project root.
func WithPath(path string) Option {
	return func(s *Store) {
		if path == "" {
			return
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.root, path)
		}
		s.path = path
	}
}

// New creates a store for the project rooted at root.
func New(root string, opts ...Option) *Store {
	s := &Store{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find returns the path of the existing lock file, preferring the
// canonical name, and whether one exists.
func (s *Store) Find() (string, bool) {
	if s.path != "" {
		info, err := os.Stat(s.path)
		return s.path, err == nil && info.Mode().IsRegular()
	}
	for _, name := range []string{CanonicalName, FallbackName} {
		p := filepath.Join(s.root, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return filepath.Join(s.root, CanonicalName), false
}

// Load reads the lock file. A missing file yields an empty state bound to
// the canonical path. Errors name the file relative to the project root.
func (s *Store) Load(_ context.Context) (*entities.LockState, error) {
	path, ok := s.Find()
	state := entities.NewLockState(path)
	if !ok {
		return state, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, &derrors.PersistenceError{Path: s.rel(path), Operation: "read", Err: err}
	}

	var file lockFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, &derrors.PersistenceError{Path: s.rel(path), Operation: "parse", Err: err}
	}

	for name, entry := range file.Plugins {
		rec := entities.PluginRecord{Name: name, Initialized: entry.Initialized}
		if len(entry.State) > 0 {
			rec.State = make(map[string][]byte, len(entry.State))
			for k, v := range entry.State {
				b, err := base64.StdEncoding.DecodeString(v)
				if err != nil {
					return nil, &derrors.PersistenceError{
						Path:      s.rel(path),
						Operation: "parse",
						Err:       fmt.Errorf("plugins.%s.state.%s: %w", name, k, err),
					}
				}
				rec.State[k] = b
			}
		}
		state.Plugins[name] = rec
	}
	return state, nil
}

// Save writes state to state.Path (the canonical path when empty) as one
// atomic replace. The parent directory is created if missing.
func (s *Store) Save(_ context.Context, state *entities.LockState) error {
	path := state.Path
	if path == "" {
		path = filepath.Join(s.root, CanonicalName)
	}

	file := lockFile{Plugins: make(map[string]pluginEntry, len(state.Plugins))}
	for name, rec := range state.Plugins {
		entry := pluginEntry{Initialized: rec.Initialized}
		if len(rec.State) > 0 {
			entry.State = make(map[string]string, len(rec.State))
			for k, v := range rec.State {
				entry.State[k] = base64.StdEncoding.EncodeToString(v)
			}
		}
		file.Plugins[name] = entry
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return &derrors.PersistenceError{Path: s.rel(path), Operation: "write", Err: err}
	}
	if err := writeAtomic(path, data); err != nil {
		return &derrors.PersistenceError{Path: s.rel(path), Operation: "write", Err: err}
	}
	return nil
}

// writeAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old or the new file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) rel(path string) string {
	if r, err := filepath.Rel(s.root, path); err == nil && filepath.IsLocal(r) {
		return r
	}
	return path
}
