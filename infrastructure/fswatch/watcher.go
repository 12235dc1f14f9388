// Package fswatch reports file changes under watched paths as debounced
// batches.
package fswatch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/reglet-dev/devkit/domain/ports"
)

// DefaultDebounce is how long the watcher waits for more changes before
// delivering a batch.
const DefaultDebounce = 100 * time.Millisecond

// ErrClosed is returned by operations on a closed watcher.
var ErrClosed = errors.New("watcher closed")

var _ ports.PathWatcher = (*Watcher)(nil)

type config struct {
	logger       *slog.Logger
	debounce     time.Duration
	ignoreHidden bool
}

// Option configures a Watcher.
type Option func(*config)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithIgnoreHidden controls whether dot files and directories are ignored.
// Defaults to true.
func WithIgnoreHidden(ignore bool) Option {
	return func(c *config) {
		c.ignoreHidden = ignore
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Watcher wraps fsnotify. Directories are watched recursively and new
// subdirectories are picked up as they appear.
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan []string
	closeCh chan struct{}
	roots   map[string][]string // watched root -> directories added for it
	config  config
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// New creates a watcher and starts its event loop.
func New(opts ...Option) (*Watcher, error) {
	cfg := config{
		logger:       slog.Default(),
		debounce:     DefaultDebounce,
		ignoreHidden: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher: fsw,
		changes: make(chan []string, 16),
		closeCh: make(chan struct{}),
		roots:   make(map[string][]string),
		config:  cfg,
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Add watches path. A directory is watched with all its subdirectories.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, ok := w.roots[abs]; ok {
		return nil
	}

	if !info.IsDir() {
		if err := w.watcher.Add(abs); err != nil {
			return err
		}
		w.roots[abs] = []string{abs}
		return nil
	}

	var dirs []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != abs && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return err
		}
		dirs = append(dirs, p)
		return nil
	})
	if err != nil {
		for _, d := range dirs {
			_ = w.watcher.Remove(d)
		}
		return err
	}
	w.roots[abs] = dirs
	return nil
}

// Remove stops watching path and everything added for it.
func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	dirs, ok := w.roots[abs]
	if !ok {
		return fmt.Errorf("not watching %s", path)
	}
	for _, d := range dirs {
		_ = w.watcher.Remove(d)
	}
	delete(w.roots, abs)
	return nil
}

// Changes delivers sorted, deduplicated batches of changed paths.
func (w *Watcher) Changes() <-chan []string {
	return w.changes
}

// Close stops the watcher and closes the Changes channel.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.changes)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.config.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				w.watchNewDir(ev.Name)
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.config.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.config.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			slices.Sort(batch)
			clear(pending)

			select {
			case w.changes <- batch:
			case <-w.closeCh:
				return
			}
		}
	}
}

// watchNewDir adds a directory created under a watched root.
func (w *Watcher) watchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	for root, dirs := range w.roots {
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			if err := w.watcher.Add(path); err != nil {
				w.config.logger.Warn("failed to watch new directory", "path", path, "error", err)
				return
			}
			w.roots[root] = append(dirs, path)
			return
		}
	}
}

func (w *Watcher) ignored(path string) bool {
	if !w.config.ignoreHidden {
		return false
	}
	base := filepath.Base(path)
	return len(base) > 1 && base[0] == '.'
}
