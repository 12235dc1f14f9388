// Package watchset holds the watched-path set that plugins grow and shrink
// through watch_path and remove_path.
//
// Entries are kept in insertion order without duplicates. Each entry is
// also compiled as a glob with '/' as the separator, so a plugin may watch
// "src/**/*.css" as well as a plain file or directory:
//   - '*' matches within one path segment
//   - '**' matches across segments
package watchset

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/reglet-dev/devkit/domain/ports"
)

var _ ports.PathSet = (*Set)(nil)

type entry struct {
	glob glob.Glob // nil when the path is not valid glob syntax
	path string
}

// Set is a deduplicated, ordered set of watched paths. It records whether
// it changed since the last TakeChanged so the registry can deliver the
// complete set once per dispatched hook.
//
// Set is safe for concurrent use.
type Set struct {
	entries []entry
	mu      sync.RWMutex
	dirty   bool
}

// New creates a set holding paths, deduplicated. The initial contents do
// not count as a change.
func New(paths ...string) *Set {
	s := &Set{}
	for _, p := range paths {
		s.add(p)
	}
	return s
}

// Watch adds path. Adding a path already present leaves the set unchanged
// and returns false.
func (s *Set) Watch(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.add(path) {
		return false
	}
	s.dirty = true
	return true
}

func (s *Set) add(path string) bool {
	path = normalize(path)
	if path == "" || s.index(path) >= 0 {
		return false
	}
	g, err := glob.Compile(path, '/')
	if err != nil {
		g = nil
	}
	s.entries = append(s.entries, entry{path: path, glob: g})
	return true
}

// Remove deletes path. It returns false, leaving the set unchanged, when
// path is absent.
func (s *Set) Remove(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(normalize(path))
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	s.dirty = true
	return true
}

// Paths returns a snapshot of the set in insertion order. It never returns
// nil.
func (s *Set) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paths()
}

func (s *Set) paths() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.path
	}
	return out
}

// Len returns the number of watched paths.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Matches reports whether file is covered by the set: equal to a watched
// path, inside a watched directory, or matched by a watched glob.
func (s *Set) Matches(file string) bool {
	file = normalize(file)
	if file == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if file == e.path || strings.HasPrefix(file, e.path+"/") {
			return true
		}
		if e.glob != nil && e.glob.Match(file) {
			return true
		}
	}
	return false
}

// TakeChanged returns the current set and true if the set changed since
// the previous call, clearing the change flag.
func (s *Set) TakeChanged() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil, false
	}
	s.dirty = false
	return s.paths(), true
}

func (s *Set) index(path string) int {
	return slices.IndexFunc(s.entries, func(e entry) bool { return e.path == path })
}

// normalize cleans path and uses forward slashes so that "src/./a" and
// "src/a" name the same entry on every platform.
func normalize(path string) string {
	if path == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(path))
}
