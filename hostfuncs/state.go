package hostfuncs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/reglet-dev/devkit/wireformat"
)

// State is a plugin's opaque key/value state. The host stores the bytes
// verbatim and never interprets them.
type State struct {
	entries map[string][]byte
	mu      sync.Mutex
}

// NewState creates a state seeded with a copy of initial.
func NewState(initial map[string][]byte) *State {
	s := &State{entries: make(map[string][]byte, len(initial))}
	for k, v := range initial {
		s.entries[k] = append([]byte(nil), v...)
	}
	return s
}

// Get returns a copy of the bytes stored under key.
func (s *State) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Set stores a copy of val under key.
func (s *State) Set(key string, val []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), val...)
}

// Remove deletes key and reports whether it was present.
func (s *State) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Keys returns the stored keys in sorted order.
func (s *State) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of the whole state.
func (s *State) Snapshot() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.entries))
	for k, v := range s.entries {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// StateBundle returns the state store functions:
// state_get, state_set, state_remove.
func StateBundle() Bundle {
	return Bundle{
		"state_get":    jsonFunc(PerformStateGet),
		"state_set":    jsonFunc(PerformStateSet),
		"state_remove": jsonFunc(PerformStateRemove),
	}
}

// PerformStateGet reads one entry of the calling plugin's state.
func PerformStateGet(ctx context.Context, req wireformat.StateKeyWire) wireformat.StateEntryWire {
	scope, ok := ScopeFrom(ctx)
	if !ok || scope.State == nil {
		return wireformat.StateEntryWire{Key: req.Key}
	}
	v, found := scope.State.Get(req.Key)
	return wireformat.StateEntryWire{Key: req.Key, Value: v, Found: found}
}

// PerformStateSet writes one entry of the calling plugin's state.
func PerformStateSet(ctx context.Context, req wireformat.StateEntryWire) wireformat.ResultWire {
	scope, ok := ScopeFrom(ctx)
	if !ok || scope.State == nil {
		return failure("internal", CodeInternal, errNoScope)
	}
	if req.Key == "" {
		return failure("validation", CodeValidation, fmt.Errorf("state key is required"))
	}
	scope.State.Set(req.Key, req.Value)
	return wireformat.ResultWire{OK: true}
}

// PerformStateRemove deletes one entry of the calling plugin's state.
// Removing an absent key is a failure result.
func PerformStateRemove(ctx context.Context, req wireformat.StateKeyWire) wireformat.ResultWire {
	scope, ok := ScopeFrom(ctx)
	if !ok || scope.State == nil {
		return failure("internal", CodeInternal, errNoScope)
	}
	if !scope.State.Remove(req.Key) {
		return failure("not_found", CodeNotFound, fmt.Errorf("state key %q not set", req.Key))
	}
	return wireformat.ResultWire{OK: true}
}

var errNoScope = fmt.Errorf("host function called outside a plugin call")

func failure(typ, code string, err error) wireformat.ResultWire {
	return wireformat.ResultWire{Error: errorDetail(typ, code, err)}
}
