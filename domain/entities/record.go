package entities

// PluginRecord is the persisted state of one plugin.
type PluginRecord struct {
	// State is opaque plugin-private data. The host never interprets it.
	State map[string][]byte

	Name string

	// Initialized flips to true the first session register succeeds and is
	// never reset.
	Initialized bool
}

// Clone returns a deep copy of r.
func (r PluginRecord) Clone() PluginRecord {
	out := PluginRecord{Name: r.Name, Initialized: r.Initialized}
	if r.State != nil {
		out.State = make(map[string][]byte, len(r.State))
		for k, v := range r.State {
			out.State[k] = append([]byte(nil), v...)
		}
	}
	return out
}

// LockState is the in-memory form of the lock file.
type LockState struct {
	Plugins map[string]PluginRecord

	// Path is where the lock file lives (or will be created).
	Path string
}

// NewLockState creates an empty lock state bound to path.
func NewLockState(path string) *LockState {
	return &LockState{Path: path, Plugins: make(map[string]PluginRecord)}
}

// Record returns the record for name, creating an empty one if absent.
func (l *LockState) Record(name string) PluginRecord {
	if l.Plugins == nil {
		l.Plugins = make(map[string]PluginRecord)
	}
	rec, ok := l.Plugins[name]
	if !ok {
		rec = PluginRecord{Name: name}
		l.Plugins[name] = rec
	}
	return rec.Clone()
}

// Put stores rec under its name.
func (l *LockState) Put(rec PluginRecord) {
	if l.Plugins == nil {
		l.Plugins = make(map[string]PluginRecord)
	}
	l.Plugins[rec.Name] = rec.Clone()
}

// Clone returns a deep copy of l.
func (l *LockState) Clone() *LockState {
	out := &LockState{Path: l.Path, Plugins: make(map[string]PluginRecord, len(l.Plugins))}
	for name, rec := range l.Plugins {
		out.Plugins[name] = rec.Clone()
	}
	return out
}
