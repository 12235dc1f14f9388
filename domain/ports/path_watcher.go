package ports

// PathWatcher reports file-system changes under a set of paths.
type PathWatcher interface {
	Add(path string) error
	Remove(path string) error

	// Changes delivers batches of changed file paths. The channel is closed
	// by Close.
	Changes() <-chan []string
	Close() error
}

// PathSet is the watched-path set as seen by the capability surface.
type PathSet interface {
	// Watch adds path. It reports whether the set changed.
	Watch(path string) bool

	// Remove deletes path. It reports false when path was absent.
	Remove(path string) bool

	// Paths returns the current set in insertion order.
	Paths() []string
}
