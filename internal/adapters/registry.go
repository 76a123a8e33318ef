// Package adapters resolves fine-tune adapter names to stable identities
// and on-disk paths.
package adapters

import (
	"path/filepath"
	"sync"
)

// Handle references a resolved adapter: its configured name, the numeric id
// allocated on first reference, and the absolute path handed to the engine.
type Handle struct {
	Name string
	ID   int
	Path string
}

// unknownAdapterError signals an adapter name absent from configuration.
type unknownAdapterError struct{ name string }

func (e unknownAdapterError) Error() string { return "unknown adapter: " + e.name }

// ErrUnknownAdapter constructs an unknownAdapterError.
func ErrUnknownAdapter(name string) error { return unknownAdapterError{name: name} }

// IsUnknownAdapter reports whether err indicates an unconfigured adapter name.
func IsUnknownAdapter(err error) bool {
	_, ok := err.(unknownAdapterError)
	return ok
}

// Registry allocates numeric adapter identities. Ids start at 1, follow
// first-seen order and are never reused or removed for the lifetime of the
// registry. Id allocation depends on table size at insertion time, so growth
// is guarded by a mutex.
type Registry struct {
	mu  sync.Mutex
	ids map[string]int
}

func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]int)}
}

// Resolve maps an adapter name to a Handle. An empty name means "no adapter"
// and yields (nil, nil). A non-empty name must appear in adapters or the call
// fails. The resolved path joins baseDir with the configured relative path;
// existence is not checked here, the engine rejects missing adapters itself.
func (r *Registry) Resolve(name string, adapters map[string]string, baseDir string) (*Handle, error) {
	if name == "" {
		return nil, nil
	}
	rel, ok := adapters[name]
	if !ok || rel == "" {
		return nil, ErrUnknownAdapter(name)
	}
	r.mu.Lock()
	id, seen := r.ids[name]
	if !seen {
		id = len(r.ids) + 1
		r.ids[name] = id
	}
	r.mu.Unlock()
	return &Handle{Name: name, ID: id, Path: filepath.Join(baseDir, rel)}, nil
}

// Len returns the number of adapter identities allocated so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
