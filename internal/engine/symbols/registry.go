package symbols

import (
	"errors"
	"sort"
	"sync"
)

var errBuildAborted = errors.New("symbol table build aborted")

// Registry maps file keys to their symbol tables for the length of a
// project run. It is owned by the caller and safe for concurrent use;
// builds for different keys run independently.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	done  chan struct{}
	table *Table
	err   error
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// GetOrCreate returns the table for key, calling build at most once per key
// until the next Clear. Concurrent callers for the same key wait for the
// first build and share its result.
func (r *Registry) GetOrCreate(key string, build func() (*Table, error)) (*Table, error) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &registryEntry{done: make(chan struct{}), err: errBuildAborted}
		r.entries[key] = e
	}
	r.mu.Unlock()

	if ok {
		<-e.done
		return e.table, e.err
	}
	defer close(e.done)
	e.table, e.err = build()
	return e.table, e.err
}

// Get returns the table for key, waiting for an in-flight build.
func (r *Registry) Get(key string) (*Table, bool) {
	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	<-e.done
	return e.table, e.err == nil && e.table != nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear drops every entry. It is called once when a project run completes.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*registryEntry)
}
