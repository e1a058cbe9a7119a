package inspect

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vango-dev/store/pkg/store"
)

// JSONSetter is a source that accepts JSON-encoded values. *store.Store
// implements it.
type JSONSetter interface {
	store.Source
	SetJSON(data []byte) error
}

// Entry is a registered store.
type Entry struct {
	Name   string
	Source store.Source
	setter JSONSetter
}

// Writable reports whether the entry accepts PUT.
func (e *Entry) Writable() bool {
	return e.setter != nil
}

// Registry holds named stores. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds src under name. Sources that implement JSONSetter are
// writable through the inspector; all others are read-only.
func (r *Registry) Register(name string, src store.Source) error {
	if name == "" {
		return fmt.Errorf("inspect: empty store name")
	}
	if src == nil {
		return fmt.Errorf("inspect: store %q is nil", name)
	}

	e := &Entry{Name: name, Source: src}
	if s, ok := src.(JSONSetter); ok {
		e.setter = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("inspect: store %q already registered", name)
	}
	r.entries[name] = e
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, src store.Source) {
	if err := r.Register(name, src); err != nil {
		panic(err)
	}
}

// Unregister removes name. Open watch connections keep their subscription
// until they close.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
