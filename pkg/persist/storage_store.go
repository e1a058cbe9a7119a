package persist

import (
	"github.com/vango-dev/store/pkg/store"
)

// NewStorageStore creates a store whose value is persisted under key.
//
// The store starts with the persisted value if one is present and decodes,
// otherwise with initial. A present zero value such as 0 or "" is used as
// is. Every accepted Set is written back, and the seed itself is written
// once on construction.
//
// An unknown kind falls back to KindSession with a warning.
func NewStorageStore[T any](h *Host, key string, kind Kind, initial T, opts ...Option) *store.Store[T] {
	o := applyOptions(opts)
	if !kind.Valid() {
		o.logger.Warn("unknown storage kind, using session",
			"component", "persist", "key", key, "kind", string(kind))
		kind = KindSession
	}

	p := New[T](h, key, kind, opts...)
	seed := initial
	if v, ok := p.Get(); ok {
		seed = v
	}

	storeOpts := []store.Option[T]{
		store.WithPersist(p.Set),
		store.WithName[T](key),
		store.WithLogger[T](o.logger),
	}
	if o.storeObserver != nil {
		storeOpts = append(storeOpts, store.WithObserver[T](o.storeObserver))
	}
	return store.New(seed, storeOpts...)
}
