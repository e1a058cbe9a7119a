package persist

import (
	"context"
	"log/slog"

	"github.com/vango-dev/store/internal/errors"
)

// Persistor reads and writes one key of one backend.
type Persistor[T any] struct {
	backend Backend
	key     string
	kind    Kind
	opts    options
	logger  *slog.Logger
}

// New creates a persistor for key on the host backend selected by kind.
// If that backend is nil every operation is a no-op and Get reports absence.
func New[T any](h *Host, key string, kind Kind, opts ...Option) *Persistor[T] {
	o := applyOptions(opts)
	return &Persistor[T]{
		backend: h.Backend(kind),
		key:     key,
		kind:    kind,
		opts:    o,
		logger:  o.logger.With("component", "persist", "key", key, "kind", string(kind)),
	}
}

// Key returns the persisted key.
func (p *Persistor[T]) Key() string {
	return p.key
}

// Kind returns the backend kind.
func (p *Persistor[T]) Kind() Kind {
	return p.kind
}

// Enabled reports whether a backend is configured for this persistor.
func (p *Persistor[T]) Enabled() bool {
	return p.backend != nil
}

// Get loads and decodes the stored value. It returns (zero, false) if there
// is no backend, the key is missing, the backend fails or the data does not
// decode as T.
func (p *Persistor[T]) Get() (T, bool) {
	var zero T
	if p.backend == nil {
		return zero, false
	}

	ctx, cancel := p.context()
	defer cancel()

	data, ok, err := p.backend.GetItem(ctx, p.key)
	if err != nil {
		err = errors.New("P003").WithDetail("get").Wrap(err)
		p.logger.Warn("persisted value unavailable", "error", err)
		p.opts.observer.PersistLoaded(p.key, p.kind, false, err)
		return zero, false
	}
	if !ok {
		p.opts.observer.PersistLoaded(p.key, p.kind, false, nil)
		return zero, false
	}

	var v T
	if err := p.opts.codec.Unmarshal(data, &v); err != nil {
		err = errors.New("P002").WithDetailf("codec %s", p.opts.codec.Name()).Wrap(err)
		p.logger.Warn("persisted value unreadable", "error", err)
		p.opts.observer.PersistLoaded(p.key, p.kind, false, err)
		return zero, false
	}

	p.opts.observer.PersistLoaded(p.key, p.kind, true, nil)
	return v, true
}

// Set encodes and stores v. Failures are logged and reported to the
// observer; the previously stored value is left in place.
func (p *Persistor[T]) Set(v T) {
	if p.backend == nil {
		return
	}

	data, err := p.opts.codec.Marshal(v)
	if err != nil {
		err = errors.New("P001").WithDetailf("codec %s", p.opts.codec.Name()).Wrap(err)
		p.logger.Error("failed to persist value", "error", err)
		p.opts.observer.PersistSaved(p.key, p.kind, err)
		return
	}

	ctx, cancel := p.context()
	defer cancel()

	if err := p.backend.SetItem(ctx, p.key, data); err != nil {
		err = errors.New("P003").WithDetail("set").Wrap(err)
		p.logger.Error("failed to persist value", "error", err)
		p.opts.observer.PersistSaved(p.key, p.kind, err)
		return
	}
	p.opts.observer.PersistSaved(p.key, p.kind, nil)
}

// Remove deletes the key. Failures are logged.
func (p *Persistor[T]) Remove() {
	if p.backend == nil {
		return
	}

	ctx, cancel := p.context()
	defer cancel()

	if err := p.backend.RemoveItem(ctx, p.key); err != nil {
		p.logger.Error("failed to remove persisted value",
			"error", errors.New("P003").WithDetail("remove").Wrap(err))
	}
}

// Clear deletes every key in the backend, not only this persistor's key.
// Failures are logged.
func (p *Persistor[T]) Clear() {
	if p.backend == nil {
		return
	}

	ctx, cancel := p.context()
	defer cancel()

	if err := p.backend.Clear(ctx); err != nil {
		p.logger.Error("failed to clear backend",
			"error", errors.New("P003").WithDetail("clear").Wrap(err))
	}
}

func (p *Persistor[T]) context() (context.Context, context.CancelFunc) {
	if p.opts.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), p.opts.timeout)
}
