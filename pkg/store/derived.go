package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vango-dev/store/internal/errors"
)

// Mode selects how a derive function delivers its result.
type Mode int

const (
	// ModeSync derivers return the derived value.
	ModeSync Mode = iota
	// ModeAsync derivers call set, now or later.
	ModeAsync
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Deriver computes a derived value from a snapshot of source values, one
// element per source in source order. Build it with Sync or Async.
type Deriver[T any] struct {
	mode  Mode
	sync  func(values []any) T
	async func(values []any, set func(T))
}

// Sync returns a deriver whose result is the return value of fn.
func Sync[T any](fn func(values []any) T) Deriver[T] {
	return Deriver[T]{mode: ModeSync, sync: fn}
}

// Async returns a deriver that publishes results through set. fn may call
// set synchronously, later from another goroutine, several times, or not at
// all. The last set to commit wins; subscribers and the persist func see
// the results in commit order.
func Async[T any](fn func(values []any, set func(T))) Deriver[T] {
	return Deriver[T]{mode: ModeAsync, async: fn}
}

// Mode returns the deriver's mode.
func (d Deriver[T]) Mode() Mode {
	return d.mode
}

func (d Deriver[T]) valid() bool {
	switch d.mode {
	case ModeSync:
		return d.sync != nil
	case ModeAsync:
		return d.async != nil
	}
	return false
}

// Derived is a read-only store computed from an ordered list of sources.
//
// It is cold while it has no subscribers and hot otherwise. Going hot opens
// one subscription per source; each source callback updates that source's
// slot in the snapshot and runs the derive function. Going cold closes them.
type Derived[T any] struct {
	sources []Source
	derive  Deriver[T]
	value   *Store[T]
	opts    options[T]

	// mu protects values, the last seen value of each source.
	mu     sync.Mutex
	values []any

	// lifecycle protects count, generation and disposers. Source
	// subscriptions are opened and closed without holding it.
	lifecycle  sync.Mutex
	count      int
	generation uint64
	disposers  []Unsubscribe
}

// NewDerived creates a derived store over sources.
//
// It returns a contract error if sources is empty, if any source is nil, or
// if derive was not built with Sync or Async. No source is subscribed to
// when an error is returned.
func NewDerived[T any](sources []Source, derive Deriver[T], opts ...Option[T]) (*Derived[T], error) {
	if len(sources) == 0 {
		return nil, errors.New("S003")
	}

	var bad []string
	for i, src := range sources {
		if isNil(src) {
			bad = append(bad, fmt.Sprintf("%d", i))
		}
	}
	if len(bad) > 0 {
		return nil, errors.New("S004").WithDetailf("nil source at index %s", strings.Join(bad, ", "))
	}

	if !derive.valid() {
		return nil, errors.New("S005")
	}

	o := applyOptions(opts, "derived")
	d := &Derived[T]{
		sources: append([]Source(nil), sources...),
		derive:  derive,
		opts:    o,
		values:  make([]any, len(sources)),
	}

	// Seed through subscribe+unsubscribe so plain store-contract sources
	// work without relying on Get.
	for i, src := range sources {
		src.SubscribeAny(func(v any) { d.values[i] = v })()
	}

	d.value = New(o.initial,
		WithEquals(o.equal),
		WithName[T](o.name),
		WithObserver[T](o.observer),
		WithLogger[T](o.logger),
	)
	return d, nil
}

// MustDerived is like NewDerived but panics on error.
func MustDerived[T any](sources []Source, derive Deriver[T], opts ...Option[T]) *Derived[T] {
	d, err := NewDerived(sources, derive, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Get returns the last derived value, or the initial value if nothing has
// been derived yet. It does not activate the sources.
func (d *Derived[T]) Get() T {
	return d.value.Get()
}

// Resolve subscribes and immediately unsubscribes, returning the value seen
// in between. On a cold store this runs the derive function once per source;
// async derivers may not have delivered by the time it returns.
func (d *Derived[T]) Resolve() T {
	var v T
	d.Subscribe(func(x T) { v = x })()
	return v
}

// Subscribe activates the store if it is cold, then calls fn with the
// current derived value and with every change. The returned func releases
// this subscription; the last release deactivates the store.
func (d *Derived[T]) Subscribe(fn func(T)) Unsubscribe {
	if fn == nil {
		panic(errors.New("S001").WithDetailf("derived %q", d.opts.name))
	}
	d.retain()
	unsub := d.value.Subscribe(fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			d.release()
		})
	}
}

// SubscribeOnce activates the store and calls fn with the next derived
// value change only, then releases its activation.
//
// fn is registered after activation, so a value derived while a cold store
// is activated by this call is not delivered: fn sees the first change
// committed after SubscribeOnce returns.
func (d *Derived[T]) SubscribeOnce(fn func(T)) Unsubscribe {
	if fn == nil {
		panic(errors.New("S001").WithDetailf("derived %q", d.opts.name))
	}
	d.retain()

	var once sync.Once
	release := func() { once.Do(d.release) }
	unsub := d.value.SubscribeOnce(func(v T) {
		release()
		fn(v)
	})
	return func() {
		unsub()
		release()
	}
}

// GetAny returns the current derived value as an interface{}.
func (d *Derived[T]) GetAny() any {
	return d.Get()
}

// SubscribeAny is Subscribe with a type-erased callback.
func (d *Derived[T]) SubscribeAny(fn func(any)) Unsubscribe {
	if fn == nil {
		panic(errors.New("S001").WithDetailf("derived %q", d.opts.name))
	}
	return d.Subscribe(func(v T) { fn(v) })
}

// IsHot reports whether the store currently holds source subscriptions.
func (d *Derived[T]) IsHot() bool {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	return d.count > 0
}

// SubscriberCount returns the number of external subscriptions.
func (d *Derived[T]) SubscriberCount() int {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	return d.count
}

// Name returns the store's name.
func (d *Derived[T]) Name() string {
	return d.opts.name
}

// retain increments the subscriber count and subscribes to every source on
// the 0 -> 1 transition. Each source replays its value on subscribe, so the
// derive function runs once per source during activation.
//
// Sources are subscribed outside the lifecycle lock, so callbacks that run
// during activation may use the store. If the last subscription is released
// before activation finishes, the new source subscriptions are closed again.
func (d *Derived[T]) retain() {
	d.lifecycle.Lock()
	d.count++
	if d.count > 1 {
		d.lifecycle.Unlock()
		return
	}
	d.generation++
	gen := d.generation
	d.lifecycle.Unlock()

	d.opts.logger.Debug("derived store activated", "sources", len(d.sources))
	d.opts.observer.StoreActivated(d.opts.name)

	subs := make([]Unsubscribe, 0, len(d.sources))
	for i, src := range d.sources {
		subs = append(subs, src.SubscribeAny(func(v any) {
			d.onSource(i, v)
		}))
	}

	d.lifecycle.Lock()
	if d.generation == gen && d.count > 0 {
		d.disposers = append(d.disposers, subs...)
		d.lifecycle.Unlock()
		return
	}
	d.lifecycle.Unlock()

	for _, unsub := range subs {
		unsub()
	}
}

// release decrements the subscriber count and tears down every source
// subscription on the 1 -> 0 transition. Cached values are kept.
func (d *Derived[T]) release() {
	d.lifecycle.Lock()
	if d.count == 0 {
		d.lifecycle.Unlock()
		return
	}
	d.count--
	if d.count > 0 {
		d.lifecycle.Unlock()
		return
	}
	d.generation++
	disposers := d.disposers
	d.disposers = nil
	d.lifecycle.Unlock()

	for _, unsub := range disposers {
		unsub()
	}

	d.opts.logger.Debug("derived store deactivated")
	d.opts.observer.StoreDeactivated(d.opts.name)
}

// onSource records a source value and runs the derive function with a copy
// of the full snapshot.
func (d *Derived[T]) onSource(idx int, v any) {
	d.mu.Lock()
	d.values[idx] = v
	snapshot := make([]any, len(d.values))
	copy(snapshot, d.values)
	d.mu.Unlock()

	done := d.opts.observer.StoreDerive(d.opts.name, d.derive.mode)
	defer done()

	switch d.derive.mode {
	case ModeSync:
		d.apply(d.derive.sync(snapshot))
	case ModeAsync:
		d.derive.async(snapshot, d.apply)
	}
}

// apply stores a derived value and runs the persist func with the store's
// resulting value, in the same order as subscribers see the values.
func (d *Derived[T]) apply(v T) {
	d.value.commit(v, d.opts.persist)
}

// Snapshot returns a copy of the last seen value of each source.
func (d *Derived[T]) Snapshot() []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]any, len(d.values))
	copy(out, d.values)
	return out
}
