package store

import (
	"encoding/json"
	"sync"

	"github.com/vango-dev/store/internal/errors"
	"github.com/vango-dev/store/pkg/pubsub"
)

// Subscriber receives store values.
type Subscriber[T any] func(value T)

// Unsubscribe stops a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Updater computes a new value from the current one.
type Updater[T any] func(value T) T

// Readable is the read side of the store contract.
type Readable[T any] interface {
	// Get returns the current value without side effects.
	Get() T

	// Subscribe calls fn with the current value, then with every change
	// until the returned func is called.
	Subscribe(fn func(T)) Unsubscribe
}

// Writable is a Readable whose value can be replaced.
type Writable[T any] interface {
	Readable[T]
	Set(value T)
	Update(fn func(T) T)
}

// changeTopic is the pubsub topic Store publishes accepted values on.
const changeTopic = "change"

// Store is a writable reactive value container.
//
// Accepted values are delivered in the order they were committed, even when
// Set is called from several goroutines: the goroutine that finds the store
// idle runs persist and notification for its own value and for any value
// committed while it is busy.
type Store[T any] struct {
	// mu protects value, seq, pending and draining. It is never held while
	// callbacks run.
	mu       sync.RWMutex
	value    T
	seq      uint64
	pending  []delivery[T]
	draining bool

	ps   *pubsub.PubSub
	opts options[T]
}

// delivery is a committed value waiting to be persisted and published.
type delivery[T any] struct {
	seq     uint64
	value   T
	changed bool
	after   func(T)
}

// change is the payload published on changeTopic.
type change[T any] struct {
	seq   uint64
	value T
}

// New creates a store holding initial. If WithPersist is given, the persist
// func runs immediately with initial, even before anyone subscribes.
func New[T any](initial T, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		value: initial,
		ps:    pubsub.New(),
		opts:  applyOptions(opts, "store"),
	}
	s.persist(initial)
	return s
}

// Empty creates a store holding the zero value of T.
func Empty[T any](opts ...Option[T]) *Store[T] {
	var zero T
	return New(zero, opts...)
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value if it differs from the current one, runs the
// persist func, then notifies subscribers in subscription order.
// Setting an identical value does nothing.
//
// A Set issued from a callback of the same store, or while another goroutine
// is delivering, returns once the value is committed. Its persist call and
// notifications follow those of the values committed before it.
func (s *Store[T]) Set(value T) {
	s.commit(value, nil)
}

// commit replaces the value and queues its delivery. after, if set, runs
// once the delivery is done, with the store's value at commit time; it is
// queued even when value equals the current one.
func (s *Store[T]) commit(value T, after func(T)) {
	s.mu.Lock()
	d := delivery[T]{after: after}
	if !s.opts.equal(s.value, value) {
		s.value = value
		s.seq++
		d.changed = true
	} else if after == nil {
		s.mu.Unlock()
		return
	}
	d.seq = s.seq
	d.value = s.value
	s.pending = append(s.pending, d)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	s.drain()
}

// drain delivers queued values until the queue is empty. A panicking
// callback drops the rest of the queue so later Sets are not blocked.
func (s *Store[T]) drain() {
	done := false
	defer func() {
		if !done {
			s.mu.Lock()
			s.pending = nil
			s.draining = false
			s.mu.Unlock()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.pending = nil
			s.draining = false
			s.mu.Unlock()
			done = true
			return
		}
		d := s.pending[0]
		s.pending[0] = delivery[T]{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		if d.changed {
			s.persist(d.value)
			s.opts.observer.StoreSet(s.opts.name)
			s.ps.Publish(changeTopic, change[T]{seq: d.seq, value: d.value})
		}
		if d.after != nil {
			d.after(d.value)
		}
	}
}

// Update sets the value to fn(current). Panics with a contract error if fn
// is nil.
func (s *Store[T]) Update(fn func(T) T) {
	if fn == nil {
		panic(errors.New("S002").WithDetailf("store %q", s.opts.name))
	}
	s.Set(fn(s.Get()))
}

// Subscribe calls fn with the current value, then registers it for every
// future change. Panics with a contract error if fn is nil.
//
// fn never sees a value older than one it has already seen. Changes that
// arrive from other goroutines while the current value is being replayed
// are delivered after the replay returns.
func (s *Store[T]) Subscribe(fn func(T)) Unsubscribe {
	if fn == nil {
		panic(errors.New("S001").WithDetailf("store %q", s.opts.name))
	}
	l := &listener[T]{fn: fn, replaying: true}

	s.mu.Lock()
	current := s.value
	l.seen = s.seq
	unsub := s.ps.Subscribe(changeTopic, l.receive)
	s.mu.Unlock()

	l.replay(current)
	return func() {
		l.stop()
		unsub()
	}
}

// SubscribeOnce registers fn for the next change only. It does not replay
// the current value.
func (s *Store[T]) SubscribeOnce(fn func(T)) Unsubscribe {
	if fn == nil {
		panic(errors.New("S001").WithDetailf("store %q", s.opts.name))
	}
	l := &listener[T]{fn: fn, once: true}

	s.mu.Lock()
	l.seen = s.seq
	unsub := s.ps.Subscribe(changeTopic, l.receive)
	s.mu.Unlock()

	l.setCancel(func() { unsub() })
	return func() {
		l.stop()
		unsub()
	}
}

// SubscriberCount returns the number of active subscriptions.
func (s *Store[T]) SubscriberCount() int {
	return s.ps.Count(changeTopic)
}

// Name returns the store's name.
func (s *Store[T]) Name() string {
	return s.opts.name
}

// GetAny returns the current value as an interface{}.
func (s *Store[T]) GetAny() any {
	return s.Get()
}

// SubscribeAny is Subscribe with a type-erased callback.
func (s *Store[T]) SubscribeAny(fn func(any)) Unsubscribe {
	if fn == nil {
		panic(errors.New("S001").WithDetailf("store %q", s.opts.name))
	}
	return s.Subscribe(func(v T) { fn(v) })
}

// SetAny sets the value from an interface{}.
// Returns a *TypeMismatchError if value is not a T.
func (s *Store[T]) SetAny(value any) error {
	if value == nil && isNilable[T]() {
		var zero T
		s.Set(zero)
		return nil
	}
	v, ok := value.(T)
	if !ok {
		return newTypeMismatch[T](s.opts.name, value)
	}
	s.Set(v)
	return nil
}

// SetJSON decodes data into a new T and sets it.
func (s *Store[T]) SetJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.New("P002").WithDetailf("store %q", s.opts.name).Wrap(err)
	}
	s.Set(v)
	return nil
}

func (s *Store[T]) persist(v T) {
	if s.opts.persist != nil {
		s.opts.persist(v)
	}
}

// listener is one subscription to a Store. It drops changes at or below the
// last sequence number it delivered and holds back changes that arrive
// while the current value is being replayed.
type listener[T any] struct {
	fn   func(T)
	once bool

	mu        sync.Mutex
	seen      uint64
	replaying bool
	stopped   bool
	backlog   []change[T]
	cancel    func()
	fired     bool
}

func (l *listener[T]) receive(v any) {
	c, _ := v.(change[T])

	l.mu.Lock()
	if l.stopped || c.seq <= l.seen {
		l.mu.Unlock()
		return
	}
	if l.replaying {
		l.backlog = append(l.backlog, c)
		l.mu.Unlock()
		return
	}
	l.seen = c.seq
	var cancel func()
	if l.once {
		l.stopped = true
		l.fired = true
		cancel = l.cancel
	}
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.fn(c.value)
}

// replay calls fn with current, then delivers the backlog in order.
func (l *listener[T]) replay(current T) {
	done := false
	defer func() {
		if !done {
			l.mu.Lock()
			l.replaying = false
			l.backlog = nil
			l.mu.Unlock()
		}
	}()

	l.fn(current)
	for {
		l.mu.Lock()
		if l.stopped || len(l.backlog) == 0 {
			l.replaying = false
			l.backlog = nil
			l.mu.Unlock()
			done = true
			return
		}
		c := l.backlog[0]
		l.backlog = l.backlog[1:]
		if c.seq <= l.seen {
			l.mu.Unlock()
			continue
		}
		l.seen = c.seq
		l.mu.Unlock()

		l.fn(c.value)
	}
}

// setCancel records how a once listener removes itself. If it already
// fired, cancel runs now.
func (l *listener[T]) setCancel(cancel func()) {
	l.mu.Lock()
	fired := l.fired
	l.cancel = cancel
	l.mu.Unlock()
	if fired {
		cancel()
	}
}

func (l *listener[T]) stop() {
	l.mu.Lock()
	l.stopped = true
	l.backlog = nil
	l.mu.Unlock()
}

// cast converts a published value back to T. A nil interface becomes the
// zero T instead of panicking.
func cast[T any](v any) T {
	t, _ := v.(T)
	return t
}
