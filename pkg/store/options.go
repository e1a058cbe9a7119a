package store

import "log/slog"

// Option configures a Store or Derived.
type Option[T any] func(*options[T])

// options holds configuration shared by Store and Derived.
type options[T any] struct {
	// persist is called with every accepted value.
	persist func(T)

	// equal decides whether a Set changes the value.
	equal func(a, b T) bool

	// initial seeds a derived store before its first derivation.
	initial    T
	hasInitial bool

	name     string
	observer Observer
	logger   *slog.Logger
}

// WithPersist sets the persistence side effect. For a Store it runs with the
// initial value on construction and with every accepted Set. For a Derived it
// runs after every derivation with the derived value.
func WithPersist[T any](fn func(T)) Option[T] {
	return func(o *options[T]) {
		o.persist = fn
	}
}

// WithEquals replaces the strict identity check used by Set.
//
// Example:
//
//	tags := store.New([]string{}, store.WithEquals(slices.Equal[[]string]))
func WithEquals[T any](fn func(a, b T) bool) Option[T] {
	return func(o *options[T]) {
		o.equal = fn
	}
}

// WithInitialValue sets the value a derived store reports before its first
// derivation. It has no effect on New, which takes the initial value as an
// argument.
func WithInitialValue[T any](v T) Option[T] {
	return func(o *options[T]) {
		o.initial = v
		o.hasInitial = true
	}
}

// WithName labels the store in logs, metrics and traces.
func WithName[T any](name string) Option[T] {
	return func(o *options[T]) {
		o.name = name
	}
}

// WithObserver attaches instrumentation hooks.
func WithObserver[T any](obs Observer) Option[T] {
	return func(o *options[T]) {
		o.observer = obs
	}
}

// WithLogger sets the logger. Default: slog.Default() with component=store.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(o *options[T]) {
		o.logger = logger
	}
}

// applyOptions applies the given options and fills in defaults.
func applyOptions[T any](opts []Option[T], defaultName string) options[T] {
	var o options[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.equal == nil {
		o.equal = strictEqual[T]
	}
	if o.name == "" {
		o.name = defaultName
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "store", "store", o.name)
	return o
}
