package persist

import (
	"log/slog"
	"time"

	"github.com/vango-dev/store/pkg/store"
)

// Option configures a Persistor or a storage store.
type Option func(*options)

type options struct {
	codec         Codec
	timeout       time.Duration
	logger        *slog.Logger
	observer      Observer
	storeObserver store.Observer
}

// WithCodec sets the value codec. Default: JSONCodec.
func WithCodec(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithTimeout bounds every backend call. Default: 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the logger. Default: slog.Default() with component=persist.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver attaches persistence hooks.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithStoreObserver attaches store hooks to the store built by
// NewStorageStore. Persistor ignores it.
func WithStoreObserver(obs store.Observer) Option {
	return func(o *options) {
		o.storeObserver = obs
	}
}

func applyOptions(opts []Option) options {
	o := options{
		codec:    JSONCodec{},
		timeout:  5 * time.Second,
		observer: NopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.codec == nil {
		o.codec = JSONCodec{}
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
