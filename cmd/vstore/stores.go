package main

import (
	"log/slog"

	"github.com/expr-lang/expr"

	"github.com/vango-dev/store/internal/config"
	"github.com/vango-dev/store/pkg/inspect"
	"github.com/vango-dev/store/pkg/instrument"
	"github.com/vango-dev/store/pkg/persist"
	"github.com/vango-dev/store/pkg/store"
)

// buildRegistry creates the stores and derived stores declared in cfg and
// registers them by name. obs may be nil.
func buildRegistry(cfg *config.Config, host *persist.Host, logger *slog.Logger, obs instrument.Observer) (*inspect.Registry, error) {
	reg := inspect.NewRegistry()
	sources := make(map[string]store.Source)

	codec, _ := persist.CodecByName(cfg.Backend.Codec)
	popts := []persist.Option{
		persist.WithCodec(codec),
		persist.WithTimeout(cfg.Backend.Timeout),
		persist.WithLogger(logger),
	}
	if obs != nil {
		popts = append(popts, persist.WithObserver(obs), persist.WithStoreObserver(obs))
	}

	for _, sc := range cfg.Stores {
		kind, err := persist.ParseKind(sc.Kind)
		if err != nil {
			return nil, err
		}
		s := persist.NewStorageStore[any](host, sc.Name, kind, sc.Initial, popts...)
		if err := reg.Register(sc.Name, s); err != nil {
			return nil, err
		}
		sources[sc.Name] = s
	}

	for _, dc := range cfg.Derived {
		d, err := newExprDerived(dc, sources, logger, obs)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(dc.Name, d); err != nil {
			return nil, err
		}
		sources[dc.Name] = d
	}
	return reg, nil
}

// newExprDerived builds a derived store that evaluates dc.Expr with each
// source value bound to its store name. An evaluation error is logged and
// leaves the previous value in place.
func newExprDerived(dc config.DerivedConfig, sources map[string]store.Source, logger *slog.Logger, obs instrument.Observer) (*store.Derived[any], error) {
	program, err := dc.Compile()
	if err != nil {
		return nil, err
	}

	srcs := make([]store.Source, len(dc.Sources))
	for i, name := range dc.Sources {
		srcs[i] = sources[name]
	}
	names := append([]string(nil), dc.Sources...)
	logger = logger.With("store", dc.Name)

	opts := []store.Option[any]{
		store.WithName[any](dc.Name),
		store.WithInitialValue[any](dc.Initial),
		store.WithLogger[any](logger),
	}
	if obs != nil {
		opts = append(opts, store.WithObserver[any](obs))
	}

	return store.NewDerived(srcs, store.Async(func(values []any, set func(any)) {
		env := make(map[string]any, len(names))
		for i, name := range names {
			env[name] = values[i]
		}
		out, err := expr.Run(program, env)
		if err != nil {
			logger.Warn("derive expression failed", "expr", dc.Expr, "error", err)
			return
		}
		set(out)
	}), opts...)
}
