// Package instrument provides observers that export store and persistence
// activity to Prometheus and OpenTelemetry.
//
// Every observer here implements both store.Observer and persist.Observer:
//
//	reg := prometheus.NewRegistry()
//	obs := instrument.Multi(
//	    instrument.Prometheus(instrument.WithRegistry(reg)),
//	    instrument.Tracing(),
//	)
//	cart := store.New(Cart{}, store.WithName[Cart]("cart"), store.WithObserver[Cart](obs))
//
// Metrics collected by Prometheus:
//   - vstore_sets_total: accepted Set calls by store
//   - vstore_derivations_total: derive function runs by store and mode
//   - vstore_derive_duration_seconds: derive function run time by store and mode
//   - vstore_hot_derived: derived stores currently hot
//   - vstore_activations_total: cold to hot transitions by store
//   - vstore_persist_saves_total: persistence writes by kind and status
//   - vstore_persist_loads_total: persistence reads by kind and result
package instrument

import (
	"github.com/vango-dev/store/pkg/persist"
	"github.com/vango-dev/store/pkg/store"
)

// Observer observes both stores and persistors.
type Observer interface {
	store.Observer
	persist.Observer
}

var (
	_ Observer = (*PrometheusObserver)(nil)
	_ Observer = (*TracingObserver)(nil)
	_ Observer = multi(nil)
)
