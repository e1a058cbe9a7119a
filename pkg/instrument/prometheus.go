package instrument

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/store/pkg/persist"
	"github.com/vango-dev/store/pkg/store"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for derive duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vstore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// PrometheusObserver records store and persistence activity as Prometheus
// metrics.
type PrometheusObserver struct {
	sets           *prometheus.CounterVec
	derivations    *prometheus.CounterVec
	deriveDuration *prometheus.HistogramVec
	hotDerived     prometheus.Gauge
	activations    *prometheus.CounterVec
	persistSaves   *prometheus.CounterVec
	persistLoads   *prometheus.CounterVec
}

// Prometheus creates an observer whose collectors are registered on the
// configured registry. Creating a second observer on the same registry
// reuses the collectors already registered there.
func Prometheus(opts ...MetricsOption) *PrometheusObserver {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	reg := config.Registry

	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels))
	}

	return &PrometheusObserver{
		sets:        counterVec("sets_total", "Total number of accepted store Set calls", "store"),
		derivations: counterVec("derivations_total", "Total number of derive function runs", "store", "mode"),
		deriveDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "derive_duration_seconds",
			Help:        "Derive function run time in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store", "mode"})),
		hotDerived: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "hot_derived",
			Help:        "Number of derived stores with active source subscriptions",
			ConstLabels: config.ConstLabels,
		})),
		activations:  counterVec("activations_total", "Total number of derived store cold to hot transitions", "store"),
		persistSaves: counterVec("persist_saves_total", "Total number of persistence writes", "kind", "status"),
		persistLoads: counterVec("persist_loads_total", "Total number of persistence reads", "kind", "result"),
	}
}

// register registers c on reg, returning the already registered collector
// if an identical one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// StoreSet counts an accepted Set.
func (p *PrometheusObserver) StoreSet(name string) {
	p.sets.WithLabelValues(name).Inc()
}

// StoreDerive counts a derive run and times it.
func (p *PrometheusObserver) StoreDerive(name string, mode store.Mode) func() {
	p.derivations.WithLabelValues(name, mode.String()).Inc()
	start := time.Now()
	return func() {
		p.deriveDuration.WithLabelValues(name, mode.String()).Observe(time.Since(start).Seconds())
	}
}

// StoreActivated counts a cold to hot transition.
func (p *PrometheusObserver) StoreActivated(name string) {
	p.activations.WithLabelValues(name).Inc()
	p.hotDerived.Inc()
}

// StoreDeactivated records a hot to cold transition.
func (p *PrometheusObserver) StoreDeactivated(string) {
	p.hotDerived.Dec()
}

// PersistSaved counts a persistence write.
func (p *PrometheusObserver) PersistSaved(_ string, kind persist.Kind, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.persistSaves.WithLabelValues(string(kind), status).Inc()
}

// PersistLoaded counts a persistence read.
func (p *PrometheusObserver) PersistLoaded(_ string, kind persist.Kind, found bool, err error) {
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case found:
		result = "hit"
	}
	p.persistLoads.WithLabelValues(string(kind), result).Inc()
}
