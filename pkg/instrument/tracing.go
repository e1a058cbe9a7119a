package instrument

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/store/pkg/persist"
	"github.com/vango-dev/store/pkg/store"
)

// Default tracer name.
const defaultTracerName = "vstore"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "vstore").
	TracerName string

	// TracerProvider supplies the tracer.
	// Default: the global provider from otel.GetTracerProvider.
	TracerProvider trace.TracerProvider

	// TraceSets adds a span event for every accepted Set.
	// Sets are frequent, so this is disabled by default.
	TraceSets bool
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.TracerProvider = tp
	}
}

// WithTraceSets enables spans for accepted Set calls.
func WithTraceSets(enabled bool) TracingOption {
	return func(c *TracingConfig) {
		c.TraceSets = enabled
	}
}

// TracingObserver opens a span per derive run and per persistence call.
type TracingObserver struct {
	tracer    trace.Tracer
	traceSets bool
}

// Tracing creates an OpenTelemetry observer.
//
// Spans:
//   - vstore.derive: one per derive function run, with store and mode
//   - vstore.activate / vstore.deactivate: derived store transitions
//   - vstore.persist.save / vstore.persist.load: persistence calls, with
//     error status on failure
//   - vstore.set: accepted Set calls, when WithTraceSets(true)
func Tracing(opts ...TracingOption) *TracingObserver {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	return &TracingObserver{
		tracer:    config.TracerProvider.Tracer(config.TracerName),
		traceSets: config.TraceSets,
	}
}

func (t *TracingObserver) instant(name string, attrs ...attribute.KeyValue) trace.Span {
	_, span := t.tracer.Start(context.Background(), name, trace.WithAttributes(attrs...))
	return span
}

// StoreSet records an accepted Set if enabled.
func (t *TracingObserver) StoreSet(name string) {
	if !t.traceSets {
		return
	}
	t.instant("vstore.set", attribute.String("vstore.store", name)).End()
}

// StoreDerive opens a span that ends when the derive function returns.
func (t *TracingObserver) StoreDerive(name string, mode store.Mode) func() {
	span := t.instant("vstore.derive",
		attribute.String("vstore.store", name),
		attribute.String("vstore.mode", mode.String()),
	)
	return func() { span.End() }
}

// StoreActivated records a cold to hot transition.
func (t *TracingObserver) StoreActivated(name string) {
	t.instant("vstore.activate", attribute.String("vstore.store", name)).End()
}

// StoreDeactivated records a hot to cold transition.
func (t *TracingObserver) StoreDeactivated(name string) {
	t.instant("vstore.deactivate", attribute.String("vstore.store", name)).End()
}

// PersistSaved records a persistence write.
func (t *TracingObserver) PersistSaved(key string, kind persist.Kind, err error) {
	span := t.instant("vstore.persist.save",
		attribute.String("vstore.key", key),
		attribute.String("vstore.kind", string(kind)),
	)
	endWithErr(span, err)
}

// PersistLoaded records a persistence read.
func (t *TracingObserver) PersistLoaded(key string, kind persist.Kind, found bool, err error) {
	span := t.instant("vstore.persist.load",
		attribute.String("vstore.key", key),
		attribute.String("vstore.kind", string(kind)),
		attribute.Bool("vstore.found", found),
	)
	endWithErr(span, err)
}

func endWithErr(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
