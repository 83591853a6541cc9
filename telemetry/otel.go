package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// attrsFromTags pairs up tags as alternating key/value strings. An odd tag
// out is dropped.
func attrsFromTags(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}

// OTelTracer adapts an OpenTelemetry trace.Tracer to the Tracer interface.
// The core never registers a real exporter, so callers typically pass the
// global noop TracerProvider's tracer unless an adapter layer configures one.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer wraps t as a Tracer.
func NewOTelTracer(t trace.Tracer) Tracer {
	return OTelTracer{tracer: t}
}

// Start implements Tracer.
func (t OTelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s otelSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name)
	_ = attrs // structured attrs are attached via trace.WithAttributes at Start time
}

func (s otelSpan) SetStatus(code codes.Code, description string) { s.span.SetStatus(code, description) }

func (s otelSpan) RecordError(err error, opts ...trace.EventOption) { s.span.RecordError(err, opts...) }

// OTelMetrics adapts OpenTelemetry metric instruments to the Metrics
// interface, lazily creating one instrument per metric name.
type OTelMetrics struct {
	meter metric.Meter
}

// NewOTelMetrics wraps m as a Metrics recorder.
func NewOTelMetrics(m metric.Meter) Metrics {
	return &OTelMetrics{meter: m}
}

func (m *OTelMetrics) IncCounter(name string, value float64, tags ...string) {
	counter, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(attrsFromTags(tags)...))
}

func (m *OTelMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	hist, err := m.meter.Float64Histogram(name)
	if err != nil {
		return
	}
	hist.Record(context.Background(), duration.Seconds(), metric.WithAttributes(attrsFromTags(tags)...))
}

func (m *OTelMetrics) RecordGauge(name string, value float64, tags ...string) {
	gauge, err := m.meter.Float64Gauge(name)
	if err != nil {
		return
	}
	gauge.Record(context.Background(), value, metric.WithAttributes(attrsFromTags(tags)...))
}
