package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Meta describes one batch operation for telemetry purposes.
type Meta struct {
	Component string // classifier, search, query, ... (required)
	Operation string // classify, populate, run, ... (required)
	Label     string // caller supplied qualifier, e.g. a query label (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: itemops.<component>.<operation>
func (m Meta) SpanName() string {
	return "itemops." + m.Component + "." + m.Operation
}

// Validate reports whether the metadata is complete.
func (m Meta) Validate() error {
	if m.Component == "" || m.Operation == "" {
		return ErrMissingOperation
	}
	return nil
}

func (m Meta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("itemops.component", m.Component),
		attribute.String("itemops.operation", m.Operation),
	}
	if m.Label != "" {
		attrs = append(attrs, attribute.String("itemops.label", m.Label))
	}
	return attrs
}

func (m Meta) fields() []Field {
	fields := []Field{
		{Key: "component", Value: m.Component},
		{Key: "operation", Value: m.Operation},
	}
	if m.Label != "" {
		fields = append(fields, Field{Key: "label", Value: m.Label})
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with per-operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a batch operation.
	StartSpan(ctx context.Context, meta Meta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the outcome.
	EndSpan(span trace.Span, outcome Outcome, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta Meta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records unit counts and error status.
func (t *tracerImpl) EndSpan(span trace.Span, outcome Outcome, err error) {
	span.SetAttributes(
		attribute.Int("itemops.units", outcome.Units),
		attribute.Int("itemops.faults", outcome.Faults),
	)
	switch {
	case err != nil:
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	case outcome.Faults > 0:
		span.SetStatus(codes.Error, "extension faults")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta Meta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ Outcome, _ error) {
	span.End()
}
