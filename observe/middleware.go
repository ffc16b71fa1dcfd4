package observe

import (
	"context"
	"time"
)

// BatchFunc is a batch operation that reports its outcome.
type BatchFunc func(ctx context.Context) (Outcome, error)

// Middleware wraps batch operations with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Run is safe for concurrent use.
//   - Context: the span is propagated to fn through ctx.
//   - Errors: the error from fn is recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a middleware that only runs fn.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the logger used for completion entries.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Metrics returns the metrics recorder.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Run executes fn inside a span, then records metrics and a completion
// entry. Batches with faults are logged at warn level, failed batches at
// error level.
func (m *Middleware) Run(ctx context.Context, meta Meta, fn BatchFunc) (Outcome, error) {
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	outcome, err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, outcome, err)
	m.metrics.RecordBatch(ctx, meta, duration, outcome, err)

	fields := append(meta.fields(),
		Field{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		Field{Key: "units", Value: outcome.Units},
		Field{Key: "kept", Value: outcome.Kept},
		Field{Key: "faults", Value: outcome.Faults},
	)

	switch {
	case err != nil:
		m.logger.Error(ctx, "batch failed", append(fields, ErrorField(err))...)
	case outcome.Faults > 0:
		m.logger.Warn(ctx, "batch completed with faults", fields...)
	default:
		m.logger.Debug(ctx, "batch completed", fields...)
	}

	return outcome, err
}
