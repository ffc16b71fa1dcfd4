package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome summarizes a finished batch.
type Outcome struct {
	Units  int // work units attempted
	Kept   int // units that produced a result
	Faults int // units excluded by an extension fault
}

// CacheStatsFunc reports the current state of a named cache.
type CacheStatsFunc func() (hits, misses int64, entries int)

// Metrics records batch and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordBatch records one batch with its duration and outcome.
	RecordBatch(ctx context.Context, meta Meta, duration time.Duration, outcome Outcome, err error)

	// ObserveCache registers a cache whose stats are read at collection time.
	ObserveCache(name string, stats CacheStatsFunc) error
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	batchCount   metric.Int64Counter
	faultCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheHits    metric.Int64ObservableCounter
	cacheMisses  metric.Int64ObservableCounter
	cacheEntries metric.Int64ObservableGauge
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	batchCount, err := meter.Int64Counter(
		"itemops.batch.total",
		metric.WithDescription("Total number of batch operations"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	faultCount, err := meter.Int64Counter(
		"itemops.batch.faults",
		metric.WithDescription("Work units excluded by extension faults"),
		metric.WithUnit("{fault}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"itemops.batch.errors",
		metric.WithDescription("Batch operations that failed to complete"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"itemops.batch.duration_ms",
		metric.WithDescription("Batch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64ObservableCounter(
		"itemops.cache.hits",
		metric.WithDescription("Cache lookups served from memory"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64ObservableCounter(
		"itemops.cache.misses",
		metric.WithDescription("Cache lookups that computed a value"),
	)
	if err != nil {
		return nil, err
	}

	cacheEntries, err := meter.Int64ObservableGauge(
		"itemops.cache.entries",
		metric.WithDescription("Entries currently held by a cache"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		batchCount:   batchCount,
		faultCount:   faultCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		cacheHits:    cacheHits,
		cacheMisses:  cacheMisses,
		cacheEntries: cacheEntries,
	}, nil
}

// RecordBatch records metrics for a batch operation.
func (m *metricsImpl) RecordBatch(ctx context.Context, meta Meta, duration time.Duration, outcome Outcome, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.batchCount.Add(ctx, 1, opt)

	if outcome.Faults > 0 {
		m.faultCount.Add(ctx, int64(outcome.Faults), opt)
	}

	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// ObserveCache registers a callback reporting stats for the named cache.
func (m *metricsImpl) ObserveCache(name string, stats CacheStatsFunc) error {
	attrs := metric.WithAttributes(attribute.String("itemops.cache", name))
	_, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		hits, misses, entries := stats()
		o.ObserveInt64(m.cacheHits, hits, attrs)
		o.ObserveInt64(m.cacheMisses, misses, attrs)
		o.ObserveInt64(m.cacheEntries, int64(entries), attrs)
		return nil
	}, m.cacheHits, m.cacheMisses, m.cacheEntries)
	return err
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (noopMetrics) RecordBatch(context.Context, Meta, time.Duration, Outcome, error) {}

func (noopMetrics) ObserveCache(string, CacheStatsFunc) error { return nil }
