package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/itemops/observe"
	"github.com/jonwraymond/itemops/resilience"
)

// ErrNilProbe is returned by New without a probe.
var ErrNilProbe = errors.New("query: probe is required")

// Candidate is a recipe handler that can be probed.
type Candidate interface {
	// HandlerID identifies the handler for ordering and diagnostics.
	HandlerID() string
	// NumResults reports how many recipes the handler produced.
	NumResults() int
}

// Probe asks a candidate to answer the lookup. It returns the answering
// handler and ok=true, or ok=false when the candidate does not apply.
type Probe[T Candidate] func(ctx context.Context, c T) (T, bool, error)

// Comparator orders handler IDs.
type Comparator func(a, b string) int

// Notifier surfaces failed lookups to the user.
type Notifier interface {
	LookupFailed(ctx context.Context, label string, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, label string, err error)

// LookupFailed implements Notifier.
func (f NotifierFunc) LookupFailed(ctx context.Context, label string, err error) { f(ctx, label, err) }

type nopNotifier struct{}

func (nopNotifier) LookupFailed(context.Context, string, error) {}

// Warmup is a one-time preparation step shared by many queries. The first
// Run executes it; later calls return the first result.
type Warmup struct {
	run func() error
}

// NewWarmup wraps fn. A panic in fn is returned as an error.
func NewWarmup(fn func() error) *Warmup {
	return &Warmup{run: sync.OnceValue(func() error {
		return resilience.Isolate(fn)
	})}
}

// Run executes the warm-up once.
func (w *Warmup) Run() error {
	if w == nil {
		return nil
	}
	return w.run()
}

// Fault is a candidate that failed during a run.
type Fault struct {
	HandlerID string
	Err       error
}

// Result is the outcome of one run.
type Result[T Candidate] struct {
	Label  string
	Items  []T
	Faults []Fault
	// Err is an orchestration failure; Items is empty when set.
	Err error
}

// Faulted reports whether the run surfaced a notification.
func (r Result[T]) Faulted() bool {
	return r.Err != nil || len(r.Faults) > 0
}

type settings struct {
	messages []string
	warmup   *Warmup
	compare  Comparator
	notifier Notifier
	pool     *resilience.Pool
	timeout  time.Duration
	mw       *observe.Middleware
	logger   observe.Logger
}

// Option configures a Query.
type Option func(*settings)

// WithMessages sets the diagnostic lines logged with every fault.
func WithMessages(lines ...string) Option {
	return func(s *settings) { s.messages = append(s.messages, lines...) }
}

// WithWarmup sets the shared warm-up step.
func WithWarmup(w *Warmup) Option {
	return func(s *settings) { s.warmup = w }
}

// WithComparator sets the handler ordering. Default: lexical handler ID.
func WithComparator(c Comparator) Option {
	return func(s *settings) { s.compare = c }
}

// WithNotifier sets where failed lookups are reported.
func WithNotifier(n Notifier) Option {
	return func(s *settings) { s.notifier = n }
}

// WithPool sets the worker pool.
func WithPool(p *resilience.Pool) Option {
	return func(s *settings) { s.pool = p }
}

// WithTimeout bounds each probe call. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithMiddleware sets the telemetry wrapper.
func WithMiddleware(m *observe.Middleware) Option {
	return func(s *settings) { s.mw = m }
}

// WithLogger sets the logger for faults.
func WithLogger(l observe.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Query is a handler lookup over fixed candidate lists.
//
// Contract:
//   - Concurrency: Run may be called concurrently; probes for different
//     candidates run in parallel.
//   - Faults: never returned as errors from Run; see Execute for details.
//   - Determinism: identical inputs give identically ordered results.
type Query[T Candidate] struct {
	probe    Probe[T]
	serial   []T
	parallel []T
	exec     *resilience.Executor
	settings
}

// New creates a query over the serial and parallel candidate lists.
func New[T Candidate](probe Probe[T], serial, parallel []T, opts ...Option) (*Query[T], error) {
	if probe == nil {
		return nil, ErrNilProbe
	}

	s := settings{
		compare:  strings.Compare,
		notifier: nopNotifier{},
		logger:   observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.pool == nil {
		s.pool = resilience.NewPool(resilience.PoolConfig{})
	}
	if s.mw == nil {
		s.mw = observe.NopMiddleware()
	}

	return &Query[T]{
		probe:    probe,
		serial:   slices.Clone(serial),
		parallel: slices.Clone(parallel),
		exec:     resilience.NewExecutor(resilience.WithTimeout(s.timeout)),
		settings: s,
	}, nil
}

// Run returns the sorted handlers that answered. Faults and orchestration
// failures are logged and notified, never returned.
func (q *Query[T]) Run(ctx context.Context, label string) []T {
	return q.Execute(ctx, label).Items
}

// Execute runs the lookup:
//  1. the shared warm-up;
//  2. the serial candidates, then the parallel ones, dropping faults,
//     declines and handlers with no results;
//  3. a stable sort of serial-then-parallel results by the comparator.
//
// The notifier is called once if any candidate faulted or the run itself
// failed; in the latter case Items is empty.
func (q *Query[T]) Execute(ctx context.Context, label string) Result[T] {
	res := Result[T]{Label: label}

	meta := observe.Meta{Component: "query", Operation: "run", Label: label}
	_, err := q.mw.Run(ctx, meta, func(ctx context.Context) (observe.Outcome, error) {
		units := len(q.serial) + len(q.parallel)
		if err := q.warmup.Run(); err != nil {
			return observe.Outcome{Units: units}, fmt.Errorf("query: warm-up: %w", err)
		}

		var items []T
		for _, phase := range [][]T{q.serial, q.parallel} {
			kept, faults, err := q.phase(ctx, phase)
			res.Faults = append(res.Faults, faults...)
			if err != nil {
				return observe.Outcome{Units: units, Faults: len(res.Faults)}, fmt.Errorf("query: %w", err)
			}
			items = append(items, kept...)
		}

		err := resilience.Isolate(func() error {
			slices.SortStableFunc(items, func(a, b T) int {
				return q.compare(a.HandlerID(), b.HandlerID())
			})
			return nil
		})
		if err != nil {
			return observe.Outcome{Units: units, Faults: len(res.Faults)}, fmt.Errorf("query: sort: %w", err)
		}
		res.Items = items
		return observe.Outcome{Units: units, Kept: len(items), Faults: len(res.Faults)}, nil
	})

	switch {
	case err != nil:
		res.Err = err
		res.Items = nil
		q.logMessages(ctx, label, "", err)
		q.notifier.LookupFailed(ctx, label, err)
	case len(res.Faults) > 0:
		errs := make([]error, len(res.Faults))
		for i, f := range res.Faults {
			errs[i] = f.Err
		}
		q.notifier.LookupFailed(ctx, label, errors.Join(errs...))
	}
	return res
}

func (q *Query[T]) phase(ctx context.Context, candidates []T) ([]T, []Fault, error) {
	kept, poolFaults, err := resilience.Collect(ctx, q.pool, candidates, func(ctx context.Context, c T) (T, bool, error) {
		var (
			out T
			ok  bool
		)
		err := q.exec.Execute(ctx, func(ctx context.Context) error {
			var err error
			out, ok, err = q.probe(ctx, c)
			if err == nil && ok {
				ok = out.NumResults() > 0
			}
			return err
		})
		if err != nil {
			var zero T
			return zero, false, err
		}
		return out, ok, nil
	})

	faults := make([]Fault, len(poolFaults))
	for i, f := range poolFaults {
		faults[i] = Fault{HandlerID: handlerID(candidates[f.Index]), Err: f.Err}
		q.logMessages(ctx, "", faults[i].HandlerID, f.Err)
	}
	return kept, faults, err
}

// logMessages writes the diagnostic lines followed by the fault.
func (q *Query[T]) logMessages(ctx context.Context, label, handler string, err error) {
	var fields []observe.Field
	if label != "" {
		fields = append(fields, observe.Field{Key: "label", Value: label})
	}
	if handler != "" {
		fields = append(fields, observe.Field{Key: "handler_id", Value: handler})
	}
	for _, line := range q.messages {
		q.logger.Error(ctx, line, fields...)
	}
	q.logger.Error(ctx, "recipe lookup fault", append(fields, observe.ErrorField(err))...)
}

func handlerID[T Candidate](c T) string {
	id, err := resilience.IsolateValue(func() (string, error) { return c.HandlerID(), nil })
	if err != nil {
		return "<unknown>"
	}
	return id
}
