package health

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/jonwraymond/itemops/resilience"
)

// DefaultTimeout bounds one CheckAll run when Config.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// Config configures an Aggregator.
type Config struct {
	// Timeout is the deadline shared by every check of one run.
	// Default: DefaultTimeout
	Timeout time.Duration
}

// Report is the result of one named check.
type Report struct {
	Name string
	Result
}

// Aggregator runs a set of checkers as one composite check.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Faults: a panicking check is reported as unhealthy; a check that
//     misses the deadline is reported as unhealthy with ErrCheckTimeout.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates an empty aggregator.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Aggregator{timeout: cfg.Timeout}
}

// Register adds c, replacing a checker of the same name in place.
func (a *Aggregator) Register(c Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, existing := range a.checkers {
		if existing.Name() == c.Name() {
			a.checkers[i] = c
			return
		}
	}
	a.checkers = append(a.checkers, c)
}

// Names returns the registered checker names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

// Check runs the checker called name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	var found Checker
	for _, c := range a.checkers {
		if c.Name() == name {
			found = c
			break
		}
	}
	a.mu.RUnlock()

	if found == nil {
		return Result{}, ErrCheckerNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return run(ctx, found), nil
}

// CheckAll runs every checker in parallel and returns their reports in
// registration order.
func (a *Aggregator) CheckAll(ctx context.Context) []Report {
	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reports := make([]Report, len(checkers))
	var wg conc.WaitGroup
	for i, c := range checkers {
		wg.Go(func() {
			reports[i] = Report{Name: c.Name(), Result: run(ctx, c)}
		})
	}
	wg.Wait()
	return reports
}

// Overall folds reports into one status: the worst of them, or healthy
// when there are none.
func Overall(reports []Report) Status {
	worst := StatusHealthy
	for _, r := range reports {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}

func run(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		res, err := resilience.IsolateValue(func() (Result, error) {
			return c.Check(ctx), nil
		})
		if err != nil {
			res = Unhealthy("check failed", err)
		}
		done <- res
	}()

	select {
	case res := <-done:
		res.Duration = time.Since(start)
		return res
	case <-ctx.Done():
		res := Unhealthy("check timed out", ErrCheckTimeout)
		res.Duration = time.Since(start)
		return res
	}
}
