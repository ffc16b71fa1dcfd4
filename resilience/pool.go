package resilience

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PoolConfig configures the worker pool.
type PoolConfig struct {
	// Workers is the maximum number of units running at once.
	// Default: runtime.GOMAXPROCS(0)
	Workers int
}

// Fault records a failed unit by its input index.
type Fault struct {
	Index int
	Err   error
}

// Pool fans work out over a bounded number of goroutines and joins before
// returning.
//
// Contract:
//   - Isolation: a unit's error or panic is recorded as a Fault and never
//     cancels the other units.
//   - Orchestration: the only error returned is ctx's, when the batch was
//     cancelled before every unit could run.
type Pool struct {
	config PoolConfig
}

// NewPool creates a worker pool.
func NewPool(config PoolConfig) *Pool {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{config: config}
}

// Workers returns the concurrency limit.
func (p *Pool) Workers() int {
	return p.config.Workers
}

// ForEach calls fn for every index in [0, n). Faults are returned sorted by
// index.
func (p *Pool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) ([]Fault, error) {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		faults []Fault
	)
	g.SetLimit(p.config.Workers)

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := Isolate(func() error { return fn(ctx, i) }); err != nil {
				mu.Lock()
				faults = append(faults, Fault{Index: i, Err: err})
				mu.Unlock()
			}
			// Never propagate: siblings keep running.
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(faults, func(a, b int) bool { return faults[a].Index < faults[b].Index })
	if err := ctx.Err(); err != nil {
		return faults, err
	}
	return faults, nil
}

// Collect applies fn to every item and returns the kept results in input
// order. A unit is kept when fn returns ok=true and no error.
func Collect[T, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) (R, bool, error)) ([]R, []Fault, error) {
	type slot struct {
		value R
		kept  bool
	}
	slots := make([]slot, len(items))

	faults, err := p.ForEach(ctx, len(items), func(ctx context.Context, i int) error {
		v, ok, err := fn(ctx, items[i])
		if err != nil {
			return err
		}
		slots[i] = slot{value: v, kept: ok}
		return nil
	})

	out := make([]R, 0, len(items))
	for _, s := range slots {
		if s.kept {
			out = append(out, s.value)
		}
	}
	return out, faults, err
}
