package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/itemops/cache"
	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/observe"
	"github.com/jonwraymond/itemops/resilience"
)

// ErrNilDescriber is returned by NewIndex without a Describer.
var ErrNilDescriber = errors.New("search: describer is required")

// Describer renders the display lines of an item. The first line is the
// item's name.
type Describer interface {
	Describe(v item.Variant) []string
}

// DescriberFunc adapts a function to Describer.
type DescriberFunc func(v item.Variant) []string

// Describe implements Describer.
func (f DescriberFunc) Describe(v item.Variant) []string { return f(v) }

// Index caches search text per item content key.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent misses for one key
//     share a single Describe call.
//   - Faults: a panicking Describer yields empty text that is not cached.
type Index struct {
	describer Describer
	texts     *cache.MemoryCache[string]
	flight    singleflight.Group
	gen       atomic.Uint64
	hits      atomic.Int64
	misses    atomic.Int64

	pool   *resilience.Pool
	warm   *resilience.Bulkhead
	mw     *observe.Middleware
	logger observe.Logger

	mu      sync.Mutex
	running chan struct{}
}

// Option configures an Index.
type Option func(*Index)

// WithPool sets the pool used by PopulateAsync.
func WithPool(p *resilience.Pool) Option {
	return func(i *Index) { i.pool = p }
}

// WithMiddleware sets the telemetry wrapper for warm-up passes.
func WithMiddleware(m *observe.Middleware) Option {
	return func(i *Index) { i.mw = m }
}

// WithLogger sets the logger for describer faults.
func WithLogger(l observe.Logger) Option {
	return func(i *Index) { i.logger = l }
}

// NewIndex creates an empty index over d.
func NewIndex(d Describer, opts ...Option) (*Index, error) {
	if d == nil {
		return nil, ErrNilDescriber
	}
	idx := &Index{
		describer: d,
		texts:     cache.NewMemoryCache[string](),
		warm:      resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 1}),
		logger:    observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.pool == nil {
		idx.pool = resilience.NewPool(resilience.PoolConfig{})
	}
	if idx.mw == nil {
		idx.mw = observe.NopMiddleware()
	}
	return idx, nil
}

// TextFor returns the search text of v.
func (i *Index) TextFor(v item.Variant) string {
	text, _ := i.text(v)
	return text
}

func (i *Index) text(v item.Variant) (string, error) {
	key, err := item.Key(v)
	if err != nil {
		return "", nil
	}
	if text, ok := i.texts.Get(key); ok {
		i.hits.Add(1)
		return text, nil
	}
	i.misses.Add(1)

	gen := i.gen.Load()
	out, err, _ := i.flight.Do(key, func() (any, error) {
		text, err := resilience.IsolateValue(func() (string, error) {
			return render(i.describer.Describe(v)), nil
		})
		if err != nil {
			return "", err
		}
		if i.gen.Load() == gen {
			i.texts.Set(key, text)
		}
		return text, nil
	})
	if err != nil {
		i.logger.Warn(context.Background(), "describer fault",
			observe.Field{Key: "type", Value: v.Type},
			observe.ErrorField(err),
		)
		return "", err
	}
	return out.(string), nil
}

func render(lines []string) string {
	if len(lines) <= 1 {
		return ""
	}
	return StripFormatting(strings.Join(lines[1:], "\n"))
}

// Matches reports whether p finds a match in the search text of v. A match
// timeout counts as no match.
func (i *Index) Matches(p *Pattern, v item.Variant) bool {
	ok, err := p.Find(i.TextFor(v))
	if err != nil {
		i.logger.Debug(context.Background(), "pattern match aborted",
			observe.Field{Key: "pattern", Value: p.String()},
			observe.ErrorField(err),
		)
		return false
	}
	return ok
}

// NewFilter adapts p to an item.Filter over this index.
func (i *Index) NewFilter(p *Pattern) item.Filter {
	return item.FilterFunc(func(v item.Variant) bool { return i.Matches(p, v) })
}

// PopulateAsync computes the text of every item in the background. The
// returned channel is closed when the pass ends. While a pass is running,
// further calls start nothing and return the running pass's channel.
func (i *Index) PopulateAsync(ctx context.Context, items []item.Variant) <-chan struct{} {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.warm.Acquire(ctx); err != nil {
		i.logger.Debug(ctx, "search warm-up already running", observe.ErrorField(err))
		if i.running != nil {
			return i.running
		}
		done := make(chan struct{})
		close(done)
		return done
	}

	done := make(chan struct{})
	i.running = done

	go func() {
		defer func() {
			i.mu.Lock()
			i.running = nil
			i.warm.Release()
			i.mu.Unlock()
			close(done)
		}()

		meta := observe.Meta{Component: "search", Operation: "populate"}
		_, _ = i.mw.Run(ctx, meta, func(ctx context.Context) (observe.Outcome, error) {
			var kept atomic.Int64
			faults, err := i.pool.ForEach(ctx, len(items), func(_ context.Context, n int) error {
				if _, err := i.text(items[n]); err != nil {
					return err
				}
				kept.Add(1)
				return nil
			})
			return observe.Outcome{
				Units:  len(items),
				Kept:   int(kept.Load()),
				Faults: len(faults),
			}, err
		})
	}()

	return done
}

// Reset drops every cached text. Computations that started before Reset
// do not repopulate the cache.
func (i *Index) Reset() {
	i.gen.Add(1)
	i.texts.Clear()
}

// Stats reports cache hits, misses and entries.
func (i *Index) Stats() (hits, misses int64, entries int) {
	return i.hits.Load(), i.misses.Load(), i.texts.Len()
}
