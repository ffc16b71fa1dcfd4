package identity

import (
	"context"
	"io"
	"math"
	"sync"

	"github.com/jonwraymond/itemops/cache"
	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/observe"
	"github.com/jonwraymond/itemops/resilience"
)

// WildcardDamage is the damage value that stands for "any damage". It is
// never preferred by MinimumDamage.
const WildcardDamage = math.MaxInt16

// Resolver derives records, fluids and canonical keys through a strategy
// stack, caching keys without bound and fluids in a bounded insertion-order
// cache.
//
// Contract:
//   - Concurrency: safe for concurrent use. Lookups run strategies against
//     a snapshot of the stack without holding the lock, so a strategy may
//     call back into the resolver. Register, SetGUIDFilters and Reset clear
//     the caches and bump a generation; a lookup that started under an
//     older generation returns its result but does not cache it.
//   - Faults: a panicking strategy is logged and skipped as if it had
//     declined the input.
type Resolver struct {
	mu         sync.RWMutex
	gen        uint64
	strategies []Strategy
	filters    map[string]GUIDFilter
	keys       *cache.Loader[string]
	fluids     *cache.Loader[item.Record]
	logger     observe.Logger
}

// view is the state one lookup runs against. Both the stack and the filter
// map are replaced, never mutated in place, once published.
type view struct {
	gen        uint64
	strategies []Strategy
	filters    map[string]GUIDFilter
}

func (r *Resolver) view() view {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.strategies)
	return view{gen: r.gen, strategies: r.strategies[:n:n], filters: r.filters}
}

// commit stores a computed result only while the generation it was
// computed under is current.
func (r *Resolver) commit(gen uint64) func(store func()) {
	return func(store func()) {
		r.mu.RLock()
		defer r.mu.RUnlock()
		if r.gen == gen {
			store()
		}
	}
}

// Option configures a Resolver.
type Option func(*settings)

type settings struct {
	logger        observe.Logger
	fluidCapacity int
	defaults      bool
	strategies    []Strategy
}

// WithLogger sets the logger used for strategy faults.
func WithLogger(l observe.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithFluidCapacity bounds the fluid cache. Default: cache.DefaultFluidCapacity.
func WithFluidCapacity(n int) Option {
	return func(s *settings) { s.fluidCapacity = n }
}

// WithStrategies registers strategies in order after the default strategy.
func WithStrategies(strategies ...Strategy) Option {
	return func(s *settings) { s.strategies = append(s.strategies, strategies...) }
}

// WithoutDefaultStrategy starts with an empty stack.
func WithoutDefaultStrategy() Option {
	return func(s *settings) { s.defaults = false }
}

// NewResolver creates a resolver whose stack starts with DefaultStrategy.
func NewResolver(opts ...Option) *Resolver {
	s := settings{
		logger:        observe.NopLogger(),
		fluidCapacity: cache.DefaultFluidCapacity,
		defaults:      true,
	}
	for _, opt := range opts {
		opt(&s)
	}

	r := &Resolver{
		filters: make(map[string]GUIDFilter),
		keys:    cache.NewLoader[string](cache.DefaultPolicy()),
		fluids:  cache.NewLoader[item.Record](cache.BoundedPolicy(s.fluidCapacity)),
		logger:  s.logger.With(observe.Field{Key: "component", Value: "identity"}),
	}
	if s.defaults {
		r.strategies = append(r.strategies, DefaultStrategy{})
	}
	r.strategies = append(r.strategies, s.strategies...)
	return r
}

// Register pushes s onto the stack; it takes precedence over every strategy
// registered before it.
func (r *Resolver) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.strategies = append(r.strategies, s)
	r.resetLocked()
}

// Strategies returns the registered strategy names, newest first.
func (r *Resolver) Strategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for i := len(r.strategies) - 1; i >= 0; i-- {
		names = append(names, r.strategies[i].Name())
	}
	return names
}

// SetGUIDFilters replaces the GUID filter rules and clears the key cache.
func (r *Resolver) SetGUIDFilters(filters []GUIDFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := make(map[string]GUIDFilter, len(filters))
	for _, f := range filters {
		m[f.StrID] = f
	}
	r.filters = m
	r.gen++
	r.keys.Clear()
}

// LoadGUIDFilters parses rules from rd and installs the readable ones. The
// returned error lists the rejected lines.
func (r *Resolver) LoadGUIDFilters(rd io.Reader) error {
	filters, err := ParseGUIDFilters(rd)
	r.SetGUIDFilters(filters)
	return err
}

// GUIDFilters returns the installed rules.
func (r *Resolver) GUIDFilters() []GUIDFilter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]GUIDFilter, 0, len(r.filters))
	for _, f := range r.filters {
		out = append(out, f)
	}
	return out
}

// Reset drops both caches.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

func (r *Resolver) resetLocked() {
	r.gen++
	r.keys.Clear()
	r.fluids.Clear()
}

// ToRecord converts v with the newest strategy that handles it.
func (r *Resolver) ToRecord(v item.Variant, saveCount bool) (item.Record, bool) {
	return r.toRecord(r.view(), v, saveCount)
}

func (r *Resolver) toRecord(vw view, v item.Variant, saveCount bool) (item.Record, bool) {
	return first(r, vw.strategies, "to_record", func(s Strategy) (item.Record, bool) {
		rec, ok := s.ToRecord(v, saveCount)
		return rec, ok && rec != nil
	})
}

// FromRecord converts rec with the newest strategy that handles it.
func (r *Resolver) FromRecord(rec item.Record) (item.Variant, bool) {
	if rec == nil {
		return item.Variant{}, false
	}

	return first(r, r.view().strategies, "from_record", func(s Strategy) (item.Variant, bool) {
		v, ok := s.FromRecord(rec)
		return v, ok && !v.IsZero()
	})
}

// FromRecordWithCount converts a copy of rec whose Count is replaced by
// count clamped to [0, MaxInt32].
func (r *Resolver) FromRecordWithCount(rec item.Record, count int64) (item.Variant, bool) {
	if rec == nil {
		return item.Variant{}, false
	}
	c := rec.Clone()
	c[item.KeyCount] = int(min(max(count, 0), math.MaxInt32))
	return r.FromRecord(c)
}

// Equal reports whether a and b have the same type and damage. Count is
// never compared. With useMetadata their records, converted without
// count, must also be both absent or both present and equal.
func (r *Resolver) Equal(a, b item.Variant, useMetadata bool) bool {
	if a.Type != b.Type || a.Damage != b.Damage {
		return false
	}
	if !useMetadata {
		return true
	}

	ra, okA := r.ToRecord(a, false)
	rb, okB := r.ToRecord(b, false)
	if !okA || !okB {
		return okA == okB
	}
	return ra.Equal(rb)
}

// Fluid returns the contained-fluid record of v. Results, including the
// absence of a fluid, are cached per content key.
func (r *Resolver) Fluid(v item.Variant) (item.Record, bool) {
	key, err := item.Key(v)
	if err != nil {
		return nil, false
	}

	vw := r.view()
	rec, ok := r.fluids.LoadCommit(key, func() (item.Record, bool) {
		return first(r, vw.strategies, "fluid", func(s Strategy) (item.Record, bool) {
			rec, ok := s.Fluid(v)
			return rec, ok && rec != nil
		})
	}, r.commit(vw.gen))
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// CanonicalKey returns the identity string of v, or false when no strategy
// can convert it.
func (r *Resolver) CanonicalKey(v item.Variant) (string, bool) {
	key, err := item.Key(v)
	if err != nil {
		return "", false
	}

	vw := r.view()
	return r.keys.LoadCommit(key, func() (string, bool) {
		return r.computeKey(vw, v)
	}, r.commit(vw.gen))
}

func (r *Resolver) computeKey(vw view, v item.Variant) (string, bool) {
	rec, ok := r.toRecord(vw, v, false)
	if !ok {
		return "", false
	}

	rec = rec.Clone()
	delete(rec, item.KeyCount)
	if d, ok := rec.Int(item.KeyDamage); ok && d == 0 {
		delete(rec, item.KeyDamage)
	}
	if tag, present := rec[item.KeyTag]; present {
		if m, isMap := tag.(map[string]any); tag == nil || (isMap && len(m) == 0) {
			delete(rec, item.KeyTag)
		}
	}

	if strID, ok := rec.String(item.KeyStrID); ok {
		if f, found := vw.filters[strID]; found {
			return f.project(rec), true
		}
	}

	s, err := rec.Canonical()
	if err != nil {
		r.logger.Warn(context.Background(), "record cannot be canonicalized",
			observe.Field{Key: "type", Value: v.Type},
			observe.ErrorField(err),
		)
		return "", false
	}
	return s, true
}

// MinimumDamage returns the typed variant with the lowest damage below
// WildcardDamage, or the first variant when none qualifies.
func MinimumDamage(vs []item.Variant) (item.Variant, bool) {
	if len(vs) == 0 {
		return item.Variant{}, false
	}

	best := vs[0]
	damage := WildcardDamage
	if len(vs) > 1 {
		for _, v := range vs {
			if !v.IsZero() && v.Damage < damage {
				damage = v.Damage
				best = v
			}
		}
	}
	return best.WithTag(cloneTag(best.Tag)), true
}

// Stats returns lookup statistics for the key and fluid caches.
func (r *Resolver) Stats() (keys, fluids cache.Stats) {
	return r.keys.Stats(), r.fluids.Stats()
}

// first walks the stack newest-first and returns the first answer. Panics
// are logged and treated as a decline.
func first[T any](r *Resolver, strategies []Strategy, call string, fn func(Strategy) (T, bool)) (T, bool) {
	for i := len(strategies) - 1; i >= 0; i-- {
		s := strategies[i]

		var (
			out T
			ok  bool
		)
		err := resilience.Isolate(func() error {
			out, ok = fn(s)
			return nil
		})
		if err != nil {
			r.logger.Warn(context.Background(), "strategy fault",
				observe.Field{Key: "strategy", Value: s.Name()},
				observe.Field{Key: "call", Value: call},
				observe.ErrorField(err),
			)
			continue
		}
		if ok {
			return out, true
		}
	}

	var zero T
	return zero, false
}

func cloneTag(tag map[string]any) map[string]any {
	if tag == nil {
		return nil
	}
	return map[string]any(item.Record(tag).Clone())
}
