package group

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonwraymond/itemops/cache"
	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/observe"
	"github.com/jonwraymond/itemops/persist"
	"github.com/jonwraymond/itemops/resilience"
)

// Classifier holds the ordered group list and the item → group index cache.
//
// Contract:
//   - Concurrency: safe for concurrent use. Reload and ClassifyAll are
//     serialized with each other; lookups never block on a running batch.
//   - Totality: IndexOf returns a valid index or NoGroup.
//   - Faults: a panicking filter leaves its item unclassified and is
//     logged; the batch continues.
type Classifier struct {
	batch sync.Mutex

	mu     sync.RWMutex
	groups []Group

	index      *cache.MemoryCache[int]
	store      persist.Store
	translator Translator
	pool       *resilience.Pool
	mw         *observe.Middleware
	logger     observe.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithStore sets the store that keeps expand/collapse state. Default: an
// in-memory store.
func WithStore(s persist.Store) Option {
	return func(c *Classifier) { c.store = s }
}

// WithTranslator sets the translator for unlocalizedName directives.
func WithTranslator(t Translator) Option {
	return func(c *Classifier) { c.translator = t }
}

// WithPool sets the worker pool used by ClassifyAll.
func WithPool(p *resilience.Pool) Option {
	return func(c *Classifier) { c.pool = p }
}

// WithMiddleware sets the telemetry wrapper for batches.
func WithMiddleware(m *observe.Middleware) Option {
	return func(c *Classifier) { c.mw = m }
}

// WithLogger sets the logger for definition and item faults.
func WithLogger(l observe.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// NewClassifier creates an empty classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		index:      cache.NewMemoryCache[int](),
		translator: identityTranslator{},
		logger:     observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = persist.NewMemoryStore()
	}
	if c.pool == nil {
		c.pool = resilience.NewPool(resilience.PoolConfig{})
	}
	if c.mw == nil {
		c.mw = observe.NopMiddleware()
	}
	return c
}

// Reload rebuilds the group list from presets and definition lines, clears
// the classification cache and merges persisted expand state by group ID.
// Skipped definition lines are logged and returned joined; the valid groups
// are installed regardless.
func (c *Classifier) Reload(ctx context.Context, presets []Preset, lines []string) error {
	c.batch.Lock()
	defer c.batch.Unlock()

	var groups []Group
	for i := len(presets) - 1; i >= 0; i-- {
		p := presets[i]
		if !p.Enabled || p.Mode != ModeGroup {
			continue
		}
		g := Group{ID: presetID(p), Filter: p.filter(), DisplayName: p.Name}
		if item.IsDegenerate(g.Filter) {
			c.logger.Warn(ctx, "preset group rejected", observe.Field{Key: "preset", Value: p.Name})
			continue
		}
		groups = append(groups, g)
	}

	defined, faults := parseDefinitions(lines, c.translator)
	groups = append(groups, defined...)

	errs := make([]error, 0, len(faults))
	for _, f := range faults {
		c.logger.Error(ctx, "skipping group definition",
			observe.Field{Key: "line", Value: f.Line},
			observe.Field{Key: "text", Value: f.Text},
			observe.ErrorField(f.Err),
		)
		errs = append(errs, f)
	}

	c.mergeState(ctx, groups)

	c.mu.Lock()
	c.groups = groups
	c.index.Clear()
	c.mu.Unlock()

	c.logger.Info(ctx, "groups loaded", observe.Field{Key: "groups", Value: len(groups)})
	return errors.Join(errs...)
}

// mergeState applies persisted expand flags to groups with a matching ID.
// Missing or unreadable state counts as no prior state.
func (c *Classifier) mergeState(ctx context.Context, groups []Group) {
	state, err := c.store.Load(ctx, StateKey)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			c.logger.Warn(ctx, "ignoring group state", observe.ErrorField(err))
		}
		return
	}

	for i := range groups {
		if v, ok := state[groups[i].ID]; ok {
			if expanded, ok := asBool(v); ok {
				groups[i].Expanded = expanded
			}
		}
	}
}

func asBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if n, ok := item.ToInt(v); ok {
		return n == 1, true
	}
	return false, false
}

// ClassifyAll clears the classification cache and records the first
// matching group of every item. The only error returned is an
// orchestration failure such as a cancelled context.
func (c *Classifier) ClassifyAll(ctx context.Context, items []item.Variant) error {
	c.batch.Lock()
	defer c.batch.Unlock()

	c.mu.RLock()
	groups := append([]Group(nil), c.groups...)
	c.mu.RUnlock()

	c.index.Clear()
	if len(groups) == 0 {
		return nil
	}

	meta := observe.Meta{Component: "group", Operation: "classify"}
	_, err := c.mw.Run(ctx, meta, func(ctx context.Context) (observe.Outcome, error) {
		var kept atomic.Int64

		faults, err := c.pool.ForEach(ctx, len(items), func(_ context.Context, i int) error {
			key, err := item.Key(items[i])
			if err != nil {
				return nil
			}
			if idx := firstMatch(groups, items[i]); idx != NoGroup {
				c.index.Set(key, idx)
				kept.Add(1)
			}
			return nil
		})

		for _, f := range faults {
			c.logger.Warn(ctx, "item classification failed",
				observe.Field{Key: "type", Value: items[f.Index].Type},
				observe.Field{Key: "damage", Value: items[f.Index].Damage},
				observe.ErrorField(f.Err),
			)
		}

		outcome := observe.Outcome{Units: len(items), Kept: int(kept.Load()), Faults: len(faults)}
		if err != nil {
			return outcome, fmt.Errorf("group: classify: %w", err)
		}
		return outcome, nil
	})
	return err
}

func firstMatch(groups []Group, v item.Variant) int {
	for i := range groups {
		if groups[i].Filter.Matches(v) {
			return i
		}
	}
	return NoGroup
}

// IndexOf returns the cached group index of v, or NoGroup.
func (c *Classifier) IndexOf(v item.Variant) int {
	key, err := item.Key(v)
	if err != nil {
		return NoGroup
	}
	if idx, ok := c.index.Get(key); ok {
		return idx
	}
	return NoGroup
}

// Len returns the number of groups.
func (c *Classifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.groups)
}

// Groups returns a snapshot of the group list.
func (c *Classifier) Groups() []Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Group(nil), c.groups...)
}

// DisplayName returns the display name of group i.
func (c *Classifier) DisplayName(i int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i < 0 || i >= len(c.groups) {
		return "", false
	}
	return c.groups[i].DisplayName, true
}

// IsExpanded reports whether group i is expanded. Unknown indexes report
// true so their items stay visible.
func (c *Classifier) IsExpanded(i int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i < 0 || i >= len(c.groups) {
		return true
	}
	return c.groups[i].Expanded
}

// SetExpanded sets the state of group i and saves all states.
func (c *Classifier) SetExpanded(ctx context.Context, i int, expanded bool) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.groups) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownGroup, i)
	}
	c.groups[i].Expanded = expanded
	state := c.stateLocked()
	c.mu.Unlock()

	return c.save(ctx, state)
}

// ToggleAll sets every group to *target. A nil target expands all groups
// unless all of them are already expanded, in which case it collapses
// them.
func (c *Classifier) ToggleAll(ctx context.Context, target *bool) error {
	c.mu.Lock()
	expanded := false
	if target != nil {
		expanded = *target
	} else {
		for _, g := range c.groups {
			if !g.Expanded {
				expanded = true
				break
			}
		}
	}
	for i := range c.groups {
		c.groups[i].Expanded = expanded
	}
	state := c.stateLocked()
	c.mu.Unlock()

	return c.save(ctx, state)
}

func (c *Classifier) stateLocked() map[string]any {
	state := make(map[string]any, len(c.groups))
	for _, g := range c.groups {
		state[g.ID] = g.Expanded
	}
	return state
}

func (c *Classifier) save(ctx context.Context, state map[string]any) error {
	if err := c.store.Save(ctx, StateKey, state); err != nil {
		return fmt.Errorf("group: save state: %w", err)
	}
	return nil
}

// Filter matches items that belong to any group.
func (c *Classifier) Filter() item.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()

	filters := make([]item.Filter, len(c.groups))
	for i, g := range c.groups {
		filters[i] = g.Filter
	}
	return item.AnyOf(filters...)
}

// Classified returns the number of cached classifications.
func (c *Classifier) Classified() int {
	return c.index.Len()
}
