package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/observe"
)

// Sentinel errors for rejected messages.
var (
	ErrInvalidMessage = errors.New("registry: invalid message")
	ErrMissingField   = errors.New("registry: missing required field")
	ErrUnknownItem    = errors.New("registry: unknown item")
)

// Registry holds handler infos, catalysts and the handler ordering.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Precedence: a later registration for the same handler ID replaces
//     the earlier one; removals win over registrations.
type Registry struct {
	mu               sync.RWMutex
	handlers         map[string]HandlerInfo
	removedHandlers  map[string]bool
	catalysts        map[string][]CatalystInfo
	removedCatalysts map[string][]string
	senders          map[string]bool
	ordering         map[string]int

	mods   ModLoader
	lookup ItemLookup
	logger observe.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithModLoader sets the loader used for modRequired and excludedModId.
// Default: no mods loaded.
func WithModLoader(m ModLoader) Option {
	return func(r *Registry) { r.mods = m }
}

// WithItemLookup sets how catalyst and icon items are resolved.
// Default: ParseItem.
func WithItemLookup(fn ItemLookup) Option {
	return func(r *Registry) { r.lookup = fn }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		mods:   ModSet(nil),
		lookup: ParseItem,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Reset()
	return r
}

// Reset drops every registration and the ordering.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = make(map[string]HandlerInfo)
	r.removedHandlers = make(map[string]bool)
	r.catalysts = make(map[string][]CatalystInfo)
	r.removedCatalysts = make(map[string][]string)
	r.senders = make(map[string]bool)
	r.ordering = make(map[string]int)
}

// Process applies messages in order. Messages with an empty or unknown key
// are ignored; invalid messages are skipped and returned joined.
func (r *Registry) Process(ctx context.Context, msgs ...Message) error {
	var errs []error
	for _, m := range msgs {
		var err error
		switch m.Key {
		case RegisterHandlerInfo:
			err = r.registerHandler(ctx, m)
		case RemoveHandlerInfo:
			err = r.removeHandler(ctx, m)
		case RegisterCatalystInfo:
			err = r.registerCatalyst(ctx, m)
		case RemoveCatalystInfo:
			err = r.removeCatalyst(ctx, m)
		default:
			continue
		}
		if err != nil {
			r.logger.Warn(ctx, "registration message rejected",
				observe.Field{Key: "message", Value: m.Key},
				observe.Field{Key: "sender", Value: m.Sender},
				observe.ErrorField(err),
			)
			errs = append(errs, fmt.Errorf("%s from %s: %w", m.Key, m.Sender, err))
		}
	}
	return errors.Join(errs...)
}

// deprecatedKey reads current, falling back to old with a warning.
func (r *Registry) deprecatedKey(ctx context.Context, m Message, old, current string) string {
	if m.has(old) {
		r.logger.Warn(ctx, "deprecated message field",
			observe.Field{Key: "message", Value: m.Key},
			observe.Field{Key: "sender", Value: m.Sender},
			observe.Field{Key: "field", Value: old},
			observe.Field{Key: "use", Value: current},
		)
		return m.str(old)
	}
	return m.str(current)
}

// modsAllow applies the modRequired and excludedModId checks.
func (r *Registry) modsAllow(m Message, modID string) bool {
	if m.boolean("modRequired") && modID != "" && !r.mods.IsLoaded(modID) {
		return false
	}
	if m.has("excludedModId") && r.mods.IsLoaded(m.str("excludedModId")) {
		return false
	}
	return true
}

func (r *Registry) registerHandler(ctx context.Context, m Message) error {
	if m.Values == nil {
		return fmt.Errorf("%w: no values", ErrInvalidMessage)
	}
	id := r.deprecatedKey(ctx, m, "handler", "handlerID")
	info := NewHandlerInfo(id, m.str("modName"), m.str("modId"))
	if info.HandlerID == "" || info.ModName == "" || info.ModID == "" {
		return fmt.Errorf("%w: handlerID, modName and modId", ErrMissingField)
	}
	if !r.modsAllow(m, info.ModID) {
		r.logger.Debug(ctx, "handler info skipped by mod checks", observe.Field{Key: "handler_id", Value: id})
		return nil
	}
	info.ModRequired = m.boolean("modRequired")
	info.ExcludedModID = m.str("excludedModId")

	if res := m.str("imageResource"); res != "" {
		img := &Image{Resource: res}
		img.X, _ = m.integer("imageX", 0)
		img.Y, _ = m.integer("imageY", 0)
		img.Width, _ = m.integer("imageWidth", 0)
		img.Height, _ = m.integer("imageHeight", 0)
		info.Image = img
	}
	if !info.HasIcon() {
		if name := m.str("itemName"); name != "" {
			if v, ok := r.lookup(name, m.str("nbtInfo")); ok {
				info.Item = &v
			}
		}
	}
	info.YShift, _ = m.integer("yShift", 0)

	height, okH := m.integer("handlerHeight", DefaultHeight)
	width, okW := m.integer("handlerWidth", DefaultWidth)
	perPage, okP := m.integer("maxRecipesPerPage", DefaultMaxPerPage)
	if okH && okW && okP {
		info.Height, info.Width, info.MaxRecipesPerPage = height, width, perPage
	} else {
		r.logger.Info(ctx, "invalid handler dimensions, using defaults", observe.Field{Key: "handler_id", Value: id})
	}

	r.RegisterHandler(ctx, info)
	return nil
}

// RegisterHandler records info directly, replacing any earlier info for the
// same handler ID.
func (r *Registry) RegisterHandler(ctx context.Context, info HandlerInfo) {
	r.mu.Lock()
	_, replaced := r.handlers[info.HandlerID]
	r.handlers[info.HandlerID] = info
	r.mu.Unlock()

	msg := "added handler info"
	if replaced {
		msg = "replaced handler info"
	}
	r.logger.Info(ctx, msg, observe.Field{Key: "handler_id", Value: info.HandlerID})
}

func (r *Registry) removeHandler(ctx context.Context, m Message) error {
	if m.Values == nil {
		return fmt.Errorf("%w: no values", ErrInvalidMessage)
	}
	id := r.deprecatedKey(ctx, m, "handler", "handlerID")
	if id == "" {
		return fmt.Errorf("%w: handlerID", ErrMissingField)
	}

	r.mu.Lock()
	r.removedHandlers[id] = true
	r.mu.Unlock()
	return nil
}

// catalystTarget validates the fields shared by catalyst messages.
func (r *Registry) catalystTarget(ctx context.Context, m Message) (string, item.Variant, error) {
	if m.Values == nil {
		return "", item.Variant{}, fmt.Errorf("%w: no values", ErrInvalidMessage)
	}
	id := r.deprecatedKey(ctx, m, "handlerID", "catalystHandlerID")
	if id == "" {
		return "", item.Variant{}, fmt.Errorf("%w: catalystHandlerID", ErrMissingField)
	}
	name := m.str("itemName")
	if name == "" {
		return "", item.Variant{}, fmt.Errorf("%w: itemName for %q", ErrMissingField, id)
	}
	v, ok := r.lookup(name, m.str("nbtInfo"))
	if !ok {
		return "", item.Variant{}, fmt.Errorf("%w: %q", ErrUnknownItem, name)
	}
	return id, v, nil
}

func (r *Registry) registerCatalyst(ctx context.Context, m Message) error {
	if m.Values != nil {
		r.mu.Lock()
		r.senders[m.Sender] = true
		r.mu.Unlock()
	}

	if m.Values != nil && !r.modsAllow(m, m.str("modId")) {
		r.logger.Debug(ctx, "catalyst skipped by mod checks", observe.Field{Key: "sender", Value: m.Sender})
		return nil
	}
	id, v, err := r.catalystTarget(ctx, m)
	if err != nil {
		return err
	}
	priority, _ := m.integer("priority", 0)

	r.mu.Lock()
	r.catalysts[id] = append(r.catalysts[id], CatalystInfo{Item: v, Priority: priority})
	r.mu.Unlock()

	r.logger.Info(ctx, "added catalyst",
		observe.Field{Key: "handler_id", Value: id},
		observe.Field{Key: "item", Value: v.Type},
	)
	return nil
}

func (r *Registry) removeCatalyst(ctx context.Context, m Message) error {
	id, v, err := r.catalystTarget(ctx, m)
	if err != nil {
		return err
	}
	key, err := item.Key(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownItem, err)
	}

	r.mu.Lock()
	r.removedCatalysts[id] = append(r.removedCatalysts[id], key)
	r.mu.Unlock()

	r.logger.Info(ctx, "removed catalyst",
		observe.Field{Key: "handler_id", Value: id},
		observe.Field{Key: "item", Value: v.Type},
	)
	return nil
}

// Handler returns the info for id unless it was never registered or was
// removed.
func (r *Registry) Handler(id string) (HandlerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.removedHandlers[id] {
		return HandlerInfo{}, false
	}
	info, ok := r.handlers[id]
	return info, ok
}

// Handlers returns the active infos in handler order.
func (r *Registry) Handlers() []HandlerInfo {
	r.mu.RLock()
	out := make([]HandlerInfo, 0, len(r.handlers))
	for id, info := range r.handlers {
		if !r.removedHandlers[id] {
			out = append(out, info)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b HandlerInfo) int { return r.Compare(a.HandlerID, b.HandlerID) })
	return out
}

// Removed reports whether a removal was requested for handler id.
func (r *Registry) Removed(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.removedHandlers[id]
}

// Catalysts returns the active catalysts of a handler, highest priority
// first. Registration order breaks ties.
func (r *Registry) Catalysts(handlerID string) []CatalystInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	removed := r.removedCatalysts[handlerID]
	out := make([]CatalystInfo, 0, len(r.catalysts[handlerID]))
	for _, c := range r.catalysts[handlerID] {
		key, err := item.Key(c.Item)
		if err == nil && slices.Contains(removed, key) {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b CatalystInfo) int { return cmp.Compare(b.Priority, a.Priority) })
	return out
}

// Senders returns the senders of catalyst registrations, sorted.
func (r *Registry) Senders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.senders))
	for s := range r.senders {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
