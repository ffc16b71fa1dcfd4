package engine

import (
	"context"

	"github.com/dlclark/regexp2"

	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/observe"
	"github.com/jonwraymond/itemops/query"
	"github.com/jonwraymond/itemops/registry"
	"github.com/jonwraymond/itemops/search"
)

// HandlerMatch is a registered handler together with the catalysts that
// matched a lookup.
type HandlerMatch struct {
	Info      registry.HandlerInfo
	Catalysts []registry.CatalystInfo
}

// HandlerID implements query.Candidate.
func (m HandlerMatch) HandlerID() string { return m.Info.HandlerID }

// NumResults implements query.Candidate.
func (m HandlerMatch) NumResults() int { return len(m.Catalysts) }

// HandlersFor returns the handlers that list v as a catalyst, ordered by the
// handler ordering. Metadata is compared only for catalysts that carry a
// tag.
func (e *Engine) HandlersFor(ctx context.Context, v item.Variant) []HandlerMatch {
	handlers := e.registry.Handlers()
	candidates := make([]HandlerMatch, len(handlers))
	for i, h := range handlers {
		candidates[i] = HandlerMatch{Info: h}
	}

	var probe query.Probe[HandlerMatch] = func(_ context.Context, c HandlerMatch) (HandlerMatch, bool, error) {
		for _, cat := range e.registry.Catalysts(c.Info.HandlerID) {
			if e.resolver.Equal(cat.Item, v, len(cat.Item.Tag) > 0) {
				c.Catalysts = append(c.Catalysts, cat)
			}
		}
		return c, len(c.Catalysts) > 0, nil
	}

	q, err := NewQuery(e, probe, nil, candidates)
	if err != nil {
		e.logger.Error(ctx, "build handler lookup", observe.ErrorField(err))
		return nil
	}
	return q.Run(ctx, v.Type)
}

// Search returns the catalog items whose search text matches expr,
// ignoring case, in catalog order.
func (e *Engine) Search(expr string) ([]item.Variant, error) {
	p, err := search.Compile(expr, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	filter := e.index.NewFilter(p)
	var out []item.Variant
	for _, v := range e.Catalog().Variants() {
		if filter.Matches(v) {
			out = append(out, v)
		}
	}
	return out, nil
}
