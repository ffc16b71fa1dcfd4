package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/jonwraymond/itemops/group"
	"github.com/jonwraymond/itemops/health"
	"github.com/jonwraymond/itemops/persist"
)

// Health returns an aggregator over the engine's state store, definition
// files, catalog and lookup caches.
func (e *Engine) Health() *health.Aggregator {
	agg := health.NewAggregator(health.Config{})
	agg.Register(health.Func("state", e.checkState))
	agg.Register(health.Func("definitions", e.checkDefinitions))
	agg.Register(health.Func("catalog", e.checkCatalog))
	agg.Register(health.Func("caches", e.checkCaches))
	return agg
}

func (e *Engine) checkState(ctx context.Context) health.Result {
	_, err := e.store.Load(ctx, group.StateKey)
	switch {
	case err == nil:
		return health.Healthy("group state readable")
	case errors.Is(err, persist.ErrNotFound):
		return health.Healthy("no group state saved yet")
	default:
		return health.Unhealthy("group state unreadable", err)
	}
}

// checkDefinitions degrades on missing files; other stat errors fail.
func (e *Engine) checkDefinitions(context.Context) health.Result {
	details := make(map[string]any)
	missing := 0
	for _, path := range e.cfg.Files.Paths() {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			details[path] = "ok"
		case errors.Is(err, fs.ErrNotExist):
			details[path] = "missing"
			missing++
		default:
			return health.Unhealthy("definition file unreadable", err).WithDetails(details)
		}
	}
	if missing > 0 {
		return health.Degraded("definition files missing").WithDetails(details)
	}
	return health.Healthy("definition files present").WithDetails(details)
}

func (e *Engine) checkCatalog(context.Context) health.Result {
	details := map[string]any{
		"items":    len(e.Catalog().Items),
		"groups":   e.classifier.Len(),
		"handlers": len(e.registry.Handlers()),
	}
	if len(e.Catalog().Items) == 0 {
		return health.Degraded("catalog is empty").WithDetails(details)
	}
	return health.Healthy("catalog loaded").WithDetails(details)
}

// checkCaches degrades while the search index is still warming.
func (e *Engine) checkCaches(context.Context) health.Result {
	keys, fluids := e.resolver.Stats()
	hits, misses, entries := e.index.Stats()
	details := map[string]any{
		"identity.keys":   keys.Entries,
		"identity.fluids": fluids.Entries,
		"search.text":     entries,
		"search.hits":     hits,
		"search.misses":   misses,
	}

	select {
	case <-e.Warm():
		return health.Healthy("caches ready").WithDetails(details)
	default:
		return health.Degraded("search warm-up running").WithDetails(details)
	}
}
