package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/itemops/engine"
	"github.com/jonwraymond/itemops/health"
	"github.com/jonwraymond/itemops/persist"
)

func reportsByName(reports []health.Report) map[string]health.Report {
	out := make(map[string]health.Report, len(reports))
	for _, r := range reports {
		out[r.Name] = r
	}
	return out
}

func TestHealth_DegradedUntilDefinitionsExist(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.Catalog, testCatalog)
	e := f.open(t)
	ctx := context.Background()
	require.NoError(t, e.Reload(ctx))
	<-e.Warm()

	agg := e.Health()
	assert.Equal(t, []string{"state", "definitions", "catalog", "caches"}, agg.Names())

	reports := agg.CheckAll(ctx)
	byName := reportsByName(reports)
	assert.Equal(t, health.StatusHealthy, byName["state"].Status)
	assert.Equal(t, health.StatusDegraded, byName["definitions"].Status)
	assert.Equal(t, "missing", byName["definitions"].Details[f.cfg.Files.Groups])
	assert.Equal(t, 6, byName["catalog"].Details["items"])
	assert.Equal(t, health.StatusHealthy, byName["caches"].Status)
	assert.Equal(t, health.StatusDegraded, health.Overall(reports))

	f.write(t, f.cfg.Files.Groups, testGroups)
	f.write(t, f.cfg.Files.GUIDFilters, "")
	f.write(t, f.cfg.Files.HandlerOrdering, "")
	require.NoError(t, e.Reload(ctx))
	<-e.Warm()

	assert.Equal(t, health.StatusHealthy, health.Overall(e.Health().CheckAll(ctx)))
}

func TestHealth_EmptyCatalogDegrades(t *testing.T) {
	e := newFixture(t).open(t)

	res, err := e.Health().Check(context.Background(), "catalog")
	require.NoError(t, err)
	assert.Equal(t, health.StatusDegraded, res.Status)
}

func TestHealth_ClosedStoreIsUnhealthy(t *testing.T) {
	f := newFixture(t)
	store := persist.NewMemoryStore()
	e := f.open(t, engine.WithStore(store))
	require.NoError(t, store.Close())

	res, err := e.Health().Check(context.Background(), "state")
	require.NoError(t, err)
	assert.Equal(t, health.StatusUnhealthy, res.Status)
	assert.ErrorIs(t, res.Error, persist.ErrClosed)
}
