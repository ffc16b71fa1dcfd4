package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/itemops/config"
	"github.com/jonwraymond/itemops/engine"
	"github.com/jonwraymond/itemops/group"
	"github.com/jonwraymond/itemops/identity"
	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/observe"
	"github.com/jonwraymond/itemops/persist"
	"github.com/jonwraymond/itemops/query"
)

const testCatalog = `
mods: [furnaces]
items:
  - type: ore:iron
    lines: ["Iron Ore", "Smelts into §airon ingot"]
  - type: ore:copper
    lines: ["Copper Ore", "Smelts into copper ingot"]
  - type: wood:plank
    damage: 2
    lines: ["Birch Planks", "Building block"]
  - type: rock:stone
    lines: ["Stone"]
  - type: furnaces:furnace
    lines: ["Furnace", "Cooks things"]
  - type: furnaces:blast
    lines: ["Blast Furnace", "Cooks ores quickly"]
translations:
  group.ores: Ores
presets:
  - name: Metals
    items: ["ore:iron"]
  - name: Hidden
    items: ["rock:stone"]
    mode: hide
messages:
  - key: registerHandlerInfo
    sender: furnaces
    values: {handlerID: smelting, modName: Furnaces, modId: furnaces}
  - key: registerHandlerInfo
    sender: furnaces
    values: {handlerID: blasting, modName: Furnaces, modId: furnaces}
  - key: registerHandlerInfo
    sender: elsewhere
    values: {handlerID: missing, modName: Elsewhere, modId: elsewhere, modRequired: true}
  - key: registerCatalystInfo
    sender: furnaces
    values: {catalystHandlerID: smelting, itemName: "furnaces:furnace"}
  - key: registerCatalystInfo
    sender: furnaces
    values: {catalystHandlerID: blasting, itemName: "furnaces:furnace"}
  - key: registerCatalystInfo
    sender: furnaces
    values: {catalystHandlerID: blasting, itemName: "furnaces:blast"}
`

const testGroups = `
; {"unlocalizedName": "group.ores"}
@ore
wood:plank
`

type queryNotifier func(label string)

func (n queryNotifier) LookupFailed(_ context.Context, label string, _ error) { n(label) }

type fixture struct {
	dir string
	cfg *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Observe.Logging.Enabled = false
	cfg.Files = config.FilesConfig{
		Groups:          filepath.Join(dir, "groups.cfg"),
		GUIDFilters:     filepath.Join(dir, "guidfilters.cfg"),
		HandlerOrdering: filepath.Join(dir, "handlerordering.csv"),
		Catalog:         filepath.Join(dir, "catalog.yaml"),
	}
	return &fixture{dir: dir, cfg: cfg}
}

func (f *fixture) write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func (f *fixture) open(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	opts = append([]engine.Option{engine.WithLogger(observe.NopLogger())}, opts...)
	e, err := engine.New(context.Background(), f.cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, e.Close(context.Background())) })
	return e
}

func types(vs []item.Variant) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Type
	}
	return out
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	e, err := engine.New(context.Background(), nil, engine.WithLogger(observe.NopLogger()))
	require.NoError(t, err)
	defer func() { assert.NoError(t, e.Close(context.Background())) }()

	assert.Equal(t, 0, e.Classifier().Len())
	assert.Empty(t, e.Catalog().Items)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.State.Backend = "floppy"
	_, err := engine.New(context.Background(), cfg)
	require.ErrorIs(t, err, config.ErrInvalidBackend)
}

func TestLoadCatalogFile_ClassifiesItems(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.Catalog, testCatalog)
	f.write(t, f.cfg.Files.Groups, testGroups)
	e := f.open(t)

	require.NoError(t, e.LoadCatalogFile(context.Background(), f.cfg.Files.Catalog))

	c := e.Classifier()
	require.Equal(t, 3, c.Len())
	assert.Equal(t, 0, c.IndexOf(item.New("ore:iron", 0)))
	assert.Equal(t, 1, c.IndexOf(item.New("ore:copper", 0)))
	assert.Equal(t, 2, c.IndexOf(item.New("wood:plank", 2)))
	assert.Equal(t, group.NoGroup, c.IndexOf(item.New("rock:stone", 0)))

	name, ok := c.DisplayName(0)
	require.True(t, ok)
	assert.Equal(t, "Metals", name)
	name, ok = c.DisplayName(1)
	require.True(t, ok)
	assert.Equal(t, "Ores", name)
}

func TestLoadCatalog_ProcessesMessages(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	cat, err := engine.ReadCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)
	require.NoError(t, e.LoadCatalog(context.Background(), cat))

	_, ok := e.Registry().Handler("smelting")
	assert.True(t, ok)
	_, ok = e.Registry().Handler("missing")
	assert.False(t, ok, "handler requiring an absent mod must be skipped")
	assert.Len(t, e.Registry().Catalysts("blasting"), 2)
}

func TestLoadCatalog_ReportsRejectedMessages(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)

	cat, err := engine.ReadCatalog(strings.NewReader(`
items:
  - type: ore:iron
messages:
  - key: registerCatalystInfo
    values: {catalystHandlerID: smelting, itemName: "ore:gold"}
`))
	require.NoError(t, err)

	err = e.LoadCatalog(context.Background(), cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ore:gold")
	assert.Empty(t, e.Registry().Catalysts("smelting"))
}

func TestSearch_UsesDisplayLines(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.Catalog, testCatalog)
	e := f.open(t)
	require.NoError(t, e.LoadCatalogFile(context.Background(), f.cfg.Files.Catalog))

	<-e.Warm()

	got, err := e.Search("IRON INGOT")
	require.NoError(t, err)
	assert.Equal(t, []string{"ore:iron"}, types(got))

	got, err = e.Search("cooks")
	require.NoError(t, err)
	assert.Equal(t, []string{"furnaces:furnace", "furnaces:blast"}, types(got))

	got, err = e.Search("Stone")
	require.NoError(t, err)
	assert.Empty(t, got, "the name line is not part of the search text")

	_, err = e.Search("(")
	require.Error(t, err)
}

func TestHandlersFor_OrdersByHandlerOrdering(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.Catalog, testCatalog)
	e := f.open(t)
	ctx := context.Background()
	require.NoError(t, e.LoadCatalogFile(ctx, f.cfg.Files.Catalog))

	ids := func(ms []engine.HandlerMatch) []string {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.HandlerID()
		}
		return out
	}

	furnace := item.New("furnaces:furnace", 0)
	assert.Equal(t, []string{"blasting", "smelting"}, ids(e.HandlersFor(ctx, furnace)))
	assert.Equal(t, []string{"blasting"}, ids(e.HandlersFor(ctx, item.New("furnaces:blast", 0))))
	assert.Empty(t, e.HandlersFor(ctx, item.New("ore:iron", 0)))

	f.write(t, f.cfg.Files.HandlerOrdering, "blasting,5\n")
	require.NoError(t, e.Reload(ctx))
	assert.Equal(t, []string{"smelting", "blasting"}, ids(e.HandlersFor(ctx, furnace)))
}

func TestNewQuery_NotifiesOnceForFaults(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.Catalog, testCatalog)

	var (
		mu     sync.Mutex
		labels []string
	)
	notifier := queryNotifier(func(label string) {
		mu.Lock()
		labels = append(labels, label)
		mu.Unlock()
	})
	warmups := 0
	e := f.open(t,
		engine.WithNotifier(notifier),
		engine.WithWarmup(func() error { warmups++; return nil }),
	)
	ctx := context.Background()
	require.NoError(t, e.LoadCatalogFile(ctx, f.cfg.Files.Catalog))

	candidates := []engine.HandlerMatch{}
	for _, h := range e.Registry().Handlers() {
		candidates = append(candidates, engine.HandlerMatch{Info: h})
	}
	var probe query.Probe[engine.HandlerMatch] = func(_ context.Context, m engine.HandlerMatch) (engine.HandlerMatch, bool, error) {
		panic("broken handler " + m.HandlerID())
	}

	q, err := engine.NewQuery(e, probe, nil, candidates)
	require.NoError(t, err)
	assert.Empty(t, q.Run(ctx, "first"))
	assert.Empty(t, q.Run(ctx, "second"))

	assert.Equal(t, []string{"first", "second"}, labels)
	assert.Equal(t, 1, warmups)
}

func TestReload_AppliesChangedDefinitions(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.Catalog, testCatalog)
	e := f.open(t)
	ctx := context.Background()
	require.NoError(t, e.Reload(ctx))

	assert.Equal(t, 1, e.Classifier().Len(), "only the preset group without a groups file")

	f.write(t, f.cfg.Files.Groups, testGroups)
	f.write(t, f.cfg.Files.GUIDFilters, "ore:iron,tag.Purity\n")
	require.NoError(t, e.Reload(ctx))

	assert.Equal(t, 3, e.Classifier().Len())
	require.Len(t, e.Resolver().GUIDFilters(), 1)

	a := item.New("ore:iron", 0).WithTag(map[string]any{"Purity": 3, "Seed": 1})
	b := item.New("ore:iron", 0).WithTag(map[string]any{"Purity": 3, "Seed": 2})
	ka, ok := e.Resolver().CanonicalKey(a)
	require.True(t, ok)
	kb, ok := e.Resolver().CanonicalKey(b)
	require.True(t, ok)
	assert.Equal(t, ka, kb)

	require.NoError(t, os.Remove(f.cfg.Files.GUIDFilters))
	require.NoError(t, e.Reload(ctx))
	assert.Empty(t, e.Resolver().GUIDFilters())
}

func TestReload_KeepsCatalogWhenFileMissing(t *testing.T) {
	f := newFixture(t)
	e := f.open(t)
	ctx := context.Background()

	cat, err := engine.ReadCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)
	require.NoError(t, e.LoadCatalog(ctx, cat))
	require.NoError(t, e.Reload(ctx))

	assert.Len(t, e.Catalog().Items, 6)
}

func TestReload_ReportsBadDefinitions(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.Groups, "@ore\n*\n")
	f.write(t, f.cfg.Files.HandlerOrdering, "smelting\n")
	e := f.open(t)

	err := e.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, group.ErrInvalidDefinition)
	assert.Equal(t, 1, e.Classifier().Len(), "valid lines are still installed")
}

func TestReload_BadGUIDFilterLineKeepsTheRest(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.GUIDFilters, "mod:cell,tag.a\n")
	e := f.open(t)
	ctx := context.Background()
	require.NoError(t, e.Reload(ctx))

	f.write(t, f.cfg.Files.GUIDFilters, "mod:other,tag.x\n,tag.y\n")
	err := e.Reload(ctx)
	require.ErrorIs(t, err, identity.ErrInvalidGUIDFilter)

	filters := e.Resolver().GUIDFilters()
	require.Len(t, filters, 1)
	assert.Equal(t, "mod:other", filters[0].StrID, "earlier rules are replaced")
}

func TestGroupState_PersistsAcrossEngines(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.Catalog, testCatalog)
	f.write(t, f.cfg.Files.Groups, testGroups)
	store := persist.NewMemoryStore()
	ctx := context.Background()

	first := f.open(t, engine.WithStore(store))
	require.NoError(t, first.Reload(ctx))
	require.NoError(t, first.Classifier().SetExpanded(ctx, 1, true))

	second, err := engine.New(ctx, f.cfg, engine.WithLogger(observe.NopLogger()), engine.WithStore(store))
	require.NoError(t, err)
	require.NoError(t, second.Reload(ctx))
	assert.True(t, second.Classifier().IsExpanded(1))
	assert.False(t, second.Classifier().IsExpanded(2))
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.Files.Catalog, testCatalog)
	f.write(t, f.cfg.Files.Groups, "@ore\n")
	f.cfg.Watch.Debounce = 20 * time.Millisecond
	e := f.open(t)
	require.NoError(t, e.Reload(context.Background()))
	require.Equal(t, 2, e.Classifier().Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(f.cfg.Files.Groups, []byte("@ore\n@wood\n"), 0o644)
		return e.Classifier().Len() == 3
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_NoFiles(t *testing.T) {
	cfg := config.Default()
	cfg.Observe.Logging.Enabled = false
	e, err := engine.New(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close(context.Background()) }()

	require.Error(t, e.Watch(context.Background()))
}

func TestReadCatalog(t *testing.T) {
	cat, err := engine.ReadCatalog(strings.NewReader(testCatalog))
	require.NoError(t, err)
	require.Len(t, cat.Items, 6)
	assert.Equal(t, 1, cat.Items[0].Count, "count defaults to one")
	assert.Equal(t, 2, cat.Items[2].Damage)

	presets, err := cat.GroupPresets()
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, group.ModeGroup, presets[0].Mode)
	assert.True(t, presets[0].Enabled)
	assert.Equal(t, group.ModeHide, presets[1].Mode)

	assert.Equal(t, "Ores", cat.Translator().Translate("group.ores"))
	assert.Equal(t, "group.other", cat.Translator().Translate("group.other"))

	empty, err := engine.ReadCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	_, err = engine.ReadCatalog(strings.NewReader("items:\n  - damage: 3\n"))
	require.ErrorIs(t, err, engine.ErrInvalidCatalog)

	bad, err := engine.ReadCatalog(strings.NewReader("presets:\n  - name: x\n    mode: sideways\n"))
	require.NoError(t, err)
	_, err = bad.GroupPresets()
	require.ErrorIs(t, err, group.ErrInvalidDefinition)
}
