package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/jonwraymond/itemops/config"
	"github.com/jonwraymond/itemops/group"
	"github.com/jonwraymond/itemops/identity"
	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/observe"
	"github.com/jonwraymond/itemops/persist"
	"github.com/jonwraymond/itemops/query"
	"github.com/jonwraymond/itemops/registry"
	"github.com/jonwraymond/itemops/resilience"
	"github.com/jonwraymond/itemops/search"
	"github.com/jonwraymond/itemops/watcher"
)

// Engine owns every registry and cache of one item catalog.
//
// Contract:
//   - Concurrency: all methods are safe for concurrent use. Reloads are
//     serialized; lookups proceed against the state installed last.
//   - Lifecycle: Close releases the state store and flushes telemetry.
type Engine struct {
	cfg      *config.Config
	obs      observe.Observer
	mw       *observe.Middleware
	logger   observe.Logger
	store    persist.Store
	pool     *resilience.Pool
	warmup   *query.Warmup
	notifier query.Notifier

	resolver   *identity.Resolver
	classifier *group.Classifier
	index      *search.Index
	registry   *registry.Registry

	reload  sync.Mutex
	mu      sync.RWMutex
	catalog *Catalog
	warm    <-chan struct{}
}

// Option configures an Engine.
type Option func(*settings)

type settings struct {
	logger     observe.Logger
	store      persist.Store
	describer  search.Describer
	translator group.Translator
	strategies []identity.Strategy
	warmup     func() error
	notifier   query.Notifier
}

// WithLogger replaces the observer's logger.
func WithLogger(l observe.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithStore replaces the store opened from the state configuration.
func WithStore(st persist.Store) Option {
	return func(s *settings) { s.store = st }
}

// WithDescriber replaces the catalog's display lines as the source of
// search text.
func WithDescriber(d search.Describer) Option {
	return func(s *settings) { s.describer = d }
}

// WithTranslator replaces the catalog's translations for group names.
func WithTranslator(t group.Translator) Option {
	return func(s *settings) { s.translator = t }
}

// WithStrategies registers identity strategies after the default one.
func WithStrategies(strategies ...identity.Strategy) Option {
	return func(s *settings) { s.strategies = append(s.strategies, strategies...) }
}

// WithWarmup sets the preparation step run once before the first handler
// lookup.
func WithWarmup(fn func() error) Option {
	return func(s *settings) { s.warmup = fn }
}

// WithNotifier sets the receiver of failed-lookup notifications.
func WithNotifier(n query.Notifier) Option {
	return func(s *settings) { s.notifier = n }
}

// New builds an engine from cfg. A nil cfg uses config.Default.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("engine: observer: %w", err)
	}
	logger := s.logger
	if logger == nil {
		logger = obs.Logger()
	}
	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("engine: metrics: %w", err)
	}

	store := s.store
	if store == nil {
		store, err = persist.Open(cfg.State, persist.WithLogger(logger))
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("engine: state store: %w", err)
		}
	}

	e := &Engine{
		cfg:     cfg,
		obs:     obs,
		mw:      observe.NewMiddleware(observe.NewTracer(obs.Tracer()), metrics, logger),
		logger:  logger,
		store:   store,
		pool:    resilience.NewPool(resilience.PoolConfig{Workers: cfg.Workers}),
		catalog: &Catalog{},
	}
	if s.warmup != nil {
		e.warmup = query.NewWarmup(s.warmup)
	}
	e.notifier = s.notifier
	if e.notifier == nil {
		e.notifier = query.NotifierFunc(e.lookupFailed)
	}

	e.resolver = identity.NewResolver(
		identity.WithFluidCapacity(cfg.Cache.FluidCapacity),
		identity.WithStrategies(s.strategies...),
		identity.WithLogger(logger),
	)

	translator := s.translator
	if translator == nil {
		translator = group.TranslatorFunc(e.translate)
	}
	e.classifier = group.NewClassifier(
		group.WithStore(store),
		group.WithTranslator(translator),
		group.WithPool(e.pool),
		group.WithMiddleware(e.mw),
		group.WithLogger(logger),
	)

	describer := s.describer
	if describer == nil {
		describer = search.DescriberFunc(e.describe)
	}
	e.index, err = search.NewIndex(describer,
		search.WithPool(e.pool),
		search.WithMiddleware(e.mw),
		search.WithLogger(logger),
	)
	if err != nil {
		_ = e.Close(ctx)
		return nil, err
	}

	e.registry = registry.New(
		registry.WithModLoader(catalogMods{e}),
		registry.WithItemLookup(e.lookupItem),
		registry.WithLogger(logger),
	)

	if err := e.observeCaches(metrics); err != nil {
		_ = e.Close(ctx)
		return nil, fmt.Errorf("engine: cache metrics: %w", err)
	}
	return e, nil
}

func (e *Engine) observeCaches(m observe.Metrics) error {
	return errors.Join(
		m.ObserveCache("identity.keys", func() (int64, int64, int) {
			keys, _ := e.resolver.Stats()
			return keys.Hits, keys.Misses, keys.Entries
		}),
		m.ObserveCache("identity.fluids", func() (int64, int64, int) {
			_, fluids := e.resolver.Stats()
			return fluids.Hits, fluids.Misses, fluids.Entries
		}),
		m.ObserveCache("search.text", e.index.Stats),
	)
}

// LoadCatalog installs cat and rebuilds every derived structure: group
// definitions, GUID filters, handler registrations and ordering. The
// search index is warmed in the background.
func (e *Engine) LoadCatalog(ctx context.Context, cat *Catalog) error {
	if cat == nil {
		cat = &Catalog{}
	}
	e.reload.Lock()
	defer e.reload.Unlock()

	e.mu.Lock()
	e.catalog = cat
	e.mu.Unlock()
	return e.rebuild(ctx)
}

// LoadCatalogFile reads the catalog at path and installs it.
func (e *Engine) LoadCatalogFile(ctx context.Context, path string) error {
	cat, err := ReadCatalogFile(path)
	if err != nil {
		return err
	}
	return e.LoadCatalog(ctx, cat)
}

// Reload re-reads the configured definition files and rebuilds. When a
// catalog file is configured and present it replaces the current catalog;
// otherwise the current catalog is kept.
func (e *Engine) Reload(ctx context.Context) error {
	e.reload.Lock()
	defer e.reload.Unlock()

	if path := e.cfg.Files.Catalog; path != "" {
		cat, err := ReadCatalogFile(path)
		switch {
		case err == nil:
			e.mu.Lock()
			e.catalog = cat
			e.mu.Unlock()
		case errors.Is(err, fs.ErrNotExist):
		default:
			return err
		}
	}
	return e.rebuild(ctx)
}

// rebuild applies the definition files to the installed catalog. Rejected
// lines and messages are returned joined; everything valid is installed.
func (e *Engine) rebuild(ctx context.Context) error {
	cat := e.Catalog()
	var errs []error

	presets, err := cat.GroupPresets()
	if err != nil {
		errs = append(errs, err)
	}

	if err := e.loadGUIDFilters(); err != nil {
		errs = append(errs, err)
	}
	e.resolver.Reset()

	e.registry.Reset()
	if err := e.registry.Process(ctx, cat.Messages...); err != nil {
		errs = append(errs, err)
	}
	if err := e.loadOrdering(); err != nil {
		errs = append(errs, err)
	}

	lines, err := readLines(e.cfg.Files.Groups)
	if err != nil {
		errs = append(errs, err)
	}
	if err := e.classifier.Reload(ctx, presets, lines); err != nil {
		errs = append(errs, err)
	}

	variants := cat.Variants()
	if err := e.classifier.ClassifyAll(ctx, variants); err != nil {
		errs = append(errs, err)
	}

	e.index.Reset()
	warm := e.index.PopulateAsync(context.WithoutCancel(ctx), variants)
	e.mu.Lock()
	e.warm = warm
	e.mu.Unlock()

	e.logger.Info(ctx, "catalog loaded",
		observe.Field{Key: "items", Value: len(variants)},
		observe.Field{Key: "groups", Value: e.classifier.Len()},
		observe.Field{Key: "handlers", Value: len(e.registry.Handlers())},
	)
	return errors.Join(errs...)
}

func (e *Engine) loadGUIDFilters() error {
	path := e.cfg.Files.GUIDFilters
	if path == "" {
		e.resolver.SetGUIDFilters(nil)
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		e.resolver.SetGUIDFilters(nil)
		return nil
	}
	if err != nil {
		return fmt.Errorf("engine: guid filters: %w", err)
	}
	defer f.Close()
	return e.resolver.LoadGUIDFilters(f)
}

func (e *Engine) loadOrdering() error {
	path := e.cfg.Files.HandlerOrdering
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("engine: handler ordering: %w", err)
	}
	defer f.Close()
	return e.registry.LoadOrdering(f)
}

// readLines returns the lines of path. A missing or unset file has none.
func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: group definitions: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("engine: group definitions: %w", err)
	}
	return lines, nil
}

// Watch reloads whenever a configured definition file changes. It blocks
// until ctx is done. Reload errors are logged and watching continues.
func (e *Engine) Watch(ctx context.Context) error {
	w, err := watcher.New(watcher.Config{
		Paths:    e.cfg.Files.Paths(),
		Debounce: e.cfg.Watch.Debounce,
		Logger:   e.logger,
	})
	if err != nil {
		return fmt.Errorf("engine: watch: %w", err)
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return fmt.Errorf("engine: watch: %w", err)
	}
	defer func() { _ = w.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := e.Reload(ctx); err != nil {
				e.logger.Warn(ctx, "reload after change", observe.ErrorField(err))
			}
		}
	}
}

// NewQuery builds a handler lookup carrying the engine's ordering, logger,
// notifier, pool, probe timeout and shared warm-up. opts are applied after
// the engine's and may override them.
func NewQuery[T query.Candidate](e *Engine, probe query.Probe[T], serial, parallel []T, opts ...query.Option) (*query.Query[T], error) {
	base := []query.Option{
		query.WithComparator(e.registry.Compare),
		query.WithLogger(e.logger),
		query.WithNotifier(e.notifier),
		query.WithWarmup(e.warmup),
		query.WithPool(e.pool),
		query.WithTimeout(e.cfg.Query.Timeout),
		query.WithMiddleware(e.mw),
	}
	return query.New(probe, serial, parallel, append(base, opts...)...)
}

func (e *Engine) lookupFailed(ctx context.Context, label string, err error) {
	e.logger.Error(ctx, "error while looking up recipes",
		observe.Field{Key: "label", Value: label},
		observe.ErrorField(err),
	)
}

// Catalog returns the installed catalog. Callers must not modify it.
func (e *Engine) Catalog() *Catalog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog
}

// Warm returns a channel closed when the latest search warm-up ends.
func (e *Engine) Warm() <-chan struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.warm == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return e.warm
}

// Resolver returns the identity resolver.
func (e *Engine) Resolver() *identity.Resolver { return e.resolver }

// Classifier returns the group classifier.
func (e *Engine) Classifier() *group.Classifier { return e.classifier }

// Index returns the search index.
func (e *Engine) Index() *search.Index { return e.index }

// Registry returns the handler registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Logger returns the engine logger.
func (e *Engine) Logger() observe.Logger { return e.logger }

// Close releases the state store and shuts telemetry down.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if err := e.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("engine: close store: %w", err))
	}
	if err := e.obs.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("engine: shutdown observer: %w", err))
	}
	return errors.Join(errs...)
}

func (e *Engine) translate(key string) string {
	return e.Catalog().Translator().Translate(key)
}

func (e *Engine) describe(v item.Variant) []string {
	return e.Catalog().Describer().Describe(v)
}

func (e *Engine) lookupItem(name, nbt string) (item.Variant, bool) {
	return e.Catalog().Lookup()(name, nbt)
}

// catalogMods reports the installed catalog's mods as loaded.
type catalogMods struct{ e *Engine }

func (m catalogMods) IsLoaded(modID string) bool {
	for _, id := range m.e.Catalog().Mods {
		if id == modID {
			return true
		}
	}
	return false
}
