package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/itemops/group"
	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/registry"
	"github.com/jonwraymond/itemops/search"
)

// ErrInvalidCatalog is returned for catalog files that cannot be decoded.
var ErrInvalidCatalog = errors.New("engine: invalid catalog")

// CatalogItem is one catalog entry together with its display lines. The
// first line is the item name.
type CatalogItem struct {
	item.Variant `yaml:",inline"`
	Lines        []string `yaml:"lines,omitempty"`
}

// CatalogPreset is the file form of a group.Preset.
type CatalogPreset struct {
	Name    string   `yaml:"name"`
	Items   []string `yaml:"items"`
	Mode    string   `yaml:"mode"`
	Enabled *bool    `yaml:"enabled"`
}

// Catalog is the decoded form of a catalog file.
type Catalog struct {
	Items        []CatalogItem      `yaml:"items"`
	Mods         []string           `yaml:"mods"`
	Presets      []CatalogPreset    `yaml:"presets"`
	Messages     []registry.Message `yaml:"messages"`
	Translations map[string]string  `yaml:"translations"`

	once  sync.Once
	lines map[string][]string
	types map[string]bool
}

// build indexes the items by content key and type.
func (c *Catalog) build() {
	c.once.Do(func() {
		c.lines = make(map[string][]string, len(c.Items))
		c.types = make(map[string]bool, len(c.Items))
		for _, it := range c.Items {
			c.types[it.Type] = true
			if key, err := item.Key(it.Variant); err == nil {
				c.lines[key] = it.Lines
			}
		}
	})
}

// ReadCatalog decodes a catalog from rd. An empty document is an empty
// catalog.
func ReadCatalog(rd io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(rd).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	for i, it := range c.Items {
		if it.Type == "" {
			return nil, fmt.Errorf("%w: item %d has no type", ErrInvalidCatalog, i)
		}
		if it.Count == 0 {
			c.Items[i].Count = 1
		}
	}
	return &c, nil
}

// ReadCatalogFile decodes the catalog at path.
func ReadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: read catalog: %w", err)
	}
	return ReadCatalog(bytes.NewReader(data))
}

// Variants returns the catalog items without their display lines.
func (c *Catalog) Variants() []item.Variant {
	out := make([]item.Variant, len(c.Items))
	for i, it := range c.Items {
		out[i] = it.Variant
	}
	return out
}

// GroupPresets converts the file presets. Presets without an enabled flag
// are enabled.
func (c *Catalog) GroupPresets() ([]group.Preset, error) {
	out := make([]group.Preset, 0, len(c.Presets))
	for _, p := range c.Presets {
		mode, err := group.ParseMode(p.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: preset %q: %w", ErrInvalidCatalog, p.Name, err)
		}
		out = append(out, group.Preset{
			Name:    p.Name,
			Items:   p.Items,
			Mode:    mode,
			Enabled: p.Enabled == nil || *p.Enabled,
		})
	}
	return out, nil
}

// Translator returns a translator over the catalog's translations.
func (c *Catalog) Translator() group.Translator {
	return group.TranslatorFunc(func(key string) string {
		if s, ok := c.Translations[key]; ok {
			return s
		}
		return key
	})
}

// Describer returns a describer that yields each item's display lines. It
// indexes by content key, so variants differing only in count share lines.
func (c *Catalog) Describer() search.Describer {
	c.build()
	return search.DescriberFunc(func(v item.Variant) []string {
		key, err := item.Key(v)
		if err != nil {
			return nil
		}
		return c.lines[key]
	})
}

// Lookup resolves registry item references with registry.ParseItem. When
// the catalog lists items, types it does not list are unknown.
func (c *Catalog) Lookup() registry.ItemLookup {
	c.build()
	return func(name, nbt string) (item.Variant, bool) {
		v, ok := registry.ParseItem(name, nbt)
		if !ok {
			return item.Variant{}, false
		}
		if len(c.types) > 0 && !c.types[v.Type] {
			return item.Variant{}, false
		}
		return v, true
	}
}
