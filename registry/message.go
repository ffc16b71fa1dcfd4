package registry

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/itemops/item"
)

// Message kinds understood by Process.
const (
	RegisterHandlerInfo  = "registerHandlerInfo"
	RemoveHandlerInfo    = "removeHandlerInfo"
	RegisterCatalystInfo = "registerCatalystInfo"
	RemoveCatalystInfo   = "removeCatalystInfo"
)

// Message is one registration request from an extension. Values is nil for
// messages that carry no value map, which Process rejects.
type Message struct {
	Key    string         `yaml:"key"`
	Sender string         `yaml:"sender"`
	Values map[string]any `yaml:"values"`
}

func (m Message) has(key string) bool {
	_, ok := m.Values[key]
	return ok
}

// str returns the value under key as a string, or "" when absent.
func (m Message) str(key string) string {
	switch v := m.Values[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return strings.TrimSpace(yamlScalar(v))
	}
}

// integer returns the value under key, or def when absent. ok is false for
// values that are present but not integers.
func (m Message) integer(key string, def int) (int, bool) {
	v, present := m.Values[key]
	if !present {
		return def, true
	}
	n, ok := item.ToInt(v)
	if !ok {
		return def, false
	}
	return int(n), true
}

func (m Message) boolean(key string) bool {
	switch v := m.Values[key].(type) {
	case bool:
		return v
	default:
		n, ok := item.ToInt(v)
		return ok && n != 0
	}
}

func yamlScalar(v any) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParseItem is the default ItemLookup. The metadata is read as YAML flow
// syntax, which accepts both JSON and the unquoted compound form
// {Fluid: {FluidName: water}}.
func ParseItem(name, nbt string) (item.Variant, bool) {
	if name == "" {
		return item.Variant{}, false
	}
	v := item.Variant{Type: name, Count: 1}
	if strings.TrimSpace(nbt) == "" {
		return v, true
	}

	var tag map[string]any
	if err := yaml.Unmarshal([]byte(nbt), &tag); err != nil {
		return item.Variant{}, false
	}
	if len(tag) > 0 {
		v.Tag = tag
	}
	return v, true
}
