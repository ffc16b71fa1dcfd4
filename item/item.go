package item

import (
	"errors"
	"math"
	"strconv"

	"github.com/jonwraymond/itemops/cache"
)

// Conventional record keys.
const (
	KeyID     = "id"
	KeyStrID  = "strId"
	KeyCount  = "Count"
	KeyDamage = "Damage"
	KeyTag    = "tag"
)

// KeyNamespace prefixes every content key.
const KeyNamespace = "item"

// ErrEmptyType is returned by Key for variants without a type.
var ErrEmptyType = errors.New("item: variant has no type")

var keyer cache.Keyer = cache.NewDefaultKeyer()

// Variant is one concrete item value: a type, a stack count, a damage or
// sub-id, and an optional metadata tree of nested maps, slices and
// primitives.
type Variant struct {
	Type   string         `json:"type" yaml:"type"`
	Count  int            `json:"count,omitempty" yaml:"count,omitempty"`
	Damage int            `json:"damage,omitempty" yaml:"damage,omitempty"`
	Tag    map[string]any `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// New returns a variant of count one.
func New(typ string, damage int) Variant {
	return Variant{Type: typ, Count: 1, Damage: damage}
}

// WithTag returns a copy of v carrying tag.
func (v Variant) WithTag(tag map[string]any) Variant {
	v.Tag = tag
	return v
}

// WithCount returns a copy of v with the given count.
func (v Variant) WithCount(count int) Variant {
	v.Count = count
	return v
}

// IsZero reports whether v has no type.
func (v Variant) IsZero() bool {
	return v.Type == ""
}

// Key returns the content key of v. Count is excluded.
func Key(v Variant) (string, error) {
	if v.IsZero() {
		return "", ErrEmptyType
	}
	content := map[string]any{
		"type":   v.Type,
		"damage": v.Damage,
	}
	if len(v.Tag) > 0 {
		content["tag"] = v.Tag
	}
	return keyer.Key(KeyNamespace, content)
}

// Record is the structured form of a variant.
type Record map[string]any

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// String returns the string stored under key.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Int returns the integer stored under key, accepting any numeric encoding.
func (r Record) Int(key string) (int64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	return ToInt(v)
}

// Map returns the nested tree stored under key.
func (r Record) Map(key string) (map[string]any, bool) {
	m, ok := r[key].(map[string]any)
	return m, ok
}

// Canonical renders r as canonical JSON.
func (r Record) Canonical() (string, error) {
	return cache.CanonicalString(map[string]any(r))
}

// Equal reports whether a and b hold the same content.
func (r Record) Equal(other Record) bool {
	if r == nil || other == nil {
		return r == nil && other == nil
	}
	a, errA := r.Canonical()
	b, errB := other.Canonical()
	return errA == nil && errB == nil && a == b
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case Record:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// ToInt converts the numeric encodings produced by JSON, YAML and Go
// literals to int64. Strings are parsed in base 10.
func ToInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return int64(n), float32(int64(n)) == n
	case float64:
		return int64(n), float64(int64(n)) == n
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// Step descends one path segment into a metadata tree: a key for maps and
// a decimal index for slices.
func Step(node any, segment string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		child, ok := n[segment]
		return child, ok
	case Record:
		child, ok := n[segment]
		return child, ok
	case []any:
		i, err := strconv.Atoi(segment)
		if err != nil || i < 0 || i >= len(n) {
			return nil, false
		}
		return n[i], true
	default:
		return nil, false
	}
}

// Lookup follows path from node, reporting false on the first failed step.
func Lookup(node any, path []string) (any, bool) {
	for _, seg := range path {
		var ok bool
		if node, ok = Step(node, seg); !ok {
			return nil, false
		}
	}
	return node, true
}
