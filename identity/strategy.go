package identity

import (
	"github.com/jonwraymond/itemops/item"
)

// Strategy converts between variants and records. Every method reports
// ok=false when the strategy does not handle the input, which passes the
// call to the next strategy down the stack.
//
// Contract:
//   - Concurrency: methods may be called from many goroutines at once.
//   - Purity: results must depend only on the input.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// ToRecord converts v to its structured record. When saveCount is
	// false the record must not carry a Count.
	ToRecord(v item.Variant, saveCount bool) (item.Record, bool)

	// FromRecord converts a record back to a variant.
	FromRecord(r item.Record) (item.Variant, bool)

	// Fluid extracts the contained-fluid record of v.
	Fluid(v item.Variant) (item.Record, bool)
}

// DefaultStrategy handles every typed variant. Its record carries the type
// under strId, plus Damage, an optional Count, and a copy of the tag. The
// fluid of a variant is the "Fluid" compound of its tag, if present.
type DefaultStrategy struct{}

// Name implements Strategy.
func (DefaultStrategy) Name() string { return "default" }

// ToRecord implements Strategy.
func (DefaultStrategy) ToRecord(v item.Variant, saveCount bool) (item.Record, bool) {
	if v.IsZero() {
		return nil, false
	}
	r := item.Record{
		item.KeyStrID:  v.Type,
		item.KeyDamage: v.Damage,
	}
	if saveCount {
		r[item.KeyCount] = v.Count
	}
	if len(v.Tag) > 0 {
		r[item.KeyTag] = map[string]any(item.Record(v.Tag).Clone())
	}
	return r, true
}

// FromRecord implements Strategy. The type is read from strId, falling back
// to id.
func (DefaultStrategy) FromRecord(r item.Record) (item.Variant, bool) {
	typ, ok := r.String(item.KeyStrID)
	if !ok || typ == "" {
		if typ, ok = r.String(item.KeyID); !ok || typ == "" {
			return item.Variant{}, false
		}
	}

	v := item.Variant{Type: typ, Count: 1}
	if n, ok := r.Int(item.KeyCount); ok {
		v.Count = int(n)
	}
	if n, ok := r.Int(item.KeyDamage); ok {
		v.Damage = int(n)
	}
	if tag, ok := r.Map(item.KeyTag); ok && len(tag) > 0 {
		v.Tag = map[string]any(item.Record(tag).Clone())
	}
	return v, true
}

// Fluid implements Strategy.
func (DefaultStrategy) Fluid(v item.Variant) (item.Record, bool) {
	fluid, ok := v.Tag["Fluid"].(map[string]any)
	if !ok || len(fluid) == 0 {
		return nil, false
	}
	if _, named := fluid["FluidName"].(string); !named {
		return nil, false
	}
	return item.Record(fluid).Clone(), true
}

// FluidDisplayStrategy handles the placeholder items that stand in for a
// fluid in recipe views. Such a variant has Type equal to the strategy's
// Type and names its fluid in the tag under "FluidName"; its record is the
// fluid itself, so two displays of the same fluid share one identity
// regardless of their other metadata.
type FluidDisplayStrategy struct {
	Type string
}

// Name implements Strategy.
func (s FluidDisplayStrategy) Name() string { return "fluid-display:" + s.Type }

func (s FluidDisplayStrategy) fluidName(v item.Variant) (string, bool) {
	if v.Type != s.Type {
		return "", false
	}
	name, ok := v.Tag["FluidName"].(string)
	return name, ok && name != ""
}

// ToRecord implements Strategy.
func (s FluidDisplayStrategy) ToRecord(v item.Variant, saveCount bool) (item.Record, bool) {
	name, ok := s.fluidName(v)
	if !ok {
		return nil, false
	}
	r := item.Record{
		item.KeyStrID: s.Type,
		"fluid":       name,
	}
	if saveCount {
		r[item.KeyCount] = v.Count
	}
	return r, true
}

// FromRecord implements Strategy.
func (s FluidDisplayStrategy) FromRecord(r item.Record) (item.Variant, bool) {
	if id, _ := r.String(item.KeyStrID); id != s.Type {
		return item.Variant{}, false
	}
	name, ok := r.String("fluid")
	if !ok || name == "" {
		return item.Variant{}, false
	}
	v := item.Variant{Type: s.Type, Count: 1, Tag: map[string]any{"FluidName": name}}
	if n, ok := r.Int(item.KeyCount); ok {
		v.Count = int(n)
	}
	return v, true
}

// Fluid implements Strategy. The amount is the variant's count.
func (s FluidDisplayStrategy) Fluid(v item.Variant) (item.Record, bool) {
	name, ok := s.fluidName(v)
	if !ok {
		return nil, false
	}
	return item.Record{"FluidName": name, "Amount": v.Count}, true
}

var (
	_ Strategy = DefaultStrategy{}
	_ Strategy = FluidDisplayStrategy{}
)
