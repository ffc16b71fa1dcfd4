package item

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonwraymond/itemops/cache"
)

// ErrInvalidFilter is returned for expressions ParseFilter cannot read.
var ErrInvalidFilter = errors.New("item: invalid filter expression")

// ParseFilter compiles a filter expression. See the package documentation
// for the grammar.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidFilter)
	}

	alternatives := strings.Split(expr, "|")
	alts := make([]Filter, 0, len(alternatives))
	for _, alt := range alternatives {
		terms := strings.Fields(alt)
		if len(terms) == 0 {
			return nil, fmt.Errorf("%w: empty alternative in %q", ErrInvalidFilter, expr)
		}
		all := make([]Filter, 0, len(terms))
		for _, term := range terms {
			f, err := parseTerm(term)
			if err != nil {
				return nil, err
			}
			all = append(all, f)
		}
		alts = append(alts, AllOf(all...))
	}
	return AnyOf(alts...), nil
}

// MustParseFilter is ParseFilter that panics on error. Intended for
// constants in tests and presets.
func MustParseFilter(expr string) Filter {
	f, err := ParseFilter(expr)
	if err != nil {
		panic(err)
	}
	return f
}

func parseTerm(term string) (Filter, error) {
	if rest, ok := strings.CutPrefix(term, "!"); ok {
		if rest == "" {
			return nil, fmt.Errorf("%w: dangling negation", ErrInvalidFilter)
		}
		f, err := parseTerm(rest)
		if err != nil {
			return nil, err
		}
		return Not(f), nil
	}

	if term == "*" {
		return Everything, nil
	}

	if mod, ok := strings.CutPrefix(term, "@"); ok {
		if mod == "" {
			return nil, fmt.Errorf("%w: empty namespace", ErrInvalidFilter)
		}
		prefix := mod + ":"
		return FilterFunc(func(v Variant) bool {
			return strings.HasPrefix(v.Type, prefix)
		}), nil
	}

	field, value, hasValue := strings.Cut(term, "=")
	if !hasValue {
		return typeFilter(term), nil
	}
	if value == "" {
		return nil, fmt.Errorf("%w: %q has no value", ErrInvalidFilter, term)
	}

	switch {
	case field == "type":
		return typeFilter(value), nil
	case field == "damage":
		return damageFilter(value)
	case strings.HasPrefix(field, "tag."):
		path := strings.Split(strings.TrimPrefix(field, "tag."), ".")
		for _, seg := range path {
			if seg == "" {
				return nil, fmt.Errorf("%w: empty path segment in %q", ErrInvalidFilter, field)
			}
		}
		return tagFilter(path, value), nil
	default:
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, field)
	}
}

func typeFilter(pattern string) Filter {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		if prefix == "" {
			return Everything
		}
		return FilterFunc(func(v Variant) bool { return strings.HasPrefix(v.Type, prefix) })
	}
	return FilterFunc(func(v Variant) bool { return v.Type == pattern })
}

func damageFilter(value string) (Filter, error) {
	lo, hi := value, value
	if a, b, ok := strings.Cut(value, "-"); ok && a != "" {
		lo, hi = a, b
	}
	from, err := strconv.Atoi(lo)
	if err != nil {
		return nil, fmt.Errorf("%w: damage %q: %v", ErrInvalidFilter, value, err)
	}
	to, err := strconv.Atoi(hi)
	if err != nil {
		return nil, fmt.Errorf("%w: damage %q: %v", ErrInvalidFilter, value, err)
	}
	if from > to {
		return nil, fmt.Errorf("%w: damage range %q is empty", ErrInvalidFilter, value)
	}
	return FilterFunc(func(v Variant) bool { return v.Damage >= from && v.Damage <= to }), nil
}

func tagFilter(path []string, want string) Filter {
	return FilterFunc(func(v Variant) bool {
		got, ok := Lookup(v.Tag, path)
		if !ok {
			return false
		}
		if s, isString := got.(string); isString {
			return s == want
		}
		rendered, err := cache.CanonicalString(got)
		return err == nil && rendered == want
	})
}
