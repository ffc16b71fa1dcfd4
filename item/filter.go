package item

// Filter decides whether a variant belongs to a set.
//
// Contract:
//   - Concurrency: Matches may be called from many goroutines at once.
//   - Purity: the result depends only on the variant.
type Filter interface {
	Matches(v Variant) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(v Variant) bool

// Matches calls f(v).
func (f FilterFunc) Matches(v Variant) bool { return f(v) }

type everything struct{}

func (everything) Matches(Variant) bool { return true }
func (everything) String() string       { return "*" }

type nothing struct{}

func (nothing) Matches(Variant) bool { return false }
func (nothing) String() string       { return "!*" }

// Everything matches every variant. Nothing matches none.
var (
	Everything Filter = everything{}
	Nothing    Filter = nothing{}
)

// IsDegenerate reports whether f is one of the Everything or Nothing
// sentinels.
func IsDegenerate(f Filter) bool {
	switch f.(type) {
	case everything, nothing:
		return true
	}
	return false
}

// AnyFilter matches when any member matches. An empty AnyFilter matches nothing.
type AnyFilter []Filter

// Matches implements Filter.
func (a AnyFilter) Matches(v Variant) bool {
	for _, f := range a {
		if f.Matches(v) {
			return true
		}
	}
	return false
}

// AllFilter matches when every member matches. An empty AllFilter matches everything.
type AllFilter []Filter

// Matches implements Filter.
func (a AllFilter) Matches(v Variant) bool {
	for _, f := range a {
		if !f.Matches(v) {
			return false
		}
	}
	return true
}

// AnyOf combines filters with OR, collapsing the degenerate cases.
func AnyOf(filters ...Filter) Filter {
	out := make(AnyFilter, 0, len(filters))
	for _, f := range filters {
		switch f.(type) {
		case everything:
			return Everything
		case nothing:
			continue
		}
		if f != nil {
			out = append(out, f)
		}
	}
	switch len(out) {
	case 0:
		return Nothing
	case 1:
		return out[0]
	}
	return out
}

// AllOf combines filters with AND, collapsing the degenerate cases.
func AllOf(filters ...Filter) Filter {
	out := make(AllFilter, 0, len(filters))
	for _, f := range filters {
		switch f.(type) {
		case nothing:
			return Nothing
		case everything:
			continue
		}
		if f != nil {
			out = append(out, f)
		}
	}
	switch len(out) {
	case 0:
		return Everything
	case 1:
		return out[0]
	}
	return out
}

// Not inverts f.
func Not(f Filter) Filter {
	switch f.(type) {
	case everything:
		return Nothing
	case nothing:
		return Everything
	}
	return FilterFunc(func(v Variant) bool { return !f.Matches(v) })
}
