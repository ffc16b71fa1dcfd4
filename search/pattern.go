package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single match so that a pathological pattern
// cannot stall a filter pass.
const DefaultMatchTimeout = 100 * time.Millisecond

// ErrInvalidPattern is returned by Compile for expressions regexp2 rejects.
var ErrInvalidPattern = errors.New("search: invalid pattern")

// formatting matches § color and style codes.
var formatting = regexp2.MustCompile(`§[0-9a-fk-or]`, regexp2.IgnoreCase)

// Pattern is a compiled search expression.
type Pattern struct {
	expr string
	re   *regexp2.Regexp
}

// Compile parses expr with the given regexp2 options.
func Compile(expr string, opts ...regexp2.RegexOptions) (*Pattern, error) {
	var flags regexp2.RegexOptions
	for _, o := range opts {
		flags |= o
	}
	re, err := regexp2.Compile(expr, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	re.MatchTimeout = DefaultMatchTimeout
	return &Pattern{expr: expr, re: re}, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(expr string, opts ...regexp2.RegexOptions) *Pattern {
	p, err := Compile(expr, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p *Pattern) String() string { return p.expr }

// Find reports whether p matches anywhere in s. A match that exceeds the
// timeout returns an error.
func (p *Pattern) Find(s string) (bool, error) {
	return p.re.MatchString(s)
}

// StripFormatting removes § formatting codes from s.
func StripFormatting(s string) string {
	out, err := formatting.Replace(s, "", -1, -1)
	if err != nil {
		return s
	}
	return out
}
