package resilience

import (
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/panics"
)

// Isolate runs fn and converts a panic into an error. Both panics and
// returned errors come back wrapped in ErrExtensionFault; nil means fn
// completed normally.
func Isolate(fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() { err = fn() })

	if r := catcher.Recovered(); r != nil {
		return fmt.Errorf("%w: %w", ErrExtensionFault, r.AsError())
	}
	if err != nil {
		if errors.Is(err, ErrExtensionFault) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrExtensionFault, err)
	}
	return nil
}

// IsolateValue is Isolate for functions that produce a value. On a fault the
// zero value is returned.
func IsolateValue[T any](fn func() (T, error)) (T, error) {
	var out T
	err := Isolate(func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
