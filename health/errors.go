package health

import "errors"

var (
	// ErrCheckTimeout is reported for a check that outlived the deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned by Check for an unregistered name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
