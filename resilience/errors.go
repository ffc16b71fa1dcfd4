package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrExtensionFault wraps a panic or error raised by extension code.
	ErrExtensionFault = errors.New("resilience: extension fault")

	// ErrMaxRetriesExceeded is returned when max retry attempts are exhausted.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)
