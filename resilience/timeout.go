package resilience

import (
	"context"
	"time"
)

// Timeout bounds the run time of a single operation. The operation keeps
// running in its goroutine after the deadline; only the caller stops
// waiting, so op should honour ctx.
type Timeout struct {
	limit time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive limit disables it.
func NewTimeout(limit time.Duration) *Timeout {
	return &Timeout{limit: limit}
}

// Limit returns the configured limit.
func (t *Timeout) Limit() time.Duration {
	return t.limit
}

// Enabled reports whether Execute enforces a deadline.
func (t *Timeout) Enabled() bool {
	return t != nil && t.limit > 0
}

// Execute runs op, returning ErrTimeout if it does not finish within the limit.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	if !t.Enabled() {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeoutCause(ctx, t.limit, ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
