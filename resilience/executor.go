package resilience

import (
	"context"
	"time"
)

// Executor runs one unit of extension code through the configured patterns.
// Isolation is always applied.
type Executor struct {
	timeout *Timeout
	retry   *Retry
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithTimeout adds a per-unit timeout. Non-positive durations disable it.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout > 0 {
			e.timeout = NewTimeout(timeout)
		} else {
			e.timeout = nil
		}
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// Execute runs op through the configured patterns.
//
// The execution order is:
// 1. Retry (if configured) - retries on failure
// 2. Timeout (if configured) - limits each attempt
// 3. Isolate - converts panics into ErrExtensionFault
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := func(ctx context.Context) error {
		return Isolate(func() error { return op(ctx) })
	}

	if e.timeout.Enabled() {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}
