// Package resilience runs untrusted extension code without letting one
// misbehaving unit take down the batch it belongs to.
//
// # Patterns
//
//   - Pool: bounded fork-join fan-out. Every unit runs to completion, faults
//     are collected per index and never cancel sibling units.
//
//   - Isolate: converts a panic into an error wrapping ErrExtensionFault.
//
//   - Timeout: bounds a single unit's execution time.
//
//   - Bulkhead: limits concurrent executions; with no wait it turns a second
//     concurrent caller into an immediate ErrBulkheadFull.
//
//   - Retry: repeats an operation with backoff while an error is retryable.
//
// # Usage
//
//	pool := resilience.NewPool(resilience.PoolConfig{Workers: 8})
//
//	kept, faults, err := resilience.Collect(ctx, pool, handlers,
//	    func(ctx context.Context, h Handler) (Handler, bool, error) {
//	        return h.Probe(ctx)
//	    })
//
// err is reported only when the fan-out itself could not complete, for
// example because ctx was cancelled. Per-unit failures land in faults.
package resilience
