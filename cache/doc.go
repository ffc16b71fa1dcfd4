// Package cache provides the concurrent, content-keyed caches used by the
// item pipeline.
//
// It provides a generic Cache interface with an unbounded memory
// implementation and a bounded insertion-order implementation, SHA-256-based
// key derivation over canonical JSON, and a Loader that memoizes compute
// functions including negative results.
package cache
