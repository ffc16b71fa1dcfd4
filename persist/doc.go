// Package persist stores the small key to value maps that outlive a
// process, such as the expand/collapse state of item groups.
//
// Three stores are provided: MemoryStore for tests and ephemeral runs,
// FileStore for a single YAML document on disk, and BadgerStore for an
// embedded key/value database. Callers treat every Load error as "no prior
// state"; ErrNotFound distinguishes a missing key from corrupt data.
package persist
