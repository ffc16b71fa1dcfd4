// Package identity derives canonical, content-based identities for item
// variants.
//
// A Resolver owns a stack of Strategy values. Every conversion walks the
// stack from the most recently registered strategy down and takes the first
// strategy that answers, so an extension can override how a specific item
// type is stringified simply by registering later.
//
// Canonical keys are normalized records: Count is dropped, a zero Damage is
// dropped and an empty tag is dropped. For records whose strId has GUID
// filter rules, the key is instead a short tuple of the strId followed by
// the values found at each configured path, which collapses variants that
// differ only in irrelevant metadata.
package identity
