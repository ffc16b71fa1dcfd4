// Package query resolves which recipe handlers answer a lookup.
//
// A Query applies a Probe to two candidate lists, serial then parallel.
// Both lists fan out over a worker pool; "serial" only fixes that its
// results precede the parallel list's before the final sort. A probe that
// returns an error or panics is a fault: the configured diagnostic lines
// and the fault are logged, the candidate is dropped and the rest of the
// batch continues. Callers get one Notifier call per faulted run, however
// many candidates failed.
package query
