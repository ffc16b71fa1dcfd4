// Package observe provides the logging, tracing and metrics used by every
// batch operation: classification runs, search warm-ups and handler queries.
//
// Logging is structured and backed by zap. Tracing and metrics are
// OpenTelemetry; exporters are selected by name through the exporters
// subpackage. Everything defaults to no-ops so library constructors can be
// called without any telemetry wiring.
package observe
