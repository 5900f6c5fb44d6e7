// Package observability sets up OpenTelemetry tracing and metrics and
// defines the instruments vidpipe records: lifecycle outcomes, callback
// routing results, compute submissions and queue task processing.
//
// Every *Metrics method is safe on a nil receiver, so components built
// without metrics need no guards.
package observability
