// Package errors provides the structured error type shared by every vidpipe
// component. An AppError carries a machine-readable code, a recommended HTTP
// status and a retryable flag, so transport layers can render it without
// knowing which component raised it.
package errors
