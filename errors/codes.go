package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates a dependency is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeConflict indicates a conflict with the current state of the resource.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeForbidden indicates a signed request failed verification.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
)

// Execution errors
const (
	// ErrCodeNotReady indicates a node failed one or more execute preconditions.
	ErrCodeNotReady ErrorCode = "NOT_READY"
	// ErrCodeNoExecutor indicates no executor is registered for a node type.
	ErrCodeNoExecutor ErrorCode = "NO_EXECUTOR"
	// ErrCodeStaleCallback indicates a callback for a superseded or unknown execution.
	ErrCodeStaleCallback ErrorCode = "STALE_CALLBACK"
	// ErrCodeNoOutput indicates a node has nothing to retrieve.
	ErrCodeNoOutput ErrorCode = "NO_OUTPUT"
	// ErrCodeSubmissionFailed indicates compute did not accept a submission.
	ErrCodeSubmissionFailed ErrorCode = "SUBMISSION_FAILED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Codes missing from this map are never retried.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeDatabaseError:      true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
