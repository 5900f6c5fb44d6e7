package errors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Generic constructors ---

// ServiceUnavailable creates a new AppError for a dependency that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// Forbidden creates a new AppError for a request whose credentials were rejected.
func Forbidden(reason string) *AppError {
	return &AppError{Code: ErrCodeForbidden, Message: reason, HTTPStatus: http.StatusForbidden}
}

// AlreadyExists creates a new AppError for a resource that already exists.
func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("A %s with these details already exists.", resource),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"resource": resource},
	}
}

// Conflict creates a new AppError for a conflict with the current state of the resource.
func Conflict(reason string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: reason, HTTPStatus: http.StatusConflict}
}

// InvalidInput creates a new AppError for invalid input on a named field.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message, HTTPStatus: http.StatusBadRequest}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// DatabaseError creates a new AppError for a database error.
func DatabaseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDatabaseError, Message: "A database error occurred. Please try again.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
	}
}

// ExternalServiceError creates a new AppError for an error from an external service.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error. Please try again.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// --- Execution constructors ---

// NotReady aggregates unmet execute preconditions into one sentence.
func NotReady(nodeID string, reasons []string) *AppError {
	return &AppError{
		Code:       ErrCodeNotReady,
		Message:    "Node is not ready to execute: " + strings.Join(reasons, "; "),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"node_id": nodeID, "reasons": reasons},
	}
}

// NoExecutor reports a node type without a registered executor.
func NoExecutor(nodeType string) *AppError {
	return &AppError{
		Code:       ErrCodeNoExecutor,
		Message:    fmt.Sprintf("No executor registered for node type: %s", nodeType),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"type": nodeType},
	}
}

// StaleCallback reports a callback that no longer matches the node's execution.
func StaleCallback(nodeID, reason string) *AppError {
	return &AppError{
		Code:       ErrCodeStaleCallback,
		Message:    fmt.Sprintf("Stale callback for node %s: %s", nodeID, reason),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"node_id": nodeID, "reason": reason},
	}
}

// NoOutput reports a node with neither an output nor an asset to sign.
func NoOutput(nodeID string) *AppError {
	return &AppError{
		Code:       ErrCodeNoOutput,
		Message:    "Node has no output available.",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"node_id": nodeID},
	}
}

// SubmissionFailed reports a compute submission that was not accepted.
func SubmissionFailed(function string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeSubmissionFailed,
		Message:    fmt.Sprintf("Compute function %s did not accept the submission.", function),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"function": function},
		Cause:      cause,
	}
}

// FormatFieldErrors renders a field->message map as "field: message; ..." in key order.
func FormatFieldErrors(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}
