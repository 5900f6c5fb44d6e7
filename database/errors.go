package database

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/vidpipe/errors"
)

// IsConnectionError reports whether err looks like a dropped or refused connection.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(strings.ToLower(err.Error()),
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"connection closed",
		"driver: bad connection",
	)
}

// IsRetryableError reports whether a retry might succeed.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if IsConnectionError(err) {
		return true
	}
	return containsAny(strings.ToLower(err.Error()),
		"deadlock",
		"lock timeout",
		"database is locked",
		"too many connections",
	)
}

func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a database error to an AppError for the given resource and id.
func FromDatabase(err error, resource, id string) *apperrors.AppError {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource, id)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.AlreadyExists(resource).WithCause(err)
	}

	if IsRetryableError(err) {
		return (&apperrors.AppError{
			Code:       apperrors.ErrCodeDatabaseError,
			Message:    fmt.Sprintf("Database is temporarily unavailable while accessing %s. Please try again.", resource),
			HTTPStatus: http.StatusServiceUnavailable,
			Retryable:  true,
		}).WithCause(err)
	}

	return apperrors.DatabaseError(err)
}
