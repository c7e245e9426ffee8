package errors

import (
	"net/http"
	"reflect"

	"github.com/sirupsen/logrus"
)

// Stable machine-readable codes surfaced to callers. Concurrency conflicts and
// idempotency replays are expected outcomes, not faults; callers re-read and retry.
const (
	CodeStaleVersion        = "stale_version"
	CodeIllegalTransition   = "illegal_transition"
	CodeLocked              = "locked"
	CodeMissingExternalRef  = "missing_external_ref"
	CodeInsufficientBalance = "insufficient_balance"
	CodeVariantUnavailable  = "variant_unavailable"
	CodeLimitExceeded       = "limit_exceeded"
	CodeDuplicateReference  = "duplicate_reference"
)

type AppError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(statusCode int, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewCodedError attaches a stable error code for client-side branching.
func NewCodedError(statusCode int, code, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message)
}

func NewUnauthorizedError(message ...string) *AppError {
	if len(message) > 0 {
		return NewAppError(http.StatusUnauthorized, message[0])
	}
	return NewAppError(http.StatusUnauthorized, "Unauthorized")
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, message)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, message)
}

func NewConflictError(code, message string) *AppError {
	return NewCodedError(http.StatusConflict, code, message)
}

func NewTooManyRequestsError(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, message)
}

func NewInternalServerError(originalError error, message string) *AppError {
	logrus.Errorf("[%s] %s", reflect.TypeOf(originalError).String(), originalError)
	return NewAppError(http.StatusInternalServerError, message)
}

// CodeOf extracts the machine-readable code from an error, if any.
func CodeOf(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ""
}
