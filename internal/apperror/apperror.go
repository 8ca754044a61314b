// Package apperror defines the error kinds shared across the application.
//
// Services wrap failures in an *AppError carrying one of the sentinel
// kinds below; the HTTP layer maps kinds to status codes with errors.Is.
// Nothing in the app panics across an operation boundary.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRemote marks failures of an external collaborator: the document
	// store or the payment provider (network, auth, quota).
	ErrRemote = errors.New("remote service error")

	// ErrIntegrity marks data that arrived in an impossible shape, such
	// as a checkout session missing its metadata or a malformed stored
	// document.
	ErrIntegrity = errors.New("data integrity error")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // human-readable description
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for missing or invalid credentials.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Remote wraps a failed call to an external service. The cause stays in
// the chain so callers can still inspect it with errors.Is/As.
func Remote(service string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrRemote, cause),
		Message: fmt.Sprintf("%s call failed: %v", service, cause),
	}
}

// Integrity reports data that violates an expected shape, such as session
// metadata missing a required key.
func Integrity(message string) *AppError {
	return &AppError{
		Err:     ErrIntegrity,
		Message: message,
	}
}
