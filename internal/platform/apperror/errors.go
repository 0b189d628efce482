package apperror

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel error categories. DomainError.Err is always one of these.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// DomainError is a categorized error that handlers can map to a transport status.
type DomainError struct {
	Code    string
	Message string
	Err     error
	cause   error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Is matches the category sentinel.
func (e *DomainError) Is(target error) bool {
	return target == e.Err
}

// Unwrap exposes the underlying cause, if any.
func (e *DomainError) Unwrap() error {
	return e.cause
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
		Err:     ErrNotFound,
	}
}

// NewConflictError reports a concurrent-modification or uniqueness conflict.
func NewConflictError(message string) *DomainError {
	return &DomainError{Code: "CONFLICT", Message: message, Err: ErrConflict}
}

// NewValidationError reports bad input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Code: "VALIDATION_ERROR", Message: message, Err: ErrValidation}
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Code: "UNAUTHORIZED", Message: message, Err: ErrUnauthorized}
}

// NewForbiddenError reports an identity lacking the required role or ownership.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Code: "FORBIDDEN", Message: message, Err: ErrForbidden}
}

// NewStorageError wraps a repository failure. Storage errors are fatal to the
// enclosing operation and are never retried here.
func NewStorageError(op string, cause error) *DomainError {
	return &DomainError{
		Code:    "STORAGE_UNAVAILABLE",
		Message: op,
		Err:     ErrStorageUnavailable,
		cause:   cause,
	}
}
