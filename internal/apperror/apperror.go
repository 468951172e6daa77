// Package apperror defines the typed failures the service layer returns.
//
// Services never talk HTTP. They return one of these errors and the
// transport layer decides the status code:
//
//	ErrValidation      → 400
//	ErrDuplicate       → 400 (with a specific message)
//	ErrNotFound        → 404
//	ErrUnauthenticated → 401
//	anything else      → 500 (a store failure; details stay in the logs)
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrDuplicate       = errors.New("duplicate key")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that a referenced entity is absent, e.g. NotFound("post", id).
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
		Field:   resource,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Duplicate reports a unique-constraint violation on field.
// The store layer returns it; callers present Message as-is.
func Duplicate(resource, field string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// Unauthenticated returns the uniform credential failure. The message must
// not reveal which part of the credentials was wrong.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}
