// Package apperror defines the domain errors shared by the registry, the
// HTTP handlers and the websocket dispatcher.
//
// Callers test the category with errors.Is against the sentinels and pull
// the human-readable message out with errors.As. Each transport maps the
// category on its own: HTTP to a status code, the websocket to an "error"
// event sent to the offending session only.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // human-readable, safe to send to clients
	Field   string // optional: payload field at fault
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports an unknown resource. The message keeps the wording
// clients already match on ("room not found").
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

// Conflict reports an id that is already taken.
func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Message returns the client-safe message for err. Errors that are not
// AppErrors collapse to fallback so internals never leak to a client.
func Message(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}
