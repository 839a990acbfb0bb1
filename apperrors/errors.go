// Package apperrors holds the error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"net/http"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("resource conflict")
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrExpired      = errors.New("code expired")
	ErrInvalidCode  = errors.New("invalid code")
	ErrRetakeLimit  = errors.New("retake limit reached")
	ErrDelivery     = errors.New("delivery failed")
	ErrDependency   = errors.New("dependency failed")
)

// Error carries a user-facing message together with its kind and cause.
type Error struct {
	Kind    error
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(field, message string) *Error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

func Conflict(message string) *Error     { return New(ErrConflict, message) }
func NotFound(message string) *Error     { return New(ErrNotFound, message) }
func Unauthorized(message string) *Error { return New(ErrUnauthorized, message) }
func Forbidden(message string) *Error    { return New(ErrForbidden, message) }

// Dependency wraps a failure of an outside collaborator (AI, extraction, speech).
func Dependency(message string, err error) *Error {
	return Wrap(ErrDependency, message, err)
}

// HTTPStatus maps an error onto the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrExpired), errors.Is(err, ErrInvalidCode):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrRetakeLimit):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Message returns the text safe to show to an API client.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		if errors.Is(appErr.Kind, ErrDependency) {
			return appErr.Error()
		}
		if appErr.Message != "" {
			return appErr.Message
		}
		return appErr.Kind.Error()
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.Error()
	}
	return "internal server error"
}
