// Package apperr defines the application's error taxonomy. Every failure that
// reaches a client is mapped to one of these categories; anything else is
// reported as Internal with the underlying cause logged, not leaked.
package apperr

import (
	"errors"
	"net/http"
)

// Code identifies an error category in responses.
type Code string

const (
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeConflict     Code = "CONFLICT"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a categorized application error.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	// Details carries per-field validation messages or extra context that is
	// safe to return to clients.
	Details map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// WithDetail attaches a field-level detail and returns the error.
func (e *Error) WithDetail(field, message string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[field] = message
	return e
}

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// FromError returns the *Error wrapped anywhere in err's chain, or nil.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsNotFound reports whether err is categorized NotFound.
func IsNotFound(err error) bool {
	appErr := FromError(err)
	return appErr != nil && appErr.Code == CodeNotFound
}

// IsValidation reports whether err is categorized Validation.
func IsValidation(err error) bool {
	appErr := FromError(err)
	return appErr != nil && appErr.Code == CodeValidation
}
