// Package apperr defines coded domain errors shared by services and handlers.
//
// Services return *Error values; handlers translate them with Code.HTTPStatus
// and render Message and Details to the client.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotAuthenticated Code = "not_authenticated"
	CodeNotAuthorized    Code = "not_authorized"
	CodeValidation       Code = "validation"
	CodeConflict         Code = "conflict"
	CodeNotFound         Code = "not_found"
	CodeDisabled         Code = "disabled"
	CodeRateLimited      Code = "rate_limited"
	CodeInternal         Code = "internal"
)

// HTTPStatus maps a code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodeNotAuthorized, CodeDisabled:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, a user-facing message and optional details.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetail returns a copy with key set in Details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

var (
	ErrNotAuthenticated = &Error{Code: CodeNotAuthenticated, Message: "not_authenticated"}
	ErrNotAuthorized    = &Error{Code: CodeNotAuthorized, Message: "not_authorized"}
	ErrValidation       = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrConflict         = &Error{Code: CodeConflict, Message: "conflict"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrDisabled         = &Error{Code: CodeDisabled, Message: "disabled"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "Something went wrong. Please try again."}
)

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

func Disabled(msg string) *Error {
	return &Error{Code: CodeDisabled, Message: msg}
}

func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}

// Validation builds a validation error from the full list of messages. The
// first message doubles as the error message.
func Validation(messages []string) *Error {
	msg := "validation failed"
	if len(messages) > 0 {
		msg = messages[0]
	}
	return &Error{
		Code:    CodeValidation,
		Message: msg,
		Details: map[string]any{"errors": messages},
	}
}

// Internal wraps an unexpected failure behind a generic retry message.
func Internal(err error) *Error {
	return ErrInternal.WithCause(err)
}

// From extracts an *Error from err, treating anything else as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Messages returns the validation messages carried by err, if any.
func Messages(err error) []string {
	var e *Error
	if !errors.As(err, &e) || e.Code != CodeValidation {
		return nil
	}
	msgs, _ := e.Details["errors"].([]string)
	return msgs
}
