// Package apperror defines the error taxonomy shared by the services and the HTTP boundary.
package apperror

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindNotFound
)

// Stable codes returned to clients in the response "error" field.
const (
	CodeValidation         = "validation_failed"
	CodeEmailTaken         = "email_taken"
	CodeUsernameTaken      = "username_taken"
	CodeInvalidCredentials = "invalid_credentials"
	CodeMissingToken       = "missing_token"
	CodeInvalidToken       = "invalid_token"
	CodeForbidden          = "forbidden"
	CodeUserNotFound       = "user_not_found"
	CodeInternal           = "internal_error"
)

// Error is a classified application error. Err holds the underlying cause and is never
// shown to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func Validation(details map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: "invalid payload", Details: details}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Unauthorized(code, message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: err}
}

// As extracts an *Error from err. Unclassified errors come back as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
