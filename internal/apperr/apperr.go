// Package apperr defines the error taxonomy shared by the guard layer, the
// scoped repositories and the sale writer. Every failure in the request path
// resolves to one of these codes; handlers map codes to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	EMissingToken          = "missing token"
	EInvalidToken          = "invalid token"
	EConfiguration         = "configuration error"
	ENoOrganizationContext = "no organization context"
	ENotFound              = "not found"
	EConflict              = "conflict"
	EAmountMismatch        = "amount mismatch"
	EStorage               = "storage error"
	EInvalid               = "invalid"
)

// Error carries a machine-readable code, an operator-facing message and the
// wrapped cause. Msg must never contain token values or key material.
type Error struct {
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error with the given code and message.
func New(code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Newf returns an error with the given code and formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error with the given code wrapping err.
func Wrap(code string, err error, msg string) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// ErrorCode returns the code of err if it is an *Error, or EStorage as the
// fallback classification for unexpected failures.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EStorage
}

// HTTPStatus maps an error code to the status surfaced to clients. NotFound
// is surfaced identically whether the row is absent or belongs to another
// tenant; both fall out of the same filtered lookup.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case EMissingToken, EInvalidToken:
		return http.StatusUnauthorized
	case ENoOrganizationContext:
		return http.StatusForbidden
	case ENotFound:
		return http.StatusNotFound
	case EConflict:
		return http.StatusConflict
	case EAmountMismatch, EInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
