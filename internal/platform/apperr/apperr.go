package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-stable reason codes carried on every error response.
const (
	CodeValidation        = "validation"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeInvalidTransition = "invalid_transition"
	CodeDoubleBooked      = "double_booked"
	CodeInternal          = "internal"
)

// Error is a request-scoped failure with an HTTP status and a stable
// reason code. Services return *Error for every expected failure; the
// echo error handler translates it at the request boundary.
type Error struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Code: CodeConflict, Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidTransition, Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

func DoubleBooked(format string, args ...interface{}) *Error {
	return &Error{Code: CodeDoubleBooked, Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}

// From extracts an *Error from err, or nil if err carries none.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
