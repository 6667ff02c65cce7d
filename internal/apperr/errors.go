// Package apperr defines the domain error taxonomy shared by the POS services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	CodeValidation           Code = "VALIDATION"
	CodeInvalidConfiguration Code = "INVALID_CONFIGURATION"
	CodeIllegalTransition    Code = "ILLEGAL_TRANSITION"
	CodeTableNotAvailable    Code = "TABLE_NOT_AVAILABLE"
	CodeSessionAlreadyOpen   Code = "SESSION_ALREADY_OPEN"
	CodeSessionClosed        Code = "SESSION_CLOSED"
	CodeCouponInvalid        Code = "COUPON_INVALID"
	CodeCouponExhausted      Code = "COUPON_EXHAUSTED"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInternal             Code = "INTERNAL"
)

// Error is a domain error carrying a machine readable code.
type Error struct {
	Code    Code
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, apperr.ErrIllegalTransition).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation           = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrInvalidConfiguration = &Error{Code: CodeInvalidConfiguration, Message: "invalid configuration"}
	ErrIllegalTransition    = &Error{Code: CodeIllegalTransition, Message: "illegal status transition"}
	ErrTableNotAvailable    = &Error{Code: CodeTableNotAvailable, Message: "table not available"}
	ErrSessionAlreadyOpen   = &Error{Code: CodeSessionAlreadyOpen, Message: "table already has an open session"}
	ErrSessionClosed        = &Error{Code: CodeSessionClosed, Message: "session is closed"}
	ErrCouponInvalid        = &Error{Code: CodeCouponInvalid, Message: "coupon is not valid"}
	ErrCouponExhausted      = &Error{Code: CodeCouponExhausted, Message: "coupon usage limit reached"}
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "not found"}
)

// New creates an error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Validation creates a field-level validation error.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

// NotFound creates a not-found error naming the missing entity.
func NotFound(entity, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// Transition creates an illegal-transition error for the given entity.
func Transition(entity, from, to string) *Error {
	return &Error{Code: CodeIllegalTransition, Message: fmt.Sprintf("%s cannot move from %s to %s", entity, from, to)}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error to the response status used by the HTTP API.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidConfiguration, CodeCouponInvalid:
		return http.StatusUnprocessableEntity
	case CodeIllegalTransition, CodeTableNotAvailable, CodeSessionAlreadyOpen, CodeSessionClosed, CodeCouponExhausted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
