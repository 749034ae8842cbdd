// Package errors carries the typed API error used across services and the
// table that maps each code onto its HTTP surface.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeAlreadyClaimed         Code = "ALREADY_CLAIMED"
	CodeGeolocationUnavailable Code = "GEOLOCATION_UNAVAILABLE"
)

// Metadata is how a code is rendered to clients.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	terminal   = false
	retryable  = true
	hideDetail = false
	showDetail = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:             {http.StatusBadRequest, terminal, "validation failed", showDetail},
	CodeUnauthorized:           {http.StatusUnauthorized, terminal, "authentication required", hideDetail},
	CodeForbidden:              {http.StatusForbidden, terminal, "access denied", hideDetail},
	CodeNotFound:               {http.StatusNotFound, terminal, "resource not found", hideDetail},
	CodeConflict:               {http.StatusConflict, terminal, "conflict detected", hideDetail},
	CodeStateConflict:          {http.StatusUnprocessableEntity, terminal, "state transition disallowed", showDetail},
	CodeIdempotency:            {http.StatusConflict, terminal, "idempotency key reused", showDetail},
	CodeRateLimit:              {http.StatusTooManyRequests, terminal, "rate limit exceeded", hideDetail},
	CodeAlreadyClaimed:         {http.StatusConflict, terminal, "request already claimed", showDetail},
	CodeGeolocationUnavailable: {http.StatusUnprocessableEntity, terminal, "location unavailable", hideDetail},
	CodeInternal:               {http.StatusInternalServerError, retryable, "internal server error", hideDetail},
	CodeDependency:             {http.StatusServiceUnavailable, retryable, "dependency unavailable", showDetail},
}

// MetadataFor falls back to CodeInternal for codes outside the table.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded failure. The message is safe to show a client unless the
// code is a 5xx; the cause never is.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the client-visible details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// IsRetryable reports whether a client may retry the failed call unchanged.
// Errors without a code are treated as internal.
func IsRetryable(err error) bool {
	if typed := As(err); typed != nil {
		return MetadataFor(typed.Code()).Retryable
	}
	return err != nil
}
