// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer maps them to
// the response envelope and status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data.
	KindValidation
	// KindConflict indicates a conflict with existing state (e.g., duplicate).
	KindConflict
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindRateLimited indicates the caller exhausted its admission budget.
	KindRateLimited
	// KindDependency indicates a backing store or provider failed.
	KindDependency
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Machine-readable codes rendered in the error envelope.
const (
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeDuplicateLead      = "DUPLICATE_LEAD"
	CodeDatabase           = "DATABASE_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeDispatchInProgress = "DISPATCH_IN_PROGRESS"
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Field-level details (optional)
	Data    interface{} // Extra payload for the client (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindDependency, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns Code, falling back to a code derived from Kind.
func (e *Error) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	switch e.Kind {
	case KindValidation, KindBadRequest:
		return CodeValidation
	case KindNotFound:
		return CodeNotFound
	case KindUnauthorized:
		return CodeUnauthorized
	case KindRateLimited:
		return CodeRateLimitExceeded
	case KindDependency:
		return CodeDatabase
	default:
		return CodeInternal
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the failing operation.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithCode sets the machine-readable code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetails attaches field-level details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithData attaches a client payload.
func (e *Error) WithData(data interface{}) *Error {
	e.Data = data
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message).WithCode(CodeNotFound)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message).WithCode(CodeValidation)
}

// Conflict creates a conflict error (e.g., duplicate resource).
func Conflict(code, message string) *Error {
	return New(KindConflict, message).WithCode(code)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message).WithCode(CodeUnauthorized)
}

// RateLimited creates a rate limit error.
func RateLimited(message string) *Error {
	return New(KindRateLimited, message).WithCode(CodeRateLimitExceeded)
}

// Database wraps a datastore failure.
func Database(message string, err error) *Error {
	return Wrap(KindDependency, message, err).WithCode(CodeDatabase)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message).WithCode(CodeInternal)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
