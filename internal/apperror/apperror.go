// Package apperror defines the typed errors returned by the service and
// repository layers.
//
// Every failure that reaches a caller carries a Kind. The Kind fixes the HTTP
// status code and the machine-readable type tag used in the JSON error
// envelope, so the transport layer never has to guess:
//
//	Kind          Status  Type
//	Validation    400     VALIDATION_ERROR
//	NotFound      404     NOT_FOUND_ERROR
//	Server        500     SERVER_ERROR
//	Unauthorized  401     UNAUTHORIZED
//	Forbidden     403     FORBIDDEN
//	BadRequest    400     BAD_REQUEST
//
// Each Kind also has a sentinel error so callers can use errors.Is without
// caring about the message:
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of error categories.
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindBadRequest
)

var (
	ErrServer       = errors.New("server error")
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Type returns the wire type tag for the kind.
func (k Kind) Type() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND_ERROR"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindBadRequest:
		return "BAD_REQUEST"
	default:
		return "SERVER_ERROR"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindUnauthorized:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindBadRequest:
		return ErrBadRequest
	default:
		return ErrServer
	}
}

// FieldError describes a single offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the typed error carried through the layers.
//
// Details is ordered: validation reports fields in the order they were
// checked so clients can render them predictably.
type AppError struct {
	Kind    Kind
	Message string       // Human-readable error message
	Details []FieldError // Optional: per-field problems
	Err     error        // Optional: underlying cause, never shown to clients
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
// It lets errors.Is(err, ErrValidation) match without putting the sentinel
// in the Unwrap chain, which is reserved for the real cause.
func (e *AppError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Status is shorthand for e.Kind.Status().
func (e *AppError) Status() int {
	return e.Kind.Status()
}

// Type is shorthand for e.Kind.Type().
func (e *AppError) Type() string {
	return e.Kind.Type()
}

// Validation returns a validation error with an optional list of field errors.
func Validation(message string, details ...FieldError) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
		Details: details,
	}
}

// ValidationFailed is a single-field validation error.
func ValidationFailed(field, message string) *AppError {
	return Validation(message, FieldError{Field: field, Message: message})
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found with id=%s", resource, id),
	}
}

// Server wraps an internal fault. cause may be nil.
func Server(message string, cause error) *AppError {
	return &AppError{
		Kind:    KindServer,
		Message: message,
		Err:     cause,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func BadRequest(message string) *AppError {
	return &AppError{Kind: KindBadRequest, Message: message}
}

// From extracts the *AppError from err's chain. Untyped errors become a
// generic server error that keeps err as its cause.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Server("Internal Server Error", err)
}
