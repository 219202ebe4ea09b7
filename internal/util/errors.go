// Package util provides utility functions and types for the insurance services.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - AppError for failures that must be translated into an HTTP
//     response. It carries a Kind, a status code, a client-facing
//     message and an operational flag.
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common sentinel errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrUnavailable   = errors.New("service unavailable")
	ErrInternal      = errors.New("internal error")
	ErrConfigInvalid = errors.New("invalid configuration")
)

// GenericInternalMessage replaces the message of internal errors outside
// development mode.
const GenericInternalMessage = "Internal server error"

// Kind identifies the class of an AppError.
type Kind string

// Error kinds.
const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindTokenInvalid Kind = "token_invalid"
	KindTokenExpired Kind = "token_expired"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindTooLarge     Kind = "payload_too_large"
	KindRateLimited  Kind = "rate_limited"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// StatusCode returns the HTTP status code associated with the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized, KindTokenInvalid, KindTokenExpired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sentinel returns the sentinel error matched by the kind.
func (k Kind) sentinel() error {
	switch k {
	case KindValidation, KindTooLarge:
		return ErrInvalidInput
	case KindUnauthorized, KindTokenInvalid, KindTokenExpired:
		return ErrUnauthorized
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindRateLimited:
		return ErrRateLimited
	case KindUnavailable:
		return ErrUnavailable
	default:
		return ErrInternal
	}
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is an error that knows how it should be presented over HTTP.
type AppError struct {
	Kind        Kind
	StatusCode  int
	Message     string
	Details     any
	Operational bool
	Cause       error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	if target == e.Kind.sentinel() {
		return true
	}
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind
}

// WithDetails returns a copy of the error carrying the given details.
func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// newAppError builds an AppError whose status code follows its kind.
func newAppError(kind Kind, message string, operational bool, cause error) *AppError {
	return &AppError{
		Kind:        kind,
		StatusCode:  kind.StatusCode(),
		Message:     message,
		Operational: operational,
		Cause:       cause,
	}
}

// NewValidationError creates a 400 error with per-field details.
func NewValidationError(message string, fields ...FieldError) *AppError {
	err := newAppError(KindValidation, message, true, nil)
	if len(fields) > 0 {
		err.Details = fields
	}
	return err
}

// NewNotFoundError creates a 404 error for the named resource.
func NewNotFoundError(resource string) *AppError {
	return newAppError(KindNotFound, resource+" not found", true, nil)
}

// NewConflictError creates a 409 error.
func NewConflictError(message string, cause error) *AppError {
	return newAppError(KindConflict, message, true, cause)
}

// NewPayloadTooLargeError creates a 413 error for an oversized request body.
func NewPayloadTooLargeError(limit int64) *AppError {
	err := newAppError(KindTooLarge, "Request body too large", true, nil)
	err.Details = map[string]any{"max_bytes": limit}
	return err
}

// NewUnauthorizedError creates a 401 error for missing credentials.
func NewUnauthorizedError(message string) *AppError {
	return newAppError(KindUnauthorized, message, true, nil)
}

// NewTokenInvalidError creates a 401 error for a malformed or forged token.
func NewTokenInvalidError(cause error) *AppError {
	return newAppError(KindTokenInvalid, "Invalid token", true, cause)
}

// NewTokenExpiredError creates a 401 error for an expired token.
func NewTokenExpiredError(cause error) *AppError {
	return newAppError(KindTokenExpired, "Token expired", true, cause)
}

// NewForbiddenError creates a 403 error for an authenticated caller
// acting outside its permissions.
func NewForbiddenError(message string) *AppError {
	return newAppError(KindForbidden, message, true, nil)
}

// NewRateLimitError creates a 429 error.
func NewRateLimitError(limit int, retryAfter time.Duration) *AppError {
	err := newAppError(KindRateLimited, "Too many requests, please try again later", true, nil)
	err.Details = map[string]any{
		"limit":       limit,
		"retry_after": int(retryAfter.Seconds()),
	}
	return err
}

// NewUnavailableError creates a 503 error for a failing dependency.
func NewUnavailableError(message string, cause error) *AppError {
	return newAppError(KindUnavailable, message, false, cause)
}

// NewInternalError creates a non-operational 500 error.
func NewInternalError(message string, cause error) *AppError {
	return newAppError(KindInternal, message, false, cause)
}

// AsAppError extracts an AppError from the error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// IsClientError returns true if the error maps to a 4xx response.
func IsClientError(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	return appErr.StatusCode >= 400 && appErr.StatusCode < 500
}
