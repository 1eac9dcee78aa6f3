// Package util provides utility functions and types for the gateway.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., AuthError, BackendError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
package util

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common sentinel errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrMalformedRequest = errors.New("malformed request")
	ErrTimeout          = errors.New("timeout")
	ErrCircuitOpen      = errors.New("circuit breaker open")
	ErrBackendUnavail   = errors.New("backend unavailable")
	ErrAggregationMerge = errors.New("aggregation merge failed")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrClientCanceled   = errors.New("client canceled request")
)

// StatusClientClosedRequest is the nginx status for a request the client
// abandoned before the gateway answered.
const StatusClientClosedRequest = 499

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

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// RouteNotFoundError represents a route not found error.
type RouteNotFoundError struct {
	Path   string
	Method string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route found for %s %s", e.Method, e.Path)
}

// Is checks if the error matches the target.
func (e *RouteNotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	_, ok := target.(*RouteNotFoundError)
	return ok
}

// NewRouteNotFoundError creates a new RouteNotFoundError.
func NewRouteNotFoundError(method, path string) *RouteNotFoundError {
	return &RouteNotFoundError{Path: path, Method: method}
}

// AuthError represents an authentication or authorization failure.
// Kind is either ErrUnauthenticated or ErrForbidden.
type AuthError struct {
	Kind   error
	Reason string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	}
	return e.Kind.Error()
}

// Unwrap returns the kind sentinel.
func (e *AuthError) Unwrap() error {
	return e.Kind
}

// NewUnauthenticatedError creates an AuthError of kind ErrUnauthenticated.
func NewUnauthenticatedError(reason string) *AuthError {
	return &AuthError{Kind: ErrUnauthenticated, Reason: reason}
}

// NewForbiddenError creates an AuthError of kind ErrForbidden.
func NewForbiddenError(reason string) *AuthError {
	return &AuthError{Kind: ErrForbidden, Reason: reason}
}

// MalformedRequestError represents a request the gateway cannot process.
type MalformedRequestError struct {
	Message string
}

// Error implements the error interface.
func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("malformed request: %s", e.Message)
}

// Is checks if the error matches the target.
func (e *MalformedRequestError) Is(target error) bool {
	if target == ErrMalformedRequest {
		return true
	}
	_, ok := target.(*MalformedRequestError)
	return ok
}

// NewMalformedRequestError creates a new MalformedRequestError.
func NewMalformedRequestError(message string) *MalformedRequestError {
	return &MalformedRequestError{Message: message}
}

// BackendError represents a backend connectivity error.
type BackendError struct {
	Backend string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend %s error: %s: %v", e.Backend, e.Message, e.Cause)
	}
	return fmt.Sprintf("backend %s error: %s", e.Backend, e.Message)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *BackendError) Is(target error) bool {
	if target == ErrBackendUnavail {
		return true
	}
	_, ok := target.(*BackendError)
	return ok || errors.Is(e.Cause, target)
}

// NewBackendError creates a new BackendError.
func NewBackendError(backend, message string) *BackendError {
	return &BackendError{Backend: backend, Message: message}
}

// NewBackendErrorWithCause creates a new BackendError with a cause.
func NewBackendErrorWithCause(backend, message string, cause error) *BackendError {
	return &BackendError{Backend: backend, Message: message, Cause: cause}
}

// TimeoutError represents a timeout error.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %v during %s", e.Duration, e.Operation)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if target == ErrTimeout {
		return true
	}
	_, ok := target.(*TimeoutError)
	return ok || errors.Is(e.Cause, target)
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration}
}

// CircuitOpenError represents a circuit breaker open error.
type CircuitOpenError struct {
	Name  string
	State string
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %s is %s", e.Name, e.State)
}

// Is checks if the error matches the target.
func (e *CircuitOpenError) Is(target error) bool {
	if target == ErrCircuitOpen {
		return true
	}
	_, ok := target.(*CircuitOpenError)
	return ok
}

// NewCircuitOpenError creates a new CircuitOpenError.
func NewCircuitOpenError(name, state string) *CircuitOpenError {
	return &CircuitOpenError{Name: name, State: state}
}

// AggregationError represents a failure while building a composite response.
type AggregationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AggregationError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *AggregationError) Is(target error) bool {
	if target == ErrAggregationMerge {
		return true
	}
	_, ok := target.(*AggregationError)
	return ok || errors.Is(e.Cause, target)
}

// NewAggregationError creates a new AggregationError.
func NewAggregationError(message string, cause error) *AggregationError {
	return &AggregationError{Message: message, Cause: cause}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// StatusFromError maps the error taxonomy onto an HTTP status code.
// Circuit-open errors are reported as 503; plain backend connection
// failures as 502 and timeouts as 504.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrClientCanceled):
		return StatusClientClosedRequest
	case errors.Is(err, ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrBackendUnavail):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError returns true if the error is a client error (4xx).
func IsClientError(err error) bool {
	code := StatusFromError(err)
	return code >= 400 && code < 500
}
