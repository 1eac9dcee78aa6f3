package jwt

import (
	"errors"
	"fmt"

	"github.com/vyrodovalexey/gymgw/internal/util"
)

// Sentinel errors for JWT operations.
var (
	// ErrEmptyToken indicates that the token is empty.
	ErrEmptyToken = errors.New("token is empty")

	// ErrTokenInvalid indicates that the token failed parsing, signature
	// or claim validation.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenInvalidAudience indicates that the token audience is invalid.
	ErrTokenInvalidAudience = errors.New("token audience is invalid")

	// ErrKeySetUnavailable indicates that no key set could be loaded.
	ErrKeySetUnavailable = errors.New("key set unavailable")
)

// ValidationError represents a JWT validation error with details.
type ValidationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is util.ErrUnauthenticated, so a failed
// validation maps to 401 through util.StatusFromError.
func (e *ValidationError) Is(target error) bool {
	return target == util.ErrUnauthenticated
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
