package domain

import (
	"errors"
	"fmt"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput        = "INVALID_INPUT"
	ErrDatabaseError       = "DATABASE_ERROR"
	ErrClassifierError     = "CLASSIFIER_ERROR"
	ErrSnapshotError       = "SNAPSHOT_UNAVAILABLE"
	ErrRateLimit           = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer      = "INTERNAL_SERVER_ERROR"
	ErrValidation          = "VALIDATION_ERROR"
	ErrNotFoundCode        = "NOT_FOUND"
	ErrMissingCapabilities = "MISSING_CAPABILITY"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ClassifierError wraps a failure of the classifier capability.
type ClassifierError struct {
	Err error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier: %v", e.Err)
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MissingCapability reports a precondition violation naming the absent part.
func MissingCapability(part string) error {
	return fmt.Errorf("%w: %s must be provided", ErrMissingCapability, part)
}

// ErrorCode maps an error to the API error code callers see.
func ErrorCode(err error) string {
	var verr *ValidationError
	var cerr *ClassifierError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return ErrValidation
	case errors.As(err, &cerr):
		return ErrClassifierError
	case errors.Is(err, ErrSnapshotUnavailable):
		return ErrSnapshotError
	case errors.Is(err, ErrMissingCapability):
		return ErrMissingCapabilities
	case errors.Is(err, ErrNotFound):
		return ErrNotFoundCode
	default:
		return ErrInternalServer
	}
}
