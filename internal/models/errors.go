package models

import (
	"errors"
	"fmt"
)

// ErrorType buckets pipeline failures by where they surface.
type ErrorType string

const (
	// ErrorTypeClassification covers classifier parse or model failures.
	// Recovered via the default fallback classification, never user-visible.
	ErrorTypeClassification ErrorType = "classification"
	// ErrorTypeRetrieval covers collaborator-reported retrieval failures.
	ErrorTypeRetrieval ErrorType = "retrieval"
	// ErrorTypeResponse covers failures of the final synthesis call.
	ErrorTypeResponse ErrorType = "response_generation"
	// ErrorTypeExternal covers transport or third-party API failures.
	ErrorTypeExternal ErrorType = "external"
	// ErrorTypeInternal covers bugs and contract violations.
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeTimeout covers deadline expirations.
	ErrorTypeTimeout ErrorType = "timeout"
)

// AppError is the error shape used across services: a stable code for
// logging and metrics, a human-readable message, the failure bucket, an
// optional wrapped cause, and free-form metadata.
type AppError struct {
	Code     string
	Message  string
	Type     ErrorType
	Cause    error
	Metadata map[string]any
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so sentinel comparisons survive WithCause/WithMetadata.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// WithCause returns a copy carrying the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithMetadata returns a copy with one metadata entry added.
func (e *AppError) WithMetadata(key string, value any) *AppError {
	clone := *e
	clone.Metadata = make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		clone.Metadata[k] = v
	}
	clone.Metadata[key] = value
	return &clone
}

func newError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Type:    errType,
	}
}

func NewClassificationError(code, message string) *AppError {
	return newError(ErrorTypeClassification, code, message)
}

func NewRetrievalError(code, message string) *AppError {
	return newError(ErrorTypeRetrieval, code, message)
}

func NewResponseError(code, message string) *AppError {
	return newError(ErrorTypeResponse, code, message)
}

func NewExternalError(code, message string) *AppError {
	return newError(ErrorTypeExternal, code, message)
}

func NewInternalError(code, message string) *AppError {
	return newError(ErrorTypeInternal, code, message)
}

func NewTimeoutError(code, message string) *AppError {
	return newError(ErrorTypeTimeout, code, message)
}

// WrapExternalError wraps an arbitrary error from a named collaborator.
func WrapExternalError(collaborator string, err error) *AppError {
	return NewExternalError(collaborator+"_FAILED", "collaborator call failed").WithCause(err)
}

var (
	ErrSessionNotFound = NewInternalError("SESSION_NOT_FOUND", "session not found")
)
