// Package errors provides standardized error handling for promptchain.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes for the application
const (
	// Chain related errors
	ErrValidation      = "validation"
	ErrAuthentication  = "authentication"
	ErrTransport       = "transport"
	ErrService         = "service"
	ErrRunInProgress   = "run_in_progress"
	ErrNothingToExport = "nothing_to_export"

	// Repository related errors
	ErrRepositoryOpen  = "repository_open"
	ErrRepositoryWrite = "repository_write"
	ErrRepositoryRead  = "repository_read"
	ErrNotFound        = "not_found"

	// Configuration related errors
	ErrConfigInvalid = "config_invalid"

	// API related errors
	ErrInvalidRequest = "invalid_request"
	ErrInternalServer = "internal_server"
)

// AppError represents an application-specific error
type AppError struct {
	Code    string
	Message string
	Err     error

	// StatusCode is the upstream HTTP status for service errors, zero otherwise.
	StatusCode int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError creates a new AppError
func NewError(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError reports missing or malformed input detected before any network call.
func NewValidationError(message string) *AppError {
	return NewError(ErrValidation, message, nil)
}

// NewAuthenticationError reports a credential rejected by the completion service.
func NewAuthenticationError(err error) *AppError {
	return NewError(ErrAuthentication, "credential rejected by completion service", err)
}

// NewTransportError reports a network or connectivity failure.
func NewTransportError(err error) *AppError {
	return NewError(ErrTransport, "completion service unreachable", err)
}

// NewServiceError reports any other error response from the completion service.
func NewServiceError(statusCode int, err error) *AppError {
	e := NewError(ErrService, fmt.Sprintf("completion service returned status %d", statusCode), err)
	e.StatusCode = statusCode
	return e
}

// Code returns the code of the first AppError in err's chain, or "" if there is none.
func Code(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func hasCode(err error, codes ...string) bool {
	code := Code(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// IsValidation returns true if the error is a validation error
func IsValidation(err error) bool {
	return hasCode(err, ErrValidation, ErrInvalidRequest, ErrConfigInvalid)
}

// IsAuthentication returns true if the credential was rejected
func IsAuthentication(err error) bool {
	return hasCode(err, ErrAuthentication)
}

// IsTransport returns true if the completion service could not be reached
func IsTransport(err error) bool {
	return hasCode(err, ErrTransport)
}

// IsService returns true if the completion service answered with an error
func IsService(err error) bool {
	return hasCode(err, ErrService)
}

// IsRequestFailure returns true for any error raised by the completion client.
// Collaborators present all of them as a single "request failed" notice.
func IsRequestFailure(err error) bool {
	return hasCode(err, ErrAuthentication, ErrTransport, ErrService)
}

// IsNotFound returns true if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound, ErrNothingToExport)
}

// IsConflict returns true if a run is already in flight
func IsConflict(err error) bool {
	return hasCode(err, ErrRunInProgress)
}

// IsInternalError returns true if the error is an internal error
func IsInternalError(err error) bool {
	return hasCode(err,
		ErrRepositoryOpen,
		ErrRepositoryWrite,
		ErrRepositoryRead,
		ErrInternalServer)
}
