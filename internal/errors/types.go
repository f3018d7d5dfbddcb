package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of non-validation failures.
type ErrorType string

const (
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeNetwork  ErrorType = "network"
	ErrorTypeInternal ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeReadFailed       = "ERR_READ_FAILED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodePathTraversal    = "ERR_PATH_TRAVERSAL"
	ErrCodeWatchFailed      = "ERR_WATCH_FAILED"
	ErrCodeBroadcastFailed  = "ERR_BROADCAST_FAILED"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
)

// BookError is a structured error for everything outside validation:
// reading sources, configuration, the watch loop.
type BookError struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	Context  map[string]interface{}
	FilePath string
}

// Error implements the error interface.
func (e *BookError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BookError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *BookError) Is(target error) bool {
	var t *BookError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BookError) WithContext(key string, value interface{}) *BookError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile adds file location information.
func (e *BookError) WithFile(filePath string) *BookError {
	e.FilePath = filePath

	return e
}

// Wrap wraps an error with additional context, keeping the location of an
// existing BookError.
func Wrap(err error, errType ErrorType, code, message string) *BookError {
	if err == nil {
		return nil
	}

	var be *BookError
	if errors.As(err, &be) {
		return &BookError{
			Type:     errType,
			Code:     code,
			Message:  message,
			Cause:    be,
			Context:  be.Context,
			FilePath: be.FilePath,
		}
	}

	return &BookError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error.
func WrapIO(err error, code, message string) *BookError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, code, message string) *BookError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BookError {
	return &BookError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	var be *BookError
	if errors.As(err, &be) {
		return be.Type == ErrorTypeConfig
	}

	return false
}

// AsReport extracts a validation report from an error chain.
func AsReport(err error) (*Report, bool) {
	var r *Report
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
