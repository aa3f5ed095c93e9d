// Package errortypes provides error types and handling for GitHub Sentinel.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

// Error types
const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external"

	// Report generation failures
	ErrorTypeResourceNotFound          ErrorType = "resource_not_found"
	ErrorTypeProviderCallFailed        ErrorType = "provider_call_failed"
	ErrorTypeProviderResponseMalformed ErrorType = "provider_response_malformed"
	ErrorTypeUnsupportedProviderKind   ErrorType = "unsupported_provider_kind"
)

// AppError represents an application error with context
type AppError struct {
	Err       error
	Type      ErrorType
	Message   string
	StackInfo string
	Fields    map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

// Unwrap unwraps the error to support errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField adds a field to the error for additional context
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithFields adds multiple fields to the error for additional context
func (e *AppError) WithFields(fields map[string]interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	for k, v := range fields {
		e.Fields[k] = v
	}
	return e
}

// captureStack captures the stack trace at the call site
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		// Skip testing and standard library frames
		if !strings.Contains(frame.File, "testing/") && !strings.Contains(frame.File, "/go/src/") {
			fmt.Fprintf(&builder, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return builder.String()
}

func newAppError(errType ErrorType, err error, message string) *AppError {
	if err == nil {
		err = errors.New("unknown error")
	}

	return &AppError{
		Err:       err,
		Type:      errType,
		Message:   message,
		StackInfo: captureStack(),
		Fields:    make(map[string]interface{}),
	}
}

// ValidationError creates a new validation error
func ValidationError(err error, message string) *AppError {
	return newAppError(ErrorTypeValidation, err, message)
}

// DatabaseError creates a new database error
func DatabaseError(err error, message string) *AppError {
	return newAppError(ErrorTypeDatabase, err, message)
}

// NetworkError creates a new network error
func NetworkError(err error, message string) *AppError {
	return newAppError(ErrorTypeNetwork, err, message)
}

// ConfigError creates a new configuration error
func ConfigError(err error, message string) *AppError {
	return newAppError(ErrorTypeConfig, err, message)
}

// InternalError creates a new internal error
func InternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeInternal, err, message)
}

// ExternalError creates a new external error
func ExternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeExternal, err, message)
}

// ResourceNotFound reports a prompt or other named resource that does not exist.
func ResourceNotFound(err error, message string) *AppError {
	return newAppError(ErrorTypeResourceNotFound, err, message)
}

// ProviderCallFailed reports a transport or API-level failure talking to an
// LLM provider.
func ProviderCallFailed(err error, message string) *AppError {
	return newAppError(ErrorTypeProviderCallFailed, err, message)
}

// ProviderResponseMalformed reports a provider reply that arrived but lacks
// the expected content.
func ProviderResponseMalformed(err error, message string) *AppError {
	return newAppError(ErrorTypeProviderResponseMalformed, err, message)
}

// UnsupportedProviderKind reports a configured provider kind with no adapter.
func UnsupportedProviderKind(err error, message string) *AppError {
	return newAppError(ErrorTypeUnsupportedProviderKind, err, message)
}

// LogError logs an AppError using the provided slog.Logger or the default slog logger.
// It logs the error message, type, stack trace, and any associated fields.
func LogError(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		args := []any{
			"type", string(appErr.Type),
			"original_error", appErr.Err.Error(),
		}
		if appErr.StackInfo != "" {
			args = append(args, "stack", appErr.StackInfo)
		}
		for k, v := range appErr.Fields {
			args = append(args, k, v)
		}
		logger.Error(appErr.Message, args...)
	} else {
		logger.Error(err.Error(), "error", err)
	}
}

// TypeOf returns the ErrorType of the outermost AppError in err's chain, or
// an empty string when err carries none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType checks if an error is an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsDatabaseError checks if an error is a database error
func IsDatabaseError(err error) bool {
	return IsType(err, ErrorTypeDatabase)
}

// IsNetworkError checks if an error is a network error
func IsNetworkError(err error) bool {
	return IsType(err, ErrorTypeNetwork)
}

// IsResourceNotFound checks if an error is a missing-resource error
func IsResourceNotFound(err error) bool {
	return IsType(err, ErrorTypeResourceNotFound)
}

// IsProviderCallFailed checks if an error is a provider transport/API failure
func IsProviderCallFailed(err error) bool {
	return IsType(err, ErrorTypeProviderCallFailed)
}

// IsProviderResponseMalformed checks if an error is a malformed provider reply
func IsProviderResponseMalformed(err error) bool {
	return IsType(err, ErrorTypeProviderResponseMalformed)
}

// IsUnsupportedProviderKind checks if an error is an unknown provider kind
func IsUnsupportedProviderKind(err error) bool {
	return IsType(err, ErrorTypeUnsupportedProviderKind)
}
