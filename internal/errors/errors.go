// Package errors provides structured error types and exit codes for pxtest.
package errors

import (
	"fmt"
)

// Exit codes mirrored in pkg/pxtest for external consumers.
const (
	ExitSuccess          = 0 // All commands and comparisons passed
	ExitRuntimeError     = 1 // Test failure (command failed, output mismatch)
	ExitConfigError      = 2 // Configuration error (bad test.yaml, bad flags)
	ExitEnvironmentError = 3 // Environment error (missing build root, missing tool)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindEnvironment
)

// DriverError is the base error type for pxtest.
type DriverError struct {
	Kind    ErrorKind
	Message string
	Test    string // Test name if applicable
	Output  string // Output file name if applicable
	Cause   error  // Underlying error
}

func (e *DriverError) Error() string {
	if e.Test != "" && e.Output != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Test, e.Output, e.Message)
	}
	if e.Test != "" {
		return fmt.Sprintf("[%s] %s", e.Test, e.Message)
	}
	return e.Message
}

func (e *DriverError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *DriverError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *DriverError {
	return &DriverError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *DriverError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *DriverError {
	return &DriverError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *DriverError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates a new environment error.
func Environment(message string) *DriverError {
	return &DriverError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *DriverError {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *DriverError {
	return &DriverError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// OutputError creates an error for a specific output of a test.
func OutputError(test, output, message string) *DriverError {
	return &DriverError{
		Kind:    KindRuntime,
		Test:    test,
		Output:  output,
		Message: message,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *DriverError {
	return &DriverError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if de, ok := err.(*DriverError); ok {
		return de.ExitCode()
	}
	return ExitRuntimeError
}
