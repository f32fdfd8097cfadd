package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a UserError for exit status reporting
type Kind int

const (
	// KindGeneral is an unexpected failure (exit 1)
	KindGeneral Kind = iota
	// KindConfiguration covers missing or invalid input (exit 2)
	KindConfiguration
	// KindEnvironment means restic could not be found (exit 3)
	KindEnvironment
	// KindExecutionStart means restic was found but could not be started (exit 4)
	KindExecutionStart
	// KindEngine means restic ran and exited non-zero (exit mirrors restic)
	KindEngine
)

// Exit codes reserved by restic-s3. Any other non-zero code comes from restic.
const (
	ExitOK             = 0
	ExitGeneral        = 1
	ExitConfiguration  = 2
	ExitEnvironment    = 3
	ExitExecutionStart = 4
)

// UserError represents an error with user-friendly messaging and actionable hints
type UserError struct {
	Message string // User-friendly error message
	Hint    string // Actionable hint to resolve the issue
	Cause   error  // Underlying error (optional)
	Kind    Kind   // Error class, drives the exit code
	Status  int    // restic exit status (KindEngine only)
}

// Error implements the error interface
func (e *UserError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s\nHint: %s", e.Message, e.Hint)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support
func (e *UserError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the process exit code for this error
func (e *UserError) ExitCode() int {
	switch e.Kind {
	case KindConfiguration:
		return ExitConfiguration
	case KindEnvironment:
		return ExitEnvironment
	case KindExecutionStart:
		return ExitExecutionStart
	case KindEngine:
		if e.Status != 0 {
			return e.Status
		}
	}
	return ExitGeneral
}

// New creates a new UserError with a message and hint
func New(message, hint string) *UserError {
	return &UserError{
		Message: message,
		Hint:    hint,
	}
}

// Wrap wraps an existing error with a user-friendly message and hint
func Wrap(err error, message, hint string) *UserError {
	return &UserError{
		Message: message,
		Hint:    hint,
		Cause:   err,
	}
}

// WrapConfig wraps an error caused by bad user input (exit 2)
func WrapConfig(err error, message, hint string) *UserError {
	return &UserError{
		Message: message,
		Hint:    hint,
		Cause:   err,
		Kind:    KindConfiguration,
	}
}

// MissingFile creates an error for a missing file with a helpful suggestion
func MissingFile(path, suggestion string) *UserError {
	return &UserError{
		Message: fmt.Sprintf("File not found: %s", path),
		Hint:    suggestion,
		Kind:    KindConfiguration,
	}
}

// InvalidConfig creates an error for invalid configuration
func InvalidConfig(field, issue, fix string) *UserError {
	return &UserError{
		Message: fmt.Sprintf("Invalid configuration for %s: %s", field, issue),
		Hint:    fix,
		Kind:    KindConfiguration,
	}
}

// MissingRequired creates an error for a missing required parameter
func MissingRequired(param, suggestion string) *UserError {
	return &UserError{
		Message: fmt.Sprintf("Required parameter missing: %s", param),
		Hint:    suggestion,
		Kind:    KindConfiguration,
	}
}

// MissingVariables creates an error naming every required environment
// variable that has no value. Values are never included.
func MissingVariables(names []string, settingsFile string) *UserError {
	hint := "Export them in your shell or pass them with --access-key, --secret-key and --password"
	if settingsFile != "" {
		hint = fmt.Sprintf("Add them to %s, export them in your shell, or pass them with --access-key, --secret-key and --password", settingsFile)
	}
	return &UserError{
		Message: fmt.Sprintf("Required environment variables not set: %s", strings.Join(names, ", ")),
		Hint:    hint,
		Kind:    KindConfiguration,
	}
}

// EngineNotFound creates an error for a backup engine missing from PATH
func EngineNotFound(binary string, cause error) *UserError {
	return &UserError{
		Message: fmt.Sprintf("Backup engine not found: %s", binary),
		Hint:    "Install restic (https://restic.net) and make sure it is on your PATH, or point --restic-binary at it",
		Cause:   cause,
		Kind:    KindEnvironment,
	}
}

// StartFailed creates an error for a backup engine that could not be started
func StartFailed(binary string, cause error) *UserError {
	return &UserError{
		Message: fmt.Sprintf("Failed to start %s: %v", binary, cause),
		Hint:    "Check that the binary still exists and is executable",
		Cause:   cause,
		Kind:    KindExecutionStart,
	}
}

// EngineFailure creates an error for a backup engine that exited non-zero
func EngineFailure(binary string, status int) *UserError {
	return &UserError{
		Message: fmt.Sprintf("%s exited with status %d", binary, status),
		Kind:    KindEngine,
		Status:  status,
	}
}

// ExitCode maps any error to the process exit code. nil maps to ExitOK and
// errors outside the UserError chain map to ExitGeneral.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.ExitCode()
	}
	return ExitGeneral
}

// IsKind reports whether err carries a UserError of the given kind
func IsKind(err error, kind Kind) bool {
	var userErr *UserError
	return errors.As(err, &userErr) && userErr.Kind == kind
}
