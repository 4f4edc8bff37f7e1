// Package errors provides centralized error definitions and error handling utilities
// for inkgate. It defines protocol sentinels, typed errors carrying repository and
// git context, and the classification helpers the outer layers use to turn a
// failure into a caller-visible status.
//
// # Error Categories
//
// Environment errors are failures of the outside world: git missing or failing,
// unreadable or unwritable files. They surface as [GitError] or as wrapped
// filesystem errors.
//
// Protocol errors are refusals by the session protocol itself: closing without an
// active session, completing twice, a remote that cannot be fast-forwarded. They
// wrap one of the protocol sentinels inside a [SessionError] and map to a stable
// status string via [Code].
//
// Recoverable conditions (stale lock, duplicate tag, clean working tree) are not
// errors at all; callers log them and carry on.
//
// # Usage
//
//	err := errors.NewGitError("failed to fetch", cause).
//	    WithRepository(repo).
//	    WithGitOutput(stderr)
//
//	if errors.Is(err, errors.ErrNoActiveSession) { ... }
//	status := errors.Code(err) // "no_active_session"
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Protocol sentinel errors
var (
	// ErrNoActiveSession indicates a close was attempted without a session lock.
	ErrNoActiveSession = New("no active session")
	// ErrAlreadyComplete indicates the completion marker already exists.
	ErrAlreadyComplete = New("book already complete")
	// ErrNonFastForward indicates local and remote history diverged.
	ErrNonFastForward = New("history diverged: fast-forward not possible")
)

// Git-related sentinel errors
var (
	// ErrNotGitRepository indicates that the directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrGitUnavailable indicates the git binary could not be started.
	ErrGitUnavailable = New("git executable unavailable")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// Status codes returned by Code.
const (
	CodeNoActiveSession = "no_active_session"
	CodeAlreadyComplete = "already_complete"
	CodeNonFastForward  = "non_fast_forward"
	CodeInvalidInput    = "invalid_input"
	CodeGit             = "git_error"
	CodeInternal        = "error"
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message string
	cause   error
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SessionError represents a failure of the session protocol.
//
// Example:
//
//	err := errors.NewSessionError("close refused", errors.ErrNoActiveSession)
//	err = err.WithRepository("/books/novel").WithStep("close")
//	fmt.Println(err) // "session error [repo=/books/novel, step=close]: close refused: no active session"
type SessionError struct {
	baseError
	Repository string
	Step       string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message: message,
			cause:   cause,
		},
	}
}

// WithRepository adds a repository path to the error context.
func (e *SessionError) WithRepository(path string) *SessionError {
	e.Repository = path
	return e
}

// WithStep adds the failing protocol step to the error context.
func (e *SessionError) WithStep(step string) *SessionError {
	e.Step = step
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.Repository != "" {
		parts = append(parts, fmt.Sprintf("repo=%s", e.Repository))
	}
	if e.Step != "" {
		parts = append(parts, fmt.Sprintf("step=%s", e.Step))
	}

	prefix := "session error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("session error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// GitError represents errors related to git operations.
//
// Example:
//
//	err := errors.NewGitError("failed to push", cause)
//	err = err.WithOperation("push").WithBranch("draft").WithGitOutput(stderr)
type GitError struct {
	baseError
	Operation  string
	Branch     string
	Repository string
	GitOutput  string // Captured git error output
}

// NewGitError creates a new GitError.
func NewGitError(message string, cause error) *GitError {
	return &GitError{
		baseError: baseError{
			message: message,
			cause:   cause,
		},
	}
}

// WithOperation records which git operation failed (e.g. "fetch", "commit").
func (e *GitError) WithOperation(op string) *GitError {
	e.Operation = op
	return e
}

// WithBranch adds a branch name to the error context.
func (e *GitError) WithBranch(branch string) *GitError {
	e.Branch = branch
	return e
}

// WithRepository adds a repository path to the error context.
func (e *GitError) WithRepository(path string) *GitError {
	e.Repository = path
	return e
}

// WithGitOutput adds git command output to the error context.
func (e *GitError) WithGitOutput(output string) *GitError {
	e.GitOutput = strings.TrimSpace(output)
	return e
}

// Error returns the formatted error message.
func (e *GitError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Operation))
	}
	if e.Branch != "" {
		parts = append(parts, fmt.Sprintf("branch=%s", e.Branch))
	}
	if e.Repository != "" {
		parts = append(parts, fmt.Sprintf("repo=%s", e.Repository))
	}

	prefix := "git error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("git error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.GitOutput != "" {
		msg = fmt.Sprintf("%s\ngit output: %s", msg, e.GitOutput)
	}

	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *GitError) Is(target error) bool {
	if _, ok := target.(*GitError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid caller input.
//
// Example:
//
//	err := errors.NewValidationError("prose must not be empty").WithField("prose")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message: message,
			cause:   ErrInvalidInput,
		},
	}
}

// WithField adds the offending field name.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the offending value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	msg := "validation error"
	if e.Field != "" {
		msg = fmt.Sprintf("validation error [field=%s]", e.Field)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.message)
	if e.Value != nil {
		msg = fmt.Sprintf("%s (got: %v)", msg, e.Value)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsProtocolError returns true if err is a refusal by the session protocol
// rather than a failure of the environment.
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrNoActiveSession) ||
		Is(err, ErrAlreadyComplete) ||
		Is(err, ErrNonFastForward)
}

// Code maps an error to the stable status string reported to callers.
// Returns "" for a nil error.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrNoActiveSession):
		return CodeNoActiveSession
	case Is(err, ErrAlreadyComplete):
		return CodeAlreadyComplete
	case Is(err, ErrNonFastForward):
		return CodeNonFastForward
	case Is(err, ErrInvalidInput):
		return CodeInvalidInput
	}

	var gitErr *GitError
	if As(err, &gitErr) {
		return CodeGit
	}
	return CodeInternal
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to read Review/current.md")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

