package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "git.main_branch")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// refNameRegex validates remote and branch names.
// Names start with an alphanumeric and contain alphanumerics, dot, slash, hyphen, underscore.
var refNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Settings for invalid values and returns all validation errors found
func (s *Settings) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, s.validateLogging()...)
	errors = append(errors, s.validateGit()...)

	return errors
}

func (s *Settings) validateLogging() []ValidationError {
	var errors []ValidationError

	if s.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(s.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   s.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if s.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   s.Logging.MaxSizeMB,
			Message: "must be 0 (no rotation) or positive",
		})
	}
	if s.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   s.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (s *Settings) validateGit() []ValidationError {
	var errors []ValidationError

	refs := []struct {
		field string
		value string
	}{
		{"git.remote", s.Git.Remote},
		{"git.main_branch", s.Git.MainBranch},
		{"git.draft_branch", s.Git.DraftBranch},
	}
	for _, ref := range refs {
		if !refNameRegex.MatchString(ref.value) || strings.Contains(ref.value, "..") {
			errors = append(errors, ValidationError{
				Field:   ref.field,
				Value:   ref.value,
				Message: "must be a valid git ref name",
			})
		}
	}

	if s.Git.MainBranch != "" && s.Git.MainBranch == s.Git.DraftBranch {
		errors = append(errors, ValidationError{
			Field:   "git.draft_branch",
			Value:   s.Git.DraftBranch,
			Message: "must differ from git.main_branch",
		})
	}

	if strings.TrimSpace(s.Git.Binary) == "" {
		errors = append(errors, ValidationError{
			Field:   "git.binary",
			Value:   s.Git.Binary,
			Message: "must not be empty",
		})
	}

	return errors
}

// Validate checks the Book for invalid values and returns all validation errors found.
// Every numeric field must be positive except context_window_tokens, where 0 means unbounded.
func (b *Book) Validate() []ValidationError {
	var errors []ValidationError

	positive := []struct {
		field string
		value int
	}{
		{"target_length", b.TargetLength},
		{"chapter_count", b.ChapterCount},
		{"words_per_session", b.WordsPerSession},
		{"words_per_chapter", b.WordsPerChapter},
		{"words_per_page", b.WordsPerPage},
		{"summary_context_entries", b.SummaryContextEntries},
		{"session_timeout_minutes", b.SessionTimeoutMinutes},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "must be greater than zero",
			})
		}
	}

	if b.ContextWindowTokens < 0 {
		errors = append(errors, ValidationError{
			Field:   "context_window_tokens",
			Value:   b.ContextWindowTokens,
			Message: "must be non-negative (0 disables the limit)",
		})
	}

	if strings.TrimSpace(b.Language) == "" {
		errors = append(errors, ValidationError{
			Field:   "language",
			Value:   b.Language,
			Message: "must not be empty",
		})
	}

	return errors
}
