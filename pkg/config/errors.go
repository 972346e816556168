package config

import (
	"fmt"
	"strings"
)

// ValidationError is one invalid configuration value, with a suggestion
// for fixing it.
type ValidationError struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error in field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a validation error with a fix suggestion.
func NewValidationError(field, message, suggestion string) ValidationError {
	return ValidationError{
		Field:      field,
		Message:    message,
		Suggestion: suggestion,
	}
}

// ValidationErrors collects every invalid value found in one validation
// pass so the user can fix the whole file at once.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no validation errors"
	case 1:
		return e.Errors[0].Error()
	}

	var messages []string
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("multiple validation errors:\n  - %s", strings.Join(messages, "\n  - "))
}

// NewValidationErrors wraps a slice of validation errors.
func NewValidationErrors(errors []ValidationError) ValidationErrors {
	return ValidationErrors{Errors: errors}
}

// IsEmpty returns true if no problem was recorded.
func (e ValidationErrors) IsEmpty() bool {
	return len(e.Errors) == 0
}

// FixSuggestions returns a formatted list of fix suggestions.
func (e ValidationErrors) FixSuggestions() []string {
	var suggestions []string
	for _, err := range e.Errors {
		if err.Suggestion != "" {
			suggestions = append(suggestions, fmt.Sprintf("%s: %s", err.Field, err.Suggestion))
		}
	}
	return suggestions
}

// ConfigError is a configuration loading or processing error.
type ConfigError struct {
	Type       string `json:"type"`
	File       string `json:"file,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
	Cause      error  `json:"-"`
}

func (e ConfigError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("config %s error in '%s': %s", e.Type, e.File, e.Message)
	}
	return fmt.Sprintf("config %s error: %s", e.Type, e.Message)
}

func (e ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a configuration error.
func NewConfigError(errorType, message, suggestion string) ConfigError {
	return ConfigError{
		Type:       errorType,
		Message:    message,
		Suggestion: suggestion,
	}
}

// NewConfigFileError creates a configuration error for a specific file.
func NewConfigFileError(errorType, file, message, suggestion string) ConfigError {
	return ConfigError{
		Type:       errorType,
		File:       file,
		Message:    message,
		Suggestion: suggestion,
	}
}

// WithCause attaches the underlying error.
func (e ConfigError) WithCause(cause error) ConfigError {
	e.Cause = cause
	return e
}
