package rules

import (
	"fmt"
	"strings"
)

// ConfigError reports one problem found in the analysis configuration.
// Configuration problems abort the run before any data is read.
type ConfigError struct {
	Rule       string `json:"rule,omitempty"` // offending rule name, when rule-scoped
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (e ConfigError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("rule %q: %s: %s", e.Rule, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewConfigError creates a document-scoped configuration error.
func NewConfigError(field, message, suggestion string) ConfigError {
	return ConfigError{
		Field:      field,
		Message:    message,
		Suggestion: suggestion,
	}
}

// NewRuleError creates a configuration error scoped to one rule.
func NewRuleError(rule, field, message, suggestion string) ConfigError {
	return ConfigError{
		Rule:       rule,
		Field:      field,
		Message:    message,
		Suggestion: suggestion,
	}
}

// ConfigErrors collects every problem found in one load pass so the user
// can fix the whole file at once.
type ConfigErrors struct {
	File   string        `json:"file,omitempty"`
	Errors []ConfigError `json:"errors"`
}

func (e *ConfigErrors) Error() string {
	where := "configuration"
	if e.File != "" {
		where = fmt.Sprintf("configuration %q", e.File)
	}
	switch len(e.Errors) {
	case 0:
		return fmt.Sprintf("invalid %s", where)
	case 1:
		return fmt.Sprintf("invalid %s: %s", where, e.Errors[0].Error())
	}
	var messages []string
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("invalid %s: %d problems:\n  - %s", where, len(e.Errors), strings.Join(messages, "\n  - "))
}

func (e *ConfigErrors) add(err ConfigError) {
	e.Errors = append(e.Errors, err)
}

// IsEmpty reports whether any problem was recorded.
func (e *ConfigErrors) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Suggestions returns the recorded fix suggestions, one per error that has one.
func (e *ConfigErrors) Suggestions() []string {
	var suggestions []string
	for _, err := range e.Errors {
		if err.Suggestion != "" {
			suggestions = append(suggestions, err.Suggestion)
		}
	}
	return suggestions
}
