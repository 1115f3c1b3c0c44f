package automation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/ruleforge/pkg/persistence"
)

var (
	// ErrInvalidRule is wrapped by every ValidationError.
	ErrInvalidRule = errors.New("invalid automation rule")

	ErrRuleNotFound = persistence.ErrRuleNotFound

	// ErrUnknownActionType indicates an action with no registered executor. It is never retried.
	ErrUnknownActionType = errors.New("unknown action type")
)

// Violation describes one problem with a rule definition.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a rule definition.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}

	return fmt.Sprintf("%v: %s", ErrInvalidRule, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRule
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

// IsValidationError checks if an error indicates an invalid rule definition.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRule)
}

// IsRuleNotFound checks if an error indicates an unknown rule.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}
