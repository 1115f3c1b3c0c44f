package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRuleNotFound indicates an automation rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("automation rule not found")

	// ErrRuleAlreadyExists indicates a rule with the same identifier already exists.
	ErrRuleAlreadyExists = errors.New("automation rule already exists")

	// ErrApprovalNotFound indicates an approval request was not found.
	ErrApprovalNotFound = errors.New("approval request not found")

	// ErrApprovalAlreadyResolved indicates an approval request already left the pending state.
	ErrApprovalAlreadyResolved = errors.New("approval request already resolved")

	// ErrInvalidIdentifier indicates an identifier that cannot be stored safely.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// RuleError wraps rule-related errors with additional context.
type RuleError struct {
	Op     string // Operation being performed (e.g., "GetByID", "SetEnabled")
	RuleID string
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s operation failed for rule %s: %v", e.Op, e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func (e *RuleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRuleError creates a new rule error with context.
func NewRuleError(op, ruleID string, err error) *RuleError {
	return &RuleError{Op: op, RuleID: ruleID, Err: err}
}

// ApprovalError wraps approval-related errors with additional context.
type ApprovalError struct {
	Op         string
	ApprovalID string
	Err        error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("%s operation failed for approval %s: %v", e.Op, e.ApprovalID, e.Err)
}

func (e *ApprovalError) Unwrap() error {
	return e.Err
}

func (e *ApprovalError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewApprovalError(op, approvalID string, err error) *ApprovalError {
	return &ApprovalError{Op: op, ApprovalID: approvalID, Err: err}
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsApprovalNotFound checks if an error indicates an approval request was not found.
func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}

// IsApprovalAlreadyResolved checks if an error indicates a resolved approval request.
func IsApprovalAlreadyResolved(err error) bool {
	return errors.Is(err, ErrApprovalAlreadyResolved)
}
