package approval

import (
	"errors"
	"fmt"

	"github.com/dukex/ruleforge/pkg/persistence"
)

var (
	// ErrApprovalRequired is wrapped by every ApprovalRequiredError.
	ErrApprovalRequired = errors.New("approval required")

	ErrApprovalNotFound = persistence.ErrApprovalNotFound

	// ErrApprovalNotPending indicates an approve or reject on a request that already left pending.
	ErrApprovalNotPending = persistence.ErrApprovalAlreadyResolved

	ErrInvalidActionType = errors.New("action type does not require approval")
)

// ApprovalRequiredError reports that an operation needs an approved request. ApprovalID names
// the request the caller should drive through approve, when one exists.
type ApprovalRequiredError struct {
	ApprovalID string
	Reason     string
}

func (e *ApprovalRequiredError) Error() string {
	if e.ApprovalID == "" {
		return fmt.Sprintf("%v: %s", ErrApprovalRequired, e.Reason)
	}

	return fmt.Sprintf("%v: request %s %s", ErrApprovalRequired, e.ApprovalID, e.Reason)
}

func (e *ApprovalRequiredError) Unwrap() error {
	return ErrApprovalRequired
}

// IsApprovalRequired checks if an error indicates a missing approval.
func IsApprovalRequired(err error) bool {
	return errors.Is(err, ErrApprovalRequired)
}

// IsApprovalNotPending checks if an error indicates an approval request was already resolved.
func IsApprovalNotPending(err error) bool {
	return errors.Is(err, ErrApprovalNotPending)
}

// IsApprovalNotFound checks if an error indicates an unknown approval request.
func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}
