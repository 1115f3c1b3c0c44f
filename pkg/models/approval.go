package models

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalRequest gates a sensitive action. It transitions at most once out of pending.
type ApprovalRequest struct {
	ID          string         `json:"id"`
	ActionType  ActionType     `json:"action_type"`
	Payload     map[string]any `json:"payload"`
	Status      ApprovalStatus `json:"status"`
	RequestedBy string         `json:"requested_by"`
	ApprovedBy  string         `json:"approved_by,omitempty"`
	RequestedAt time.Time      `json:"requested_at"`
	ApprovedAt  *time.Time     `json:"approved_at,omitempty"`
}

// Terminal reports whether the request already left the pending state.
func (a *ApprovalRequest) Terminal() bool {
	return a.Status != ApprovalPending
}
