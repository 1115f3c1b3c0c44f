package web

import (
	"github.com/dukex/ruleforge/pkg/automation"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
)

// Approval headers accepted on routes that create or run rules with sensitive actions.
const (
	HeaderApprovalID        = "X-Approval-Id"
	HeaderApprovalConfirmed = "X-Approval-Confirmed"
	HeaderRequestedBy       = "X-Requested-By"

	anonymousRequester = "anonymous"
)

// CreateRuleRequest is the body of POST /rules. Field-level rules beyond presence are checked
// by the engine so every violation is reported at once.
type CreateRuleRequest struct {
	Name    string          `json:"name"              validate:"required"`
	Trigger models.Trigger  `json:"trigger"`
	Actions []models.Action `json:"actions"`
	Enabled *bool           `json:"enabled,omitempty"`
}

func (r CreateRuleRequest) input() automation.CreateRuleInput {
	return automation.CreateRuleInput{
		Name:    r.Name,
		Trigger: r.Trigger,
		Actions: r.Actions,
		Enabled: r.Enabled,
	}
}

// SetEnabledRequest is the body of PATCH /rules/:id.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// TestRuleRequest is the body of POST /rules/:id/test. Both fields are optional.
type TestRuleRequest struct {
	EventType    events.EventType `json:"eventType,omitempty"`
	EventPayload map[string]any   `json:"eventPayload,omitempty"`
}

// CreateApprovalRequest is the body of POST /approvals.
type CreateApprovalRequest struct {
	ActionType  models.ActionType `json:"action_type"            validate:"required"`
	Payload     map[string]any    `json:"payload"`
	RequestedBy string            `json:"requested_by,omitempty"`
}

// ResolveApprovalRequest is the body of the approve and reject routes.
type ResolveApprovalRequest struct {
	Approver string `json:"approver" validate:"required"`
}

// PublishEventRequest is the body of POST /events.
type PublishEventRequest struct {
	Type          events.EventType `json:"type"                     validate:"required,oneof=task_created task_status_changed scheduled_tick"`
	Payload       map[string]any   `json:"payload"`
	CorrelationID string           `json:"correlation_id,omitempty"`
}

// ApprovalCreatedResponse is returned by POST /approvals.
type ApprovalCreatedResponse struct {
	ID string `json:"id"`
}

type ProcessedEventResponse struct {
	EventKey  string `json:"event_key"`
	Processed bool   `json:"processed"`
}
