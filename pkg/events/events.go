// Package events defines the domain event types exchanged on the automation event bus.
package events

import (
	"fmt"
	"strconv"
	"time"
)

type EventType string

const (
	// Producer events.
	TaskCreated       EventType = "task_created"
	TaskStatusChanged EventType = "task_status_changed"
	ScheduledTick     EventType = "scheduled_tick"

	// Emitted by the rule engine after every execution.
	AutomationRuleExecuted EventType = "automation_rule_executed"
)

// Well-known payload fields.
const (
	ProjectIDField = "projectId"
	TaskIDField    = "taskId"
	RuleIDField    = "ruleId"
)

// DomainEvent is a transient occurrence published on the bus. It is never persisted.
type DomainEvent struct {
	Type          EventType      `json:"type"`
	Payload       map[string]any `json:"payload"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// New builds an event stamped with the current UTC time.
func New(eventType EventType, payload map[string]any) DomainEvent {
	if payload == nil {
		payload = make(map[string]any)
	}

	return DomainEvent{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// StringField returns payload[field] in its string form, or "" when the field is absent.
// Numeric ids decoded from JSON come back without a trailing ".0".
func (e DomainEvent) StringField(field string) string {
	if e.Payload == nil {
		return ""
	}

	return Stringify(e.Payload[field])
}

// Stringify renders a payload value for comparisons and keys. nil becomes "".
func Stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	default:
		return fmt.Sprint(value)
	}
}

func (e DomainEvent) ProjectID() string { return e.StringField(ProjectIDField) }

func (e DomainEvent) TaskID() string { return e.StringField(TaskIDField) }

// RuleExecuted is the payload of AutomationRuleExecuted.
type RuleExecuted struct {
	RunLogID string `json:"runLogId"`
	RuleID   string `json:"ruleId"`
	Status   string `json:"status"`
	EventKey string `json:"eventKey"`
}

// Event wraps the payload into a publishable DomainEvent.
func (r RuleExecuted) Event() DomainEvent {
	return New(AutomationRuleExecuted, map[string]any{
		"runLogId": r.RunLogID,
		"ruleId":   r.RuleID,
		"status":   r.Status,
		"eventKey": r.EventKey,
	})
}

// RuleExecutedFrom decodes the payload of an AutomationRuleExecuted event.
func RuleExecutedFrom(event DomainEvent) (RuleExecuted, bool) {
	if event.Type != AutomationRuleExecuted {
		return RuleExecuted{}, false
	}

	return RuleExecuted{
		RunLogID: event.StringField("runLogId"),
		RuleID:   event.StringField("ruleId"),
		Status:   event.StringField("status"),
		EventKey: event.StringField("eventKey"),
	}, true
}
