// Package testutil provides test data builders for automation rules and events.
package testutil

import (
	"time"

	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/google/uuid"
)

// CreateTestRule creates an enabled task_created rule posting a chat message, with overrides applied.
func CreateTestRule(overrides ...func(*models.AutomationRule)) *models.AutomationRule {
	now := time.Now().UTC()

	rule := &models.AutomationRule{
		ID:   uuid.NewString(),
		Name: "Test Rule",
		Trigger: models.Trigger{
			Type: events.TaskCreated,
		},
		Actions: []models.Action{
			{Type: models.ActionPostChatMessage},
		},
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(rule)
	}

	return rule
}

// WithTrigger sets the rule trigger.
func WithTrigger(trigger models.Trigger) func(*models.AutomationRule) {
	return func(r *models.AutomationRule) {
		r.Trigger = trigger
	}
}

// WithActions sets the rule actions.
func WithActions(actions ...models.Action) func(*models.AutomationRule) {
	return func(r *models.AutomationRule) {
		r.Actions = actions
	}
}

// WithName sets the rule name.
func WithName(name string) func(*models.AutomationRule) {
	return func(r *models.AutomationRule) {
		r.Name = name
	}
}

// Disabled marks the rule as disabled.
func Disabled() func(*models.AutomationRule) {
	return func(r *models.AutomationRule) {
		r.Enabled = false
	}
}

// TaskCreatedEvent builds a task_created event for project and task.
func TaskCreatedEvent(projectID, taskID string, extra map[string]any) events.DomainEvent {
	payload := map[string]any{
		events.ProjectIDField: projectID,
		events.TaskIDField:    taskID,
	}

	for k, v := range extra {
		payload[k] = v
	}

	return events.New(events.TaskCreated, payload)
}
