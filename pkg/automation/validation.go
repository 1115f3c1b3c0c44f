package automation

import (
	"fmt"
	"strings"

	"github.com/dukex/ruleforge/pkg/actions"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/robfig/cron/v3"
	"github.com/xeipuuv/gojsonschema"
)

// TriggerEventTypes lists the event types a rule may react to. The engine subscribes to each.
func TriggerEventTypes() []events.EventType {
	return []events.EventType{events.TaskCreated, events.TaskStatusChanged, events.ScheduledTick}
}

// CreateRuleInput carries a rule definition. Enabled defaults to true.
type CreateRuleInput struct {
	Name    string          `json:"name"              yaml:"name"`
	Trigger models.Trigger  `json:"trigger"           yaml:"trigger"`
	Actions []models.Action `json:"actions"           yaml:"actions"`
	Enabled *bool           `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// ValidateRule checks input against the registered executors without persisting anything.
func ValidateRule(input CreateRuleInput, registry *actions.Registry) error {
	verr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		verr.add("name", "must not be empty")
	}

	validateTrigger(verr, input.Trigger)

	if len(input.Actions) == 0 {
		verr.add("actions", "at least one action is required")
	}

	for i, action := range input.Actions {
		field := fmt.Sprintf("actions[%d]", i)

		if !action.Type.Valid() {
			verr.add(field+".type", "unsupported action type %q", action.Type)

			continue
		}

		executor, ok := registry.Get(action.Type)
		if !ok {
			verr.add(field+".type", "no executor registered for %q", action.Type)

			continue
		}

		validatePayload(verr, field+".payload", executor.Schema(), action.Payload)
	}

	if len(verr.Violations) > 0 {
		return verr
	}

	return nil
}

func validateTrigger(verr *ValidationError, trigger models.Trigger) {
	known := false

	for _, eventType := range TriggerEventTypes() {
		if trigger.Type == eventType {
			known = true
		}
	}

	if !known {
		verr.add("trigger.type", "unsupported event type %q", trigger.Type)
	}

	switch {
	case trigger.Type == events.ScheduledTick && trigger.Cron == "":
		verr.add("trigger.cron", "is required for scheduled_tick triggers")
	case trigger.Type == events.ScheduledTick:
		if _, err := cron.ParseStandard(trigger.Cron); err != nil {
			verr.add("trigger.cron", "invalid cron expression %q: %v", trigger.Cron, err)
		}
	case trigger.Cron != "":
		verr.add("trigger.cron", "is only allowed for scheduled_tick triggers")
	}

	if trigger.Mode != "" && trigger.Mode != models.ModeAnd && trigger.Mode != models.ModeOr {
		verr.add("trigger.mode", "must be %q or %q", models.ModeAnd, models.ModeOr)
	}

	for i, condition := range trigger.Conditions {
		field := fmt.Sprintf("trigger.conditions[%d]", i)

		if condition.Field == "" {
			verr.add(field+".field", "must not be empty")
		}

		if !condition.Operator.Valid() {
			verr.add(field+".operator", "unsupported operator %q", condition.Operator)
		}
	}
}

func validatePayload(verr *ValidationError, field string, schema map[string]any, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		verr.add(field, "cannot be validated: %v", err)

		return
	}

	for _, desc := range result.Errors() {
		verr.add(field, "%s", desc.String())
	}
}
