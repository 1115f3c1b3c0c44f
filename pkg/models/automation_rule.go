// Package models defines the core domain models for event-driven automation rules.
package models

import (
	"time"

	"github.com/dukex/ruleforge/pkg/events"
)

// ActionType is the closed set of actions a rule may perform.
type ActionType string

const (
	ActionPostChatMessage ActionType = "post_chat_message"
	ActionSaveMemory      ActionType = "save_memory"

	// Sensitive actions require an approved ApprovalRequest before a rule using them
	// can be created or manually tested.
	ActionExternalAction ActionType = "external_action"
	ActionShellExecution ActionType = "shell_execution"
	ActionMassMessaging  ActionType = "mass_messaging"
	ActionRemoteAction   ActionType = "remote_action"
)

var actionTypes = []ActionType{
	ActionPostChatMessage,
	ActionSaveMemory,
	ActionExternalAction,
	ActionShellExecution,
	ActionMassMessaging,
	ActionRemoteAction,
}

// ActionTypes returns every supported action type.
func ActionTypes() []ActionType {
	out := make([]ActionType, len(actionTypes))
	copy(out, actionTypes)

	return out
}

// Valid reports whether t belongs to the closed action set.
func (t ActionType) Valid() bool {
	for _, known := range actionTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Sensitive reports whether t requires human approval.
func (t ActionType) Sensitive() bool {
	switch t {
	case ActionExternalAction, ActionShellExecution, ActionMassMessaging, ActionRemoteAction:
		return true
	default:
		return false
	}
}

// ConditionMode combines trigger conditions.
type ConditionMode string

const (
	ModeAnd ConditionMode = "and"
	ModeOr  ConditionMode = "or"
)

// Operator compares an event payload field against a condition value.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNeq        Operator = "neq"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
)

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpContains, OpStartsWith, OpEndsWith, OpGt, OpGte, OpLt, OpLte:
		return true
	default:
		return false
	}
}

// Numeric reports whether op coerces both operands to numbers.
func (op Operator) Numeric() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	default:
		return false
	}
}

type Condition struct {
	Field    string   `json:"field"    yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value"    yaml:"value"`
}

// Trigger declares when a rule fires.
type Trigger struct {
	Type       events.EventType  `json:"type"                 yaml:"type"`
	Filter     map[string]string `json:"filter,omitempty"     yaml:"filter,omitempty"`
	Conditions []Condition       `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Mode       ConditionMode     `json:"mode,omitempty"       yaml:"mode,omitempty"`
	Cron       string            `json:"cron,omitempty"       yaml:"cron,omitempty"`
}

// EffectiveMode returns the condition mode, defaulting to AND.
func (t Trigger) EffectiveMode() ConditionMode {
	if t.Mode == ModeOr {
		return ModeOr
	}

	return ModeAnd
}

type Action struct {
	Type    ActionType     `json:"type"              yaml:"type"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// AutomationRule is immutable after creation except for Enabled.
type AutomationRule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Trigger   Trigger   `json:"trigger"`
	Actions   []Action  `json:"actions"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SensitiveActions returns the rule's actions that require approval.
func (r *AutomationRule) SensitiveActions() []Action {
	return SensitiveActions(r.Actions)
}

// SensitiveActions filters actions down to the sensitive ones, preserving order.
func SensitiveActions(actions []Action) []Action {
	var sensitive []Action

	for _, action := range actions {
		if action.Type.Sensitive() {
			sensitive = append(sensitive, action)
		}
	}

	return sensitive
}
