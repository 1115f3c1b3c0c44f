// Package actions provides one executor per automation action type.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/template"
)

var (
	// ErrTargetNotFound indicates no chat conversation could be resolved for a message.
	ErrTargetNotFound = errors.New("chat target not found")

	// ErrSensitiveActionUnavailable is returned by every attempt of a sensitive action until an
	// external integration exists for it.
	ErrSensitiveActionUnavailable = errors.New("sensitive action is not available")
)

// ExecutionInput is what an executor sees for a single attempt.
type ExecutionInput struct {
	Rule   *models.AutomationRule
	Event  events.DomainEvent
	Action models.Action
}

// Executor performs one action type. Execute returns a human-readable output line.
type Executor interface {
	Type() models.ActionType
	Execute(ctx context.Context, input ExecutionInput) (string, error)
	// Schema returns the JSON schema the action payload must satisfy.
	Schema() map[string]any
}

// Registry maps action types to their executors.
type Registry struct {
	executors map[models.ActionType]Executor
}

func NewRegistry(executors ...Executor) *Registry {
	registry := &Registry{executors: make(map[models.ActionType]Executor, len(executors))}

	for _, executor := range executors {
		registry.Register(executor)
	}

	return registry
}

// NewDefaultRegistry registers the chat and memory executors plus a placeholder for every
// sensitive action type.
func NewDefaultRegistry(chat ChatService, memory MemoryService) *Registry {
	registry := NewRegistry(NewChatExecutor(chat), NewMemoryExecutor(memory))

	for _, actionType := range models.ActionTypes() {
		if actionType.Sensitive() {
			registry.Register(NewSensitiveExecutor(actionType))
		}
	}

	return registry
}

// Register adds executor, replacing any previous one for the same type. It panics on a type
// outside the closed action set.
func (r *Registry) Register(executor Executor) {
	if !executor.Type().Valid() {
		panic(fmt.Sprintf("actions: unsupported action type %q", executor.Type()))
	}

	r.executors[executor.Type()] = executor
}

func (r *Registry) Get(actionType models.ActionType) (Executor, bool) {
	executor, ok := r.executors[actionType]

	return executor, ok
}

// Types returns the registered action types, sorted.
func (r *Registry) Types() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.executors))
	for actionType := range r.executors {
		types = append(types, actionType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}

	s, _ := payload[key].(string)

	return s
}

func maxAttemptsSchema() map[string]any {
	return map[string]any{
		"description": "Attempts allowed for this action. Integers from 1 to 5 are honored; anything else falls back to 3.",
		"examples":    []int{1, 3, 5},
	}
}

// renderContent renders payload.content against the rule and event.
func renderContent(input ExecutionInput) (string, error) {
	content, err := template.Render(payloadString(input.Action.Payload, "content"), template.Data(input.Rule, input.Event))
	if err != nil {
		return "", fmt.Errorf("failed to render content: %w", err)
	}

	return content, nil
}
