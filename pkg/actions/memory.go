package actions

import (
	"context"
	"fmt"

	"github.com/dukex/ruleforge/pkg/models"
)

// MemoryExecutor records a memory item describing the event.
type MemoryExecutor struct {
	memory MemoryService
}

func NewMemoryExecutor(memory MemoryService) *MemoryExecutor {
	return &MemoryExecutor{memory: memory}
}

func (e *MemoryExecutor) Type() models.ActionType {
	return models.ActionSaveMemory
}

func (e *MemoryExecutor) Execute(ctx context.Context, input ExecutionInput) (string, error) {
	item := BuildMemoryItem(input)

	if payloadString(input.Action.Payload, "content") != "" {
		content, err := renderContent(input)
		if err != nil {
			return "", err
		}

		item.Content = content
	}

	id, err := e.memory.Save(ctx, item)
	if err != nil {
		return "", fmt.Errorf("failed to save memory: %w", err)
	}

	return fmt.Sprintf("saved %s memory %s", item.Scope, id), nil
}

// BuildMemoryItem applies payload overrides over defaults derived from the rule and event.
func BuildMemoryItem(input ExecutionInput) MemoryItem {
	payload := input.Action.Payload
	projectID := input.Event.ProjectID()

	item := MemoryItem{
		ProjectID: projectID,
		Scope:     payloadString(payload, "scope"),
		Content:   payloadString(payload, "content"),
		Source:    payloadString(payload, "source"),
		Tags:      payloadStrings(payload, "tags"),
	}

	if item.Scope == "" {
		item.Scope = ScopeGlobal
		if projectID != "" {
			item.Scope = ScopeProject
		}
	}

	if item.Content == "" {
		item.Content = fmt.Sprintf("Automation %q handled %s", input.Rule.Name, input.Event.Type)

		if title := input.Event.StringField("taskTitle"); title != "" {
			item.Content += " for task " + title
		}
	}

	if item.Source == "" {
		item.Source = "automation:" + input.Rule.ID
	}

	if item.Tags == nil {
		item.Tags = []string{"automation", string(input.Event.Type)}
	}

	return item
}

func payloadStrings(payload map[string]any, key string) []string {
	if payload == nil {
		return nil
	}

	switch values := payload[key].(type) {
	case []string:
		return values
	case []any:
		out := make([]string, 0, len(values))

		for _, value := range values {
			if s, ok := value.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

// Schema returns the JSON schema for save_memory payloads.
func (e *MemoryExecutor) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"scope": map[string]any{
				"type":        "string",
				"description": "Memory scope. Defaults to project when the event has a projectId.",
				"enum":        []string{ScopeProject, ScopeGlobal},
			},
			"content": map[string]any{"type": "string"},
			"source":  map[string]any{"type": "string"},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"maxAttempts": maxAttemptsSchema(),
		},
	}
}
