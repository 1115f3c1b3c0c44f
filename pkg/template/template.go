// Package template renders action text against the event that triggered a rule.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
)

// NeedsTemplating reports whether input contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// Data is the root object seen by templates: .rule, .event and .payload.
func Data(rule *models.AutomationRule, event events.DomainEvent) map[string]any {
	ruleData := map[string]any{}
	if rule != nil {
		ruleData = map[string]any{"id": rule.ID, "name": rule.Name}
	}

	return map[string]any{
		"rule": ruleData,
		"event": map[string]any{
			"type":           string(event.Type),
			"timestamp":      event.Timestamp.UTC().Format(time.RFC3339),
			"correlation_id": event.CorrelationID,
		},
		"payload": event.Payload,
	}
}

// Render executes input against data. Inputs without template actions are returned as is.
func Render(input string, data map[string]any) (string, error) {
	if !NeedsTemplating(input) {
		return input, nil
	}

	payload, _ := data["payload"].(map[string]any)

	tmpl, err := template.
		New("content").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			// field reads a payload value and yields "" when it is absent.
			"field": func(name string) string {
				value, ok := payload[name]
				if !ok || value == nil {
					return ""
				}

				return fmt.Sprint(value)
			},
			"default": func(fallback string, value any) string {
				if value == nil || fmt.Sprint(value) == "" {
					return fallback
				}

				return fmt.Sprint(value)
			},
		}).Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", input, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", input, err)
	}

	return buf.String(), nil
}
