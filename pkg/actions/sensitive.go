package actions

import (
	"context"
	"fmt"

	"github.com/dukex/ruleforge/pkg/models"
)

// SensitiveExecutor stands in for an action type that needs an external integration. Every
// attempt fails, so rules using it always end in the dead-letter listing.
type SensitiveExecutor struct {
	actionType models.ActionType
}

func NewSensitiveExecutor(actionType models.ActionType) *SensitiveExecutor {
	return &SensitiveExecutor{actionType: actionType}
}

func (e *SensitiveExecutor) Type() models.ActionType {
	return e.actionType
}

func (e *SensitiveExecutor) Execute(_ context.Context, _ ExecutionInput) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrSensitiveActionUnavailable, e.actionType)
}

func (e *SensitiveExecutor) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"maxAttempts": maxAttemptsSchema(),
		},
	}
}
