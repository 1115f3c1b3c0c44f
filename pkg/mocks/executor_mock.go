package mocks

import (
	"context"

	"github.com/dukex/ruleforge/pkg/actions"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockExecutor is a mock implementation of actions.Executor.
type MockExecutor struct {
	mock.Mock

	ActionType models.ActionType
}

func NewMockExecutor(actionType models.ActionType) *MockExecutor {
	return &MockExecutor{ActionType: actionType}
}

func (m *MockExecutor) Type() models.ActionType {
	return m.ActionType
}

func (m *MockExecutor) Execute(ctx context.Context, input actions.ExecutionInput) (string, error) {
	args := m.Called(ctx, input)

	return args.String(0), args.Error(1)
}

func (m *MockExecutor) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
