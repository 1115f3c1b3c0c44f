package mocks

import (
	"context"

	"github.com/dukex/ruleforge/pkg/actions"
	"github.com/stretchr/testify/mock"
)

// MockChatService is a mock implementation of actions.ChatService.
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) FindConversationByProjectID(ctx context.Context, projectID string) (*actions.Conversation, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*actions.Conversation), args.Error(1)
}

func (m *MockChatService) CreateSystemConversationForProject(ctx context.Context, projectID string) (*actions.Conversation, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*actions.Conversation), args.Error(1)
}

func (m *MockChatService) SendMessage(ctx context.Context, message actions.ChatMessage) (string, error) {
	args := m.Called(ctx, message)

	return args.String(0), args.Error(1)
}

// MockMemoryService is a mock implementation of actions.MemoryService.
type MockMemoryService struct {
	mock.Mock
}

func (m *MockMemoryService) Save(ctx context.Context, item actions.MemoryItem) (string, error) {
	args := m.Called(ctx, item)

	return args.String(0), args.Error(1)
}
