package actions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/ruleforge/pkg/actions"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/mocks"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func chatInput(payload map[string]any, event events.DomainEvent) actions.ExecutionInput {
	return actions.ExecutionInput{
		Rule:   testutil.CreateTestRule(testutil.WithName("Notify")),
		Event:  event,
		Action: models.Action{Type: models.ActionPostChatMessage, Payload: payload},
	}
}

func TestChatExecutor_UsesPayloadConversation(t *testing.T) {
	chat := &mocks.MockChatService{}
	chat.On("SendMessage", mock.Anything, mock.MatchedBy(func(m actions.ChatMessage) bool {
		return m.ConversationID == "c-explicit" && m.Content == "hello"
	})).Return("m1", nil)

	output, err := actions.NewChatExecutor(chat).Execute(context.Background(),
		chatInput(map[string]any{"conversationId": "c-explicit", "content": "hello"}, testutil.TaskCreatedEvent("p1", "t1", nil)))

	require.NoError(t, err)
	assert.Contains(t, output, "c-explicit")
	chat.AssertNotCalled(t, "FindConversationByProjectID", mock.Anything, mock.Anything)
}

func TestChatExecutor_UsesExistingProjectConversation(t *testing.T) {
	chat := &mocks.MockChatService{}
	chat.On("FindConversationByProjectID", mock.Anything, "p1").Return(&actions.Conversation{ID: "c1", ProjectID: "p1"}, nil)
	chat.On("SendMessage", mock.Anything, mock.MatchedBy(func(m actions.ChatMessage) bool {
		return m.ConversationID == "c1" && m.Content == `Automation "Notify" fired on task_created: Ship`
	})).Return("m1", nil)

	_, err := actions.NewChatExecutor(chat).Execute(context.Background(),
		chatInput(nil, testutil.TaskCreatedEvent("p1", "t1", map[string]any{"taskTitle": "Ship"})))

	require.NoError(t, err)
	chat.AssertNotCalled(t, "CreateSystemConversationForProject", mock.Anything, mock.Anything)
	chat.AssertExpectations(t)
}

func TestChatExecutor_CreatesSystemConversation(t *testing.T) {
	chat := &mocks.MockChatService{}
	chat.On("FindConversationByProjectID", mock.Anything, "p1").Return(nil, nil)
	chat.On("CreateSystemConversationForProject", mock.Anything, "p1").Return(&actions.Conversation{ID: "c-new"}, nil)
	chat.On("SendMessage", mock.Anything, mock.MatchedBy(func(m actions.ChatMessage) bool {
		return m.ConversationID == "c-new"
	})).Return("m1", nil)

	_, err := actions.NewChatExecutor(chat).Execute(context.Background(), chatInput(nil, testutil.TaskCreatedEvent("p1", "t1", nil)))

	require.NoError(t, err)
	chat.AssertExpectations(t)
}

func TestChatExecutor_TargetNotFound(t *testing.T) {
	chat := &mocks.MockChatService{}

	_, err := actions.NewChatExecutor(chat).Execute(context.Background(),
		chatInput(nil, events.New(events.ScheduledTick, nil)))
	assert.ErrorIs(t, err, actions.ErrTargetNotFound)

	chat.On("FindConversationByProjectID", mock.Anything, "p1").Return(nil, nil)
	chat.On("CreateSystemConversationForProject", mock.Anything, "p1").Return(nil, nil)

	_, err = actions.NewChatExecutor(chat).Execute(context.Background(), chatInput(nil, testutil.TaskCreatedEvent("p1", "", nil)))
	assert.ErrorIs(t, err, actions.ErrTargetNotFound)
}

func TestChatExecutor_SendFailure(t *testing.T) {
	chat := &mocks.MockChatService{}
	chat.On("SendMessage", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	_, err := actions.NewChatExecutor(chat).Execute(context.Background(),
		chatInput(map[string]any{"conversationId": "c1"}, testutil.TaskCreatedEvent("p1", "t1", nil)))
	assert.ErrorContains(t, err, "boom")
}

func TestBuildMemoryItem_Defaults(t *testing.T) {
	rule := testutil.CreateTestRule(testutil.WithName("Remember"))

	item := actions.BuildMemoryItem(actions.ExecutionInput{
		Rule:   rule,
		Event:  testutil.TaskCreatedEvent("p1", "t1", map[string]any{"taskTitle": "Ship"}),
		Action: models.Action{Type: models.ActionSaveMemory},
	})

	assert.Equal(t, "p1", item.ProjectID)
	assert.Equal(t, actions.ScopeProject, item.Scope)
	assert.Equal(t, "automation:"+rule.ID, item.Source)
	assert.Equal(t, []string{"automation", "task_created"}, item.Tags)
	assert.Equal(t, `Automation "Remember" handled task_created for task Ship`, item.Content)

	global := actions.BuildMemoryItem(actions.ExecutionInput{
		Rule:   rule,
		Event:  events.New(events.ScheduledTick, nil),
		Action: models.Action{Type: models.ActionSaveMemory},
	})
	assert.Equal(t, actions.ScopeGlobal, global.Scope)
}

func TestBuildMemoryItem_Overrides(t *testing.T) {
	item := actions.BuildMemoryItem(actions.ExecutionInput{
		Rule:  testutil.CreateTestRule(),
		Event: testutil.TaskCreatedEvent("p1", "t1", nil),
		Action: models.Action{Type: models.ActionSaveMemory, Payload: map[string]any{
			"scope":   "global",
			"content": "custom",
			"source":  "ops",
			"tags":    []any{"a", "b"},
		}},
	})

	assert.Equal(t, actions.ScopeGlobal, item.Scope)
	assert.Equal(t, "custom", item.Content)
	assert.Equal(t, "ops", item.Source)
	assert.Equal(t, []string{"a", "b"}, item.Tags)
}

func TestMemoryExecutor_Execute(t *testing.T) {
	memory := &mocks.MockMemoryService{}
	memory.On("Save", mock.Anything, mock.AnythingOfType("actions.MemoryItem")).Return("mem-1", nil)

	output, err := actions.NewMemoryExecutor(memory).Execute(context.Background(), actions.ExecutionInput{
		Rule:   testutil.CreateTestRule(),
		Event:  testutil.TaskCreatedEvent("p1", "t1", nil),
		Action: models.Action{Type: models.ActionSaveMemory},
	})

	require.NoError(t, err)
	assert.Equal(t, "saved project memory mem-1", output)
}

func TestSensitiveExecutor_AlwaysFails(t *testing.T) {
	executor := actions.NewSensitiveExecutor(models.ActionShellExecution)

	for range 3 {
		_, err := executor.Execute(context.Background(), actions.ExecutionInput{})
		assert.ErrorIs(t, err, actions.ErrSensitiveActionUnavailable)
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	registry := actions.NewDefaultRegistry(&mocks.MockChatService{}, &mocks.MockMemoryService{})

	assert.Len(t, registry.Types(), len(models.ActionTypes()))

	for _, actionType := range models.ActionTypes() {
		executor, ok := registry.Get(actionType)
		require.True(t, ok, actionType)
		assert.Equal(t, actionType, executor.Type())
		assert.Equal(t, "object", executor.Schema()["type"])
	}

	_, ok := registry.Get("unknown")
	assert.False(t, ok)
}

func TestRegistry_RegisterPanicsOnUnknownType(t *testing.T) {
	assert.Panics(t, func() {
		actions.NewRegistry(mocks.NewMockExecutor("send_fax"))
	})
}

func TestChatExecutor_RendersTemplatedContent(t *testing.T) {
	chat := &mocks.MockChatService{}
	chat.On("SendMessage", mock.Anything, mock.MatchedBy(func(m actions.ChatMessage) bool {
		return m.Content == "Notify: Ship is ready"
	})).Return("m1", nil)

	_, err := actions.NewChatExecutor(chat).Execute(context.Background(), chatInput(
		map[string]any{"conversationId": "c1", "content": `{{ .rule.name }}: {{ field "taskTitle" }} is ready`},
		testutil.TaskCreatedEvent("p1", "t1", map[string]any{"taskTitle": "Ship"}),
	))

	require.NoError(t, err)
	chat.AssertExpectations(t)
}

func TestChatExecutor_BrokenTemplateFails(t *testing.T) {
	chat := &mocks.MockChatService{}

	_, err := actions.NewChatExecutor(chat).Execute(context.Background(), chatInput(
		map[string]any{"conversationId": "c1", "content": "{{ .payload"},
		testutil.TaskCreatedEvent("p1", "t1", nil),
	))

	require.Error(t, err)
	chat.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestMemoryExecutor_RendersTemplatedContent(t *testing.T) {
	memory := &mocks.MockMemoryService{}
	memory.On("Save", mock.Anything, mock.MatchedBy(func(item actions.MemoryItem) bool {
		return item.Content == "task t1 created"
	})).Return("mem-1", nil)

	_, err := actions.NewMemoryExecutor(memory).Execute(context.Background(), actions.ExecutionInput{
		Rule:   testutil.CreateTestRule(),
		Event:  testutil.TaskCreatedEvent("p1", "t1", nil),
		Action: models.Action{Type: models.ActionSaveMemory, Payload: map[string]any{"content": `task {{ .payload.taskId }} created`}},
	})

	require.NoError(t, err)
	memory.AssertExpectations(t)
}

func TestNumericProjectIDResolvesProjectTargets(t *testing.T) {
	event := events.New(events.TaskCreated, map[string]any{"projectId": 42.0, "taskId": 7.0})

	item := actions.BuildMemoryItem(actions.ExecutionInput{
		Rule:   testutil.CreateTestRule(),
		Event:  event,
		Action: models.Action{Type: models.ActionSaveMemory},
	})
	assert.Equal(t, actions.ScopeProject, item.Scope)
	assert.Equal(t, "42", item.ProjectID)

	chat := &mocks.MockChatService{}
	chat.On("FindConversationByProjectID", mock.Anything, "42").Return(&actions.Conversation{ID: "c42", ProjectID: "42"}, nil)
	chat.On("SendMessage", mock.Anything, mock.MatchedBy(func(m actions.ChatMessage) bool {
		return m.ConversationID == "c42"
	})).Return("m1", nil)

	_, err := actions.NewChatExecutor(chat).Execute(context.Background(), chatInput(nil, event))

	require.NoError(t, err)
	chat.AssertExpectations(t)
}
