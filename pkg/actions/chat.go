package actions

import (
	"context"
	"fmt"

	"github.com/dukex/ruleforge/pkg/models"
)

// ChatExecutor posts a message into a project conversation.
type ChatExecutor struct {
	chat ChatService
}

func NewChatExecutor(chat ChatService) *ChatExecutor {
	return &ChatExecutor{chat: chat}
}

func (e *ChatExecutor) Type() models.ActionType {
	return models.ActionPostChatMessage
}

// Execute resolves the target from payload.conversationId, then the project's existing
// conversation, then a freshly created system conversation.
func (e *ChatExecutor) Execute(ctx context.Context, input ExecutionInput) (string, error) {
	conversationID, err := e.resolveConversation(ctx, input)
	if err != nil {
		return "", err
	}

	content, err := renderContent(input)
	if err != nil {
		return "", err
	}

	if content == "" {
		content = DefaultChatContent(input)
	}

	messageID, err := e.chat.SendMessage(ctx, ChatMessage{
		ConversationID: conversationID,
		Role:           "system",
		Content:        content,
		Metadata: map[string]any{
			"ruleId":    input.Rule.ID,
			"eventType": string(input.Event.Type),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return fmt.Sprintf("posted message %s to conversation %s", messageID, conversationID), nil
}

func (e *ChatExecutor) resolveConversation(ctx context.Context, input ExecutionInput) (string, error) {
	if id := payloadString(input.Action.Payload, "conversationId"); id != "" {
		return id, nil
	}

	projectID := input.Event.ProjectID()
	if projectID == "" {
		return "", fmt.Errorf("%w: event has no projectId and payload has no conversationId", ErrTargetNotFound)
	}

	conversation, err := e.chat.FindConversationByProjectID(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to find conversation for project %s: %w", projectID, err)
	}

	if conversation == nil || conversation.ID == "" {
		conversation, err = e.chat.CreateSystemConversationForProject(ctx, projectID)
		if err != nil {
			return "", fmt.Errorf("failed to create conversation for project %s: %w", projectID, err)
		}
	}

	if conversation == nil || conversation.ID == "" {
		return "", fmt.Errorf("%w: project %s", ErrTargetNotFound, projectID)
	}

	return conversation.ID, nil
}

// DefaultChatContent is used when the action payload carries no content.
func DefaultChatContent(input ExecutionInput) string {
	content := fmt.Sprintf("Automation %q fired on %s", input.Rule.Name, input.Event.Type)

	if title := input.Event.StringField("taskTitle"); title != "" {
		content += ": " + title
	}

	if status := input.Event.StringField("status"); status != "" {
		content += " (" + status + ")"
	}

	return content
}

// Schema returns the JSON schema for post_chat_message payloads.
func (e *ChatExecutor) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"conversationId": map[string]any{
				"type":        "string",
				"description": "Target conversation. Defaults to the event project's conversation.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Message text. Defaults to a summary of the rule and event.",
				"examples":    []string{"New task created, please triage"},
			},
			"maxAttempts": maxAttemptsSchema(),
		},
	}
}
