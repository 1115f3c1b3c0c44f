package collaborators

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukex/ruleforge/pkg/actions"
)

// ChatClient talks to the chat service over HTTP.
type ChatClient struct {
	client
}

func NewChatClient(baseURL string, logger *slog.Logger) *ChatClient {
	return &ChatClient{client: newClient(baseURL, logger.With("module", "chat_client"))}
}

// FindConversationByProjectID returns (nil, nil) when the chat service answers 404.
func (c *ChatClient) FindConversationByProjectID(ctx context.Context, projectID string) (*actions.Conversation, error) {
	var conversation actions.Conversation

	err := c.do(ctx, http.MethodGet, "/projects/"+escape(projectID)+"/conversation", nil, &conversation)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (c *ChatClient) CreateSystemConversationForProject(ctx context.Context, projectID string) (*actions.Conversation, error) {
	var conversation actions.Conversation

	err := c.do(ctx, http.MethodPost, "/projects/"+escape(projectID)+"/conversations",
		map[string]string{"kind": "system"}, &conversation)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (c *ChatClient) SendMessage(ctx context.Context, message actions.ChatMessage) (string, error) {
	var created struct {
		ID string `json:"id"`
	}

	err := c.do(ctx, http.MethodPost, "/conversations/"+escape(message.ConversationID)+"/messages", message, &created)
	if err != nil {
		return "", err
	}

	return created.ID, nil
}
