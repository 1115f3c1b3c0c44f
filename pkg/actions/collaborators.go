package actions

import "context"

type Conversation struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
}

type ChatMessage struct {
	ConversationID string         `json:"conversationId"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ChatService is the chat collaborator. FindConversationByProjectID returns (nil, nil) when
// the project has no conversation yet.
type ChatService interface {
	FindConversationByProjectID(ctx context.Context, projectID string) (*Conversation, error)
	CreateSystemConversationForProject(ctx context.Context, projectID string) (*Conversation, error)
	SendMessage(ctx context.Context, message ChatMessage) (string, error)
}

const (
	ScopeProject = "project"
	ScopeGlobal  = "global"
)

type MemoryItem struct {
	ProjectID string   `json:"projectId,omitempty"`
	Scope     string   `json:"scope"`
	Content   string   `json:"content"`
	Source    string   `json:"source"`
	Tags      []string `json:"tags"`
}

// MemoryService is the memory collaborator. Save returns the stored item id.
type MemoryService interface {
	Save(ctx context.Context, item MemoryItem) (string, error)
}
