package collaborators

import (
	"context"
	"sync"

	"github.com/dukex/ruleforge/pkg/actions"
	"github.com/google/uuid"
)

// InMemoryChat keeps conversations and messages in process. It backs local runs without a
// chat service.
type InMemoryChat struct {
	mu            sync.Mutex
	conversations map[string]*actions.Conversation
	messages      []actions.ChatMessage
}

func NewInMemoryChat() *InMemoryChat {
	return &InMemoryChat{conversations: make(map[string]*actions.Conversation)}
}

func (c *InMemoryChat) FindConversationByProjectID(_ context.Context, projectID string) (*actions.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conversation, ok := c.conversations[projectID]
	if !ok {
		return nil, nil
	}

	found := *conversation

	return &found, nil
}

func (c *InMemoryChat) CreateSystemConversationForProject(_ context.Context, projectID string) (*actions.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conversation := &actions.Conversation{ID: uuid.NewString(), ProjectID: projectID, Title: "System"}
	c.conversations[projectID] = conversation

	created := *conversation

	return &created, nil
}

func (c *InMemoryChat) SendMessage(_ context.Context, message actions.ChatMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, message)

	return uuid.NewString(), nil
}

// Messages returns a copy of every message sent so far.
func (c *InMemoryChat) Messages() []actions.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]actions.ChatMessage, len(c.messages))
	copy(out, c.messages)

	return out
}

// InMemoryMemory keeps memory items in process.
type InMemoryMemory struct {
	mu    sync.Mutex
	items []actions.MemoryItem
}

func NewInMemoryMemory() *InMemoryMemory {
	return &InMemoryMemory{}
}

func (m *InMemoryMemory) Save(_ context.Context, item actions.MemoryItem) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, item)

	return uuid.NewString(), nil
}

func (m *InMemoryMemory) Items() []actions.MemoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]actions.MemoryItem, len(m.items))
	copy(out, m.items)

	return out
}
