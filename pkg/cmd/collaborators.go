package cmd

import (
	"log/slog"

	"github.com/dukex/ruleforge/pkg/actions"
	"github.com/dukex/ruleforge/pkg/collaborators"
)

// NewRegistry wires the action executors to the chat and memory services. An empty URL selects
// the in-process implementation.
func NewRegistry(logger *slog.Logger, chatServiceURL, memoryServiceURL string) *actions.Registry {
	var (
		chat   actions.ChatService   = collaborators.NewInMemoryChat()
		memory actions.MemoryService = collaborators.NewInMemoryMemory()
	)

	if chatServiceURL != "" {
		chat = collaborators.NewChatClient(chatServiceURL, logger)
	} else {
		logger.Warn("No chat service configured, chat messages stay in process")
	}

	if memoryServiceURL != "" {
		memory = collaborators.NewMemoryClient(memoryServiceURL, logger)
	} else {
		logger.Warn("No memory service configured, memories stay in process")
	}

	return actions.NewDefaultRegistry(chat, memory)
}
