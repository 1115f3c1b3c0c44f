package collaborators

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukex/ruleforge/pkg/actions"
)

// MemoryClient talks to the memory service over HTTP.
type MemoryClient struct {
	client
}

func NewMemoryClient(baseURL string, logger *slog.Logger) *MemoryClient {
	return &MemoryClient{client: newClient(baseURL, logger.With("module", "memory_client"))}
}

func (c *MemoryClient) Save(ctx context.Context, item actions.MemoryItem) (string, error) {
	var created struct {
		ID string `json:"id"`
	}

	err := c.do(ctx, http.MethodPost, "/memories", item, &created)
	if err != nil {
		return "", err
	}

	return created.ID, nil
}
