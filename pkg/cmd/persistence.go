// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/dukex/ruleforge/pkg/persistence/file"
	"github.com/dukex/ruleforge/pkg/persistence/postgresql"
	"github.com/dukex/ruleforge/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql"}

// NewPersistence opens the store named by databaseURL (file://dir or postgres://...). When
// idempotencyStoreURL is set, processed event markers live in that redis instance instead.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL, idempotencyStoreURL string) (persistence.Persistence, error) {
	var base persistence.Persistence

	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		base = p
	default:
		base = file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}

	if idempotencyStoreURL == "" {
		return base, nil
	}

	processed, err := redis.NewProcessedEventRepository(ctx, logger, idempotencyStoreURL)
	if err != nil {
		_ = base.Close(ctx)

		return nil, fmt.Errorf("failed to open idempotency store: %w", err)
	}

	return persistence.WithProcessedEvents(base, processed), nil
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
