// Package redis provides a Redis-backed idempotency store. It replaces the processed event
// repository of another persistence backend so several API instances can share markers.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every idempotency marker.
const KeyPrefix = "ruleforge:processed:"

// ProcessedEventRepository marks idempotency keys with SETNX.
type ProcessedEventRepository struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewProcessedEventRepository connects to the Redis server at url (redis://[:password@]host:port/db).
func NewProcessedEventRepository(ctx context.Context, logger *slog.Logger, url string) (*ProcessedEventRepository, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewProcessedEventRepositoryWithClient(client, logger), nil
}

// NewProcessedEventRepositoryWithClient wraps an existing client.
func NewProcessedEventRepositoryWithClient(client redis.UniversalClient, logger *slog.Logger) *ProcessedEventRepository {
	return &ProcessedEventRepository{client: client, logger: logger}
}

// MarkProcessed stores the marker without expiry. SETNX guarantees a single winner.
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, key string, at time.Time) (bool, error) {
	inserted, err := r.client.SetNX(ctx, KeyPrefix+key, at.UTC().Format(time.RFC3339Nano), 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s: %w", key, err)
	}

	return inserted, nil
}

func (r *ProcessedEventRepository) IsProcessed(ctx context.Context, key string) (bool, error) {
	err := r.client.Get(ctx, KeyPrefix+key).Err()
	if err == nil {
		return true, nil
	}

	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	return false, fmt.Errorf("failed to query event %s: %w", key, err)
}

func (r *ProcessedEventRepository) HealthCheck(ctx context.Context) error {
	err := r.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	return nil
}

func (r *ProcessedEventRepository) Close(_ context.Context) error {
	err := r.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}
