package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ProcessedEventRepository stores idempotency markers keyed by event key.
type ProcessedEventRepository struct {
	db *sql.DB
}

func NewProcessedEventRepository(db *sql.DB) *ProcessedEventRepository {
	return &ProcessedEventRepository{db: db}
}

// MarkProcessed inserts key unless present. The primary key makes concurrent callers race
// safely: exactly one of them observes an inserted row.
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, key string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_key, processed_at) VALUES ($1, $2) ON CONFLICT (event_key) DO NOTHING",
		key, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s: %w", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

func (r *ProcessedEventRepository) IsProcessed(ctx context.Context, key string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_key = $1)", key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query event %s: %w", key, err)
	}

	return exists, nil
}
