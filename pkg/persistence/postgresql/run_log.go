package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/ruleforge/pkg/models"
)

// RunLogRepository handles run log database operations.
type RunLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRunLogRepository(db *sql.DB, logger *slog.Logger) *RunLogRepository {
	return &RunLogRepository{db: db, logger: logger}
}

func (r *RunLogRepository) Create(ctx context.Context, log *models.RunLog) error {
	query := `
		INSERT INTO run_logs (id, rule_id, event_key, status, output, attempts, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.RuleID,
		log.EventKey,
		string(log.Status),
		log.Output,
		log.Attempts,
		log.StartedAt,
		log.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run log: %w", err)
	}

	return nil
}

// List returns run logs matching filter, newest first.
func (r *RunLogRepository) List(ctx context.Context, filter models.RunLogFilter) ([]*models.RunLog, error) {
	var (
		where []string
		args  []any
	)

	if filter.RuleID != "" {
		args = append(args, filter.RuleID)
		where = append(where, "rule_id = $"+strconv.Itoa(len(args)))
	}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	if filter.Since != nil {
		args = append(args, *filter.Since)
		where = append(where, "started_at >= $"+strconv.Itoa(len(args)))
	}

	query := `
		SELECT
			id
		  , rule_id
		  , event_key
		  , status
		  , output
		  , attempts
		  , started_at
		  , finished_at
		FROM run_logs`

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY started_at DESC, id DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run logs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	logs := make([]*models.RunLog, 0)

	for rows.Next() {
		var (
			log    models.RunLog
			status string
		)

		err := rows.Scan(
			&log.ID,
			&log.RuleID,
			&log.EventKey,
			&status,
			&log.Output,
			&log.Attempts,
			&log.StartedAt,
			&log.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run log: %w", err)
		}

		log.Status = models.RunStatus(status)
		log.StartedAt = log.StartedAt.UTC()
		log.FinishedAt = log.FinishedAt.UTC()
		logs = append(logs, &log)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating run logs: %w", err)
	}

	return logs, nil
}
