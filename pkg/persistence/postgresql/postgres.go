// Package postgresql provides PostgreSQL persistence for automation rules, run logs,
// idempotency markers and approvals.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/dukex/ruleforge/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db              *sql.DB
	logger          *slog.Logger
	ruleRepo        *RuleRepository
	runLogRepo      *RunLogRepository
	processedEvents *ProcessedEventRepository
	approvalRepo    *ApprovalRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:              database,
		logger:          logger,
		ruleRepo:        NewRuleRepository(database, logger),
		runLogRepo:      NewRunLogRepository(database, logger),
		processedEvents: NewProcessedEventRepository(database),
		approvalRepo:    NewApprovalRepository(database, logger),
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) RuleRepository() persistence.RuleRepository {
	return p.ruleRepo
}

func (p *Persistence) RunLogRepository() persistence.RunLogRepository {
	return p.runLogRepo
}

func (p *Persistence) ProcessedEventRepository() persistence.ProcessedEventRepository {
	return p.processedEvents
}

func (p *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return p.approvalRepo
}

type scanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
