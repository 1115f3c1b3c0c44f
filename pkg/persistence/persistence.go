// Package persistence provides the storage abstraction for rules, run logs, idempotency
// markers and approval requests.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/ruleforge/pkg/models"
)

type Persistence interface {
	RuleRepository() RuleRepository
	RunLogRepository() RunLogRepository
	ProcessedEventRepository() ProcessedEventRepository
	ApprovalRepository() ApprovalRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// RuleRepository stores automation rules. Rules are inserted once; only the enabled flag
// changes afterwards.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.AutomationRule) error
	GetAll(ctx context.Context) ([]*models.AutomationRule, error)
	GetEnabled(ctx context.Context) ([]*models.AutomationRule, error)
	GetByID(ctx context.Context, id string) (*models.AutomationRule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*models.AutomationRule, error)
}

// RunLogRepository is an append-only log of executions.
type RunLogRepository interface {
	Create(ctx context.Context, log *models.RunLog) error
	// List returns matching logs, newest first.
	List(ctx context.Context, filter models.RunLogFilter) ([]*models.RunLog, error)
}

// ProcessedEventRepository stores idempotency markers.
type ProcessedEventRepository interface {
	// MarkProcessed atomically inserts key and reports whether it was absent before.
	MarkProcessed(ctx context.Context, key string, at time.Time) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
}

type ApprovalRepository interface {
	Create(ctx context.Context, request *models.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error)
	// List returns requests in the given status (all when empty), oldest first.
	List(ctx context.Context, status models.ApprovalStatus) ([]*models.ApprovalRequest, error)
	// Resolve moves a pending request to status. It fails with ErrApprovalAlreadyResolved when
	// the request is no longer pending.
	Resolve(ctx context.Context, id string, status models.ApprovalStatus, approver string, at time.Time) (*models.ApprovalRequest, error)
}

type composite struct {
	Persistence

	processedEvents ProcessedEventRepository
}

// WithProcessedEvents returns base with its idempotency store replaced by repo.
func WithProcessedEvents(base Persistence, repo ProcessedEventRepository) Persistence {
	return &composite{Persistence: base, processedEvents: repo}
}

func (c *composite) ProcessedEventRepository() ProcessedEventRepository {
	return c.processedEvents
}

func (c *composite) HealthCheck(ctx context.Context) error {
	err := c.Persistence.HealthCheck(ctx)
	if err != nil {
		return err
	}

	if checker, ok := c.processedEvents.(interface{ HealthCheck(context.Context) error }); ok {
		return checker.HealthCheck(ctx)
	}

	return nil
}

func (c *composite) Close(ctx context.Context) error {
	err := c.Persistence.Close(ctx)

	if closer, ok := c.processedEvents.(interface{ Close(context.Context) error }); ok {
		closeErr := closer.Close(ctx)
		if err == nil {
			err = closeErr
		}
	}

	return err
}
