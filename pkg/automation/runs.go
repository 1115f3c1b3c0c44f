package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/ruleforge/pkg/models"
)

// ListRunLogs returns run logs matching filter, newest first.
func (e *Engine) ListRunLogs(ctx context.Context, filter models.RunLogFilter) ([]*models.RunLog, error) {
	return e.persistence.RunLogRepository().List(ctx, filter)
}

// ListDeadLetters returns failed runs with the name of their rule, newest first.
func (e *Engine) ListDeadLetters(ctx context.Context, filter models.RunLogFilter) ([]*models.DeadLetter, error) {
	filter.Status = models.RunStatusFailed

	logs, err := e.persistence.RunLogRepository().List(ctx, filter)
	if err != nil {
		return nil, err
	}

	names, err := e.ruleNames(ctx)
	if err != nil {
		return nil, err
	}

	deadLetters := make([]*models.DeadLetter, 0, len(logs))
	for _, log := range logs {
		deadLetters = append(deadLetters, &models.DeadLetter{RunLog: *log, RuleName: names[log.RuleID]})
	}

	return deadLetters, nil
}

// IsEventProcessed reports whether key has already been consumed by a run.
func (e *Engine) IsEventProcessed(ctx context.Context, key string) (bool, error) {
	processed, err := e.persistence.ProcessedEventRepository().IsProcessed(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to look up event key: %w", err)
	}

	return processed, nil
}

// HealthFilter narrows a health summary to one rule and/or a time window.
type HealthFilter struct {
	RuleID string
	Since  *time.Time
}

// HealthSummary aggregates rule, run and approval counters.
func (e *Engine) HealthSummary(ctx context.Context, filter HealthFilter) (*models.HealthSummary, error) {
	rules, err := e.persistence.RuleRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	summary := &models.HealthSummary{}

	for _, rule := range rules {
		if filter.RuleID != "" && rule.ID != filter.RuleID {
			continue
		}

		summary.TotalRules++

		if rule.Enabled {
			summary.EnabledRules++
		}
	}

	logs, err := e.persistence.RunLogRepository().List(ctx, models.RunLogFilter{RuleID: filter.RuleID, Since: filter.Since})
	if err != nil {
		return nil, fmt.Errorf("failed to load run logs: %w", err)
	}

	for _, log := range logs {
		summary.TotalRuns++

		if log.Status == models.RunStatusSuccess {
			summary.SucceededRuns++
		} else {
			summary.FailedRuns++
		}

		if summary.LastRunAt == nil || log.StartedAt.After(*summary.LastRunAt) {
			started := log.StartedAt
			summary.LastRunAt = &started
		}
	}

	summary.DeadLetters = summary.FailedRuns

	if summary.TotalRuns > 0 {
		summary.SuccessRate = float64(summary.SucceededRuns) / float64(summary.TotalRuns)
	}

	pending, err := e.persistence.ApprovalRepository().List(ctx, models.ApprovalPending)
	if err != nil {
		return nil, fmt.Errorf("failed to load approvals: %w", err)
	}

	summary.PendingApprovals = len(pending)

	return summary, nil
}

func (e *Engine) ruleNames(ctx context.Context) (map[string]string, error) {
	rules, err := e.persistence.RuleRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	names := make(map[string]string, len(rules))
	for _, rule := range rules {
		names[rule.ID] = rule.Name
	}

	return names, nil
}
