package models

import "time"

type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunLog records one execution of a rule. Append-only.
type RunLog struct {
	ID         string    `json:"id"`
	RuleID     string    `json:"rule_id"`
	EventKey   string    `json:"event_key"`
	Status     RunStatus `json:"status"`
	Output     string    `json:"output"`
	Attempts   int       `json:"attempts"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ProcessedEvent marks an idempotency key as consumed. Append-only.
type ProcessedEvent struct {
	EventKey    string    `json:"event_key"`
	ProcessedAt time.Time `json:"processed_at"`
}

// DeadLetter is a failed run kept for operator inspection.
type DeadLetter struct {
	RunLog

	RuleName string `json:"rule_name"`
}

// RunLogFilter narrows run log listings. Zero values mean "any".
type RunLogFilter struct {
	RuleID string
	Status RunStatus
	Since  *time.Time
	Limit  int
}

// Matches reports whether log satisfies every filter criterion except Limit.
func (f RunLogFilter) Matches(log *RunLog) bool {
	if f.RuleID != "" && log.RuleID != f.RuleID {
		return false
	}

	if f.Status != "" && log.Status != f.Status {
		return false
	}

	if f.Since != nil && log.StartedAt.Before(*f.Since) {
		return false
	}

	return true
}

// HealthSummary aggregates automation activity.
type HealthSummary struct {
	TotalRules       int        `json:"total_rules"`
	EnabledRules     int        `json:"enabled_rules"`
	TotalRuns        int        `json:"total_runs"`
	SucceededRuns    int        `json:"succeeded_runs"`
	FailedRuns       int        `json:"failed_runs"`
	SuccessRate      float64    `json:"success_rate"`
	DeadLetters      int        `json:"dead_letters"`
	PendingApprovals int        `json:"pending_approvals"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
}
