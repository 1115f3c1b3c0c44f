package file_test

import (
	"testing"
	"time"

	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/dukex/ruleforge/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRule(id string, createdAt time.Time, enabled bool) *models.AutomationRule {
	return &models.AutomationRule{
		ID:        id,
		Name:      "rule " + id,
		Trigger:   models.Trigger{Type: events.TaskCreated, Filter: map[string]string{"projectId": "p1"}},
		Actions:   []models.Action{{Type: models.ActionSaveMemory, Payload: map[string]any{"maxAttempts": 2}}},
		Enabled:   enabled,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := file.NewPersistence("file://" + t.TempDir())
	assert.NoError(t, p.HealthCheck(t.Context()))

	missing := file.NewPersistence(t.TempDir() + "/missing")
	assert.Error(t, missing.HealthCheck(t.Context()))
}

func TestRuleRepository_CreateAndRead(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	repo := p.RuleRepository()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(t.Context(), newRule("b", now, true)))
	require.NoError(t, repo.Create(t.Context(), newRule("a", now.Add(-time.Hour), false)))

	err := repo.Create(t.Context(), newRule("a", now, true))
	assert.ErrorIs(t, err, persistence.ErrRuleAlreadyExists)

	all, err := repo.GetAll(t.Context())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID, "oldest first")

	enabled, err := repo.GetEnabled(t.Context())
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "b", enabled[0].ID)

	rule, err := repo.GetByID(t.Context(), "b")
	require.NoError(t, err)
	assert.Equal(t, "p1", rule.Trigger.Filter["projectId"])
	assert.InDelta(t, 2, rule.Actions[0].Payload["maxAttempts"], 0)

	_, err = repo.GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsRuleNotFound(err))

	_, err = repo.GetByID(t.Context(), "../escape")
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRuleRepository_SetEnabled(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	repo := p.RuleRepository()

	require.NoError(t, repo.Create(t.Context(), newRule("r1", time.Now().UTC(), true)))

	rule, err := repo.SetEnabled(t.Context(), "r1", false)
	require.NoError(t, err)
	assert.False(t, rule.Enabled)

	enabled, err := repo.GetEnabled(t.Context())
	require.NoError(t, err)
	assert.Empty(t, enabled)

	_, err = repo.SetEnabled(t.Context(), "nope", true)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRunLogRepository_List(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	repo := p.RunLogRepository()
	base := time.Now().UTC()

	logs := []*models.RunLog{
		{ID: "l1", RuleID: "r1", Status: models.RunStatusSuccess, StartedAt: base.Add(-3 * time.Minute)},
		{ID: "l2", RuleID: "r1", Status: models.RunStatusFailed, StartedAt: base.Add(-2 * time.Minute)},
		{ID: "l3", RuleID: "r2", Status: models.RunStatusFailed, StartedAt: base.Add(-1 * time.Minute)},
	}
	for _, log := range logs {
		require.NoError(t, repo.Create(t.Context(), log))
	}

	all, err := repo.List(t.Context(), models.RunLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "l3", all[0].ID, "newest first")

	failed, err := repo.List(t.Context(), models.RunLogFilter{Status: models.RunStatusFailed, Limit: 1})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "l3", failed[0].ID)

	byRule, err := repo.List(t.Context(), models.RunLogFilter{RuleID: "r1"})
	require.NoError(t, err)
	assert.Len(t, byRule, 2)
}

func TestProcessedEventRepository_MarkProcessed(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	repo := p.ProcessedEventRepository()
	key := "rule-1:task_created:p1:t1:0123456789abcdef"

	processed, err := repo.IsProcessed(t.Context(), key)
	require.NoError(t, err)
	assert.False(t, processed)

	inserted, err := repo.MarkProcessed(t.Context(), key, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.MarkProcessed(t.Context(), key, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, inserted, "second mark must report an existing key")

	processed, err = repo.IsProcessed(t.Context(), key)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestApprovalRepository_Resolve(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	repo := p.ApprovalRepository()
	now := time.Now().UTC()

	request := &models.ApprovalRequest{
		ID:          "ap-1",
		ActionType:  models.ActionShellExecution,
		Payload:     map[string]any{"command": "ls"},
		Status:      models.ApprovalPending,
		RequestedBy: "alice",
		RequestedAt: now,
	}
	require.NoError(t, repo.Create(t.Context(), request))

	pending, err := repo.List(t.Context(), models.ApprovalPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	resolved, err := repo.Resolve(t.Context(), "ap-1", models.ApprovalApproved, "bob", now)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, resolved.Status)
	assert.Equal(t, "bob", resolved.ApprovedBy)
	require.NotNil(t, resolved.ApprovedAt)

	_, err = repo.Resolve(t.Context(), "ap-1", models.ApprovalRejected, "carol", now)
	assert.True(t, persistence.IsApprovalAlreadyResolved(err))

	_, err = repo.Resolve(t.Context(), "missing", models.ApprovalRejected, "carol", now)
	assert.True(t, persistence.IsApprovalNotFound(err))

	pending, err = repo.List(t.Context(), models.ApprovalPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
