package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/dukex/ruleforge/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"run_logs", "processed_events", "approvals", "automation_rules", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("ruleforge_test"),
			postgres.WithUsername("ruleforge"),
			postgres.WithPassword("ruleforge"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func newRule(name string, createdAt time.Time) *models.AutomationRule {
	return &models.AutomationRule{
		ID:   uuid.NewString(),
		Name: name,
		Trigger: models.Trigger{
			Type:   events.TaskCreated,
			Filter: map[string]string{"projectId": "p1"},
			Conditions: []models.Condition{
				{Field: "priority", Operator: models.OpGte, Value: float64(3)},
			},
			Mode: models.ModeOr,
		},
		Actions: []models.Action{
			{Type: models.ActionPostChatMessage, Payload: map[string]any{"content": "hi"}},
		},
		Enabled:   true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"automation_rules", "run_logs", "processed_events", "approvals", "schema_migrations"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestRuleRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RuleRepository()

	base := time.Now().UTC().Truncate(time.Millisecond)
	first := newRule("first", base)
	second := newRule("second", base.Add(time.Second))
	second.Enabled = false

	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, first)
	assert.ErrorIs(t, err, persistence.ErrRuleAlreadyExists)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Name)
	assert.Equal(t, models.ModeOr, all[0].Trigger.Mode)
	assert.Equal(t, "p1", all[0].Trigger.Filter["projectId"])
	assert.Equal(t, models.OpGte, all[0].Trigger.Conditions[0].Operator)
	assert.Equal(t, "hi", all[0].Actions[0].Payload["content"])

	enabled, err := repo.GetEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, first.ID, enabled[0].ID)

	updated, err := repo.SetEnabled(ctx, second.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Enabled)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, persistence.IsRuleNotFound(err))

	_, err = repo.SetEnabled(ctx, "missing", true)
	assert.True(t, persistence.IsRuleNotFound(err))
}

func TestRunLogRepository_List(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	rule := newRule("rule", time.Now().UTC())
	require.NoError(t, p.RuleRepository().Create(ctx, rule))

	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, status := range []models.RunStatus{models.RunStatusSuccess, models.RunStatusFailed, models.RunStatusSuccess} {
		started := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, p.RunLogRepository().Create(ctx, &models.RunLog{
			ID:         uuid.NewString(),
			RuleID:     rule.ID,
			EventKey:   "key",
			Status:     status,
			Output:     "out",
			Attempts:   i + 1,
			StartedAt:  started,
			FinishedAt: started,
		}))
	}

	logs, err := p.RunLogRepository().List(ctx, models.RunLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, 3, logs[0].Attempts)

	failed, err := p.RunLogRepository().List(ctx, models.RunLogFilter{RuleID: rule.ID, Status: models.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].Attempts)

	since := base.Add(30 * time.Second)
	limited, err := p.RunLogRepository().List(ctx, models.RunLogFilter{Since: &since, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, 3, limited[0].Attempts)
}

func TestProcessedEventRepository_MarkProcessedIsAtomic(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ProcessedEventRepository()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ok, err := repo.MarkProcessed(ctx, "rule:task_created:p1:t1:abc", time.Now().UTC())
			assert.NoError(t, err)

			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, inserted)

	processed, err := repo.IsProcessed(ctx, "rule:task_created:p1:t1:abc")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = repo.IsProcessed(ctx, "other")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestApprovalRepository_Resolve(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ApprovalRepository()

	request := &models.ApprovalRequest{
		ID:          uuid.NewString(),
		ActionType:  models.ActionShellExecution,
		Payload:     map[string]any{"command": "ls"},
		Status:      models.ApprovalPending,
		RequestedBy: "alice",
		RequestedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, request))

	pending, err := repo.List(ctx, models.ApprovalPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ls", pending[0].Payload["command"])

	resolved, err := repo.Resolve(ctx, request.ID, models.ApprovalApproved, "bob", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, resolved.Status)
	assert.Equal(t, "bob", resolved.ApprovedBy)
	require.NotNil(t, resolved.ApprovedAt)

	_, err = repo.Resolve(ctx, request.ID, models.ApprovalRejected, "carol", time.Now().UTC())
	assert.True(t, persistence.IsApprovalAlreadyResolved(err))

	_, err = repo.Resolve(ctx, "missing", models.ApprovalApproved, "bob", time.Now().UTC())
	assert.True(t, persistence.IsApprovalNotFound(err))

	pending, err = repo.List(ctx, models.ApprovalPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
