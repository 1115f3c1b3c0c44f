package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// RuleRepository handles automation rule database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const ruleColumns = `
			id
		  , name
		  , trigger_filter_json
		  , actions_json
		  , enabled
		  , created_at
		  , updated_at
`

// Create inserts a new rule. The full trigger is stored as JSON; trigger_type is kept in its
// own column for indexing.
func (r *RuleRepository) Create(ctx context.Context, rule *models.AutomationRule) error {
	triggerJSON, err := json.Marshal(rule.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := `
		INSERT INTO automation_rules (id, name, trigger_type, trigger_filter_json, actions_json,
enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		string(rule.Trigger.Type),
		triggerJSON,
		actionsJSON,
		rule.Enabled,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewRuleError("Create", rule.ID, persistence.ErrRuleAlreadyExists)
		}

		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// GetAll returns every rule, oldest first.
func (r *RuleRepository) GetAll(ctx context.Context) ([]*models.AutomationRule, error) {
	return r.query(ctx, "SELECT"+ruleColumns+"FROM automation_rules ORDER BY created_at ASC, id ASC")
}

func (r *RuleRepository) GetEnabled(ctx context.Context) ([]*models.AutomationRule, error) {
	return r.query(ctx, "SELECT"+ruleColumns+"FROM automation_rules WHERE enabled ORDER BY created_at ASC, id ASC")
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.AutomationRule, error) {
	row := r.db.QueryRowContext(ctx, "SELECT"+ruleColumns+"FROM automation_rules WHERE id = $1", id)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRuleError("GetByID", id, persistence.ErrRuleNotFound)
		}

		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	return rule, nil
}

func (r *RuleRepository) SetEnabled(ctx context.Context, id string, enabled bool) (*models.AutomationRule, error) {
	query := `
		UPDATE automation_rules SET enabled = $2, updated_at = $3
		WHERE id = $1
		RETURNING` + ruleColumns

	row := r.db.QueryRowContext(ctx, query, id, enabled, time.Now().UTC())

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRuleError("SetEnabled", id, persistence.ErrRuleNotFound)
		}

		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	return rule, nil
}

func (r *RuleRepository) query(ctx context.Context, query string, args ...any) ([]*models.AutomationRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	rules := make([]*models.AutomationRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func scanRule(row scanner) (*models.AutomationRule, error) {
	var (
		rule        models.AutomationRule
		triggerJSON []byte
		actionsJSON []byte
	)

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&triggerJSON,
		&actionsJSON,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(triggerJSON, &rule.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}

	err = json.Unmarshal(actionsJSON, &rule.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	rule.CreatedAt = rule.CreatedAt.UTC()
	rule.UpdatedAt = rule.UpdatedAt.UTC()

	return &rule, nil
}
