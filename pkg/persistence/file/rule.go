package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/persistence"
)

// RuleRepository handles rule-related file operations.
type RuleRepository struct {
	mu   sync.Mutex
	docs documents[models.AutomationRule]
}

func NewRuleRepository(root string) *RuleRepository {
	return &RuleRepository{docs: documents[models.AutomationRule]{dir: filepath.Join(root, "automation_rules")}}
}

func (r *RuleRepository) Create(_ context.Context, rule *models.AutomationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.docs.exists(rule.ID) {
		return persistence.NewRuleError("Create", rule.ID, persistence.ErrRuleAlreadyExists)
	}

	return r.docs.write(rule.ID, rule)
}

// GetAll returns every rule, oldest first.
func (r *RuleRepository) GetAll(_ context.Context) ([]*models.AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rules, err := r.docs.all()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].ID < rules[j].ID
		}

		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	return rules, nil
}

func (r *RuleRepository) GetEnabled(ctx context.Context) ([]*models.AutomationRule, error) {
	rules, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	enabled := make([]*models.AutomationRule, 0, len(rules))

	for _, rule := range rules {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}

	return enabled, nil
}

func (r *RuleRepository) GetByID(_ context.Context, id string) (*models.AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.get("GetByID", id)
}

func (r *RuleRepository) get(op, id string) (*models.AutomationRule, error) {
	rule, err := r.docs.read(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, persistence.ErrInvalidIdentifier) {
			return nil, persistence.NewRuleError(op, id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewRuleError(op, id, err)
	}

	return rule, nil
}

func (r *RuleRepository) SetEnabled(_ context.Context, id string, enabled bool) (*models.AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, err := r.get("SetEnabled", id)
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled
	rule.UpdatedAt = time.Now().UTC()

	err = r.docs.write(id, rule)
	if err != nil {
		return nil, persistence.NewRuleError("SetEnabled", id, err)
	}

	return rule, nil
}
