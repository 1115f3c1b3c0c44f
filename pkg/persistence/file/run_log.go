package file

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dukex/ruleforge/pkg/models"
)

// RunLogRepository stores one JSON file per run.
type RunLogRepository struct {
	mu   sync.Mutex
	docs documents[models.RunLog]
}

func NewRunLogRepository(root string) *RunLogRepository {
	return &RunLogRepository{docs: documents[models.RunLog]{dir: filepath.Join(root, "run_logs")}}
}

func (r *RunLogRepository) Create(_ context.Context, log *models.RunLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.docs.write(log.ID, log)
}

func (r *RunLogRepository) List(_ context.Context, filter models.RunLogFilter) ([]*models.RunLog, error) {
	r.mu.Lock()
	logs, err := r.docs.all()
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	matching := make([]*models.RunLog, 0, len(logs))

	for _, log := range logs {
		if filter.Matches(log) {
			matching = append(matching, log)
		}
	}

	sort.SliceStable(matching, func(i, j int) bool {
		if matching[i].StartedAt.Equal(matching[j].StartedAt) {
			return matching[i].ID > matching[j].ID
		}

		return matching[i].StartedAt.After(matching[j].StartedAt)
	})

	if filter.Limit > 0 && len(matching) > filter.Limit {
		matching = matching[:filter.Limit]
	}

	return matching, nil
}
