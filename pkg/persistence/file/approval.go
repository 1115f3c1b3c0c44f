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

type ApprovalRepository struct {
	mu   sync.Mutex
	docs documents[models.ApprovalRequest]
}

func NewApprovalRepository(root string) *ApprovalRepository {
	return &ApprovalRepository{docs: documents[models.ApprovalRequest]{dir: filepath.Join(root, "approvals")}}
}

func (r *ApprovalRepository) Create(_ context.Context, request *models.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.docs.write(request.ID, request)
}

func (r *ApprovalRepository) GetByID(_ context.Context, id string) (*models.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.get("GetByID", id)
}

func (r *ApprovalRepository) get(op, id string) (*models.ApprovalRequest, error) {
	request, err := r.docs.read(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, persistence.ErrInvalidIdentifier) {
			return nil, persistence.NewApprovalError(op, id, persistence.ErrApprovalNotFound)
		}

		return nil, persistence.NewApprovalError(op, id, err)
	}

	return request, nil
}

func (r *ApprovalRepository) List(_ context.Context, status models.ApprovalStatus) ([]*models.ApprovalRequest, error) {
	r.mu.Lock()
	requests, err := r.docs.all()
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	matching := make([]*models.ApprovalRequest, 0, len(requests))

	for _, request := range requests {
		if status == "" || request.Status == status {
			matching = append(matching, request)
		}
	}

	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].RequestedAt.Before(matching[j].RequestedAt)
	})

	return matching, nil
}

func (r *ApprovalRepository) Resolve(
	_ context.Context,
	id string,
	status models.ApprovalStatus,
	approver string,
	at time.Time,
) (*models.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	request, err := r.get("Resolve", id)
	if err != nil {
		return nil, err
	}

	if request.Terminal() {
		return nil, persistence.NewApprovalError("Resolve", id, persistence.ErrApprovalAlreadyResolved)
	}

	request.Status = status
	request.ApprovedBy = approver
	request.ApprovedAt = &at

	err = r.docs.write(id, request)
	if err != nil {
		return nil, persistence.NewApprovalError("Resolve", id, err)
	}

	return request, nil
}
