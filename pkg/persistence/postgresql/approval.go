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
)

// ApprovalRepository handles approval request database operations.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewApprovalRepository(db *sql.DB, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

const approvalColumns = `
			id
		  , action_type
		  , payload_json
		  , status
		  , requested_by
		  , approved_by
		  , requested_at
		  , approved_at
`

func (r *ApprovalRepository) Create(ctx context.Context, request *models.ApprovalRequest) error {
	payloadJSON, err := json.Marshal(request.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO approvals (id, action_type, payload_json, status, requested_by, approved_by,
requested_at, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		request.ID,
		string(request.ActionType),
		payloadJSON,
		string(request.Status),
		request.RequestedBy,
		sql.NullString{String: request.ApprovedBy, Valid: request.ApprovedBy != ""},
		request.RequestedAt,
		request.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert approval request: %w", err)
	}

	return nil
}

func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	row := r.db.QueryRowContext(ctx, "SELECT"+approvalColumns+"FROM approvals WHERE id = $1", id)

	request, err := scanApproval(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewApprovalError("GetByID", id, persistence.ErrApprovalNotFound)
		}

		return nil, fmt.Errorf("failed to scan approval request: %w", err)
	}

	return request, nil
}

func (r *ApprovalRepository) List(ctx context.Context, status models.ApprovalStatus) ([]*models.ApprovalRequest, error) {
	query := "SELECT" + approvalColumns + "FROM approvals"

	var args []any

	if status != "" {
		query += " WHERE status = $1"

		args = append(args, string(status))
	}

	query += " ORDER BY requested_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval requests: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	requests := make([]*models.ApprovalRequest, 0)

	for rows.Next() {
		request, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}

		requests = append(requests, request)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating approval requests: %w", err)
	}

	return requests, nil
}

// Resolve transitions a pending request. The status guard in the WHERE clause keeps the
// transition single-shot under concurrent resolvers.
func (r *ApprovalRepository) Resolve(
	ctx context.Context,
	id string,
	status models.ApprovalStatus,
	approver string,
	at time.Time,
) (*models.ApprovalRequest, error) {
	query := `
		UPDATE approvals SET status = $2, approved_by = $3, approved_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING` + approvalColumns

	row := r.db.QueryRowContext(ctx, query, id, string(status), approver, at)

	request, err := scanApproval(row)
	if err == nil {
		return request, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to resolve approval request: %w", err)
	}

	_, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, persistence.NewApprovalError("Resolve", id, err)
	}

	return nil, persistence.NewApprovalError("Resolve", id, persistence.ErrApprovalAlreadyResolved)
}

func scanApproval(row scanner) (*models.ApprovalRequest, error) {
	var (
		request     models.ApprovalRequest
		actionType  string
		status      string
		payloadJSON []byte
		approvedBy  sql.NullString
		approvedAt  sql.NullTime
	)

	err := row.Scan(
		&request.ID,
		&actionType,
		&payloadJSON,
		&status,
		&request.RequestedBy,
		&approvedBy,
		&request.RequestedAt,
		&approvedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(payloadJSON, &request.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	request.ActionType = models.ActionType(actionType)
	request.Status = models.ApprovalStatus(status)
	request.ApprovedBy = approvedBy.String
	request.RequestedAt = request.RequestedAt.UTC()

	if approvedAt.Valid {
		resolved := approvedAt.Time.UTC()
		request.ApprovedAt = &resolved
	}

	return &request, nil
}
