// Package approval gates sensitive actions behind a pending, approved or rejected request.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/otelhelper"
	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Gate drives the approval state machine over the approval repository.
type Gate struct {
	logger *slog.Logger
	repo   persistence.ApprovalRepository
	tracer trace.Tracer
}

// NewGate builds a gate. A nil tracer records nothing.
func NewGate(logger *slog.Logger, repo persistence.ApprovalRepository, tracer trace.Tracer) *Gate {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Gate{
		logger: logger.With("module", "approval_gate"),
		repo:   repo,
		tracer: tracer,
	}
}

// Request creates a pending request for a sensitive action and returns its id.
func (g *Gate) Request(ctx context.Context, actionType models.ActionType, payload map[string]any, requestedBy string) (string, error) {
	if !actionType.Sensitive() {
		return "", fmt.Errorf("%w: %s", ErrInvalidActionType, actionType)
	}

	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "approval.request",
		attribute.String(otelhelper.ActionTypeKey, string(actionType)),
	)
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to generate approval ID: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.ApprovalIDKey, id.String()))

	if payload == nil {
		payload = make(map[string]any)
	}

	request := &models.ApprovalRequest{
		ID:          id.String(),
		ActionType:  actionType,
		Payload:     payload,
		Status:      models.ApprovalPending,
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
	}

	err = g.repo.Create(ctx, request)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to create approval request: %w", err)
	}

	g.logger.InfoContext(ctx, "Approval requested",
		"approval_id", request.ID,
		"action_type", actionType,
		"requested_by", requestedBy,
	)

	return request.ID, nil
}

// EnsureApproved returns an *ApprovalRequiredError unless id names an approved request raised
// for one of the sensitive actions.
func (g *Gate) EnsureApproved(ctx context.Context, id string, sensitive []models.Action) error {
	if id == "" {
		return &ApprovalRequiredError{Reason: "no approval id presented"}
	}

	request, err := g.repo.GetByID(ctx, id)
	if err != nil {
		if persistence.IsApprovalNotFound(err) {
			return &ApprovalRequiredError{ApprovalID: id, Reason: "does not exist"}
		}

		return fmt.Errorf("failed to load approval request: %w", err)
	}

	if !Covers(request, sensitive) {
		return &ApprovalRequiredError{ApprovalID: id, Reason: "was raised for " + string(request.ActionType)}
	}

	if request.Status != models.ApprovalApproved {
		return &ApprovalRequiredError{ApprovalID: id, Reason: "is " + string(request.Status)}
	}

	return nil
}

// Covers reports whether request was raised for the type of one of the sensitive actions.
func Covers(request *models.ApprovalRequest, sensitive []models.Action) bool {
	for _, action := range sensitive {
		if action.Type == request.ActionType {
			return true
		}
	}

	return false
}

func (g *Gate) Approve(ctx context.Context, id, approver string) (*models.ApprovalRequest, error) {
	return g.resolve(ctx, id, models.ApprovalApproved, approver)
}

func (g *Gate) Reject(ctx context.Context, id, approver string) (*models.ApprovalRequest, error) {
	return g.resolve(ctx, id, models.ApprovalRejected, approver)
}

func (g *Gate) resolve(ctx context.Context, id string, status models.ApprovalStatus, approver string) (*models.ApprovalRequest, error) {
	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "approval.resolve",
		attribute.String(otelhelper.ApprovalIDKey, id),
		attribute.String(otelhelper.ApprovalStatusKey, string(status)),
	)
	defer span.End()

	request, err := g.repo.Resolve(ctx, id, status, approver, time.Now().UTC())
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	g.logger.InfoContext(ctx, "Approval resolved",
		"approval_id", id,
		"status", status,
		"approved_by", approver,
	)

	return request, nil
}

func (g *Gate) Get(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	return g.repo.GetByID(ctx, id)
}

// List returns requests in status, or all requests when status is empty.
func (g *Gate) List(ctx context.Context, status models.ApprovalStatus) ([]*models.ApprovalRequest, error) {
	return g.repo.List(ctx, status)
}
