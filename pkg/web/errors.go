package web

import (
	"errors"

	"github.com/dukex/ruleforge/pkg/approval"
	"github.com/dukex/ruleforge/pkg/automation"
	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

type validationProblem struct {
	*problems.DefaultProblem

	Violations []automation.Violation `json:"violations"`
}

type approvalProblem struct {
	*problems.DefaultProblem

	ApprovalID string `json:"approval_id"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func approvalRequired(c fiber.Ctx, err *approval.ApprovalRequiredError) error {
	problem := approvalProblem{
		DefaultProblem: problems.NewStatusProblem(428).
			WithInstance(c.Path()).
			WithType("approval_required").
			WithDetail(err.Error()),
		ApprovalID: err.ApprovalID,
	}

	return c.Status(fiber.StatusPreconditionRequired).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleError maps engine and approval errors to problem responses.
func handleError(c fiber.Ctx, err error) error {
	var (
		validationErr *automation.ValidationError
		approvalErr   *approval.ApprovalRequiredError
	)

	switch {
	case errors.As(err, &validationErr):
		problem := validationProblem{
			DefaultProblem: problems.NewStatusProblem(400).
				WithInstance(c.Path()).
				WithType("validation_error").
				WithDetail(err.Error()),
			Violations: validationErr.Violations,
		}

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case errors.As(err, &approvalErr):
		return approvalRequired(c, approvalErr)

	case errors.Is(err, approval.ErrInvalidActionType):
		return badRequest(c, err.Error())

	case automation.IsRuleNotFound(err):
		return notFound(c, "rule_not_found", "automation rule not found")

	case approval.IsApprovalNotFound(err):
		return notFound(c, "approval_not_found", "approval request not found")

	case approval.IsApprovalNotPending(err):
		return conflict(c, "approval request already resolved")

	case errors.Is(err, persistence.ErrRuleAlreadyExists):
		return conflict(c, "automation rule already exists")

	default:
		return internalError(c, err)
	}
}
