// Package web provides the HTTP handlers of the automation API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/ruleforge/pkg/approval"
	"github.com/dukex/ruleforge/pkg/automation"
	"github.com/dukex/ruleforge/pkg/eventbus"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/metrics"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	logger      *slog.Logger
	engine      *automation.Engine
	gate        *approval.Gate
	publisher   eventbus.EventPublisher
	persistence persistence.Persistence
	metrics     *metrics.Metrics
	validator   *validator.Validate
}

// NewAPIHandlers builds the handlers. m may be nil when metrics are disabled.
func NewAPIHandlers(
	logger *slog.Logger,
	engine *automation.Engine,
	gate *approval.Gate,
	publisher eventbus.EventPublisher,
	persistence persistence.Persistence,
	m *metrics.Metrics,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger.With("module", "web"),
		engine:      engine,
		gate:        gate,
		publisher:   publisher,
		persistence: persistence,
		metrics:     m,
		validator:   validator,
	}
}

// Mount registers every route on router.
func (h *APIHandlers) Mount(router fiber.Router) {
	r := router.Group("/rules")
	r.Get("/", h.ListRules)
	r.Post("/", h.CreateRule)
	r.Get("/:id", h.GetRule)
	r.Patch("/:id", h.SetRuleEnabled)
	r.Post("/:id/test", h.TestRule)

	router.Get("/run-logs", h.ListRunLogs)
	router.Get("/dead-letters", h.ListDeadLetters)
	router.Get("/health-summary", h.HealthSummary)
	router.Get("/processed-events", h.GetProcessedEvent)

	a := router.Group("/approvals")
	a.Get("/", h.ListApprovals)
	a.Post("/", h.CreateApproval)
	a.Get("/:id", h.GetApproval)
	a.Post("/:id/approve", h.ApproveApproval)
	a.Post("/:id/reject", h.RejectApproval)

	router.Post("/events", h.PublishEvent)
	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	err := h.persistence.HealthCheck(c.Context())
	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"actions":    h.engine.Registry().Types(),
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) ListRules(c fiber.Ctx) error {
	rules, err := h.engine.ListRules(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(rules)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, err := h.engine.GetRuleByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	input := req.input()

	// Invalid rules are rejected before any approval request is raised for them.
	err := automation.ValidateRule(input, h.engine.Registry())
	if err != nil {
		return handleError(c, err)
	}

	err = h.requireApproval(c, models.SensitiveActions(input.Actions), bodySnapshot(c.Body()))
	if err != nil {
		return handleError(c, err)
	}

	rule, err := h.engine.CreateRule(c.Context(), input)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *APIHandlers) SetRuleEnabled(c fiber.Ctx) error {
	var req SetEnabledRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	rule, err := h.engine.SetRuleEnabled(c.Context(), c.Params("id"), *req.Enabled)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) TestRule(c fiber.Ctx) error {
	var req TestRuleRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	id := c.Params("id")

	rule, err := h.engine.GetRuleByID(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	snapshot := map[string]any{
		"ruleId":       id,
		"eventType":    req.EventType,
		"eventPayload": req.EventPayload,
	}

	err = h.requireApproval(c, rule.SensitiveActions(), snapshot)
	if err != nil {
		return handleError(c, err)
	}

	runLog, err := h.engine.TestRule(c.Context(), id, automation.TestRuleInput{
		EventType:    req.EventType,
		EventPayload: req.EventPayload,
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(runLog)
}

func (h *APIHandlers) ListRunLogs(c fiber.Ctx) error {
	filter, err := parseRunLogFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	logs, err := h.engine.ListRunLogs(c.Context(), filter)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(logs)
}

func (h *APIHandlers) ListDeadLetters(c fiber.Ctx) error {
	filter, err := parseRunLogFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	deadLetters, err := h.engine.ListDeadLetters(c.Context(), filter)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(deadLetters)
}

func (h *APIHandlers) HealthSummary(c fiber.Ctx) error {
	filter, err := parseRunLogFilter(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	summary, err := h.engine.HealthSummary(c.Context(), automation.HealthFilter{
		RuleID: filter.RuleID,
		Since:  filter.Since,
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(summary)
}

// GetProcessedEvent reports whether the idempotency key in the key query parameter was consumed.
func (h *APIHandlers) GetProcessedEvent(c fiber.Ctx) error {
	key := c.Query("key")
	if key == "" {
		return badRequest(c, "Query parameter key is required")
	}

	processed, err := h.engine.IsEventProcessed(c.Context(), key)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(ProcessedEventResponse{EventKey: key, Processed: processed})
}

// parseRunLogFilter reads rule_id, status, since (RFC 3339) and limit from the query string.
func parseRunLogFilter(c fiber.Ctx) (models.RunLogFilter, error) {
	filter := models.RunLogFilter{
		RuleID: c.Query("rule_id"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.RunStatus(statusStr)
		if status != models.RunStatusSuccess && status != models.RunStatusFailed {
			return filter, errors.New("status must be success or failed")
		}

		filter.Status = status
	}

	if sinceStr := c.Query("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return filter, err
		}

		filter.Since = &since
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return filter, err
		}

		if limit < 0 {
			return filter, errors.New("limit must not be negative")
		}

		filter.Limit = limit
	}

	return filter, nil
}

func (h *APIHandlers) ListApprovals(c fiber.Ctx) error {
	status := models.ApprovalStatus(c.Query("status"))

	requests, err := h.gate.List(c.Context(), status)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(requests)
}

func (h *APIHandlers) GetApproval(c fiber.Ctx) error {
	request, err := h.gate.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) CreateApproval(c fiber.Ctx) error {
	var req CreateApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	requestedBy := req.RequestedBy
	if requestedBy == "" {
		requestedBy = requester(c)
	}

	id, err := h.gate.Request(c.Context(), req.ActionType, req.Payload, requestedBy)
	if err != nil {
		return handleError(c, err)
	}

	h.countApproval()

	return c.Status(fiber.StatusCreated).JSON(ApprovalCreatedResponse{ID: id})
}

func (h *APIHandlers) ApproveApproval(c fiber.Ctx) error {
	return h.resolveApproval(c, h.gate.Approve)
}

func (h *APIHandlers) RejectApproval(c fiber.Ctx) error {
	return h.resolveApproval(c, h.gate.Reject)
}

func (h *APIHandlers) resolveApproval(
	c fiber.Ctx,
	resolve func(ctx context.Context, id, approver string) (*models.ApprovalRequest, error),
) error {
	var req ResolveApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request, err := resolve(c.Context(), c.Params("id"), req.Approver)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) PublishEvent(c fiber.Ctx) error {
	var req PublishEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := events.New(req.Type, req.Payload)
	event.CorrelationID = req.CorrelationID

	err := h.publisher.Publish(c.Context(), event)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(event)
}

// requireApproval lets the request through when no sensitive action is involved or when the
// headers present a confirmed, approved request raised for one of the sensitive action types. A
// presented request of a matching type that is still pending is handed back as is; otherwise a
// new pending request is raised for the first sensitive action.
func (h *APIHandlers) requireApproval(c fiber.Ctx, sensitive []models.Action, snapshot map[string]any) error {
	if len(sensitive) == 0 {
		return nil
	}

	ctx := c.Context()
	id := c.Get(HeaderApprovalID)
	confirmed := strings.EqualFold(c.Get(HeaderApprovalConfirmed), "true")

	if id != "" {
		if confirmed {
			err := h.gate.EnsureApproved(ctx, id, sensitive)
			if err == nil {
				return nil
			}

			if !approval.IsApprovalRequired(err) {
				return err
			}
		}

		existing, err := h.gate.Get(ctx, id)
		switch {
		case err == nil && !approval.Covers(existing, sensitive):
			h.logger.InfoContext(ctx, "Presented approval covers another action type",
				"approval_id", id,
				"approval_action_type", existing.ActionType,
			)
		case err == nil && existing.Status == models.ApprovalPending:
			return &approval.ApprovalRequiredError{ApprovalID: id, Reason: "is pending"}
		case err == nil && existing.Status == models.ApprovalApproved:
			return &approval.ApprovalRequiredError{ApprovalID: id, Reason: "is approved but not confirmed"}
		case err != nil && !approval.IsApprovalNotFound(err):
			return err
		}
	}

	newID, err := h.gate.Request(ctx, sensitive[0].Type, snapshot, requester(c))
	if err != nil {
		return err
	}

	h.countApproval()

	h.logger.InfoContext(ctx, "Sensitive action held for approval",
		"approval_id", newID,
		"action_type", sensitive[0].Type,
		"path", c.Path(),
	)

	return &approval.ApprovalRequiredError{ApprovalID: newID, Reason: "is pending"}
}

func (h *APIHandlers) countApproval() {
	if h.metrics != nil {
		h.metrics.ApprovalsRaised.Inc()
	}
}

func requester(c fiber.Ctx) string {
	if requestedBy := strings.TrimSpace(c.Get(HeaderRequestedBy)); requestedBy != "" {
		return requestedBy
	}

	return anonymousRequester
}

func bodySnapshot(body []byte) map[string]any {
	snapshot := make(map[string]any)

	err := json.Unmarshal(body, &snapshot)
	if err != nil {
		return map[string]any{"raw": string(body)}
	}

	return snapshot
}
