// Package automation implements the rule engine: trigger matching, idempotent execution with
// bounded retries, run logs and the dead-letter listing.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukex/ruleforge/pkg/actions"
	"github.com/dukex/ruleforge/pkg/eventbus"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/otelhelper"
	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Engine owns rule lifecycle and execution. It keeps no rule cache: every event reads the
// enabled rules through the repository.
type Engine struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *actions.Registry
	bus         eventbus.EventBus
	tracer      trace.Tracer

	mu           sync.Mutex
	unsubscribes []func()
}

func NewEngine(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *actions.Registry,
	bus eventbus.EventBus,
	tracer trace.Tracer,
) *Engine {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Engine{
		logger:      logger.With("module", "automation_engine"),
		persistence: persistence,
		registry:    registry,
		bus:         bus,
		tracer:      tracer,
	}
}

// Registry returns the executors the engine dispatches to.
func (e *Engine) Registry() *actions.Registry {
	return e.registry
}

// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func (e *Engine) Tracer() trace.Tracer {
	return e.tracer
}

// Start subscribes the engine to every trigger event type.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, eventType := range TriggerEventTypes() {
		e.unsubscribes = append(e.unsubscribes, e.bus.Subscribe(eventType, e.HandleEvent))
	}

	e.logger.InfoContext(ctx, "Automation engine subscribed", "event_types", TriggerEventTypes())
}

// Stop removes the engine's subscriptions.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, unsubscribe := range e.unsubscribes {
		unsubscribe()
	}

	e.unsubscribes = nil

	e.logger.InfoContext(ctx, "Automation engine unsubscribed")
}

// CreateRule validates and persists a new rule.
func (e *Engine) CreateRule(ctx context.Context, input CreateRuleInput) (*models.AutomationRule, error) {
	err := ValidateRule(input, e.registry)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate rule ID: %w", err)
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	now := time.Now().UTC()

	rule := &models.AutomationRule{
		ID:        id.String(),
		Name:      strings.TrimSpace(input.Name),
		Trigger:   input.Trigger,
		Actions:   input.Actions,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = e.persistence.RuleRepository().Create(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	e.logger.InfoContext(ctx, "Automation rule created",
		"rule_id", rule.ID,
		"name", rule.Name,
		"trigger_type", rule.Trigger.Type,
		"actions", len(rule.Actions),
	)

	return rule, nil
}

// ListRules returns every rule, oldest first.
func (e *Engine) ListRules(ctx context.Context) ([]*models.AutomationRule, error) {
	return e.persistence.RuleRepository().GetAll(ctx)
}

func (e *Engine) GetRuleByID(ctx context.Context, id string) (*models.AutomationRule, error) {
	return e.persistence.RuleRepository().GetByID(ctx, id)
}

// SetRuleEnabled toggles a rule. It is the only mutation a rule accepts after creation.
func (e *Engine) SetRuleEnabled(ctx context.Context, id string, enabled bool) (*models.AutomationRule, error) {
	rule, err := e.persistence.RuleRepository().SetEnabled(ctx, id, enabled)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Automation rule toggled", "rule_id", id, "enabled", enabled)

	return rule, nil
}

// TestRuleInput describes the synthetic event of a manual run. EventType defaults to the rule's
// trigger type.
type TestRuleInput struct {
	EventType    events.EventType `json:"eventType,omitempty"`
	EventPayload map[string]any   `json:"eventPayload,omitempty"`
}

// TestRule executes the rule unconditionally against a synthetic event. Its idempotency key
// carries a manual suffix so it never suppresses a live occurrence.
func (e *Engine) TestRule(ctx context.Context, ruleID string, input TestRuleInput) (*models.RunLog, error) {
	rule, err := e.persistence.RuleRepository().GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	eventType := input.EventType
	if eventType == "" {
		eventType = rule.Trigger.Type
	}

	event := events.New(eventType, input.EventPayload)

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate manual run ID: %w", err)
	}

	key := ManualKey(IdempotencyKey(rule.ID, event), runID.String())

	_, err = e.persistence.ProcessedEventRepository().MarkProcessed(ctx, key, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark manual run: %w", err)
	}

	e.logger.InfoContext(ctx, "Testing automation rule", "rule_id", rule.ID, "event_type", eventType)

	return e.execute(ctx, rule, event, key)
}

// HandleEvent runs every enabled rule matching event at most once per idempotency key.
// Failures are logged and contained, so the bus always sees a nil error.
func (e *Engine) HandleEvent(ctx context.Context, event events.DomainEvent) error {
	logger := e.logger.With("event_type", event.Type, "correlation_id", event.CorrelationID)

	rules, err := e.persistence.RuleRepository().GetEnabled(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load enabled rules", "error", err)

		return nil
	}

	for _, rule := range rules {
		if !Matches(rule, event) {
			continue
		}

		key := IdempotencyKey(rule.ID, event)

		inserted, err := e.persistence.ProcessedEventRepository().MarkProcessed(ctx, key, time.Now().UTC())
		if err != nil {
			logger.ErrorContext(ctx, "Failed to mark event as processed", "rule_id", rule.ID, "event_key", key, "error", err)

			continue
		}

		if !inserted {
			logger.DebugContext(ctx, "Skipping already processed event", "rule_id", rule.ID, "event_key", key)

			continue
		}

		runLog, err := e.execute(ctx, rule, event, key)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to record rule execution", "rule_id", rule.ID, "event_key", key, "error", err)

			continue
		}

		if runLog.Status == models.RunStatusFailed {
			logger.WarnContext(ctx, "Automation rule failed",
				"rule_id", rule.ID,
				"run_log_id", runLog.ID,
				"attempts", runLog.Attempts,
				"output", runLog.Output,
			)
		}
	}

	return nil
}

// execute runs the rule's actions in order under their retry budgets, appends the run log and
// announces it. The returned error only reports bookkeeping failures; a failed run is reported
// through the run log status.
func (e *Engine) execute(ctx context.Context, rule *models.AutomationRule, event events.DomainEvent, key string) (*models.RunLog, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "automation.rule.execute",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.RuleNameKey, rule.Name),
		attribute.String(otelhelper.EventTypeKey, string(event.Type)),
		attribute.String(otelhelper.EventKeyKey, key),
	)
	defer span.End()

	runLog := &models.RunLog{
		RuleID:    rule.ID,
		EventKey:  key,
		Status:    models.RunStatusSuccess,
		StartedAt: time.Now().UTC(),
	}

	outputs := make([]string, 0, len(rule.Actions))

	for i, action := range rule.Actions {
		result := e.runAction(ctx, rule, event, i, action)
		runLog.Attempts += result.Attempts

		if result.Err != nil {
			runLog.Status = models.RunStatusFailed
			outputs = append(outputs, fmt.Sprintf("action %d (%s) failed after %d attempt(s): %v",
				i, action.Type, result.Attempts, result.Err))

			otelhelper.SetError(span, result.Err,
				attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
				attribute.Int(otelhelper.ActionIndexKey, i),
			)

			break
		}

		outputs = append(outputs, result.Output)
	}

	runLog.Output = strings.Join(outputs, "\n")
	runLog.FinishedAt = time.Now().UTC()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run log ID: %w", err)
	}

	runLog.ID = id.String()

	span.SetAttributes(
		attribute.String(otelhelper.RunLogIDKey, runLog.ID),
		attribute.String(otelhelper.RunStatusKey, string(runLog.Status)),
	)

	err = e.persistence.RunLogRepository().Create(ctx, runLog)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to save run log: %w", err)
	}

	executed := events.RuleExecuted{
		RunLogID: runLog.ID,
		RuleID:   rule.ID,
		Status:   string(runLog.Status),
		EventKey: key,
	}.Event()
	executed.CorrelationID = event.CorrelationID

	err = e.bus.Publish(ctx, executed)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish rule execution", "run_log_id", runLog.ID, "error", err)
	}

	e.logger.InfoContext(ctx, "Automation rule executed",
		"rule_id", rule.ID,
		"run_log_id", runLog.ID,
		"status", runLog.Status,
		"attempts", runLog.Attempts,
	)

	return runLog, nil
}

func (e *Engine) runAction(ctx context.Context, rule *models.AutomationRule, event events.DomainEvent, index int, action models.Action) RetryResult {
	executor, ok := e.registry.Get(action.Type)
	if !ok {
		return RetryResult{Attempts: 1, Err: fmt.Errorf("%w: %s", ErrUnknownActionType, action.Type)}
	}

	input := actions.ExecutionInput{Rule: rule, Event: event, Action: action}

	return Retry(ctx, MaxAttempts(action.Payload), func(ctx context.Context, attempt int) (string, error) {
		ctx, span := otelhelper.StartSpan(ctx, e.tracer, "automation.action.attempt",
			attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
			attribute.Int(otelhelper.ActionIndexKey, index),
			attribute.Int(otelhelper.AttemptKey, attempt),
		)
		defer span.End()

		output, err := executor.Execute(ctx, input)
		if err != nil {
			otelhelper.SetError(span, err)
			e.logger.DebugContext(ctx, "Action attempt failed",
				"rule_id", rule.ID,
				"action_type", action.Type,
				"attempt", attempt,
				"error", err,
			)
		}

		return output, err
	})
}
