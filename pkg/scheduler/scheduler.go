// Package scheduler publishes scheduled_tick events for enabled rules with a cron trigger.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/ruleforge/pkg/eventbus"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/robfig/cron/v3"
)

// SyncSpec is how often the scheduler reloads rules.
const SyncSpec = "@every 1m"

// RuleSource lists enabled rules. persistence.RuleRepository satisfies it.
type RuleSource interface {
	GetEnabled(ctx context.Context) ([]*models.AutomationRule, error)
}

type entry struct {
	id   cron.EntryID
	spec string
}

// Scheduler keeps one cron entry per enabled scheduled_tick rule.
type Scheduler struct {
	logger    *slog.Logger
	rules     RuleSource
	publisher eventbus.EventPublisher
	cron      *cron.Cron

	mu      sync.Mutex
	entries map[string]entry
}

func New(logger *slog.Logger, rules RuleSource, publisher eventbus.EventPublisher) *Scheduler {
	return &Scheduler{
		logger:    logger.With("module", "scheduler"),
		rules:     rules,
		publisher: publisher,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		entries: make(map[string]entry),
	}
}

// Start registers the current rules, schedules periodic re-syncs and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	err := s.Sync(ctx)
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(SyncSpec, func() {
		syncErr := s.Sync(context.Background())
		if syncErr != nil {
			s.logger.Error("Failed to sync scheduled rules", "error", syncErr)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add sync job: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started")

	return nil
}

// Stop stops the cron runner and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.InfoContext(ctx, "Stopping scheduler")

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sync adds entries for new scheduled rules and drops entries for rules that were disabled or
// whose cron expression changed.
func (s *Scheduler) Sync(ctx context.Context) error {
	rules, err := s.rules.GetEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load enabled rules: %w", err)
	}

	wanted := make(map[string]*models.AutomationRule)

	for _, rule := range rules {
		if rule.Trigger.Type == events.ScheduledTick && rule.Trigger.Cron != "" {
			wanted[rule.ID] = rule
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for ruleID, current := range s.entries {
		rule, ok := wanted[ruleID]
		if ok && rule.Trigger.Cron == current.spec {
			continue
		}

		s.cron.Remove(current.id)
		delete(s.entries, ruleID)
		s.logger.InfoContext(ctx, "Removed cron entry", "rule_id", ruleID, "cron", current.spec)
	}

	for ruleID, rule := range wanted {
		if _, ok := s.entries[ruleID]; ok {
			continue
		}

		id, spec := ruleID, rule.Trigger.Cron

		entryID, err := s.cron.AddFunc(spec, func() {
			s.fire(context.Background(), id, spec, time.Now())
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to add cron entry", "rule_id", id, "cron", spec, "error", err)

			continue
		}

		s.entries[ruleID] = entry{id: entryID, spec: spec}
		s.logger.InfoContext(ctx, "Added cron entry", "rule_id", id, "cron", spec, "entry_id", entryID)
	}

	return nil
}

// Scheduled returns the ids of rules that currently have a cron entry.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for ruleID := range s.entries {
		ids = append(ids, ruleID)
	}

	return ids
}

func (s *Scheduler) fire(ctx context.Context, ruleID, spec string, at time.Time) {
	err := s.publisher.Publish(ctx, TickEvent(ruleID, spec, at))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish scheduled tick", "rule_id", ruleID, "error", err)
	}
}

// TickEvent builds the scheduled_tick event for one firing. scheduledAt is truncated to the
// minute so each firing is a distinct occurrence and re-deliveries of the same firing are not.
func TickEvent(ruleID, spec string, at time.Time) events.DomainEvent {
	return events.New(events.ScheduledTick, map[string]any{
		events.RuleIDField: ruleID,
		"cron":             spec,
		"scheduledAt":      at.UTC().Truncate(time.Minute).Format(time.RFC3339),
	})
}
