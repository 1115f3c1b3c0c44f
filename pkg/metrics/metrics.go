// Package metrics exposes Prometheus counters fed by the event bus.
package metrics

import (
	"context"

	"github.com/dukex/ruleforge/pkg/eventbus"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EventsReceived  *prometheus.CounterVec
	RulesExecuted   *prometheus.CounterVec
	ApprovalsRaised prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ruleforge_events_received_total",
			Help: "Total number of domain events published on the bus, labelled by type.",
		}, []string{"event_type"}),

		RulesExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ruleforge_rule_executions_total",
			Help: "Total number of rule executions, labelled by status.",
		}, []string{"status"}),

		ApprovalsRaised: factory.NewCounter(prometheus.CounterOpts{
			Name: "ruleforge_approvals_requested_total",
			Help: "Total number of approval requests created for sensitive actions.",
		}),
	}
}

// Subscribe counts every event of the given types plus every rule execution. The returned
// function removes the subscriptions.
func (m *Metrics) Subscribe(bus eventbus.EventSubscriber, eventTypes ...events.EventType) func() {
	unsubscribes := make([]func(), 0, len(eventTypes)+1)

	for _, eventType := range eventTypes {
		unsubscribes = append(unsubscribes, bus.Subscribe(eventType, m.countEvent))
	}

	unsubscribes = append(unsubscribes, bus.Subscribe(events.AutomationRuleExecuted, m.countExecution))

	return func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}
}

func (m *Metrics) countEvent(_ context.Context, event events.DomainEvent) error {
	m.EventsReceived.WithLabelValues(string(event.Type)).Inc()

	return nil
}

func (m *Metrics) countExecution(_ context.Context, event events.DomainEvent) error {
	executed, ok := events.RuleExecutedFrom(event)
	if ok {
		m.RulesExecuted.WithLabelValues(executed.Status).Inc()
	}

	return nil
}
