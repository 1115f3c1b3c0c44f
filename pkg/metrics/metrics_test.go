package metrics_test

import (
	"context"
	"testing"

	"github.com/dukex/ruleforge/pkg/eventbus"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Subscribe(t *testing.T) {
	ctx := context.Background()
	bus := eventbus.NewBus()
	m := metrics.New(prometheus.NewRegistry())

	unsubscribe := m.Subscribe(bus, events.TaskCreated, events.ScheduledTick)

	require.NoError(t, bus.Publish(ctx, events.New(events.TaskCreated, nil)))
	require.NoError(t, bus.Publish(ctx, events.New(events.TaskCreated, nil)))
	require.NoError(t, bus.Publish(ctx, events.New(events.TaskStatusChanged, nil)))
	require.NoError(t, bus.Publish(ctx, events.RuleExecuted{RuleID: "r1", Status: "failed"}.Event()))

	assert.InDelta(t, 2, testutil.ToFloat64(m.EventsReceived.WithLabelValues("task_created")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.EventsReceived.WithLabelValues("task_status_changed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RulesExecuted.WithLabelValues("failed")), 0)

	unsubscribe()

	require.NoError(t, bus.Publish(ctx, events.New(events.TaskCreated, nil)))
	assert.InDelta(t, 2, testutil.ToFloat64(m.EventsReceived.WithLabelValues("task_created")), 0)
	assert.Equal(t, 0, bus.SubscriberCount(events.TaskCreated))
}
