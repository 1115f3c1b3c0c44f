package eventbus_test

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/ruleforge/pkg/channels/gochannel"
	"github.com/dukex/ruleforge/pkg/eventbus"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillForwarder_ForwardsSelectedEvents(t *testing.T) {
	pubSub, _, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	messages, err := pubSub.Subscribe(t.Context(), eventbus.Topic)
	require.NoError(t, err)

	bus := eventbus.NewBus()
	forwarder := eventbus.NewWatermillForwarder(pubSub, "", slog.Default())
	forwarder.Forward(bus, events.AutomationRuleExecuted)

	executed := events.RuleExecuted{RunLogID: "run-1", RuleID: "rule-1", Status: "success", EventKey: "key"}

	require.NoError(t, bus.Publish(t.Context(), events.New(events.TaskCreated, nil)))
	require.NoError(t, bus.Publish(t.Context(), executed.Event()))

	select {
	case msg := <-messages:
		msg.Ack()

		assert.Equal(t, string(events.AutomationRuleExecuted), msg.Metadata.Get(eventbus.EventTypeMetadataKey))

		var received events.DomainEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &received))

		decoded, ok := events.RuleExecutedFrom(received)
		require.True(t, ok)
		assert.Equal(t, executed, decoded)
	case <-time.After(2 * time.Second):
		t.Fatal("expected forwarded message")
	}

	require.NoError(t, forwarder.Close())
	assert.Equal(t, 0, bus.SubscriberCount(events.AutomationRuleExecuted))
}
