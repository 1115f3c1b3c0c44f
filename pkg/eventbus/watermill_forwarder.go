package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/ruleforge/pkg/events"
)

const (
	// Topic receives forwarded automation events.
	Topic = "ruleforge.automation.events"

	EventTypeMetadataKey   = "event_type"
	CorrelationMetadataKey = "correlation_id"
)

// WatermillForwarder republishes selected bus events onto a watermill topic so other
// processes (kafka consumers, dashboards) can observe them.
type WatermillForwarder struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
	cancel    []func()
}

func NewWatermillForwarder(publisher message.Publisher, topic string, logger *slog.Logger) *WatermillForwarder {
	if topic == "" {
		topic = Topic
	}

	return &WatermillForwarder{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With("module", "watermill_forwarder", "topic", topic),
	}
}

// Forward subscribes the forwarder to every given event type on bus.
func (f *WatermillForwarder) Forward(bus EventSubscriber, eventTypes ...events.EventType) {
	for _, eventType := range eventTypes {
		f.cancel = append(f.cancel, bus.Subscribe(eventType, f.handle))
	}
}

// handle never fails the bus: forwarding is best effort.
func (f *WatermillForwarder) handle(ctx context.Context, event events.DomainEvent) error {
	err := f.Publish(ctx, event)
	if err != nil {
		f.logger.ErrorContext(ctx, "Failed to forward event", "event_type", event.Type, "error", err)
	}

	return nil
}

func (f *WatermillForwarder) Publish(ctx context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(EventTypeMetadataKey, string(event.Type))

	if event.CorrelationID != "" {
		msg.Metadata.Set(CorrelationMetadataKey, event.CorrelationID)
	}

	return f.publisher.Publish(f.topic, msg)
}

// Close detaches from the bus and closes the underlying publisher.
func (f *WatermillForwarder) Close() error {
	for _, cancel := range f.cancel {
		cancel()
	}

	f.cancel = nil

	return f.publisher.Close()
}
