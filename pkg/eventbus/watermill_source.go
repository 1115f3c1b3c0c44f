package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/ruleforge/pkg/events"
)

// SourceTopic carries domain events produced by other services.
const SourceTopic = "ruleforge.domain.events"

// WatermillSource consumes JSON-encoded domain events from a watermill topic and publishes
// them on the in-process bus.
type WatermillSource struct {
	subscriber message.Subscriber
	topic      string
	bus        EventPublisher
	logger     *slog.Logger
}

func NewWatermillSource(subscriber message.Subscriber, topic string, bus EventPublisher, logger *slog.Logger) *WatermillSource {
	if topic == "" {
		topic = SourceTopic
	}

	return &WatermillSource{
		subscriber: subscriber,
		topic:      topic,
		bus:        bus,
		logger:     logger.With("module", "watermill_source", "topic", topic),
	}
}

// Run consumes until ctx is cancelled or the subscriber closes. Every message is acked:
// undecodable messages and handler errors are logged, never redelivered.
func (s *WatermillSource) Run(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
	}

	s.logger.InfoContext(ctx, "Consuming domain events")

	for msg := range messages {
		s.handle(ctx, msg)
		msg.Ack()
	}

	return nil
}

func (s *WatermillSource) handle(ctx context.Context, msg *message.Message) {
	var event events.DomainEvent

	err := json.Unmarshal(msg.Payload, &event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Dropping undecodable message", "message_id", msg.UUID, "error", err)

		return
	}

	if event.Type == "" || event.Type == events.AutomationRuleExecuted {
		s.logger.WarnContext(ctx, "Dropping message with unsupported event type", "message_id", msg.UUID, "event_type", event.Type)

		return
	}

	if event.Payload == nil {
		event.Payload = make(map[string]any)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if event.CorrelationID == "" {
		event.CorrelationID = msg.Metadata.Get(CorrelationMetadataKey)
	}

	err = s.bus.Publish(ctx, event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish consumed event", "event_type", event.Type, "error", err)
	}
}
