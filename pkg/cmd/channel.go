package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/ruleforge/pkg/channels/gochannel"
	"github.com/dukex/ruleforge/pkg/channels/kafka"
)

const serviceName = "ruleforge"

// NewChannel creates the watermill publisher and subscriber for provider. "none" or an empty
// provider returns nil for both.
func NewChannel(provider string, brokers []string, otelEnabled bool, logger *slog.Logger) (message.Publisher, message.Subscriber, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "none":
		return nil, nil, nil
	case "gochannel":
		return gochannel.CreateChannel(wmLogger)
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, brokers, serviceName, otelEnabled)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return pub, sub, nil
	default:
		return nil, nil, fmt.Errorf("unsupported event channel provider: %s", provider)
	}
}
