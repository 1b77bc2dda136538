// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/sagaflow/pkg/channels/gochannel"
	"github.com/dukex/sagaflow/pkg/channels/kafka"
	"github.com/dukex/sagaflow/pkg/manager"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// CloseFunc releases the transport endpoints.
type CloseFunc func() error

// NewChannels builds the manager transport. "kafka" subscribes to status
// reports with consumerGroup and to edits without a group; "memory" keeps
// edits on a replaying in-process channel and everything else on a plain one.
func NewChannels(provider string, brokers []string, consumerGroup string, logger *slog.Logger) (manager.Channels, CloseFunc, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "memory":
		bus := gochannel.CreateChannel(wmLogger)
		edits := gochannel.CreateEditsChannel(wmLogger)

		closeAll := func() error {
			return errors.Join(bus.Close(), edits.Close())
		}

		return manager.Channels{Status: bus, Edits: edits, Publisher: bus}, closeAll, nil
	case "kafka":
		status, err := kafka.CreateGroupSubscriber(wmLogger, brokers, consumerGroup)
		if err != nil {
			return manager.Channels{}, nil, fmt.Errorf("failed to create Kafka status subscriber: %w", err)
		}

		edits, err := kafka.CreateBroadcastSubscriber(wmLogger, brokers)
		if err != nil {
			_ = status.Close()

			return manager.Channels{}, nil, fmt.Errorf("failed to create Kafka edits subscriber: %w", err)
		}

		pub, err := kafka.CreatePublisher(wmLogger, brokers)
		if err != nil {
			_ = status.Close()
			_ = edits.Close()

			return manager.Channels{}, nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
		}

		closeAll := func() error {
			return errors.Join(status.Close(), edits.Close(), pub.Close())
		}

		return manager.Channels{Status: status, Edits: edits, Publisher: pub}, closeAll, nil
	default:
		return manager.Channels{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}
}

// NewPublisher builds a publisher only, for commands that never consume.
// Only "kafka" is supported: an in-memory publisher would be private to the
// calling process and no manager could read from it.
func NewPublisher(provider string, brokers []string, logger *slog.Logger) (message.Publisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "memory":
		return nil, fmt.Errorf("%w: memory is only available to the manager", ErrUnsupportedEventBus)
	case "kafka":
		pub, err := kafka.CreatePublisher(wmLogger, brokers)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
		}

		return pub, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}
}
