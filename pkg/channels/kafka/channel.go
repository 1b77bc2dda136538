// Package kafka builds the watermill Kafka publisher and subscribers used by the manager.
package kafka

import (
	"errors"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/sagaflow/pkg/events"
)

var ErrNoBrokers = errors.New("no Kafka brokers configured")

// ParseBrokers splits a comma separated broker list.
func ParseBrokers(raw string) []string {
	var brokers []string

	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return brokers
}

// marshaler keys records by workflow instance so every message of one
// instance lands on the same partition; edits are keyed by workflow name.
func marshaler() kafka.MarshalerUnmarshaler {
	return kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
		if key := msg.Metadata.Get(events.InstanceMetadataKey); key != "" {
			return key, nil
		}

		return msg.Metadata.Get(events.WorkflowMetadataKey), nil
	})
}

// CreateGroupSubscriber consumes with a consumer group so each message is
// delivered to a single member. Used for status reports.
func CreateGroupSubscriber(logger watermill.LoggerAdapter, brokers []string, group string) (*kafka.Subscriber, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	return newSubscriber(logger, brokers, group)
}

// CreateBroadcastSubscriber consumes without a consumer group so every
// instance sees every message. Used for workflow edits, which rebuild each
// manager's registry from the start of the topic.
func CreateBroadcastSubscriber(logger watermill.LoggerAdapter, brokers []string) (*kafka.Subscriber, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	return newSubscriber(logger, brokers, "")
}

func newSubscriber(logger watermill.LoggerAdapter, brokers []string, group string) (*kafka.Subscriber, error) {
	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           marshaler(),
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         group,
			OTELEnabled:           true,
		},
		logger,
	)
}

// CreatePublisher builds a synchronous publisher that waits for one broker ack.
func CreatePublisher(logger watermill.LoggerAdapter, brokers []string) (*kafka.Publisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	saramaPublisherConfig := kafka.DefaultSaramaSyncPublisherConfig()
	saramaPublisherConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaPublisherConfig.Producer.Return.Successes = true

	return kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             marshaler(),
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           true,
		},
		logger,
	)
}
