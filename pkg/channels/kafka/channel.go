// Package kafka provides the Kafka-backed event channel.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

var ErrNoBrokers = errors.New("KAFKA_BROKERS environment variable is not set or empty")

// Config selects the brokers and consumer group of a channel.
type Config struct {
	Brokers       []string
	ConsumerGroup string
	// FromOldest replays retained events when the group has no committed offset.
	FromOldest bool
}

// ConfigFromEnv reads KAFKA_BROKERS and KAFKA_CONSUMER_GROUP. The group
// defaults to "cg-<serviceName>".
func ConfigFromEnv(serviceName string) Config {
	group := strings.TrimSpace(os.Getenv("KAFKA_CONSUMER_GROUP"))
	if group == "" {
		group = "cg-" + serviceName
	}

	return Config{
		Brokers:       Brokers(os.Getenv("KAFKA_BROKERS")),
		ConsumerGroup: group,
		FromOldest:    os.Getenv("KAFKA_FROM_OLDEST") == "true",
	}
}

// Brokers parses a comma separated broker list, ignoring blank entries.
func Brokers(raw string) []string {
	var brokers []string

	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

// CreateChannel connects with the configuration found in the environment.
func CreateChannel(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	return NewChannel(ConfigFromEnv(serviceName), logger)
}

func NewChannel(cfg Config, logger watermill.LoggerAdapter) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	consumer := kafka.DefaultSaramaSubscriberConfig()
	consumer.Consumer.Offsets.Initial = sarama.OffsetNewest

	if cfg.FromOldest {
		consumer.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.Brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: consumer,
		ConsumerGroup:         cfg.ConsumerGroup,
		OTELEnabled:           true,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	producer := kafka.DefaultSaramaSyncPublisherConfig()
	producer.Producer.RequiredAcks = sarama.WaitForLocal

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               cfg.Brokers,
		Marshaler:             kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: producer,
		OTELEnabled:           true,
	}, logger)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, err
	}

	return publisher, subscriber, nil
}
