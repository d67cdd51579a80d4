package sink

import (
	"context"
	"fmt"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/publisher"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaBatchSize  = 1 // Notifications trickle in; don't wait to fill a batch
	DefaultKafkaBatchBytes = 1 << 20
)

func init() {
	publisher.RegisterSink(cfg.SinkKafka, func(config cfg.SinkConfiguration) (publisher.Sink, error) {
		kafkaConfig := DefaultKafkaConfig(config.Brokers, config.Topic)
		if config.BatchSize > 0 {
			kafkaConfig.BatchSize = config.BatchSize
		}
		return NewKafkaSink(kafkaConfig)
	})
}

// KafkaSink publishes notifications to a single Kafka topic, keyed by
// bundle ID so one app's notifications stay ordered within a partition
type KafkaSink struct {
	writer *kafka.Writer
}

// KafkaConfig holds configuration for KafkaSink
type KafkaConfig struct {
	Brokers          []string           // Kafka broker addresses
	Topic            string             // Destination topic
	BatchSize        int                // Messages per write batch (default: 1)
	BatchBytes       int64              // Max batch bytes (default: 1MB)
	RequiredAcks     kafka.RequiredAcks // Ack requirement (default: RequireAll)
	AutoCreateTopics bool               // Auto-create the topic if missing (default: true)
}

// DefaultKafkaConfig returns a KafkaConfig with sensible defaults
func DefaultKafkaConfig(brokers []string, topic string) KafkaConfig {
	return KafkaConfig{
		Brokers:          brokers,
		Topic:            topic,
		BatchSize:        DefaultKafkaBatchSize,
		BatchBytes:       DefaultKafkaBatchBytes,
		RequiredAcks:     kafka.RequireAll,
		AutoCreateTopics: true,
	}
}

// NewKafkaSink creates a new KafkaSink with the given configuration
func NewKafkaSink(config KafkaConfig) (*KafkaSink, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker address")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}

	if config.BatchSize == 0 {
		config.BatchSize = DefaultKafkaBatchSize
	}
	if config.BatchBytes == 0 {
		config.BatchBytes = DefaultKafkaBatchBytes
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              config.BatchSize,
		BatchBytes:             config.BatchBytes,
		RequiredAcks:           config.RequiredAcks,
		Async:                  false,
		AllowAutoTopicCreation: config.AutoCreateTopics,
	}

	return &KafkaSink{writer: writer}, nil
}

// Publish writes one message and waits for the configured acks. The
// content type travels as a header.
func (k *KafkaSink) Publish(ctx context.Context, msg publisher.Message) error {
	km := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
	}
	if msg.ContentType != "" {
		km.Headers = []kafka.Header{{Key: "content-type", Value: []byte(msg.ContentType)}}
	}

	if err := k.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("failed to write to %s: %w", k.writer.Topic, err)
	}
	return nil
}

// Close releases resources held by the KafkaSink
func (k *KafkaSink) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
