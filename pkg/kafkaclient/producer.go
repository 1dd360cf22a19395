package kafkaclient

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaProducer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes keyed messages to a single topic.
type KafkaProducer struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
}

func NewKafkaProducer(topic, broker string, logger *zap.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		// One event per page load; do not hold it for the default one second.
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaProducer(writer, topic, logger)
}

func newKafkaProducer(writer MessageWriter, topic string, logger *zap.Logger) *KafkaProducer {
	return &KafkaProducer{writer: writer, topic: topic, logger: logger}
}

// Publish writes one message. Messages with the same key land on the same partition.
func (p *KafkaProducer) Publish(ctx context.Context, key, value []byte) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	p.logger.Debug("Published message", zap.String("topic", p.topic), zap.Int("bytes", len(value)))
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
