package service

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessageIterator is a source of Kafka messages with manual offset commits.
// *kafkaclient.Iterator implements it.
//
// Implementations own the consumer lifecycle and close the Messages channel
// when the consumer stops.
type MessageIterator interface {
	Messages() <-chan kafka.Message

	// CommitOffset acknowledges that msg has been processed.
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// DecodeFunc turns a raw message into a T. It must not have side effects.
type DecodeFunc[T any] func(msg kafka.Message) (T, error)

// Decoded pairs a decoded value with the message it came from.
type Decoded[T any] struct {
	Data    T
	Message kafka.Message
}
