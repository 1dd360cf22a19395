// Package service holds the glue between message sources and the code that
// consumes them. Iterator decodes messages from a MessageIterator (for example
// pkg/kafkaclient) into typed values.
package service

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Iterator decodes every message of a MessageIterator with a DecodeFunc.
type Iterator[T any] struct {
	msgIterator MessageIterator
	decode      DecodeFunc[T]
	logger      *zap.Logger
}

func NewIterator[T any](iterator MessageIterator, decode DecodeFunc[T], logger *zap.Logger) *Iterator[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Iterator[T]{
		msgIterator: iterator,
		decode:      decode,
		logger:      logger,
	}
}

// Objects starts a goroutine that decodes each incoming message, emits it on
// the returned channel and then commits its offset. Messages that fail to
// decode are logged and skipped without a commit. The channel is closed when
// the source closes or ctx ends.
func (it *Iterator[T]) Objects(ctx context.Context) <-chan *Decoded[T] {
	out := make(chan *Decoded[T])
	go func() {
		defer close(out)

		messages := it.msgIterator.Messages()
		for {
			var msg kafka.Message
			select {
			case <-ctx.Done():
				return
			case m, ok := <-messages:
				if !ok {
					return
				}
				msg = m
			}

			data, err := it.decode(msg)
			if err != nil {
				it.logger.Warn("Skipping undecodable message",
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
				continue
			}

			select {
			case out <- &Decoded[T]{Data: data, Message: msg}:
			case <-ctx.Done():
				return
			}

			if err := it.msgIterator.CommitOffset(ctx, msg); err != nil {
				it.logger.Warn("Failed to commit offset", zap.Int64("offset", msg.Offset), zap.Error(err))
			}
		}
	}()
	return out
}
