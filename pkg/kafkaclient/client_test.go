package kafkaclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// mockReader simulates the kafka-go Reader for unit testing.
type mockReader struct {
	messages   chan kafka.Message
	commitChan chan kafka.Message
	stop       chan struct{}
	mu         sync.Mutex
	isClosed   bool
}

func newMockReader() *mockReader {
	return &mockReader{
		messages:   make(chan kafka.Message, 10),
		commitChan: make(chan kafka.Message, 100),
		stop:       make(chan struct{}),
	}
}

// StartSimulatingConsumption simulates count messages being produced to the reader.
func (mr *mockReader) StartSimulatingConsumption(count int) {
	go func() {
		defer close(mr.messages)
		for i := 0; i < count; i++ {
			msg := kafka.Message{
				Topic:     "test-topic",
				Partition: 0,
				Offset:    int64(i),
				Value:     []byte(fmt.Sprintf("mock-message-%d", i)),
			}
			select {
			case mr.messages <- msg:
			case <-mr.stop:
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
}

func (mr *mockReader) closed() bool {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return mr.isClosed
}

func (mr *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if mr.closed() {
		return kafka.Message{}, io.EOF
	}
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg, ok := <-mr.messages:
		if !ok {
			return kafka.Message{}, io.EOF
		}
		return msg, nil
	}
}

func (mr *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	if mr.closed() {
		return errors.New("kafka: reader closed")
	}
	for _, msg := range msgs {
		mr.commitChan <- msg
	}
	return nil
}

func (mr *mockReader) Close() error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.isClosed = true
	close(mr.stop)
	close(mr.commitChan)
	return nil
}

func TestKafkaConsumerAndIterator_WithMock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reader := newMockReader()
	consumer := newKafkaConsumer(reader, zap.NewNop())

	const expectedMessages = 3
	reader.StartSimulatingConsumption(expectedMessages)
	consumer.StartConsuming(ctx)
	iterator := consumer.NewIterator()

	received := 0
	for msg := range iterator.Messages() {
		expectedValue := fmt.Sprintf("mock-message-%d", received)
		if string(msg.Value) != expectedValue {
			t.Errorf("Expected message value %q, got %q", expectedValue, string(msg.Value))
		}
		if err := iterator.CommitOffset(ctx, msg); err != nil {
			t.Errorf("CommitOffset() failed: %v", err)
		}
		received++
	}

	if received != expectedMessages {
		t.Errorf("Expected to receive %d messages, but got %d", expectedMessages, received)
	}

	consumer.Stop()

	committed := 0
	for range reader.commitChan {
		committed++
	}
	if committed != expectedMessages {
		t.Errorf("Expected to commit %d messages, but committed %d", expectedMessages, committed)
	}
}

func TestKafkaConsumer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reader := newMockReader()
	consumer := newKafkaConsumer(reader, zap.NewNop())
	reader.StartSimulatingConsumption(100)
	consumer.StartConsuming(ctx)
	iterator := consumer.NewIterator()

	for i := 0; i < 5; i++ {
		select {
		case <-iterator.Messages():
		case <-time.After(500 * time.Millisecond):
			t.Fatal("Timed out while waiting for a message.")
		}
	}

	consumer.Stop()
	consumer.Stop()

	remaining := 0
	for range iterator.Messages() {
		remaining++
	}
	if remaining > 0 {
		t.Errorf("Expected 0 messages after consumer stop, but found %d", remaining)
	}
	if !reader.closed() {
		t.Error("Expected mock reader to be closed after consumer.Stop()")
	}
}

type flakyReader struct {
	*mockReader
	failures int
}

func (f *flakyReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if f.failures > 0 {
		f.failures--
		return kafka.Message{}, errors.New("broker not available")
	}
	return f.mockReader.ReadMessage(ctx)
}

func TestKafkaConsumer_RetriesAfterReadError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reader := &flakyReader{mockReader: newMockReader(), failures: 2}
	consumer := newKafkaConsumer(reader, zap.NewNop())
	consumer.backoff = time.Millisecond
	reader.StartSimulatingConsumption(1)
	consumer.StartConsuming(ctx)

	select {
	case msg, ok := <-consumer.Messages():
		if !ok || string(msg.Value) != "mock-message-0" {
			t.Fatalf("unexpected message %q (ok=%v)", msg.Value, ok)
		}
	case <-ctx.Done():
		t.Fatal("consumer never recovered from read errors")
	}
	consumer.Stop()
}
