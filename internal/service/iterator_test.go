package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeSource struct {
	ch        chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func newFakeSource(values ...string) *fakeSource {
	ch := make(chan kafka.Message, len(values))
	for i, v := range values {
		ch <- kafka.Message{Offset: int64(i), Value: []byte(v)}
	}
	close(ch)
	return &fakeSource{ch: ch}
}

func (f *fakeSource) Messages() <-chan kafka.Message { return f.ch }

func (f *fakeSource) CommitOffset(_ context.Context, msg kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msg.Offset)
	return nil
}

func decodeInt(msg kafka.Message) (int, error) {
	return strconv.Atoi(string(msg.Value))
}

func TestIterator_Objects(t *testing.T) {
	src := newFakeSource("1", "oops", "3")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var got []int
	for obj := range NewIterator(src, decodeInt, nil).Objects(ctx) {
		got = append(got, obj.Data)
	}

	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("decoded %v, want [1 3]", got)
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.committed) != 2 || src.committed[0] != 0 || src.committed[1] != 2 {
		t.Errorf("committed %v, want [0 2]", src.committed)
	}
}

func TestIterator_StopsOnContextCancel(t *testing.T) {
	src := &fakeSource{ch: make(chan kafka.Message, 1)}
	src.ch <- kafka.Message{Value: []byte("7")}

	ctx, cancel := context.WithCancel(context.Background())
	out := NewIterator(src, func(kafka.Message) (int, error) {
		cancel()
		return 0, nil
	}, nil).Objects(ctx)

	select {
	case _, ok := <-out:
		if ok {
			// The send may race with cancellation; the channel must still close.
			if _, ok := <-out; ok {
				t.Fatal("expected channel to close")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("iterator did not stop after cancellation")
	}
}

func TestIterator_DecodeErrorIsSkipped(t *testing.T) {
	src := newFakeSource("x")
	bad := errors.New("bad payload")
	out := NewIterator(src, func(kafka.Message) (int, error) { return 0, bad }, nil).Objects(context.Background())

	if _, ok := <-out; ok {
		t.Fatal("expected no objects")
	}
	if len(src.committed) != 0 {
		t.Errorf("committed %v, want none", src.committed)
	}
}
