package diagnostics

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewLogReporter(zap.New(core))

	_ = r.Report(context.Background(), Event{Route: "/", State: "ready", Places: 2})
	_ = r.Report(context.Background(), Event{Route: "/", State: "failed", Error: "graphql error: boom"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("ready event level = %s", entries[0].Level)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("failed event level = %s", entries[1].Level)
	}
	if got := entries[1].ContextMap()["error"]; got != "graphql error: boom" {
		t.Errorf("error field = %v", got)
	}
}

type recordingPublisher struct {
	keys   []string
	values [][]byte
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, string(key))
	p.values = append(p.values, value)
	return nil
}

func TestKafkaReporter_RoundTrip(t *testing.T) {
	pub := &recordingPublisher{}
	ev := Event{
		Time:      time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		Route:     "/",
		State:     "ready",
		Signature: "abc",
		Places:    1,
		Cached:    true,
	}

	if err := NewKafkaReporter(pub).Report(context.Background(), ev); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(pub.keys) != 1 || pub.keys[0] != "abc" {
		t.Fatalf("keys = %v", pub.keys)
	}

	got, err := Decode(pub.values[0])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Time.Equal(ev.Time) {
		t.Errorf("Time = %s, want %s", got.Time, ev.Time)
	}
	got.Time = ev.Time
	if got != ev {
		t.Errorf("decoded %+v, want %+v", got, ev)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestMulti_JoinsErrors(t *testing.T) {
	boom := errors.New("broker down")
	ok := &recordingPublisher{}
	m := Multi{NewKafkaReporter(&recordingPublisher{err: boom}), NewKafkaReporter(ok)}

	err := m.Report(context.Background(), Event{Signature: "s"})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error to contain %v, got %v", boom, err)
	}
	if len(ok.keys) != 1 {
		t.Error("a failing reporter must not stop the others")
	}
}
