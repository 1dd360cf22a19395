// Package diagnostics is the developer-facing channel for page outcomes.
// Error details that are never shown to users end up here.
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Event describes how one page render resolved.
type Event struct {
	Time      time.Time `json:"time"`
	Route     string    `json:"route"`
	State     string    `json:"state"`
	Signature string    `json:"signature,omitempty"`
	Places    int       `json:"places"`
	Cached    bool      `json:"cached"`
	Error     string    `json:"error,omitempty"`
}

// Reporter receives page events.
type Reporter interface {
	Report(ctx context.Context, ev Event) error
}

// LogReporter writes events to a zap logger.
type LogReporter struct {
	logger *zap.Logger
}

func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("route", ev.Route),
		zap.String("state", ev.State),
		zap.String("signature", ev.Signature),
		zap.Int("places", ev.Places),
		zap.Bool("cached", ev.Cached),
	}
	if ev.Error != "" {
		r.logger.Warn("Page query failed", append(fields, zap.String("error", ev.Error))...)
		return nil
	}
	r.logger.Info("Page resolved", fields...)
	return nil
}

// Publisher is implemented by *kafkaclient.KafkaProducer.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// KafkaReporter publishes events as JSON, keyed by query signature.
type KafkaReporter struct {
	publisher Publisher
}

func NewKafkaReporter(p Publisher) *KafkaReporter {
	return &KafkaReporter{publisher: p}
}

func (r *KafkaReporter) Report(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics event: %w", err)
	}
	return r.publisher.Publish(ctx, []byte(ev.Signature), value)
}

// Multi reports to every reporter and joins their errors.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Decode parses an event published by KafkaReporter.
func Decode(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode diagnostics event: %w", err)
	}
	return ev, nil
}
