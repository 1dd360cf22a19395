package main

import (
	"context"
	"log"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"places/internal/config"
	"places/internal/diagnostics"
	"places/internal/env"
	"places/internal/logging"
	"places/internal/service"
	"places/pkg/graceful"
	"places/pkg/kafkaclient"
)

func main() {
	env.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.RequireKafka(); err != nil {
		log.Fatal(err)
	}
	broker := cfg.KafkaBroker

	ctx, cancel := graceful.Context(context.Background(), logger)
	defer cancel()

	logger.Info("Connecting to Kafka",
		zap.String("broker", broker),
		zap.String("topic", cfg.DiagnosticsTopic),
		zap.String("group", cfg.KafkaGroupID))

	consumer := kafkaclient.NewKafkaConsumer(cfg.DiagnosticsTopic, cfg.KafkaGroupID, broker, logger)
	consumer.StartConsuming(ctx)

	decode := func(msg kafka.Message) (diagnostics.Event, error) {
		return diagnostics.Decode(msg.Value)
	}
	iterator := service.NewIterator(consumer.NewIterator(), decode, logger)
	for obj := range iterator.Objects(ctx) {
		ev := obj.Data
		fields := []zap.Field{
			zap.Time("at", ev.Time),
			zap.String("route", ev.Route),
			zap.String("state", ev.State),
			zap.Int("places", ev.Places),
			zap.Bool("cached", ev.Cached),
			zap.Int("partition", obj.Message.Partition),
			zap.Int64("offset", obj.Message.Offset),
		}
		if ev.Error != "" {
			logger.Warn("Page failed", append(fields, zap.String("error", ev.Error))...)
			continue
		}
		logger.Info("Page resolved", fields...)
	}

	consumer.Stop()
	logger.Info("Diagnostics tail finished")
}
