package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"places/internal/config"
	"places/internal/diagnostics"
	"places/internal/env"
	"places/internal/logging"
	"places/internal/page"
	"places/internal/pipeline"
	"places/internal/shell"
	"places/internal/storage"
	"places/pkg/graceful"
	"places/pkg/graphql"
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

	ctx, cancel := graceful.Context(context.Background(), logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
	logger.Info("Main method finished, application exiting")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.GraphQLEndpoint == "" {
		logger.Warn("GRAPHQL_ENDPOINT is not set, every page will render the error view")
	}

	clientOpts := []graphql.Option{
		graphql.WithLogger(logger),
		graphql.WithTimeout(cfg.GraphQLTimeout),
	}
	if cfg.CacheDatabaseURL != "" {
		cache, err := storage.NewPostgresCache(ctx, cfg.CacheDatabaseURL)
		if err != nil {
			return err
		}
		defer cache.Close()
		clientOpts = append(clientOpts, graphql.WithCache(cache))
		logger.Info("Using Postgres query cache")
	}
	client := graphql.New(cfg.GraphQLEndpoint, clientOpts...)

	reporters := diagnostics.Multi{diagnostics.NewLogReporter(logger)}
	if cfg.KafkaEnabled() {
		producer := kafkaclient.NewKafkaProducer(cfg.DiagnosticsTopic, cfg.KafkaBroker, logger)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Warn("Failed to close Kafka producer", zap.Error(err))
			}
		}()
		reporters = append(reporters, diagnostics.NewKafkaReporter(producer))
		logger.Info("Publishing diagnostics to Kafka",
			zap.String("broker", cfg.KafkaBroker),
			zap.String("topic", cfg.DiagnosticsTopic))
	}

	steps := []pipeline.Step[page.Outcome]{page.ReportStep(reporters)}
	if cfg.SnapshotsEnabled() {
		archive, err := storage.NewSnapshotArchive(storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.SnapshotBucket,
		}, logger)
		if err != nil {
			return err
		}
		if err := archive.EnsureBucket(ctx, ""); err != nil {
			return err
		}
		steps = append(steps, page.ArchiveStep(archive))
	}
	hooks := pipeline.NewPipeline(logger, pipeline.NewStage(steps...))

	handler := shell.NewRouter(shell.Deps{
		Client:       client,
		Hooks:        hooks,
		Logger:       logger,
		LoadingAfter: cfg.LoadingAfter,
	})

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return graceful.Serve(ctx, srv, ln, 15*time.Second, logger)
}
