// Package config collects the process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"places/internal/env"
)

// Config is everything cmd/web and cmd/diagtail need to wire their dependencies.
// Optional backends are enabled by the presence of their connection settings.
type Config struct {
	GraphQLEndpoint string
	GraphQLTimeout  time.Duration
	HTTPAddr        string
	LogLevel        string
	LoadingAfter    time.Duration

	CacheDatabaseURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	SnapshotBucket string

	KafkaBroker      string
	DiagnosticsTopic string
	KafkaGroupID     string
}

// Load reads the configuration. A missing GRAPHQL_ENDPOINT is not an error here;
// it surfaces on the first query as a transport error.
func Load() (Config, error) {
	cfg := Config{
		GraphQLEndpoint:  env.GetEnv("GRAPHQL_ENDPOINT", ""),
		HTTPAddr:         env.GetEnv("HTTP_ADDR", ":8080"),
		LogLevel:         env.GetEnv("LOG_LEVEL", "info"),
		CacheDatabaseURL: env.GetEnv("CACHE_DATABASE_URL", ""),
		MinioEndpoint:    env.GetEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:   env.GetEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:   env.GetEnv("MINIO_SECRET_KEY", ""),
		SnapshotBucket:   env.GetEnv("SNAPSHOT_BUCKET", ""),
		KafkaBroker:      env.GetEnv("KAFKA_BROKER", ""),
		DiagnosticsTopic: env.GetEnv("DIAGNOSTICS_TOPIC", "places.diagnostics"),
		KafkaGroupID:     env.GetEnv("KAFKA_GROUP_ID", "places-diagtail"),
	}

	var err error
	if cfg.MinioUseSSL, err = env.GetBool("MINIO_USE_SSL"); err != nil {
		return Config{}, err
	}
	if cfg.GraphQLTimeout, err = env.GetDuration("GRAPHQL_TIMEOUT", 0); err != nil {
		return Config{}, err
	}
	if cfg.LoadingAfter, err = env.GetDuration("PAGE_LOADING_AFTER", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GraphQLTimeout < 0 || cfg.LoadingAfter < 0 {
		return Config{}, fmt.Errorf("durations must not be negative")
	}
	return cfg, nil
}

// SnapshotsEnabled reports whether the MinIO snapshot archive is configured.
func (c Config) SnapshotsEnabled() bool {
	return c.MinioEndpoint != "" && c.SnapshotBucket != ""
}

func (c Config) KafkaEnabled() bool {
	return c.KafkaBroker != ""
}

// RequireKafka returns an error when no broker is configured.
func (c Config) RequireKafka() error {
	if !c.KafkaEnabled() {
		return fmt.Errorf("KAFKA_BROKER must be set")
	}
	return nil
}
