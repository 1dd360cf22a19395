package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"places/internal/keys"
	"places/internal/models"
)

// objectStore is the subset of *minio.Client the archive needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Snapshot is an archived places result.
type Snapshot struct {
	Signature string         `json:"signature"`
	FetchedAt time.Time      `json:"fetched_at"`
	Places    []models.Place `json:"places"`
}

// SnapshotArchive writes places results to S3-compatible storage.
type SnapshotArchive struct {
	client objectStore
	bucket string
	logger *zap.Logger
}

// MinioOptions holds the connection settings for NewSnapshotArchive.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// NewSnapshotArchive connects to MinIO and returns an archive writing into opts.Bucket.
func NewSnapshotArchive(opts MinioOptions, logger *zap.Logger) (*SnapshotArchive, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("missing one or more required settings: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY, SNAPSHOT_BUCKET")
	}

	minioClient, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	logger.Info("Connected to MinIO endpoint", zap.String("endpoint", opts.Endpoint))
	return newSnapshotArchive(minioClient, opts.Bucket, logger), nil
}

func newSnapshotArchive(client objectStore, bucket string, logger *zap.Logger) *SnapshotArchive {
	return &SnapshotArchive{client: client, bucket: bucket, logger: logger}
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (s *SnapshotArchive) EnsureBucket(ctx context.Context, location string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Archive stores snap under its signature. An existing object is left untouched,
// since results for a signature never change once cached.
func (s *SnapshotArchive) Archive(ctx context.Context, snap Snapshot) error {
	objectKey := keys.Snapshot(snap.Signature)

	_, err := s.client.StatObject(ctx, s.bucket, objectKey, minio.StatObjectOptions{})
	if err == nil {
		s.logger.Debug("Snapshot already archived", zap.String("key", objectKey))
		return nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("failed to check for existing snapshot: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = s.client.PutObject(
		ctx,
		s.bucket,
		objectKey,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.logger.Info("Archived places snapshot",
		zap.String("bucket", s.bucket),
		zap.String("key", objectKey),
		zap.Int("places", len(snap.Places)))
	return nil
}
