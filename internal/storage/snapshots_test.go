package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"places/internal/models"
)

type fakeObjectStore struct {
	buckets map[string]bool
	objects map[string][]byte
	statErr error
	puts    int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{buckets: map[string]bool{}, objects: map[string][]byte{}}
}

func (f *fakeObjectStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeObjectStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeObjectStore) StatObject(_ context.Context, bucket, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if f.statErr != nil {
		return minio.ObjectInfo{}, f.statErr
	}
	if _, ok := f.objects[bucket+"/"+key]; ok {
		return minio.ObjectInfo{Key: key}, nil
	}
	return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", Key: key}
}

func (f *fakeObjectStore) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.puts++
	f.objects[bucket+"/"+key] = data
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

func TestSnapshotArchive_EnsureBucket(t *testing.T) {
	store := newFakeObjectStore()
	archive := newSnapshotArchive(store, "places", zap.NewNop())

	if err := archive.EnsureBucket(context.Background(), ""); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}
	if !store.buckets["places"] {
		t.Error("bucket was not created")
	}
	if err := archive.EnsureBucket(context.Background(), ""); err != nil {
		t.Fatalf("second EnsureBucket: %v", err)
	}
}

func TestSnapshotArchive_Archive(t *testing.T) {
	store := newFakeObjectStore()
	archive := newSnapshotArchive(store, "places", zap.NewNop())
	snap := Snapshot{
		Signature: "abc",
		FetchedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Places:    []models.Place{{ID: "1", Name: "Alpha", City: "Quito", Country: "Ecuador"}},
	}

	if err := archive.Archive(context.Background(), snap); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	raw, ok := store.objects["places/snapshots/abc.json"]
	if !ok {
		t.Fatalf("snapshot not stored, objects: %v", store.objects)
	}
	var got Snapshot
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("stored snapshot is not JSON: %v", err)
	}
	if got.Signature != "abc" || len(got.Places) != 1 || got.Places[0].Name != "Alpha" {
		t.Errorf("unexpected snapshot: %+v", got)
	}

	// A second archive of the same signature must not overwrite.
	snap.Places = nil
	if err := archive.Archive(context.Background(), snap); err != nil {
		t.Fatalf("second Archive: %v", err)
	}
	if store.puts != 1 {
		t.Errorf("puts = %d, want 1", store.puts)
	}
}

func TestSnapshotArchive_StatFailure(t *testing.T) {
	store := newFakeObjectStore()
	store.statErr = errors.New("access denied")
	archive := newSnapshotArchive(store, "places", zap.NewNop())

	if err := archive.Archive(context.Background(), Snapshot{Signature: "abc"}); err == nil {
		t.Fatal("expected error when stat fails for a reason other than NoSuchKey")
	}
	if store.puts != 0 {
		t.Errorf("puts = %d, want 0", store.puts)
	}
}

func TestNewSnapshotArchive_MissingSettings(t *testing.T) {
	if _, err := NewSnapshotArchive(MinioOptions{Endpoint: "minio:9000"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
