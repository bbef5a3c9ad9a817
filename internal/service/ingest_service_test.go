package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studiahub/studiahub/internal/domain"
	"github.com/studiahub/studiahub/internal/repository"
	"github.com/studiahub/studiahub/internal/storage"
)

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

type ingestFixture struct {
	files  *repository.FileStore
	blobs  *storage.BlobStorage
	chunks *storage.BlobStorage
	ingest *IngestService
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	dir := t.TempDir()

	files, err := repository.NewFileStore(filepath.Join(dir, "files.json"))
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	blobs := storage.NewBlobStorage(t.TempDir())
	chunks := storage.NewBlobStorage(t.TempDir())
	ingest := NewIngestService(files, blobs, chunks, 2)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ingest.Shutdown(ctx)
	})

	return &ingestFixture{files: files, blobs: blobs, chunks: chunks, ingest: ingest}
}

func (f *ingestFixture) addQueuedFile(t *testing.T, key, content string) {
	t.Helper()
	if err := f.blobs.Write(key, []byte(content)); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	rec := &domain.FileRecord{
		Key:         key,
		UserID:      "u1",
		Name:        key,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Status:      domain.FileStatusQueued,
	}
	if err := f.files.Create(context.Background(), rec); err != nil {
		t.Fatalf("create record: %v", err)
	}
}

func TestIngestService_ProcessesFileToReady(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	f.addQueuedFile(t, "doc.txt", "Photosynthesis converts light into chemical energy. Plants use chlorophyll for this.")
	assert.NoError(t, f.ingest.Enqueue("doc.txt"))

	waitFor(t, 5*time.Second, func() bool {
		rec, err := f.files.Get(ctx, "doc.txt")
		return err == nil && rec.Status.Terminal()
	})

	rec, err := f.files.Get(ctx, "doc.txt")
	assert.NoError(t, err)
	assert.Equal(t, domain.FileStatusReady, rec.Status)
	assert.Equal(t, 100, rec.Progress)
	assert.Greater(t, rec.ChunkCount, 0)

	chunks, err := readChunks(f.chunks, "doc.txt")
	assert.NoError(t, err)
	assert.Len(t, chunks, rec.ChunkCount)
	assert.Contains(t, chunks[0], "Photosynthesis")
}

func TestIngestService_MissingBlobFailsRecord(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	rec := &domain.FileRecord{Key: "ghost.txt", UserID: "u1", ContentType: "text/plain", Status: domain.FileStatusQueued}
	assert.NoError(t, f.files.Create(ctx, rec))
	assert.NoError(t, f.ingest.Enqueue("ghost.txt"))

	waitFor(t, 5*time.Second, func() bool {
		got, err := f.files.Get(ctx, "ghost.txt")
		return err == nil && got.Status == domain.FileStatusError
	})

	got, err := f.files.Get(ctx, "ghost.txt")
	assert.NoError(t, err)
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestIngestService_RecoverReenqueuesPendingFiles(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	// Simulate a record left mid-processing by a previous run.
	f.addQueuedFile(t, "stale.txt", "Newton's first law describes inertia. Force equals mass times acceleration.")
	rec, err := f.files.Get(ctx, "stale.txt")
	assert.NoError(t, err)
	rec.Status = domain.FileStatusProcessing
	rec.Progress = 45
	assert.NoError(t, f.files.Update(ctx, rec))

	assert.NoError(t, f.ingest.Recover(ctx))

	waitFor(t, 5*time.Second, func() bool {
		got, err := f.files.Get(ctx, "stale.txt")
		return err == nil && got.Status == domain.FileStatusReady
	})
}

func TestIngestService_EnqueueAfterShutdownFails(t *testing.T) {
	files, err := repository.NewFileStore(filepath.Join(t.TempDir(), "files.json"))
	assert.NoError(t, err)
	ingest := NewIngestService(files, storage.NewBlobStorage(t.TempDir()), storage.NewBlobStorage(t.TempDir()), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, ingest.Shutdown(ctx))

	assert.Error(t, ingest.Enqueue("late.txt"))
}
