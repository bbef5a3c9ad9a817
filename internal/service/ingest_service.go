package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/studiahub/studiahub/internal/domain"
	"github.com/studiahub/studiahub/internal/metrics"
	"github.com/studiahub/studiahub/internal/repository"
	"github.com/studiahub/studiahub/internal/storage"
)

// Ingestion progress checkpoints. Values only move forward; the final jump
// to 100 happens together with the ready status.
const (
	ingestProgressStarted   = 10
	ingestProgressExtracted = 45
	ingestProgressChunked   = 80
	ingestProgressDone      = 100
)

// IngestService processes confirmed uploads in the background: it extracts
// text from the stored blob, chunks it for retrieval, and advances the file
// record through queued → processing → ready/error.
type IngestService struct {
	files  repository.FileRepo
	blobs  *storage.BlobStorage
	chunks *storage.BlobStorage
	queue  chan string
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewIngestService creates an IngestService backed by a pool of workers.
func NewIngestService(files repository.FileRepo, blobs, chunks *storage.BlobStorage, workers int) *IngestService {
	s := &IngestService{
		files:  files,
		blobs:  blobs,
		chunks: chunks,
		queue:  make(chan string, 100),
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func(workerID int) {
			defer s.wg.Done()
			for key := range s.queue {
				if err := s.process(key); err != nil {
					slog.Error("worker failed to process file", "worker_id", workerID, "key", key, "error", err)
				}
			}
		}(i + 1)
	}

	slog.Info("ingest service started", "workers", workers)
	return s
}

// Enqueue schedules a confirmed file for processing.
func (s *IngestService) Enqueue(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("ingest service is shutting down")
	}

	s.queue <- key
	slog.Debug("file enqueued for ingestion", "key", key)
	return nil
}

func (s *IngestService) process(key string) error {
	ctx := context.Background()
	start := time.Now()

	rec, err := s.files.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load file record: %w", err)
	}

	rec.Status = domain.FileStatusProcessing
	rec.Progress = ingestProgressStarted
	if err := s.files.Update(ctx, rec); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	data, err := s.blobs.Read(key)
	if err != nil {
		return s.fail(ctx, rec, fmt.Sprintf("could not read stored document: %v", err))
	}

	text := ExtractText(rec.ContentType, data)
	rec.Progress = ingestProgressExtracted
	if err := s.files.Update(ctx, rec); err != nil {
		return fmt.Errorf("record extraction progress: %w", err)
	}

	chunks, err := ChunkText(text, defaultChunkChars)
	if err != nil {
		return s.fail(ctx, rec, fmt.Sprintf("could not chunk document text: %v", err))
	}
	if err := writeChunks(s.chunks, key, chunks); err != nil {
		return s.fail(ctx, rec, fmt.Sprintf("could not store document chunks: %v", err))
	}

	rec.ChunkCount = len(chunks)
	rec.Progress = ingestProgressChunked
	if err := s.files.Update(ctx, rec); err != nil {
		return fmt.Errorf("record chunking progress: %w", err)
	}

	rec.Status = domain.FileStatusReady
	rec.Progress = ingestProgressDone
	if err := s.files.Update(ctx, rec); err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}

	metrics.FilesIngested.Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	slog.Info("file ingested", "key", key, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

func (s *IngestService) fail(ctx context.Context, rec *domain.FileRecord, message string) error {
	rec.Status = domain.FileStatusError
	rec.ErrorMessage = message
	if err := s.files.Update(ctx, rec); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	metrics.IngestFailed.Inc()
	slog.Error("file ingestion failed", "key", rec.Key, "error", message)
	return nil
}

// Recover re-enqueues files left queued or mid-processing by a previous run.
func (s *IngestService) Recover(ctx context.Context) error {
	inProgress, err := s.files.ListByStatus(ctx, domain.FileStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to get in-progress files: %w", err)
	}

	for _, rec := range inProgress {
		rec.Status = domain.FileStatusQueued
		rec.Progress = 0
		if err := s.files.Update(ctx, rec); err != nil {
			slog.Error("failed to reset file for recovery", "key", rec.Key, "error", err)
		}
	}

	queued, err := s.files.ListByStatus(ctx, domain.FileStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to get queued files: %w", err)
	}

	for _, rec := range queued {
		if err := s.Enqueue(rec.Key); err != nil {
			return err
		}
	}

	if len(queued) > 0 {
		slog.Info("recovered pending ingestions", "count", len(queued))
	}
	return nil
}

// Shutdown stops accepting work and waits for in-flight processing to finish.
func (s *IngestService) Shutdown(ctx context.Context) error {
	slog.Info("shutting down ingest service")

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("ingest service shutdown completed")
		return nil
	case <-ctx.Done():
		slog.Warn("ingest service shutdown timed out")
		return ctx.Err()
	}
}
