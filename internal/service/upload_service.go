package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
	"github.com/studiahub/studiahub/internal/metrics"
	"github.com/studiahub/studiahub/internal/repository"
	"github.com/studiahub/studiahub/internal/storage"
	"github.com/studiahub/studiahub/internal/validation"
)

// UploadService implements the three-step upload contract: presign issues a
// short-lived slot, the slot's URL receives the raw bytes, and confirm
// admits the file into the ingestion pipeline.
type UploadService struct {
	files       repository.FileRepo
	blobs       *storage.BlobStorage
	chunks      *storage.BlobStorage
	slots       *storage.SlotRegistry
	usage       *UsageService
	ingest      *IngestService
	baseURL     string
	maxFileSize int64
}

// NewUploadService creates an UploadService.
func NewUploadService(
	files repository.FileRepo,
	blobs, chunks *storage.BlobStorage,
	slots *storage.SlotRegistry,
	usage *UsageService,
	ingest *IngestService,
	baseURL string,
	maxFileSize int64,
) *UploadService {
	return &UploadService{
		files:       files,
		blobs:       blobs,
		chunks:      chunks,
		slots:       slots,
		usage:       usage,
		ingest:      ingest,
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxFileSize: maxFileSize,
	}
}

// Presign validates the declared file and issues an upload slot.
func (s *UploadService) Presign(ctx context.Context, req *domain.PresignRequest) (*domain.PresignResponse, error) {
	if err := validation.ValidateUpload(req, s.maxFileSize); err != nil {
		metrics.UploadsRejected.Inc()
		return nil, err
	}

	if err := s.usage.CheckFileAdmission(ctx, req.UserID, req.FileSize); err != nil {
		metrics.UploadsRejected.Inc()
		return nil, err
	}

	fileID := uuid.New()
	slot := &domain.UploadSlot{
		Token:        uuid.NewString(),
		Key:          buildKey(fileID, req.FileName),
		FileID:       fileID,
		UserID:       req.UserID,
		FileName:     req.FileName,
		ContentType:  req.ContentType,
		DeclaredSize: req.FileSize,
		CreatedAt:    time.Now(),
	}
	s.slots.Issue(slot)

	metrics.UploadsPresigned.Inc()
	slog.Info("upload slot issued", "key", slot.Key, "user_id", req.UserID,
		"file_name", req.FileName, "declared_size", req.FileSize)

	return &domain.PresignResponse{
		UploadURL: fmt.Sprintf("%s/upload/blob/%s", s.baseURL, slot.Token),
		Key:       slot.Key,
		FileID:    fileID.String(),
	}, nil
}

// Receive streams the raw bytes for a slot into blob storage and verifies the
// content against the declared type.
func (s *UploadService) Receive(ctx context.Context, token string, body io.Reader) error {
	slot, ok := s.slots.ByToken(token)
	if !ok {
		return errpkg.ErrSlotNotFound
	}

	written, err := s.blobs.Save(slot.Key, body, s.maxFileSize)
	if err != nil {
		return err
	}

	if err := s.verifyContent(slot); err != nil {
		_ = s.blobs.Delete(slot.Key)
		metrics.UploadsRejected.Inc()
		return err
	}

	if !s.slots.MarkReceived(token, written) {
		// Slot expired between save and mark; drop the orphaned blob.
		_ = s.blobs.Delete(slot.Key)
		return errpkg.ErrSlotNotFound
	}

	metrics.BytesStored.Add(float64(written))
	slog.Info("upload bytes received", "key", slot.Key, "bytes", written)
	return nil
}

// verifyContent sniffs the stored blob and rejects it when the detected type
// is neither the declared one nor an accepted document type.
func (s *UploadService) verifyContent(slot *domain.UploadSlot) error {
	detected, err := mimetype.DetectFile(s.blobs.Path(slot.Key))
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}

	if detected.Is(slot.ContentType) || validation.IsAllowedType(detected.String()) {
		return nil
	}
	// Plain-text detection covers markdown, CSV and friends whose declared
	// subtype the sniffer cannot see.
	if strings.HasPrefix(detected.String(), "text/") {
		return nil
	}

	return fmt.Errorf("%w: detected %s, declared %s", errpkg.ErrUnsupportedType, detected.String(), slot.ContentType)
}

// Confirm finishes the upload: it charges the user's storage allowance,
// creates the file record, and enqueues ingestion.
func (s *UploadService) Confirm(ctx context.Context, req *domain.ConfirmRequest) (*domain.FileRecord, error) {
	slot, ok := s.slots.ByKey(req.Key)
	if !ok {
		return nil, errpkg.ErrSlotNotFound
	}
	if slot.UserID != req.UserID {
		return nil, errpkg.ErrSlotNotFound
	}
	if !slot.Received {
		return nil, errpkg.ErrNotReceived
	}

	// Re-check with the actual size: the transfer may have sent fewer or more
	// bytes than declared.
	if err := s.usage.CheckFileAdmission(ctx, req.UserID, slot.ReceivedSize); err != nil {
		metrics.UploadsRejected.Inc()
		return nil, err
	}

	rec := &domain.FileRecord{
		Key:         slot.Key,
		FileID:      slot.FileID,
		UserID:      slot.UserID,
		Name:        slot.FileName,
		ContentType: slot.ContentType,
		Size:        slot.ReceivedSize,
		Status:      domain.FileStatusQueued,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.files.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create file record: %w", err)
	}

	if err := s.usage.CommitFile(ctx, req.UserID, slot.ReceivedSize); err != nil {
		return nil, fmt.Errorf("commit usage: %w", err)
	}

	s.slots.Remove(req.Key)

	if err := s.ingest.Enqueue(slot.Key); err != nil {
		return nil, fmt.Errorf("enqueue ingestion: %w", err)
	}

	metrics.UploadsConfirmed.Inc()
	slog.Info("upload confirmed", "key", slot.Key, "user_id", req.UserID, "size", slot.ReceivedSize)
	return rec, nil
}

// Status returns the polled status view of a file; a missing file yields a
// response with a null File rather than an error.
func (s *UploadService) Status(ctx context.Context, key string) (*domain.FileStatusResponse, error) {
	rec, err := s.files.Get(ctx, key)
	if errors.Is(err, errpkg.ErrFileNotFound) {
		return &domain.FileStatusResponse{File: nil}, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.FileStatusResponse{File: domain.FileView(rec)}, nil
}

// Get returns the full record of a file.
func (s *UploadService) Get(ctx context.Context, key string) (*domain.FileRecord, error) {
	return s.files.Get(ctx, key)
}

// Delete removes a file's record, blob, and chunks, and releases its storage.
func (s *UploadService) Delete(ctx context.Context, key string) error {
	rec, err := s.files.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := s.files.Delete(ctx, key); err != nil {
		return err
	}
	_ = s.blobs.Delete(key)
	_ = s.chunks.Delete(chunkBlobKey(key))

	if err := s.usage.ReleaseFile(ctx, rec.UserID, rec.Size); err != nil {
		slog.Error("failed to release storage usage", "key", key, "error", err)
	}

	slog.Info("file deleted", "key", key, "user_id", rec.UserID)
	return nil
}

// buildKey derives the remote key for an upload, keeping the original
// extension for content-type hints downstream.
func buildKey(fileID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) > 10 {
		ext = ""
	}
	return fileID.String() + ext
}
