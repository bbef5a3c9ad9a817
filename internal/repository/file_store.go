package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
)

// FileStore provides in-memory and file-based storage for file records.
type FileStore struct {
	mu    sync.RWMutex
	files map[string]*domain.FileRecord
	file  string
}

// NewFileStore creates a new FileStore and loads records from the state file
// if it exists.
func NewFileStore(filePath string) (*FileStore, error) {
	store := &FileStore{
		files: make(map[string]*domain.FileRecord),
		file:  filepath.Clean(filePath),
	}

	if err := store.restore(); err != nil {
		return nil, fmt.Errorf("failed to load state from file: %w", err)
	}

	slog.Info("file store initialized", "file_path", store.file, "records_count", len(store.files))
	return store, nil
}

func (s *FileStore) restore() error {
	data, err := os.ReadFile(s.file)
	if os.IsNotExist(err) {
		slog.Info("state file does not exist, starting with empty state", "file_path", s.file)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}
	if len(data) == 0 {
		slog.Warn("state file is empty", "file_path", s.file)
		return nil
	}

	var records []*domain.FileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal state file: %w", err)
	}

	for _, rec := range records {
		s.files[rec.Key] = rec
	}
	return nil
}

func (s *FileStore) persist() error {
	s.mu.RLock()
	records := make([]*domain.FileRecord, 0, len(s.files))
	for _, rec := range s.files {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file records: %w", err)
	}

	tempFile := s.file + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.file); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Create adds a new file record and persists it. The store keeps its own
// copy; callers never share a pointer with store internals.
func (s *FileStore) Create(ctx context.Context, file *domain.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := *file
	s.mu.Lock()
	s.files[rec.Key] = &rec
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to save state after creating file record: %w", err)
	}

	slog.Debug("file record created", "key", file.Key, "user_id", file.UserID)
	return nil
}

// Get retrieves a copy of a file record by key. Mutating the result has no
// effect until it is passed back through Update.
func (s *FileStore) Get(ctx context.Context, key string) (*domain.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.files[key]
	if !exists {
		return nil, errpkg.ErrFileNotFound
	}
	cp := *rec
	return &cp, nil
}

// Update updates an existing file record and persists it.
func (s *FileStore) Update(ctx context.Context, file *domain.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file.UpdatedAt = time.Now()
	rec := *file
	s.mu.Lock()
	s.files[rec.Key] = &rec
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to save state after updating file record: %w", err)
	}

	slog.Debug("file record updated", "key", file.Key, "status", file.Status, "progress", file.Progress)
	return nil
}

// Delete removes a file record and persists the change.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	_, exists := s.files[key]
	delete(s.files, key)
	s.mu.Unlock()

	if !exists {
		return errpkg.ErrFileNotFound
	}

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to save state after deleting file record: %w", err)
	}
	return nil
}

// ListByUser returns all file records owned by the given user.
func (s *FileStore) ListByUser(ctx context.Context, userID string) ([]*domain.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var filtered []*domain.FileRecord
	for _, rec := range s.files {
		if rec.UserID == userID {
			cp := *rec
			filtered = append(filtered, &cp)
		}
	}
	s.mu.RUnlock()

	return filtered, nil
}

// ListByStatus returns all file records with the specified status.
func (s *FileStore) ListByStatus(ctx context.Context, status domain.FileStatus) ([]*domain.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var filtered []*domain.FileRecord
	for _, rec := range s.files {
		if rec.Status == status {
			cp := *rec
			filtered = append(filtered, &cp)
		}
	}
	s.mu.RUnlock()

	return filtered, nil
}
