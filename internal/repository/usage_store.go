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
)

// UsageStore provides in-memory and file-based storage for usage accounting.
// A missing user resolves to a zeroed usage record rather than an error.
type UsageStore struct {
	mu    sync.RWMutex
	usage map[string]*domain.Usage
	file  string
}

// NewUsageStore creates a new UsageStore and loads records from the state
// file if it exists.
func NewUsageStore(filePath string) (*UsageStore, error) {
	store := &UsageStore{
		usage: make(map[string]*domain.Usage),
		file:  filepath.Clean(filePath),
	}

	if err := store.restore(); err != nil {
		return nil, fmt.Errorf("failed to load state from file: %w", err)
	}

	slog.Info("usage store initialized", "file_path", store.file, "users_count", len(store.usage))
	return store, nil
}

func (s *UsageStore) restore() error {
	data, err := os.ReadFile(s.file)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []*domain.Usage
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal state file: %w", err)
	}

	for _, u := range records {
		s.usage[u.UserID] = u
	}
	return nil
}

func (s *UsageStore) persist() error {
	s.mu.RLock()
	records := make([]*domain.Usage, 0, len(s.usage))
	for _, u := range s.usage {
		records = append(records, u)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage records: %w", err)
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

// Get retrieves a copy of the usage record for a user, creating a fresh
// zeroed record for users seen for the first time. Mutating the result has
// no effect until it is passed back through Save.
func (s *UsageStore) Get(ctx context.Context, userID string) (*domain.Usage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.usage[userID]
	if !exists {
		return &domain.Usage{UserID: userID, PeriodStart: time.Now()}, nil
	}
	cp := *u
	return &cp, nil
}

// Save persists the usage record for a user. The store keeps its own copy.
func (s *UsageStore) Save(ctx context.Context, usage *domain.Usage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u := *usage
	s.mu.Lock()
	s.usage[u.UserID] = &u
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to save state after updating usage: %w", err)
	}

	slog.Debug("usage updated", "user_id", usage.UserID,
		"storage_bytes", usage.StorageBytes, "file_count", usage.FileCount)
	return nil
}
