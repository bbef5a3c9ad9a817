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

	"github.com/google/uuid"
	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
)

// QuizStore provides in-memory and file-based storage for quizzes.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[uuid.UUID]*domain.Quiz
	file    string
}

// NewQuizStore creates a new QuizStore and loads quizzes from the state file
// if it exists.
func NewQuizStore(filePath string) (*QuizStore, error) {
	store := &QuizStore{
		quizzes: make(map[uuid.UUID]*domain.Quiz),
		file:    filepath.Clean(filePath),
	}

	if err := store.restore(); err != nil {
		return nil, fmt.Errorf("failed to load state from file: %w", err)
	}

	slog.Info("quiz store initialized", "file_path", store.file, "quizzes_count", len(store.quizzes))
	return store, nil
}

func (s *QuizStore) restore() error {
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

	var quizzes []*domain.Quiz
	if err := json.Unmarshal(data, &quizzes); err != nil {
		return fmt.Errorf("failed to unmarshal state file: %w", err)
	}

	for _, q := range quizzes {
		s.quizzes[q.ID] = q
	}
	return nil
}

func (s *QuizStore) persist() error {
	s.mu.RLock()
	quizzes := make([]*domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		quizzes = append(quizzes, q)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(quizzes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal quizzes: %w", err)
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

// Create adds a new quiz and persists it. The store keeps its own copy;
// callers never share a pointer with store internals.
func (s *QuizStore) Create(ctx context.Context, quiz *domain.Quiz) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q := *quiz
	s.mu.Lock()
	s.quizzes[q.ID] = &q
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to save state after creating quiz: %w", err)
	}

	slog.Debug("quiz created", "quiz_id", quiz.ID, "user_id", quiz.UserID)
	return nil
}

// Get retrieves a copy of a quiz by ID. Mutating the result has no effect
// until it is passed back through Update.
func (s *QuizStore) Get(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	quiz, exists := s.quizzes[id]
	if !exists {
		return nil, errpkg.ErrQuizNotFound
	}
	cp := *quiz
	return &cp, nil
}

// Update updates an existing quiz and persists it.
func (s *QuizStore) Update(ctx context.Context, quiz *domain.Quiz) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	quiz.UpdatedAt = time.Now()
	q := *quiz
	s.mu.Lock()
	s.quizzes[q.ID] = &q
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to save state after updating quiz: %w", err)
	}

	slog.Debug("quiz updated", "quiz_id", quiz.ID, "status", quiz.Status, "progress", quiz.Progress)
	return nil
}

// Delete removes a quiz and persists the change.
func (s *QuizStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	_, exists := s.quizzes[id]
	delete(s.quizzes, id)
	s.mu.Unlock()

	if !exists {
		return errpkg.ErrQuizNotFound
	}

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to save state after deleting quiz: %w", err)
	}
	return nil
}

// ListByStatus returns all quizzes with the specified status.
func (s *QuizStore) ListByStatus(ctx context.Context, status domain.QuizStatus) ([]*domain.Quiz, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var filtered []*domain.Quiz
	for _, q := range s.quizzes {
		if q.Status == status {
			cp := *q
			filtered = append(filtered, &cp)
		}
	}
	s.mu.RUnlock()

	return filtered, nil
}
