package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/studiahub/studiahub/internal/domain"
)

// FileRepo defines the interface for file record storage operations.
type FileRepo interface {
	Create(ctx context.Context, file *domain.FileRecord) error
	Get(ctx context.Context, key string) (*domain.FileRecord, error)
	Update(ctx context.Context, file *domain.FileRecord) error
	Delete(ctx context.Context, key string) error
	ListByUser(ctx context.Context, userID string) ([]*domain.FileRecord, error)
	ListByStatus(ctx context.Context, status domain.FileStatus) ([]*domain.FileRecord, error)
}

// QuizRepo defines the interface for quiz storage operations.
type QuizRepo interface {
	Create(ctx context.Context, quiz *domain.Quiz) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Quiz, error)
	Update(ctx context.Context, quiz *domain.Quiz) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByStatus(ctx context.Context, status domain.QuizStatus) ([]*domain.Quiz, error)
}

// UsageRepo defines the interface for per-user usage accounting storage.
type UsageRepo interface {
	Get(ctx context.Context, userID string) (*domain.Usage, error)
	Save(ctx context.Context, usage *domain.Usage) error
}
