package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
	"github.com/studiahub/studiahub/internal/repository"
)

// UsageService enforces per-user plan limits and keeps usage accounting.
// Quiz and question counters roll over each period; storage accounting
// follows file lifetimes.
type UsageService struct {
	repo   repository.UsageRepo
	limits domain.Limits
	period time.Duration
}

// NewUsageService creates a UsageService with the given limits and period.
func NewUsageService(repo repository.UsageRepo, limits domain.Limits, period time.Duration) *UsageService {
	return &UsageService{repo: repo, limits: limits, period: period}
}

// Snapshot returns the user's current usage with period counters rolled
// forward if the billing period has elapsed.
func (s *UsageService) Snapshot(ctx context.Context, userID string) (*domain.Usage, error) {
	usage, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}

	if s.period > 0 && time.Since(usage.PeriodStart) >= s.period {
		usage.QuizzesGenerated = 0
		usage.QuestionsAsked = 0
		usage.PeriodStart = time.Now()
		if err := s.repo.Save(ctx, usage); err != nil {
			return nil, fmt.Errorf("roll usage period: %w", err)
		}
		slog.Info("usage period rolled", "user_id", userID)
	}

	return usage, nil
}

// CheckFileAdmission verifies that one more file of the declared size fits
// the user's plan.
func (s *UsageService) CheckFileAdmission(ctx context.Context, userID string, size int64) error {
	if size > s.limits.MaxFileSize {
		return fmt.Errorf("%w: %d bytes (max %d)", errpkg.ErrFileTooLarge, size, s.limits.MaxFileSize)
	}

	usage, err := s.Snapshot(ctx, userID)
	if err != nil {
		return err
	}

	if usage.FileCount+1 > s.limits.MaxFiles {
		return fmt.Errorf("%w: file count limit reached (%d)", errpkg.ErrUsageLimitExceeded, s.limits.MaxFiles)
	}
	if usage.StorageBytes+size > s.limits.MaxStorageBytes {
		return fmt.Errorf("%w: storage limit reached (%d bytes)", errpkg.ErrUsageLimitExceeded, s.limits.MaxStorageBytes)
	}

	return nil
}

// CommitFile records an accepted file against the user's storage accounting.
func (s *UsageService) CommitFile(ctx context.Context, userID string, size int64) error {
	usage, err := s.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	usage.FileCount++
	usage.StorageBytes += size
	return s.repo.Save(ctx, usage)
}

// ReleaseFile returns a deleted file's storage to the user's allowance.
func (s *UsageService) ReleaseFile(ctx context.Context, userID string, size int64) error {
	usage, err := s.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	usage.FileCount--
	usage.StorageBytes -= size
	if usage.FileCount < 0 {
		usage.FileCount = 0
	}
	if usage.StorageBytes < 0 {
		usage.StorageBytes = 0
	}
	return s.repo.Save(ctx, usage)
}

// CheckQuizAdmission verifies the user may generate another quiz this period.
func (s *UsageService) CheckQuizAdmission(ctx context.Context, userID string) error {
	usage, err := s.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	if usage.QuizzesGenerated+1 > s.limits.MaxQuizzesPerPeriod {
		return fmt.Errorf("%w: quiz limit reached (%d per period)", errpkg.ErrUsageLimitExceeded, s.limits.MaxQuizzesPerPeriod)
	}
	return nil
}

// CommitQuiz counts a successfully generated quiz.
func (s *UsageService) CommitQuiz(ctx context.Context, userID string) error {
	usage, err := s.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	usage.QuizzesGenerated++
	return s.repo.Save(ctx, usage)
}

// CheckQuestionAdmission verifies the user may ask another chat question.
func (s *UsageService) CheckQuestionAdmission(ctx context.Context, userID string) error {
	usage, err := s.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	if usage.QuestionsAsked+1 > s.limits.MaxQuestionsPerPeriod {
		return fmt.Errorf("%w: question limit reached (%d per period)", errpkg.ErrUsageLimitExceeded, s.limits.MaxQuestionsPerPeriod)
	}
	return nil
}

// CommitQuestion counts an answered chat question.
func (s *UsageService) CommitQuestion(ctx context.Context, userID string) error {
	usage, err := s.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	usage.QuestionsAsked++
	return s.repo.Save(ctx, usage)
}
