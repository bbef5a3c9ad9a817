package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
	"github.com/studiahub/studiahub/internal/repository"
)

func testLimits() domain.Limits {
	return domain.Limits{
		MaxFileSize:           1000,
		MaxStorageBytes:       3000,
		MaxFiles:              3,
		MaxQuizzesPerPeriod:   2,
		MaxQuestionsPerPeriod: 5,
	}
}

func newTestUsageService(t *testing.T) *UsageService {
	t.Helper()
	repo, err := repository.NewUsageStore(filepath.Join(t.TempDir(), "usage.json"))
	if err != nil {
		t.Fatalf("NewUsageStore error: %v", err)
	}
	return NewUsageService(repo, testLimits(), time.Hour)
}

func TestUsageService_FileAdmission(t *testing.T) {
	svc := newTestUsageService(t)
	ctx := context.Background()

	assert.NoError(t, svc.CheckFileAdmission(ctx, "u1", 500))

	err := svc.CheckFileAdmission(ctx, "u1", 2000)
	assert.True(t, errors.Is(err, errpkg.ErrFileTooLarge), "got %v", err)

	// Fill the file-count allowance.
	for i := 0; i < 3; i++ {
		assert.NoError(t, svc.CommitFile(ctx, "u1", 100))
	}
	err = svc.CheckFileAdmission(ctx, "u1", 100)
	assert.True(t, errors.Is(err, errpkg.ErrUsageLimitExceeded), "got %v", err)
}

func TestUsageService_StorageLimit(t *testing.T) {
	svc := newTestUsageService(t)
	ctx := context.Background()

	assert.NoError(t, svc.CommitFile(ctx, "u1", 1000))
	assert.NoError(t, svc.CommitFile(ctx, "u1", 1000))

	// 2000 used of 3000; another 1000 fits, 1001 would not but the per-file
	// cap trips first for anything above 1000.
	assert.NoError(t, svc.CheckFileAdmission(ctx, "u1", 1000))

	assert.NoError(t, svc.CommitFile(ctx, "u1", 999))
	err := svc.CheckFileAdmission(ctx, "u1", 100)
	assert.True(t, errors.Is(err, errpkg.ErrUsageLimitExceeded), "got %v", err)
}

func TestUsageService_ReleaseFileFloorsAtZero(t *testing.T) {
	svc := newTestUsageService(t)
	ctx := context.Background()

	assert.NoError(t, svc.ReleaseFile(ctx, "u1", 500))

	usage, err := svc.Snapshot(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 0, usage.FileCount)
	assert.Equal(t, int64(0), usage.StorageBytes)
}

func TestUsageService_QuizAndQuestionLimits(t *testing.T) {
	svc := newTestUsageService(t)
	ctx := context.Background()

	assert.NoError(t, svc.CheckQuizAdmission(ctx, "u1"))
	assert.NoError(t, svc.CommitQuiz(ctx, "u1"))
	assert.NoError(t, svc.CommitQuiz(ctx, "u1"))

	err := svc.CheckQuizAdmission(ctx, "u1")
	assert.True(t, errors.Is(err, errpkg.ErrUsageLimitExceeded), "got %v", err)

	for i := 0; i < 5; i++ {
		assert.NoError(t, svc.CommitQuestion(ctx, "u1"))
	}
	err = svc.CheckQuestionAdmission(ctx, "u1")
	assert.True(t, errors.Is(err, errpkg.ErrUsageLimitExceeded), "got %v", err)
}

func TestUsageService_PeriodRollResetsCounters(t *testing.T) {
	repo, err := repository.NewUsageStore(filepath.Join(t.TempDir(), "usage.json"))
	if err != nil {
		t.Fatalf("NewUsageStore error: %v", err)
	}
	svc := NewUsageService(repo, testLimits(), 50*time.Millisecond)
	ctx := context.Background()

	assert.NoError(t, svc.CommitQuiz(ctx, "u1"))
	assert.NoError(t, svc.CommitQuiz(ctx, "u1"))
	assert.Error(t, svc.CheckQuizAdmission(ctx, "u1"))

	time.Sleep(60 * time.Millisecond)

	// Period elapsed: quiz and question counters reset, storage does not.
	assert.NoError(t, svc.CommitFile(ctx, "u1", 100))
	assert.NoError(t, svc.CheckQuizAdmission(ctx, "u1"))

	usage, err := svc.Snapshot(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 0, usage.QuizzesGenerated)
	assert.Equal(t, int64(100), usage.StorageBytes)
}
