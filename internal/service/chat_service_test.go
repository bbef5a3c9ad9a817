package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studiahub/studiahub/internal/ai"
	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
	"github.com/studiahub/studiahub/internal/repository"
	"github.com/studiahub/studiahub/internal/storage"
)

type chatFixture struct {
	files  *repository.FileStore
	chunks *storage.BlobStorage
	usage  *UsageService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	dir := t.TempDir()

	files, err := repository.NewFileStore(filepath.Join(dir, "files.json"))
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	usageRepo, err := repository.NewUsageStore(filepath.Join(dir, "usage.json"))
	if err != nil {
		t.Fatalf("NewUsageStore error: %v", err)
	}

	return &chatFixture{
		files:  files,
		chunks: storage.NewBlobStorage(t.TempDir()),
		usage:  NewUsageService(usageRepo, testLimits(), time.Hour),
	}
}

func (f *chatFixture) addReadyFile(t *testing.T, key, userID string, chunks []string) {
	t.Helper()
	if err := writeChunks(f.chunks, key, chunks); err != nil {
		t.Fatalf("write chunks: %v", err)
	}
	rec := &domain.FileRecord{
		Key:        key,
		UserID:     userID,
		Status:     domain.FileStatusReady,
		ChunkCount: len(chunks),
	}
	if err := f.files.Create(context.Background(), rec); err != nil {
		t.Fatalf("create record: %v", err)
	}
}

func TestChatService_AnswersFromDocuments(t *testing.T) {
	f := newChatFixture(t)
	f.addReadyFile(t, "bio.txt", "u1", []string{"The cell membrane regulates transport."})
	svc := NewChatService(f.files, f.chunks, ai.Static{Response: "It regulates transport."}, f.usage)
	ctx := context.Background()

	answer, err := svc.Ask(ctx, &domain.AskRequest{UserID: "u1", Question: "What does the membrane do?"})
	assert.NoError(t, err)
	assert.Equal(t, "It regulates transport.", answer)

	usage, err := f.usage.Snapshot(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 1, usage.QuestionsAsked)
}

func TestChatService_ScopedToSingleFile(t *testing.T) {
	f := newChatFixture(t)
	f.addReadyFile(t, "bio.txt", "u1", []string{"Biology content."})
	svc := NewChatService(f.files, f.chunks, ai.Static{Response: "ok"}, f.usage)

	_, err := svc.Ask(context.Background(), &domain.AskRequest{UserID: "u1", Question: "q", FileKey: "bio.txt"})
	assert.NoError(t, err)

	// A key owned by another user is treated as missing.
	_, err = svc.Ask(context.Background(), &domain.AskRequest{UserID: "u2", Question: "q", FileKey: "bio.txt"})
	assert.True(t, errors.Is(err, errpkg.ErrFileNotFound), "got %v", err)
}

func TestChatService_NoReadyDocuments(t *testing.T) {
	f := newChatFixture(t)
	svc := NewChatService(f.files, f.chunks, ai.Static{Response: "ok"}, f.usage)

	_, err := svc.Ask(context.Background(), &domain.AskRequest{UserID: "u1", Question: "anything there?"})
	assert.True(t, errors.Is(err, errpkg.ErrNoReadyDocuments), "got %v", err)
}

func TestChatService_QuestionLimit(t *testing.T) {
	f := newChatFixture(t)
	f.addReadyFile(t, "bio.txt", "u1", []string{"Content."})
	svc := NewChatService(f.files, f.chunks, ai.Static{Response: "ok"}, f.usage)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.NoError(t, f.usage.CommitQuestion(ctx, "u1"))
	}

	_, err := svc.Ask(ctx, &domain.AskRequest{UserID: "u1", Question: "one more"})
	assert.True(t, errors.Is(err, errpkg.ErrUsageLimitExceeded), "got %v", err)
}

func TestChatService_ProviderDisabled(t *testing.T) {
	f := newChatFixture(t)
	f.addReadyFile(t, "bio.txt", "u1", []string{"Content."})
	svc := NewChatService(f.files, f.chunks, ai.Disabled{}, f.usage)

	_, err := svc.Ask(context.Background(), &domain.AskRequest{UserID: "u1", Question: "q"})
	assert.True(t, errors.Is(err, errpkg.ErrProviderDisabled), "got %v", err)
}
