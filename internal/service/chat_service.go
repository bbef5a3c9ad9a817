package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studiahub/studiahub/internal/ai"
	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
	"github.com/studiahub/studiahub/internal/metrics"
	"github.com/studiahub/studiahub/internal/repository"
	"github.com/studiahub/studiahub/internal/storage"
)

// ChatService answers questions over a user's processed documents.
type ChatService struct {
	files    repository.FileRepo
	chunks   *storage.BlobStorage
	provider ai.CompletionProvider
	usage    *UsageService
}

// NewChatService creates a ChatService.
func NewChatService(files repository.FileRepo, chunks *storage.BlobStorage, provider ai.CompletionProvider, usage *UsageService) *ChatService {
	return &ChatService{files: files, chunks: chunks, provider: provider, usage: usage}
}

// Ask answers a question using the user's document chunks as context. When
// FileKey is set, only that document is consulted.
func (s *ChatService) Ask(ctx context.Context, req *domain.AskRequest) (string, error) {
	if err := s.usage.CheckQuestionAdmission(ctx, req.UserID); err != nil {
		return "", err
	}

	docContext, err := s.gatherContext(ctx, req.UserID, req.FileKey)
	if err != nil {
		return "", err
	}

	system := "You are a study assistant. Answer the student's question using " +
		"only the provided document excerpts. If the excerpts do not contain the " +
		"answer, say so plainly."

	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(req.Question)
	sb.WriteString("\n\nDocument excerpts:\n")
	sb.WriteString(docContext)

	answer, err := s.provider.Complete(ctx, system, sb.String())
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	if err := s.usage.CommitQuestion(ctx, req.UserID); err != nil {
		slog.Error("failed to record question usage", "user_id", req.UserID, "error", err)
	}
	metrics.QuestionsAsked.Inc()

	return answer, nil
}

func (s *ChatService) gatherContext(ctx context.Context, userID, fileKey string) (string, error) {
	var records []*domain.FileRecord

	if fileKey != "" {
		rec, err := s.files.Get(ctx, fileKey)
		if err != nil {
			return "", err
		}
		if rec.UserID != userID {
			return "", errpkg.ErrFileNotFound
		}
		records = []*domain.FileRecord{rec}
	} else {
		all, err := s.files.ListByUser(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("list user files: %w", err)
		}
		records = all
	}

	var sb strings.Builder
	for _, rec := range records {
		if rec.Status != domain.FileStatusReady || rec.ChunkCount == 0 {
			continue
		}
		chunks, err := readChunks(s.chunks, rec.Key)
		if err != nil {
			slog.Warn("skipping document with unreadable chunks", "key", rec.Key, "error", err)
			continue
		}
		for _, chunk := range chunks {
			if sb.Len()+len(chunk) > maxContextChars {
				return sb.String(), nil
			}
			sb.WriteString(chunk)
			sb.WriteString("\n\n")
		}
	}

	if sb.Len() == 0 {
		return "", errpkg.ErrNoReadyDocuments
	}
	return sb.String(), nil
}
