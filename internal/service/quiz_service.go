package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studiahub/studiahub/internal/ai"
	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
	"github.com/studiahub/studiahub/internal/metrics"
	"github.com/studiahub/studiahub/internal/repository"
	"github.com/studiahub/studiahub/internal/storage"
)

// Quiz generation progress checkpoints.
const (
	quizProgressStarted   = 10
	quizProgressContext   = 35
	quizProgressGenerated = 75
	quizProgressParsed    = 90
	quizProgressDone      = 100
)

// maxContextChars bounds how much document text is sent to the model.
const maxContextChars = 24000

// QuizService creates quizzes asynchronously: Generate enqueues a job and
// returns immediately; a worker pool drives each quiz through
// queued → processing → ready/error while clients poll its status.
type QuizService struct {
	quizzes  repository.QuizRepo
	files    repository.FileRepo
	chunks   *storage.BlobStorage
	provider ai.CompletionProvider
	usage    *UsageService
	queue    chan uuid.UUID
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewQuizService creates a QuizService backed by a pool of generation workers.
func NewQuizService(
	quizzes repository.QuizRepo,
	files repository.FileRepo,
	chunks *storage.BlobStorage,
	provider ai.CompletionProvider,
	usage *UsageService,
	workers int,
) *QuizService {
	s := &QuizService{
		quizzes:  quizzes,
		files:    files,
		chunks:   chunks,
		provider: provider,
		usage:    usage,
		queue:    make(chan uuid.UUID, 100),
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func(workerID int) {
			defer s.wg.Done()
			for id := range s.queue {
				if err := s.generate(id); err != nil {
					slog.Error("worker failed to generate quiz", "worker_id", workerID, "quiz_id", id, "error", err)
				}
			}
		}(i + 1)
	}

	slog.Info("quiz service started", "workers", workers, "provider", provider.Name())
	return s
}

// Generate validates the request, checks usage limits, creates the quiz
// record, and enqueues the generation job.
func (s *QuizService) Generate(ctx context.Context, req *domain.GenerateQuizRequest) (*domain.Quiz, error) {
	if err := s.usage.CheckQuizAdmission(ctx, req.UserID); err != nil {
		return nil, err
	}

	ready, err := s.readyFiles(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(ready) == 0 {
		return nil, errpkg.ErrNoReadyDocuments
	}

	quiz := &domain.Quiz{
		ID:            uuid.New(),
		UserID:        req.UserID,
		Name:          req.QuizName,
		Status:        domain.QuizStatusQueued,
		Difficulty:    req.Difficulty,
		Minutes:       req.Minutes,
		QuestionCount: req.QuestionCount,
		Topic:         req.Topic,
		Instructions:  req.AdditionalInstructions,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("create quiz record: %w", err)
	}

	if err := s.enqueue(quiz.ID); err != nil {
		_ = s.quizzes.Delete(ctx, quiz.ID)
		return nil, err
	}

	slog.Info("quiz generation enqueued", "quiz_id", quiz.ID, "user_id", req.UserID,
		"question_count", req.QuestionCount, "difficulty", req.Difficulty)
	return quiz, nil
}

func (s *QuizService) enqueue(id uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("quiz service is shutting down")
	}
	s.queue <- id
	return nil
}

// Get retrieves a quiz by ID.
func (s *QuizService) Get(ctx context.Context, id uuid.UUID) (*domain.Quiz, error) {
	return s.quizzes.Get(ctx, id)
}

// Delete removes a quiz record.
func (s *QuizService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.quizzes.Delete(ctx, id)
}

func (s *QuizService) readyFiles(ctx context.Context, userID string) ([]*domain.FileRecord, error) {
	records, err := s.files.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user files: %w", err)
	}
	var ready []*domain.FileRecord
	for _, rec := range records {
		if rec.Status == domain.FileStatusReady && rec.ChunkCount > 0 {
			ready = append(ready, rec)
		}
	}
	return ready, nil
}

func (s *QuizService) generate(id uuid.UUID) error {
	ctx := context.Background()
	start := time.Now()

	quiz, err := s.quizzes.Get(ctx, id)
	if err != nil {
		// Deleted while queued; nothing to do.
		if errors.Is(err, errpkg.ErrQuizNotFound) {
			return nil
		}
		return fmt.Errorf("load quiz: %w", err)
	}

	quiz.Status = domain.QuizStatusProcessing
	quiz.Progress = quizProgressStarted
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	docContext, err := s.gatherContext(ctx, quiz.UserID)
	if err != nil {
		return s.fail(ctx, quiz, fmt.Sprintf("could not gather document context: %v", err))
	}
	quiz.Progress = quizProgressContext
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return fmt.Errorf("record context progress: %w", err)
	}

	system, user := buildQuizPrompt(quiz, docContext)
	raw, err := s.provider.Complete(ctx, system, user)
	if err != nil {
		return s.fail(ctx, quiz, fmt.Sprintf("question generation failed: %v", err))
	}
	quiz.Progress = quizProgressGenerated
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return fmt.Errorf("record generation progress: %w", err)
	}

	questions, err := parseQuestions(raw)
	if err != nil {
		return s.fail(ctx, quiz, fmt.Sprintf("could not parse generated questions: %v", err))
	}
	if len(questions) > quiz.QuestionCount {
		questions = questions[:quiz.QuestionCount]
	}
	quiz.Progress = quizProgressParsed
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return fmt.Errorf("record parsing progress: %w", err)
	}

	quiz.Questions = questions
	quiz.Status = domain.QuizStatusReady
	quiz.Progress = quizProgressDone
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}

	if err := s.usage.CommitQuiz(ctx, quiz.UserID); err != nil {
		slog.Error("failed to record quiz usage", "quiz_id", quiz.ID, "error", err)
	}

	metrics.QuizzesGenerated.Inc()
	metrics.QuizDuration.Observe(time.Since(start).Seconds())

	slog.Info("quiz generated", "quiz_id", quiz.ID, "questions", len(questions), "duration", time.Since(start))
	return nil
}

func (s *QuizService) gatherContext(ctx context.Context, userID string) (string, error) {
	ready, err := s.readyFiles(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(ready) == 0 {
		return "", errpkg.ErrNoReadyDocuments
	}

	var sb strings.Builder
	for _, rec := range ready {
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

func (s *QuizService) fail(ctx context.Context, quiz *domain.Quiz, message string) error {
	quiz.Status = domain.QuizStatusError
	quiz.ErrorMessage = message
	if err := s.quizzes.Update(ctx, quiz); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	metrics.QuizzesFailed.Inc()
	slog.Error("quiz generation failed", "quiz_id", quiz.ID, "error", message)
	return nil
}

// Recover re-enqueues quizzes left queued or mid-generation by a previous run.
func (s *QuizService) Recover(ctx context.Context) error {
	inProgress, err := s.quizzes.ListByStatus(ctx, domain.QuizStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to get in-progress quizzes: %w", err)
	}

	for _, quiz := range inProgress {
		quiz.Status = domain.QuizStatusQueued
		quiz.Progress = 0
		if err := s.quizzes.Update(ctx, quiz); err != nil {
			slog.Error("failed to reset quiz for recovery", "quiz_id", quiz.ID, "error", err)
		}
	}

	queued, err := s.quizzes.ListByStatus(ctx, domain.QuizStatusQueued)
	if err != nil {
		return fmt.Errorf("failed to get queued quizzes: %w", err)
	}

	for _, quiz := range queued {
		if err := s.enqueue(quiz.ID); err != nil {
			return err
		}
	}

	if len(queued) > 0 {
		slog.Info("recovered pending quiz generations", "count", len(queued))
	}
	return nil
}

// Shutdown stops accepting work and waits for in-flight generations to finish.
func (s *QuizService) Shutdown(ctx context.Context) error {
	slog.Info("shutting down quiz service")

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
		slog.Info("quiz service shutdown completed")
		return nil
	case <-ctx.Done():
		slog.Warn("quiz service shutdown timed out")
		return ctx.Err()
	}
}

func buildQuizPrompt(quiz *domain.Quiz, docContext string) (system, user string) {
	system = "You are a quiz author for a study platform. Given excerpts from a " +
		"student's documents, write multiple-choice questions strictly grounded in " +
		"those excerpts. Respond with a JSON array only, no surrounding prose. Each " +
		"element must have the shape {\"prompt\": string, \"options\": [4 strings], " +
		"\"answerIndex\": 0-3, \"explanation\": string}."

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write exactly %d %s questions.\n", quiz.QuestionCount, quiz.Difficulty)
	if quiz.Topic != "" {
		fmt.Fprintf(&sb, "Focus on the topic: %s.\n", quiz.Topic)
	}
	if quiz.Instructions != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n", quiz.Instructions)
	}
	sb.WriteString("\nDocument excerpts:\n")
	sb.WriteString(docContext)

	return system, sb.String()
}

// parseQuestions extracts the question array from a model response,
// tolerating surrounding prose and markdown code fences.
func parseQuestions(raw string) ([]domain.Question, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var questions []domain.Question
	if err := json.Unmarshal([]byte(raw[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("invalid question JSON: %w", err)
	}

	valid := questions[:0]
	for _, q := range questions {
		if q.Prompt == "" || len(q.Options) != 4 || q.AnswerIndex < 0 || q.AnswerIndex > 3 {
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("response contained no valid questions")
	}

	return valid, nil
}
