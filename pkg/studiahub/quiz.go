package studiahub

import (
	"context"
	"fmt"
	"time"
)

// QuizParams are the user-supplied quiz settings.
type QuizParams struct {
	UserID                 string
	Name                   string
	Minutes                int
	QuestionCount          int
	Difficulty             string
	Topic                  string
	AdditionalInstructions string
}

// Validate checks the parameters before any network call.
func (p QuizParams) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("quiz name is required")
	}
	if p.Minutes <= 0 {
		return fmt.Errorf("quiz duration must be positive")
	}
	switch p.QuestionCount {
	case 10, 20, 30:
	default:
		return fmt.Errorf("question count must be 10, 20, or 30")
	}
	return nil
}

// QuizPhase is the display phase of an in-flight generation job.
type QuizPhase string

const (
	PhaseQueued     QuizPhase = "Preparing your documents"
	PhaseAnalyzing  QuizPhase = "Analyzing study material"
	PhaseWriting    QuizPhase = "Writing questions"
	PhaseFinalizing QuizPhase = "Finalizing your quiz"
)

// PhaseForProgress maps a progress percentage to its display phase.
func PhaseForProgress(progress int) QuizPhase {
	switch {
	case progress < 30:
		return PhaseQueued
	case progress < 70:
		return PhaseAnalyzing
	case progress < 90:
		return PhaseWriting
	default:
		return PhaseFinalizing
	}
}

// QuizResult is a completed quiz.
type QuizResult struct {
	QuizID    string
	Questions []Question
	Metadata  QuizMetadata
}

// QuizOrchestrator drives quiz generation end to end: parameter validation,
// job submission, status polling with phase callbacks, and cleanup of jobs
// that fail or run out the attempt budget so no partial quiz is left behind.
type QuizOrchestrator struct {
	client     *Client
	notifier   Notifier
	interval   time.Duration
	attempts   int
	onProgress func(QuizPhase, int)
}

// QuizOption customizes a QuizOrchestrator.
type QuizOption func(*QuizOrchestrator)

// WithQuizPollInterval overrides the poll interval.
func WithQuizPollInterval(d time.Duration) QuizOption {
	return func(o *QuizOrchestrator) { o.interval = d }
}

// WithQuizPollAttempts overrides the poll attempt budget.
func WithQuizPollAttempts(n int) QuizOption {
	return func(o *QuizOrchestrator) { o.attempts = n }
}

// WithQuizProgress registers a callback invoked on every progress change.
func WithQuizProgress(fn func(QuizPhase, int)) QuizOption {
	return func(o *QuizOrchestrator) { o.onProgress = fn }
}

// NewQuizOrchestrator creates an orchestrator. notifier may be nil.
func NewQuizOrchestrator(client *Client, notifier Notifier, opts ...QuizOption) *QuizOrchestrator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	o := &QuizOrchestrator{
		client:   client,
		notifier: notifier,
		interval: QuizPollInterval,
		attempts: QuizPollAttempts,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate runs one quiz generation job to completion. It blocks until the
// quiz is ready, fails, times out, or ctx is canceled. A job that fails or
// exhausts the attempt budget is deleted server-side before returning.
func (o *QuizOrchestrator) Generate(ctx context.Context, params QuizParams) (*QuizResult, error) {
	if err := params.Validate(); err != nil {
		o.notifier.Notify(Notification{
			Title:    titleQuizFailed,
			Message:  err.Error(),
			Level:    LevelError,
			Duration: errorNotificationDuration,
		})
		return nil, err
	}

	quizID, err := o.client.StartQuizGeneration(ctx, GenerateQuizRequest{
		UserID:                 params.UserID,
		QuestionCount:          params.QuestionCount,
		QuizName:               params.Name,
		Minutes:                params.Minutes,
		Difficulty:             params.Difficulty,
		Topic:                  params.Topic,
		AdditionalInstructions: params.AdditionalInstructions,
	})
	if err != nil {
		o.notifyFailure(err)
		return nil, err
	}

	events := make(chan ProgressEvent, 16)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for ev := range events {
			if o.onProgress != nil {
				o.onProgress(PhaseForProgress(ev.Progress), ev.Progress)
			}
		}
	}()

	var last *QuizSnapshot
	poller := Poller{Interval: o.interval, MaxAttempts: o.attempts, Logger: o.client.logger}
	outcome := poller.Poll(ctx, quizID, func(ctx context.Context) (JobStatus, bool, error) {
		snap, err := o.client.GetQuiz(ctx, quizID)
		if err != nil {
			if IsNotFound(err) {
				return JobStatus{}, false, nil
			}
			return JobStatus{}, true, err
		}
		last = snap
		return JobStatus{Status: snap.Status, Progress: snap.Progress, ErrorMessage: snap.Error}, true, nil
	}, events)

	close(events)
	<-consumed

	switch {
	case outcome.Status == TaskDone && last != nil:
		return &QuizResult{QuizID: quizID, Questions: last.Questions, Metadata: last.Metadata}, nil

	case outcome.Canceled:
		return nil, ctx.Err()

	case outcome.TimedOut:
		o.cleanup(quizID)
		o.notifyFailure(fmt.Errorf("quiz generation did not finish in time"))
		return nil, fmt.Errorf("quiz generation timed out")

	default:
		o.cleanup(quizID)
		msg := outcome.Message
		if msg == "" {
			msg = "quiz generation failed"
		}
		err := fmt.Errorf("%s", msg)
		o.notifyFailure(err)
		return nil, err
	}
}

// cleanup deletes a failed or stuck job so it cannot surface as a broken
// quiz later. Best effort: deletion errors are logged and dropped.
func (o *QuizOrchestrator) cleanup(quizID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.client.DeleteQuiz(ctx, quizID); err != nil {
		o.client.logger.Debug("failed to delete abandoned quiz", "quiz_id", quizID, "error", err)
	}
}

func (o *QuizOrchestrator) notifyFailure(err error) {
	title := titleQuizFailed
	if IsUsageLimit(err) {
		title = titleUsageLimit
	}
	o.notifier.Notify(Notification{
		Title:    title,
		Message:  ExtractMessage(err),
		Level:    LevelError,
		Duration: errorNotificationDuration,
	})
}
