package studiahub

import (
	"context"
	"log/slog"
	"time"
)

// TaskStatus is the client-side state of one tracked task.
type TaskStatus string

const (
	TaskIdle       TaskStatus = "idle"
	TaskProcessing TaskStatus = "processing"
	TaskDone       TaskStatus = "done"
	TaskError      TaskStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskError
}

// ProgressEvent is a single per-task progress update.
type ProgressEvent struct {
	Key      string
	Progress int
	Status   TaskStatus
	Message  string
}

// JobStatus is the remote state of an asynchronous job as reported by the
// server.
type JobStatus struct {
	Status       string
	Progress     int
	ErrorMessage string
}

// Display clamp for non-terminal progress: never show 0 while work has
// started, never show 100 until the server confirms completion.
const (
	clampMin = 5
	clampMax = 99
)

// Poll loop defaults per resource kind.
const (
	FilePollInterval = 800 * time.Millisecond
	FilePollAttempts = 600
	QuizPollInterval = 2 * time.Second
	QuizPollAttempts = 240
)

// PollOutcome is the result of a completed poll loop.
type PollOutcome struct {
	Status   TaskStatus // TaskDone, TaskError, or TaskProcessing on timeout/cancel
	Progress int        // last displayed progress
	Message  string
	TimedOut bool
	Canceled bool
	Attempts int
}

// Poller repeatedly fetches a job's remote status until a terminal state,
// the attempt budget, or context cancellation. Emitted progress is clamped
// into the display band and never decreases within one poll session, even
// when the server reports out-of-order values.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      *slog.Logger
}

// fetchFunc returns the job's current remote status. found=false means the
// resource no longer exists and is treated as a terminal error.
type fetchFunc func(ctx context.Context) (JobStatus, bool, error)

// Poll runs the loop. Non-nil events receive one ProgressEvent per observed
// change, keyed by key. Transient fetch errors are swallowed; only terminal
// responses, the attempt budget, or ctx stop the loop. Budget exhaustion is
// logged, not reported as an error, leaving the task in its last-known state.
func (p Poller) Poll(ctx context.Context, key string, fetch fetchFunc, events chan<- ProgressEvent) PollOutcome {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := p.Interval
	if interval <= 0 {
		interval = FilePollInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = FilePollAttempts
	}

	emit := func(ev ProgressEvent) {
		if events != nil {
			events <- ev
		}
	}

	last := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			logger.Debug("status polling canceled", "key", key, "attempt", attempt)
			return PollOutcome{Status: TaskProcessing, Progress: last, Canceled: true, Attempts: attempt}
		}

		status, found, err := fetch(ctx)
		switch {
		case err != nil:
			// Transient failure: keep polling.
			logger.Debug("status poll attempt failed", "key", key, "attempt", attempt, "error", err)

		case !found:
			msg := "The resource was removed during processing."
			emit(ProgressEvent{Key: key, Progress: last, Status: TaskError, Message: msg})
			return PollOutcome{Status: TaskError, Progress: last, Message: msg, Attempts: attempt}

		default:
			switch status.Status {
			case "ready", "done", "completed":
				emit(ProgressEvent{Key: key, Progress: 100, Status: TaskDone})
				return PollOutcome{Status: TaskDone, Progress: 100, Attempts: attempt}

			case "error", "failed":
				msg := status.ErrorMessage
				if msg == "" {
					msg = "Processing failed."
				}
				emit(ProgressEvent{Key: key, Progress: last, Status: TaskError, Message: msg})
				return PollOutcome{Status: TaskError, Progress: last, Message: msg, Attempts: attempt}

			default:
				progress := clamp(status.Progress, clampMin, clampMax)
				if progress < last {
					progress = last
				}
				if progress != last || last == 0 {
					emit(ProgressEvent{Key: key, Progress: progress, Status: TaskProcessing})
				}
				last = progress
			}
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			logger.Debug("status polling canceled", "key", key, "attempt", attempt)
			return PollOutcome{Status: TaskProcessing, Progress: last, Canceled: true, Attempts: attempt}
		case <-time.After(interval):
		}
	}

	logger.Info("status polling stopped after attempt budget", "key", key, "attempts", maxAttempts, "last_progress", last)
	return PollOutcome{Status: TaskProcessing, Progress: last, TimedOut: true, Attempts: maxAttempts}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
