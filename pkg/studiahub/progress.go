package studiahub

import (
	"context"
	"sync"
)

// Snapshot is the aggregated view of a batch of tracked tasks.
type Snapshot struct {
	OverallPercent int
	CompletedCount int
	TotalCount     int
	HasErrors      bool
}

// TaskView is the tracked state of one task.
type TaskView struct {
	Progress int
	Status   TaskStatus
	Message  string
}

// Tracker merges concurrent per-task progress updates into a single batch
// summary. All updates flow through one channel consumed by a single
// goroutine, so producers on different tasks never race. Progress per task
// is a monotonic ratchet: a non-terminal update only raises the stored
// value, while terminal updates (done/error) replace it outright. Once a
// task settles, further updates for it are ignored.
//
// When every tracked task has settled, the completion callback fires exactly
// once, on its own goroutine, outside the update path.
type Tracker struct {
	mu    sync.RWMutex
	tasks map[string]*TaskView

	events     chan ProgressEvent
	done       chan struct{}
	settled    chan struct{}
	settleOnce sync.Once
	closeOnce  sync.Once
	onComplete func(Snapshot)
	final      Snapshot
}

// NewTracker creates a Tracker for the given task keys and starts its
// consumer goroutine. onComplete may be nil.
func NewTracker(keys []string, onComplete func(Snapshot)) *Tracker {
	t := &Tracker{
		tasks:      make(map[string]*TaskView, len(keys)),
		events:     make(chan ProgressEvent, 64),
		done:       make(chan struct{}),
		settled:    make(chan struct{}),
		onComplete: onComplete,
	}
	for _, key := range keys {
		t.tasks[key] = &TaskView{Status: TaskIdle}
	}

	go t.run()
	return t
}

// Events exposes the update channel for producers such as Poller.
func (t *Tracker) Events() chan<- ProgressEvent {
	return t.events
}

// Update submits one progress event.
func (t *Tracker) Update(ev ProgressEvent) {
	t.events <- ev
}

// Close stops the consumer goroutine. Call only after all producers have
// finished sending.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		close(t.events)
	})
}

func (t *Tracker) run() {
	defer close(t.done)

	for ev := range t.events {
		t.apply(ev)

		if t.allSettled() {
			t.settleOnce.Do(func() {
				snap := t.SnapshotNow()
				t.mu.Lock()
				t.final = snap
				t.mu.Unlock()
				close(t.settled)
				if t.onComplete != nil {
					// Deliver outside the update path so the callback can
					// safely feed new state without re-entering this loop.
					go t.onComplete(snap)
				}
			})
		}
	}
}

func (t *Tracker) apply(ev ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, exists := t.tasks[ev.Key]
	if !exists {
		t.tasks[ev.Key] = &TaskView{Progress: ev.Progress, Status: ev.Status, Message: ev.Message}
		return
	}

	if cur.Status.Terminal() {
		return
	}

	if ev.Status.Terminal() {
		cur.Progress = ev.Progress
		cur.Status = ev.Status
		cur.Message = ev.Message
		return
	}

	// Monotonic ratchet: late or out-of-order lower values are clamped to
	// the stored progress rather than dropped.
	if ev.Progress > cur.Progress {
		cur.Progress = ev.Progress
	}
	cur.Status = ev.Status
	if ev.Message != "" {
		cur.Message = ev.Message
	}
}

func (t *Tracker) allSettled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.tasks) == 0 {
		return false
	}
	for _, task := range t.tasks {
		if !task.Status.Terminal() {
			return false
		}
	}
	return true
}

// SnapshotNow computes the current aggregate view.
func (t *Tracker) SnapshotNow() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := Snapshot{TotalCount: len(t.tasks)}
	if snap.TotalCount == 0 {
		return snap
	}

	sum := 0
	for _, task := range t.tasks {
		switch task.Status {
		case TaskDone:
			snap.CompletedCount++
			sum += 100
		case TaskError:
			snap.HasErrors = true
			sum += task.Progress
		default:
			sum += task.Progress
		}
	}
	snap.OverallPercent = sum / snap.TotalCount

	return snap
}

// Task returns the tracked state of one task.
func (t *Tracker) Task(key string) (TaskView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[key]
	if !ok {
		return TaskView{}, false
	}
	return *task, true
}

// Wait blocks until the batch settles or the context is done, returning the
// final snapshot.
func (t *Tracker) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-t.settled:
		t.mu.RLock()
		defer t.mu.RUnlock()
		return t.final, nil
	case <-ctx.Done():
		return t.SnapshotNow(), ctx.Err()
	}
}
