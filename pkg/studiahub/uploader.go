package studiahub

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// File describes one file to upload. Open is called once per upload attempt.
type File struct {
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
	Open        func() (io.ReadCloser, error)
}

// LocalFile builds a File from a path on disk.
func LocalFile(path, contentType string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat file: %w", err)
	}
	return File{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// UploadTask is the tracked state of one file in a session.
type UploadTask struct {
	LocalKey     string
	RemoteKey    string
	Progress     int
	Status       TaskStatus
	ErrorMessage string
}

// UploadOptions configures a session.
type UploadOptions struct {
	UserID       string
	MaxFileSize  int64
	MaxTotalSize int64
	Parallelism  int           // concurrent uploads, default 3
	PollInterval time.Duration // default FilePollInterval
	PollAttempts int           // default FilePollAttempts
	OnComplete   func(Snapshot)
}

// Upload pipeline checkpoints before server-side progress takes over.
const (
	progressSlotRequested = 5
	progressSlotGranted   = 10
	progressBytesSent     = 20
	progressConfirmed     = 30
)

const defaultParallelism = 3

// UploadSession uploads a batch of files and tracks their progress through
// transfer and server-side processing. Each session carries its own state;
// concurrent sessions do not interfere. One file failing never aborts the
// rest of the batch.
type UploadSession struct {
	client   *Client
	notifier Notifier
	opts     UploadOptions

	mu    sync.Mutex
	files map[string]File
	order []string

	tracker *Tracker
	pollWG  sync.WaitGroup
}

// NewUploadSession creates a session. notifier may be nil.
func NewUploadSession(client *Client, notifier Notifier, opts UploadOptions) *UploadSession {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = FilePollInterval
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = FilePollAttempts
	}
	return &UploadSession{
		client:   client,
		notifier: notifier,
		opts:     opts,
		files:    make(map[string]File),
	}
}

// Add registers a file and returns its local key. Adding the same file twice
// (same name, size and modification time) replaces the earlier entry.
func (s *UploadSession) Add(f File) string {
	key := localKey(f)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.files[key]; !exists {
		s.order = append(s.order, key)
	}
	s.files[key] = f
	return key
}

// Remove drops a file from the pending batch.
func (s *UploadSession) Remove(localKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[localKey]; !ok {
		return
	}
	delete(s.files, localKey)
	for i, k := range s.order {
		if k == localKey {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// localKey derives a stable per-file identifier from its metadata.
func localKey(f File) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%d", f.Name, f.Size, f.ModTime.UnixNano())))
	return hex.EncodeToString(h[:8])
}

// Submit uploads the batch. It returns once every file has either failed or
// been confirmed; server-side processing continues to be polled in the
// background and the tracker settles when the last file reaches a terminal
// state. The combined batch size is checked before any network call: an
// oversized batch is rejected whole.
func (s *UploadSession) Submit(ctx context.Context) (*Tracker, error) {
	s.mu.Lock()
	keys := append([]string(nil), s.order...)
	files := make(map[string]File, len(s.files))
	for k, f := range s.files {
		files[k] = f
	}
	s.mu.Unlock()

	if len(keys) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}
	if s.opts.MaxTotalSize > 0 && total > s.opts.MaxTotalSize {
		s.notifier.Notify(Notification{
			Title:    titleFileTooLarge,
			Message:  fmt.Sprintf("The selected files exceed the maximum combined size of %d bytes.", s.opts.MaxTotalSize),
			Level:    LevelError,
			Duration: errorNotificationDuration,
		})
		return nil, fmt.Errorf("combined size %d exceeds limit %d", total, s.opts.MaxTotalSize)
	}

	s.tracker = NewTracker(keys, s.opts.OnComplete)

	// A plain group, not WithContext: one file failing must not cancel the
	// others, and the processing polls outlive the upload goroutines.
	var g errgroup.Group
	g.SetLimit(s.opts.Parallelism)

	for _, key := range keys {
		key, file := key, files[key]
		g.Go(func() error {
			// Failures are reported per task; the batch always continues.
			s.uploadOne(ctx, key, file)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		s.pollWG.Wait()
		s.tracker.Close()
	}()

	return s.tracker, nil
}

func (s *UploadSession) uploadOne(ctx context.Context, key string, f File) {
	events := s.tracker.Events()

	if s.opts.MaxFileSize > 0 && f.Size > s.opts.MaxFileSize {
		msg := fmt.Sprintf("%s exceeds the maximum allowed size.", f.Name)
		events <- ProgressEvent{Key: key, Progress: 0, Status: TaskError, Message: msg}
		s.notifyUploadError(f.Name, fmt.Errorf("%s", msg))
		return
	}

	events <- ProgressEvent{Key: key, Progress: progressSlotRequested, Status: TaskProcessing}

	presign, err := s.client.PresignUpload(ctx, PresignRequest{
		FileName:    f.Name,
		ContentType: f.ContentType,
		FileSize:    f.Size,
		UserID:      s.opts.UserID,
	})
	if err != nil {
		s.failTask(key, f.Name, err)
		return
	}
	events <- ProgressEvent{Key: key, Progress: progressSlotGranted, Status: TaskProcessing}

	body, err := f.Open()
	if err != nil {
		s.failTask(key, f.Name, err)
		return
	}
	err = s.client.TransferBytes(ctx, presign.UploadURL, f.ContentType, body, f.Size)
	body.Close()
	if err != nil {
		s.failTask(key, f.Name, err)
		return
	}
	events <- ProgressEvent{Key: key, Progress: progressBytesSent, Status: TaskProcessing}

	if err := s.client.ConfirmUpload(ctx, presign.Key, s.opts.UserID); err != nil {
		s.failTask(key, f.Name, err)
		return
	}
	events <- ProgressEvent{Key: key, Progress: progressConfirmed, Status: TaskProcessing}

	remoteKey := presign.Key
	s.pollWG.Add(1)
	go func() {
		defer s.pollWG.Done()
		s.pollProcessing(ctx, key, remoteKey, f.Name)
	}()
}

// pollProcessing follows server-side ingestion until the file is ready or
// failed. Exhausting the attempt budget is logged by the poller and leaves
// the task as-is; no notification fires for a timeout.
func (s *UploadSession) pollProcessing(ctx context.Context, key, remoteKey, name string) {
	poller := Poller{
		Interval:    s.opts.PollInterval,
		MaxAttempts: s.opts.PollAttempts,
		Logger:      s.client.logger,
	}

	outcome := poller.Poll(ctx, key, func(ctx context.Context) (JobStatus, bool, error) {
		status, found, err := s.client.FileStatus(ctx, remoteKey)
		if err != nil || !found {
			return JobStatus{}, found, err
		}
		return JobStatus{Status: status.Status, Progress: status.Progress, ErrorMessage: status.ErrorMessage}, true, nil
	}, s.tracker.Events())

	switch {
	case outcome.Status == TaskDone:
		s.notifier.Notify(Notification{
			Title:    titleUploadComplete,
			Message:  fmt.Sprintf("%s is ready.", name),
			Level:    LevelSuccess,
			Duration: successNotificationDuration,
		})
	case outcome.Status == TaskError:
		s.notifier.Notify(Notification{
			Title:    titleProcessFailed,
			Message:  fmt.Sprintf("%s: %s", name, outcome.Message),
			Level:    LevelError,
			Duration: errorNotificationDuration,
		})
	}
}

func (s *UploadSession) failTask(key, name string, err error) {
	msg := ExtractMessage(err)
	s.tracker.Events() <- ProgressEvent{Key: key, Progress: 0, Status: TaskError, Message: msg}
	s.notifyUploadError(name, err)
}

func (s *UploadSession) notifyUploadError(name string, err error) {
	title := titleUploadFailed
	switch {
	case IsUsageLimit(err):
		title = titleUsageLimit
	case IsFileTooLarge(err):
		title = titleFileTooLarge
	}
	s.notifier.Notify(Notification{
		Title:    title,
		Message:  fmt.Sprintf("%s: %s", name, ExtractMessage(err)),
		Level:    LevelError,
		Duration: errorNotificationDuration,
	})
}

// Tasks returns the current view of every task in the batch.
func (s *UploadSession) Tasks() map[string]UploadTask {
	out := make(map[string]UploadTask)
	if s.tracker == nil {
		return out
	}
	s.mu.Lock()
	keys := append([]string(nil), s.order...)
	s.mu.Unlock()

	for _, key := range keys {
		view, ok := s.tracker.Task(key)
		if !ok {
			continue
		}
		out[key] = UploadTask{
			LocalKey:     key,
			Progress:     view.Progress,
			Status:       view.Status,
			ErrorMessage: view.Message,
		}
	}
	return out
}

// Wait blocks until every task in the batch has settled or ctx is done.
func (s *UploadSession) Wait(ctx context.Context) (Snapshot, error) {
	if s.tracker == nil {
		return Snapshot{}, fmt.Errorf("session not submitted")
	}
	return s.tracker.Wait(ctx)
}
