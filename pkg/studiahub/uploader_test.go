package studiahub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeServer implements just enough of the upload API for session tests.
type fakeServer struct {
	mu       sync.Mutex
	hits     int32
	received map[string][]byte
	statuses map[string]FileStatus
	failKeys map[string]bool // confirm returns 429 for these file names
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		received: make(map[string][]byte),
		statuses: make(map[string]FileStatus),
		failKeys: make(map[string]bool),
	}
}

func (f *fakeServer) handler(baseURL *string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /upload/presigned", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		var req PresignRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		key := req.FileName
		_ = json.NewEncoder(w).Encode(PresignResponse{
			UploadURL: *baseURL + "/upload/blob/" + key,
			Key:       key,
			FileID:    "id-" + key,
		})
	})

	mux.HandleFunc("PUT /upload/blob/{token}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.received[r.PathValue("token")] = data
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /upload/confirm", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		var req struct {
			Key string `json:"key"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failKeys[req.Key] {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"message": "usage limit exceeded"}`)
			return
		}
		f.statuses[req.Key] = FileStatus{Progress: 100, Status: "ready"}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{}`)
	})

	mux.HandleFunc("GET /files/{key}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		f.mu.Lock()
		status, ok := f.statuses[r.PathValue("key")]
		f.mu.Unlock()
		if !ok {
			_ = json.NewEncoder(w).Encode(fileStatusEnvelope{File: nil})
			return
		}
		_ = json.NewEncoder(w).Encode(fileStatusEnvelope{File: &status})
	})

	return mux
}

func startFakeServer(t *testing.T) (*fakeServer, *Client) {
	t.Helper()
	fs := newFakeServer()
	var baseURL string
	srv := httptest.NewServer(fs.handler(&baseURL))
	baseURL = srv.URL
	t.Cleanup(srv.Close)
	return fs, NewClient(srv.URL)
}

func memFile(name, content string) File {
	return File{
		Name:        name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		ModTime:     time.Unix(1700000000, 0),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(content))), nil
		},
	}
}

type notifyRecorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *notifyRecorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *notifyRecorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

func TestUploadSession_HappyBatch(t *testing.T) {
	fs, client := startFakeServer(t)
	notifier := &notifyRecorder{}

	session := NewUploadSession(client, notifier, UploadOptions{
		UserID:       "u1",
		PollInterval: time.Millisecond,
		PollAttempts: 50,
	})
	keyA := session.Add(memFile("a.txt", "alpha"))
	keyB := session.Add(memFile("b.txt", "bravo"))

	tracker, err := session.Submit(context.Background())
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := tracker.Wait(ctx)
	assert.NoError(t, err)

	assert.Equal(t, 2, snap.CompletedCount)
	assert.Equal(t, 100, snap.OverallPercent)
	assert.False(t, snap.HasErrors)

	tasks := session.Tasks()
	assert.Equal(t, TaskDone, tasks[keyA].Status)
	assert.Equal(t, TaskDone, tasks[keyB].Status)

	fs.mu.Lock()
	assert.Equal(t, []byte("alpha"), fs.received["a.txt"])
	assert.Equal(t, []byte("bravo"), fs.received["b.txt"])
	fs.mu.Unlock()

	waitForTracker(t, tracker, func() bool { return len(notifier.all()) >= 2 })
	for _, n := range notifier.all() {
		assert.Equal(t, "Upload Complete", n.Title)
	}
}

func TestUploadSession_OneFailureDoesNotAbortBatch(t *testing.T) {
	fs, client := startFakeServer(t)
	fs.failKeys["bad.txt"] = true
	notifier := &notifyRecorder{}

	session := NewUploadSession(client, notifier, UploadOptions{
		UserID:       "u1",
		PollInterval: time.Millisecond,
		PollAttempts: 50,
	})
	goodKey := session.Add(memFile("good.txt", "fine"))
	badKey := session.Add(memFile("bad.txt", "rejected"))

	tracker, err := session.Submit(context.Background())
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := tracker.Wait(ctx)
	assert.NoError(t, err)

	assert.Equal(t, 1, snap.CompletedCount)
	assert.True(t, snap.HasErrors)

	tasks := session.Tasks()
	assert.Equal(t, TaskDone, tasks[goodKey].Status)
	assert.Equal(t, TaskError, tasks[badKey].Status)
	assert.NotEmpty(t, tasks[badKey].ErrorMessage)
	assert.Contains(t, strings.ToLower(tasks[badKey].ErrorMessage), "usage limit")

	titles := map[string]bool{}
	for _, n := range notifier.all() {
		titles[n.Title] = true
	}
	assert.True(t, titles["Usage Limit Exceeded"])
}

func TestUploadSession_TotalSizeRejectedWithoutNetwork(t *testing.T) {
	fs, client := startFakeServer(t)
	notifier := &notifyRecorder{}

	session := NewUploadSession(client, notifier, UploadOptions{
		UserID:       "u1",
		MaxTotalSize: 200,
	})
	session.Add(memFile("a.bin", strings.Repeat("x", 150)))
	session.Add(memFile("b.bin", strings.Repeat("y", 100)))

	_, err := session.Submit(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fs.hits))

	notes := notifier.all()
	if assert.Len(t, notes, 1) {
		assert.Equal(t, "File Too Large", notes[0].Title)
	}
}

func TestUploadSession_TotalSizeUnderCapProceeds(t *testing.T) {
	_, client := startFakeServer(t)

	session := NewUploadSession(client, nil, UploadOptions{
		UserID:       "u1",
		MaxTotalSize: 200,
		PollInterval: time.Millisecond,
		PollAttempts: 50,
	})
	session.Add(memFile("a.bin", strings.Repeat("x", 50)))
	session.Add(memFile("b.bin", strings.Repeat("y", 10)))

	tracker, err := session.Submit(context.Background())
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := tracker.Wait(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, snap.CompletedCount)
}

func TestUploadSession_PerFileSizeRejectedWithoutNetwork(t *testing.T) {
	fs, client := startFakeServer(t)
	notifier := &notifyRecorder{}

	session := NewUploadSession(client, notifier, UploadOptions{
		UserID:      "u1",
		MaxFileSize: 10,
	})
	key := session.Add(memFile("huge.bin", strings.Repeat("x", 50)))

	tracker, err := session.Submit(context.Background())
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := tracker.Wait(ctx)
	assert.NoError(t, err)
	assert.True(t, snap.HasErrors)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fs.hits))

	tasks := session.Tasks()
	assert.Equal(t, TaskError, tasks[key].Status)

	waitForTracker(t, tracker, func() bool { return len(notifier.all()) == 1 })
	assert.Equal(t, "File Too Large", notifier.all()[0].Title)
}

func TestUploadSession_RemoveDropsFile(t *testing.T) {
	_, client := startFakeServer(t)

	session := NewUploadSession(client, nil, UploadOptions{
		UserID:       "u1",
		PollInterval: time.Millisecond,
		PollAttempts: 50,
	})
	session.Add(memFile("keep.txt", "keep"))
	dropKey := session.Add(memFile("drop.txt", "drop"))
	session.Remove(dropKey)

	tracker, err := session.Submit(context.Background())
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := tracker.Wait(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, snap.TotalCount)
}
