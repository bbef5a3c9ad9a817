// Package studiahub is a Go client for the StudiaHub API. It covers the full
// upload lifecycle (slot request, byte transfer, confirmation, processing
// polls), batch progress aggregation, quiz generation, and document Q&A.
package studiahub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client talks to a StudiaHub server.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithLogger sets the logger used for transport-level events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// --- wire types -------------------------------------------------------------

// PresignRequest asks the server for an upload slot.
type PresignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
	UserID      string `json:"userId"`
}

// PresignResponse grants a write location for a file's bytes.
type PresignResponse struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	FileID    string `json:"fileId"`
}

type confirmRequest struct {
	Key    string `json:"key"`
	UserID string `json:"userId"`
}

// FileStatus is the server-reported processing state of a file.
type FileStatus struct {
	Progress     int    `json:"progress"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type fileStatusEnvelope struct {
	File *FileStatus `json:"file"`
}

// GenerateQuizRequest submits quiz parameters for asynchronous generation.
type GenerateQuizRequest struct {
	UserID                 string `json:"userId"`
	QuestionCount          int    `json:"questionCount"`
	QuizName               string `json:"quizName"`
	Minutes                int    `json:"minutes"`
	Difficulty             string `json:"difficulty"`
	Topic                  string `json:"topic,omitempty"`
	AdditionalInstructions string `json:"additionalInstructions,omitempty"`
}

type generateQuizResponse struct {
	QuizID string `json:"quizId"`
}

// Question is one multiple-choice question of a generated quiz.
type Question struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation,omitempty"`
}

// QuizMetadata is the display metadata of a quiz.
type QuizMetadata struct {
	Name          string    `json:"name"`
	Difficulty    string    `json:"difficulty"`
	Minutes       int       `json:"minutes"`
	QuestionCount int       `json:"questionCount"`
	Topic         string    `json:"topic,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// QuizSnapshot is the polled state of a quiz generation job.
type QuizSnapshot struct {
	QuizID    string       `json:"quizId"`
	Status    string       `json:"status"`
	Progress  int          `json:"progress"`
	Questions []Question   `json:"questions,omitempty"`
	Metadata  QuizMetadata `json:"metadata"`
	Error     string       `json:"error,omitempty"`
}

type askRequest struct {
	UserID   string `json:"userId"`
	Question string `json:"question"`
	FileKey  string `json:"fileKey,omitempty"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// --- operations -------------------------------------------------------------

// PresignUpload requests an upload slot for one file.
func (c *Client) PresignUpload(ctx context.Context, req PresignRequest) (*PresignResponse, error) {
	var resp PresignResponse
	if err := c.do(ctx, http.MethodPost, "/upload/presigned", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to request upload slot: %w", err)
	}
	return &resp, nil
}

// TransferBytes uploads the raw file bytes to the granted write location.
func (c *Client) TransferBytes(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return fmt.Errorf("failed to transfer file: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to transfer file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("failed to transfer file: %w", &APIError{StatusCode: resp.StatusCode, Body: string(data)})
	}
	return nil
}

// ConfirmUpload reports a completed transfer, which triggers server-side
// processing of the file.
func (c *Client) ConfirmUpload(ctx context.Context, key, userID string) error {
	if err := c.do(ctx, http.MethodPost, "/upload/confirm", confirmRequest{Key: key, UserID: userID}, nil); err != nil {
		return fmt.Errorf("failed to confirm upload: %w", err)
	}
	return nil
}

// FileStatus fetches the processing state of a file. The second return value
// is false when the file no longer exists on the server.
func (c *Client) FileStatus(ctx context.Context, key string) (*FileStatus, bool, error) {
	var envelope fileStatusEnvelope
	if err := c.do(ctx, http.MethodGet, "/files/"+key+"?status=1", nil, &envelope); err != nil {
		return nil, false, err
	}
	if envelope.File == nil {
		return nil, false, nil
	}
	return envelope.File, true, nil
}

// DeleteFile removes an uploaded file and its derived data.
func (c *Client) DeleteFile(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/files/"+key, nil, nil)
}

// StartQuizGeneration submits quiz parameters and returns the job's quiz ID.
func (c *Client) StartQuizGeneration(ctx context.Context, req GenerateQuizRequest) (string, error) {
	var resp generateQuizResponse
	if err := c.do(ctx, http.MethodPost, "/quiz/generate", req, &resp); err != nil {
		return "", fmt.Errorf("failed to start quiz generation: %w", err)
	}
	return resp.QuizID, nil
}

// GetQuiz fetches the current state of a quiz generation job.
func (c *Client) GetQuiz(ctx context.Context, quizID string) (*QuizSnapshot, error) {
	var snap QuizSnapshot
	if err := c.do(ctx, http.MethodGet, "/quiz/"+quizID, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteQuiz removes a quiz.
func (c *Client) DeleteQuiz(ctx context.Context, quizID string) error {
	return c.do(ctx, http.MethodDelete, "/quiz/"+quizID, nil, nil)
}

// Ask sends a chat question over the user's documents.
func (c *Client) Ask(ctx context.Context, userID, question, fileKey string) (string, error) {
	var resp askResponse
	if err := c.do(ctx, http.MethodPost, "/chat", askRequest{UserID: userID, Question: question, FileKey: fileKey}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
