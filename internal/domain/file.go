package domain

import (
	"time"

	"github.com/google/uuid"
)

// FileStatus represents the ingestion state of an uploaded document.
type FileStatus string

const (
	FileStatusQueued     FileStatus = "queued"
	FileStatusProcessing FileStatus = "processing"
	FileStatusReady      FileStatus = "ready"
	FileStatusError      FileStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s FileStatus) Terminal() bool {
	return s == FileStatusReady || s == FileStatusError
}

// FileRecord describes an uploaded study document and its ingestion progress.
type FileRecord struct {
	Key          string     `json:"key"`
	FileID       uuid.UUID  `json:"file_id"`
	UserID       string     `json:"user_id"`
	Name         string     `json:"name"`
	ContentType  string     `json:"content_type"`
	Size         int64      `json:"size"`
	Status       FileStatus `json:"status"`
	Progress     int        `json:"progress"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ChunkCount   int        `json:"chunk_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UploadSlot is a short-lived grant to transfer one file's bytes.
// Slots are issued at presign time and expire if never used.
type UploadSlot struct {
	Token        string    `json:"token"`
	Key          string    `json:"key"`
	FileID       uuid.UUID `json:"file_id"`
	UserID       string    `json:"user_id"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type"`
	DeclaredSize int64     `json:"declared_size"`
	ReceivedSize int64     `json:"received_size"`
	Received     bool      `json:"received"`
	CreatedAt    time.Time `json:"created_at"`
}
