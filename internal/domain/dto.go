package domain

import "time"

// Wire DTOs. Field names follow the public API contract (camelCase),
// while persisted records keep snake_case tags.

// PresignRequest asks for an upload slot for one file.
type PresignRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required"`
	FileSize    int64  `json:"fileSize" validate:"required,gt=0"`
	UserID      string `json:"userId" validate:"required"`
}

// PresignResponse grants a write location for the file's bytes.
type PresignResponse struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	FileID    string `json:"fileId"`
}

// ConfirmRequest reports that the bytes for a key have been transferred.
type ConfirmRequest struct {
	Key    string `json:"key" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

// FileStatusView is the polled processing state of a file.
type FileStatusView struct {
	Progress     int        `json:"progress"`
	Status       FileStatus `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// FileStatusResponse wraps the status view; File is null when the
// resource no longer exists.
type FileStatusResponse struct {
	File *FileStatusView `json:"file"`
}

// GenerateQuizRequest submits quiz parameters for asynchronous generation.
type GenerateQuizRequest struct {
	UserID                 string     `json:"userId" validate:"required"`
	QuestionCount          int        `json:"questionCount" validate:"required,oneof=10 20 30"`
	QuizName               string     `json:"quizName" validate:"required,max=120"`
	Minutes                int        `json:"minutes" validate:"required,gt=0,lte=240"`
	Difficulty             Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Topic                  string     `json:"topic,omitempty" validate:"max=300"`
	AdditionalInstructions string     `json:"additionalInstructions,omitempty" validate:"max=1000"`
}

// GenerateQuizResponse carries the identifier of the enqueued generation job.
type GenerateQuizResponse struct {
	QuizID string `json:"quizId"`
}

// QuizMetadata is the display metadata attached to a quiz response.
type QuizMetadata struct {
	Name          string     `json:"name"`
	Difficulty    Difficulty `json:"difficulty"`
	Minutes       int        `json:"minutes"`
	QuestionCount int        `json:"questionCount"`
	Topic         string     `json:"topic,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// QuizResponse is the polled generation state of a quiz; Questions are
// present only once the quiz is ready.
type QuizResponse struct {
	QuizID    string       `json:"quizId"`
	Status    QuizStatus   `json:"status"`
	Progress  int          `json:"progress"`
	Questions []Question   `json:"questions,omitempty"`
	Metadata  QuizMetadata `json:"metadata"`
	Error     string       `json:"error,omitempty"`
}

// AskRequest is a chat question over the user's documents.
type AskRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Question string `json:"question" validate:"required,max=2000"`
	FileKey  string `json:"fileKey,omitempty"`
}

// AskResponse is the generated answer to an AskRequest.
type AskResponse struct {
	Answer string `json:"answer"`
}

// QuizView builds the wire representation of a quiz.
func QuizView(q *Quiz) QuizResponse {
	resp := QuizResponse{
		QuizID:   q.ID.String(),
		Status:   q.Status,
		Progress: q.Progress,
		Error:    q.ErrorMessage,
		Metadata: QuizMetadata{
			Name:          q.Name,
			Difficulty:    q.Difficulty,
			Minutes:       q.Minutes,
			QuestionCount: q.QuestionCount,
			Topic:         q.Topic,
			CreatedAt:     q.CreatedAt,
		},
	}
	if q.Status == QuizStatusReady {
		resp.Questions = q.Questions
	}
	return resp
}

// FileView builds the polled status view of a file record.
func FileView(f *FileRecord) *FileStatusView {
	return &FileStatusView{
		Progress:     f.Progress,
		Status:       f.Status,
		ErrorMessage: f.ErrorMessage,
	}
}
