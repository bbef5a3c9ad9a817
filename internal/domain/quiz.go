package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuizStatus represents the generation state of a quiz.
type QuizStatus string

const (
	QuizStatusQueued     QuizStatus = "queued"
	QuizStatusProcessing QuizStatus = "processing"
	QuizStatusReady      QuizStatus = "ready"
	QuizStatusError      QuizStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s QuizStatus) Terminal() bool {
	return s == QuizStatusReady || s == QuizStatusError
}

// Difficulty controls how demanding generated questions are.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single multiple-choice question of a generated quiz.
type Question struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation,omitempty"`
}

// Quiz is an AI-generated quiz over a user's ready documents.
type Quiz struct {
	ID            uuid.UUID  `json:"id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	Status        QuizStatus `json:"status"`
	Progress      int        `json:"progress"`
	Difficulty    Difficulty `json:"difficulty"`
	Minutes       int        `json:"minutes"`
	QuestionCount int        `json:"question_count"`
	Topic         string     `json:"topic,omitempty"`
	Instructions  string     `json:"instructions,omitempty"`
	Questions     []Question `json:"questions,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
