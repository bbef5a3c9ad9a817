package domain

import "time"

// Usage tracks one user's consumption against plan limits.
// Counters for quizzes and questions reset each billing period;
// storage accounting follows the life of the stored files.
type Usage struct {
	UserID           string    `json:"user_id"`
	StorageBytes     int64     `json:"storage_bytes"`
	FileCount        int       `json:"file_count"`
	QuizzesGenerated int       `json:"quizzes_generated"`
	QuestionsAsked   int       `json:"questions_asked"`
	PeriodStart      time.Time `json:"period_start"`
}

// Limits holds the plan caps enforced by the usage service.
type Limits struct {
	MaxFileSize           int64
	MaxStorageBytes       int64
	MaxFiles              int
	MaxQuizzesPerPeriod   int
	MaxQuestionsPerPeriod int
}
