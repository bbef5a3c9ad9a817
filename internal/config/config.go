package config

import (
	"fmt"
	"time"

	"github.com/studiahub/studiahub/internal/domain"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"SH_ENV" default:"development"`

	HTTPPort      int           `envconfig:"SH_HTTP_PORT" default:"8080"`
	HTTPTimeout   time.Duration `envconfig:"SH_HTTP_TIMEOUT" default:"15s"`
	PublicBaseURL string        `envconfig:"SH_PUBLIC_BASE_URL" default:"http://localhost:8080"`

	IngestWorkers int           `envconfig:"SH_INGEST_WORKERS" default:"4"`
	QuizWorkers   int           `envconfig:"SH_QUIZ_WORKERS" default:"2"`
	UploadSlotTTL time.Duration `envconfig:"SH_UPLOAD_SLOT_TTL" default:"15m"`

	MaxFileSize           int64         `envconfig:"SH_MAX_FILE_SIZE" default:"104857600"`
	MaxStorageBytes       int64         `envconfig:"SH_MAX_STORAGE_BYTES" default:"209715200"`
	MaxFiles              int           `envconfig:"SH_MAX_FILES" default:"100"`
	MaxQuizzesPerPeriod   int           `envconfig:"SH_MAX_QUIZZES_PER_PERIOD" default:"30"`
	MaxQuestionsPerPeriod int           `envconfig:"SH_MAX_QUESTIONS_PER_PERIOD" default:"300"`
	UsagePeriod           time.Duration `envconfig:"SH_USAGE_PERIOD" default:"720h"`

	BlobDir  string `envconfig:"SH_BLOB_DIR" default:"./data/blobs"`
	ChunkDir string `envconfig:"SH_CHUNK_DIR" default:"./data/chunks"`
	StateDir string `envconfig:"SH_STATE_DIR" default:"./data/state"`

	OpenAIAPIKey string `envconfig:"SH_OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"SH_OPENAI_MODEL" default:"gpt-4o-mini"`

	ShutdownTimeout time.Duration `envconfig:"SH_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"SH_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"SH_LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.PublicBaseURL == "" {
		return fmt.Errorf("public base URL cannot be empty")
	}

	if c.IngestWorkers <= 0 {
		return fmt.Errorf("ingest worker count must be positive: %d", c.IngestWorkers)
	}
	if c.QuizWorkers <= 0 {
		return fmt.Errorf("quiz worker count must be positive: %d", c.QuizWorkers)
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive: %d", c.MaxFileSize)
	}
	if c.MaxStorageBytes < c.MaxFileSize {
		return fmt.Errorf("max storage bytes (%d) must not be below max file size (%d)", c.MaxStorageBytes, c.MaxFileSize)
	}
	if c.MaxFiles <= 0 {
		return fmt.Errorf("max files must be positive: %d", c.MaxFiles)
	}

	if c.BlobDir == "" {
		return fmt.Errorf("blob directory cannot be empty")
	}
	if c.ChunkDir == "" {
		return fmt.Errorf("chunk directory cannot be empty")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state directory cannot be empty")
	}

	return nil
}

// Limits derives the per-user plan limits from the configuration.
func (c *Config) Limits() domain.Limits {
	return domain.Limits{
		MaxFileSize:           c.MaxFileSize,
		MaxStorageBytes:       c.MaxStorageBytes,
		MaxFiles:              c.MaxFiles,
		MaxQuizzesPerPeriod:   c.MaxQuizzesPerPeriod,
		MaxQuestionsPerPeriod: c.MaxQuestionsPerPeriod,
	}
}
