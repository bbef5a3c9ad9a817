package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsPresigned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_uploads_presigned_total",
		Help: "Total number of upload slots issued",
	})

	UploadsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_uploads_confirmed_total",
		Help: "Total number of confirmed uploads",
	})

	UploadsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_uploads_rejected_total",
		Help: "Total number of uploads rejected by validation or limits",
	})

	BytesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_stored_bytes_total",
		Help: "Total bytes accepted into blob storage",
	})

	FilesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_files_ingested_total",
		Help: "Total number of files processed to ready",
	})

	IngestFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_ingest_failed_total",
		Help: "Total number of files that failed processing",
	})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studiahub_ingest_duration_seconds",
		Help:    "File ingestion duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	QuizzesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_quizzes_generated_total",
		Help: "Total number of quizzes generated successfully",
	})

	QuizzesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_quizzes_failed_total",
		Help: "Total number of quiz generations that failed",
	})

	QuizDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studiahub_quiz_generation_duration_seconds",
		Help:    "Quiz generation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	QuestionsAsked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_questions_asked_total",
		Help: "Total number of chat questions answered",
	})

	AITokensUsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiahub_ai_tokens_total",
		Help: "Total tokens consumed by AI completions",
	})
)
