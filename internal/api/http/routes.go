package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates the HTTP router with configured routes, middleware, and
// handlers: the upload/confirm/status surface, quiz generation, chat,
// health check, and Prometheus metrics.
func NewRouter(uploads UploadServiceI, quizzes QuizServiceI, chat ChatServiceI, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	uploadHandler := NewUploadHandler(uploads, logger)
	quizHandler := NewQuizHandler(quizzes, chat, logger)

	r.Route("/upload", func(r chi.Router) {
		r.Post("/presigned", uploadHandler.Presign)
		r.Put("/blob/{token}", uploadHandler.TransferBlob)
		r.Post("/confirm", uploadHandler.Confirm)
	})

	r.Route("/files", func(r chi.Router) {
		r.Get("/{fileKey}", uploadHandler.GetFile)
		r.Delete("/{fileKey}", uploadHandler.DeleteFile)
	})

	r.Route("/quiz", func(r chi.Router) {
		r.Post("/generate", quizHandler.Generate)
		r.Get("/{quizID}", quizHandler.Get)
		r.Delete("/{quizID}", quizHandler.Delete)
	})

	r.Post("/chat", quizHandler.Ask)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
