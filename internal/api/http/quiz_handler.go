package http

import (
	"context"
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/studiahub/studiahub/internal/domain"
	"github.com/studiahub/studiahub/internal/validation"
)

// QuizServiceI defines the interface for quiz-related business logic.
type QuizServiceI interface {
	Generate(ctx context.Context, req *domain.GenerateQuizRequest) (*domain.Quiz, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Quiz, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ChatServiceI defines the interface for document Q&A.
type ChatServiceI interface {
	Ask(ctx context.Context, req *domain.AskRequest) (string, error)
}

// QuizHandler handles HTTP requests for quizzes and chat.
type QuizHandler struct {
	quizzes QuizServiceI
	chat    ChatServiceI
	logger  *slog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizzes QuizServiceI, chat ChatServiceI, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, chat: chat, logger: logger}
}

// Generate handles POST /quiz/generate.
func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode quiz request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.Struct(req); err != nil {
		h.logger.Warn("quiz request validation failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quiz, err := h.quizzes.Generate(r.Context(), &req)
	if err != nil {
		h.logger.Warn("quiz generation rejected", "user_id", req.UserID, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, domain.GenerateQuizResponse{QuizID: quiz.ID.String()})
}

// Get handles GET /quiz/{quizID}.
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz ID")
		return
	}

	quiz, err := h.quizzes.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, domain.QuizView(quiz))
}

// Delete handles DELETE /quiz/{quizID}.
func (h *QuizHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quiz ID")
		return
	}

	if err := h.quizzes.Delete(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Ask handles POST /chat.
func (h *QuizHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := h.chat.Ask(r.Context(), &req)
	if err != nil {
		h.logger.Warn("chat question rejected", "user_id", req.UserID, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, domain.AskResponse{Answer: answer})
}
