package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/studiahub/studiahub/internal/domain"
	errpkg "github.com/studiahub/studiahub/internal/errors"
	"github.com/studiahub/studiahub/internal/validation"
)

// UploadServiceI defines the interface for upload-related business logic.
type UploadServiceI interface {
	Presign(ctx context.Context, req *domain.PresignRequest) (*domain.PresignResponse, error)
	Receive(ctx context.Context, token string, body io.Reader) error
	Confirm(ctx context.Context, req *domain.ConfirmRequest) (*domain.FileRecord, error)
	Status(ctx context.Context, key string) (*domain.FileStatusResponse, error)
	Get(ctx context.Context, key string) (*domain.FileRecord, error)
	Delete(ctx context.Context, key string) error
}

// UploadHandler handles HTTP requests for uploads and files.
type UploadHandler struct {
	uploads UploadServiceI
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads UploadServiceI, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

// Presign handles POST /upload/presigned.
func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req domain.PresignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode presign request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.uploads.Presign(r.Context(), &req)
	if err != nil {
		h.logger.Warn("presign rejected", "file_name", req.FileName, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// TransferBlob handles PUT /upload/blob/{token}: the raw byte transfer.
func (h *UploadHandler) TransferBlob(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.uploads.Receive(r.Context(), token, r.Body); err != nil {
		h.logger.Warn("blob transfer failed", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Confirm handles POST /upload/confirm.
func (h *UploadHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode confirm request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.uploads.Confirm(r.Context(), &req)
	if err != nil {
		h.logger.Warn("confirm rejected", "key", req.Key, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	h.logger.Info("upload confirmed", "key", rec.Key, "user_id", rec.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"key": rec.Key, "status": string(rec.Status)})
}

// GetFile handles GET /files/{fileKey}. With ?status=1 it returns the polled
// status wrapper ({"file": null} for unknown keys); otherwise the full record
// or 404.
func (h *UploadHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "fileKey")

	if r.URL.Query().Get("status") == "1" {
		resp, err := h.uploads.Status(r.Context(), key)
		if err != nil {
			h.logger.Error("failed to get file status", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	rec, err := h.uploads.Get(r.Context(), key)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteFile handles DELETE /files/{fileKey}.
func (h *UploadHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "fileKey")

	if err := h.uploads.Delete(r.Context(), key); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError emits the error contract consumed by clients: a JSON body with
// a "message" field.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"message": message,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errpkg.ErrFileNotFound),
		errors.Is(err, errpkg.ErrQuizNotFound),
		errors.Is(err, errpkg.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, errpkg.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errpkg.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errpkg.ErrUsageLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, errpkg.ErrNotReceived),
		errors.Is(err, errpkg.ErrNoReadyDocuments):
		return http.StatusConflict
	case errors.Is(err, errpkg.ErrProviderDisabled):
		return http.StatusServiceUnavailable
	default:
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}
