package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	h "github.com/studiahub/studiahub/internal/api/http"
	"github.com/studiahub/studiahub/internal/ai"
	cfgpkg "github.com/studiahub/studiahub/internal/config"
	"github.com/studiahub/studiahub/internal/repository"
	svc "github.com/studiahub/studiahub/internal/service"
	"github.com/studiahub/studiahub/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := cfgpkg.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfgpkg.SetupLogger(cfg)
	slog.Info("configuration loaded successfully", "environment", cfg.Environment)

	fileStore, err := repository.NewFileStore(filepath.Join(cfg.StateDir, "files.json"))
	if err != nil {
		slog.Error("failed to initialize file store", "error", err)
		os.Exit(1)
	}
	quizStore, err := repository.NewQuizStore(filepath.Join(cfg.StateDir, "quizzes.json"))
	if err != nil {
		slog.Error("failed to initialize quiz store", "error", err)
		os.Exit(1)
	}
	usageStore, err := repository.NewUsageStore(filepath.Join(cfg.StateDir, "usage.json"))
	if err != nil {
		slog.Error("failed to initialize usage store", "error", err)
		os.Exit(1)
	}

	blobs := storage.NewBlobStorage(cfg.BlobDir)
	chunks := storage.NewBlobStorage(cfg.ChunkDir)
	slots := storage.NewSlotRegistry(cfg.UploadSlotTTL)

	provider := ai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	usageService := svc.NewUsageService(usageStore, cfg.Limits(), cfg.UsagePeriod)
	ingestService := svc.NewIngestService(fileStore, blobs, chunks, cfg.IngestWorkers)
	quizService := svc.NewQuizService(quizStore, fileStore, chunks, provider, usageService, cfg.QuizWorkers)
	chatService := svc.NewChatService(fileStore, chunks, provider, usageService)
	uploadService := svc.NewUploadService(fileStore, blobs, chunks, slots, usageService, ingestService, cfg.PublicBaseURL, cfg.MaxFileSize)

	if err := ingestService.Recover(context.Background()); err != nil {
		slog.Error("failed to recover pending ingestions", "error", err)
	}
	if err := quizService.Recover(context.Background()); err != nil {
		slog.Error("failed to recover pending quiz generations", "error", err)
	}

	router := h.NewRouter(uploadService, quizService, chatService, slog.Default())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  cfg.HTTPTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if err := quizService.Shutdown(shutdownCtx); err != nil {
		slog.Error("quiz service shutdown failed", "error", err)
	}
	if err := ingestService.Shutdown(shutdownCtx); err != nil {
		slog.Error("ingest service shutdown failed", "error", err)
	}

	slog.Info("server stopped gracefully")
}
