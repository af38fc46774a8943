package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/coursegrade/internal/config"
	"github.com/stemsi/coursegrade/internal/database"
	"github.com/stemsi/coursegrade/internal/handler"
	"github.com/stemsi/coursegrade/internal/logger"
	"github.com/stemsi/coursegrade/internal/metrics"
	"github.com/stemsi/coursegrade/internal/middleware"
	"github.com/stemsi/coursegrade/internal/repository"
	"github.com/stemsi/coursegrade/internal/router"
	"github.com/stemsi/coursegrade/internal/service"
	"github.com/stemsi/coursegrade/internal/validator"
	"github.com/stemsi/coursegrade/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting coursegrade")

	// ─── Initialize Validator + Metrics ────────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, log)
	assignmentService := service.NewAssignmentService(cfg, assignmentRepo, rdb, log)
	events := service.NewEventPublisher(rdb, log)
	submissionService := service.NewSubmissionService(assignmentService, submissionRepo, rdb, events, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Assignment: handler.NewAssignmentHandler(assignmentService),
		Submission: handler.NewSubmissionHandler(submissionService),
		WS:         handler.NewWSHandler(rdb, assignmentService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	gradingWorker := worker.NewGradingWorker(cfg, submissionService, rdb, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		gradingWorker.Start(workerCtx)
	}()

	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRatePerMinute, time.Minute)
	stopCleanup := make(chan struct{})
	go submitLimiter.RunCleanup(stopCleanup)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, submitLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	close(stopCleanup)

	// 2. Stop the grading worker; it flushes its pending batch before returning.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
