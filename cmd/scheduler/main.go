package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callscore_backend/internal/alerts"
	"callscore_backend/internal/archive"
	"callscore_backend/internal/credentials"
	"callscore_backend/internal/ledger"
	"callscore_backend/internal/pipeline"
	"callscore_backend/internal/reviews"
	"callscore_backend/internal/scheduler"
	"callscore_backend/internal/scoring"
	"callscore_backend/platform/config"
	"callscore_backend/platform/db"
	"callscore_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	notifier := alerts.NewNotifier(cfg, log)

	credRepo := credentials.NewRepository(pool, []byte(cfg.CredentialEncryptionKey))
	tokenManager := credentials.NewTokenManager(credRepo, log, notifier)
	ledgerRepo := ledger.NewRepository(pool, cfg.LedgerStaleAfter)
	reviewRepo := reviews.NewRepository(pool)

	archiveStore, err := archive.NewStore(cfg, log)
	if err != nil {
		log.Error("failed to initialize archive store", "error", err)
		panic("failed to initialize archive store: " + err.Error())
	}
	if archiveStore.IsEnabled() {
		if err := withRetry(ctx, log, "ensure archive bucket", 5, 2*time.Second, func() error {
			return archiveStore.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure archive bucket exists", "error", err)
			panic("failed to ensure archive bucket exists: " + err.Error())
		}
	}

	scorer, err := scoring.NewGeminiScorer(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize scorer", "error", err)
		panic("failed to initialize scorer: " + err.Error())
	}

	orchestrator := pipeline.NewOrchestrator(
		credRepo,
		tokenManager,
		ledgerRepo,
		reviewRepo,
		scorer,
		pipeline.NewAdapterFactory(log),
		archiveStore,
		pipeline.Config{
			WindowDays:     cfg.CallWindowDays,
			PerSellerQuota: cfg.PerSellerQuota,
			TotalRunQuota:  cfg.TotalRunQuota,
			CharBudget:     cfg.TranscriptCharBudget,
		},
		log,
	)

	taskClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer func() { _ = taskClient.Close() }()

	dispatcher := scheduler.NewRunDispatcher(taskClient, cfg.PipelineRunInterval, log)
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, orchestrator, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
