package scheduler

import (
	"context"
	"errors"
	"fmt"

	"callscore_backend/internal/credentials"
	"callscore_backend/internal/pipeline"
	"callscore_backend/platform/config"
	"callscore_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes pipeline tasks and drives the orchestrator.
type Worker struct {
	server       *asynq.Server
	mux          *asynq.ServeMux
	orchestrator *pipeline.Orchestrator
	log          *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, orchestrator *pipeline.Orchestrator, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:       server,
		mux:          mux,
		orchestrator: orchestrator,
		log:          log,
	}

	mux.HandleFunc(TaskPipelineRun, w.handlePipelineRun)
	mux.HandleFunc(TaskPipelineCall, w.handlePipelineCall)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handlePipelineRun(ctx context.Context, task *asynq.Task) error {
	summary, err := w.orchestrator.RunAll(ctx)
	if err != nil {
		return err
	}

	w.log.Info("scheduled pipeline run complete",
		"tenants_checked", summary.TenantsChecked,
		"tenants_processed", summary.TenantsProcessed,
		"calls_processed", summary.CallsProcessed,
		"calls_failed", summary.CallsFailed,
	)
	return nil
}

func (w *Worker) handlePipelineCall(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePipelineCallPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", payload.TenantID, asynq.SkipRetry)
	}

	_, err = w.orchestrator.ProcessCall(ctx, tenantID, credentials.Platform(payload.Platform), payload.CallID)
	if errors.Is(err, pipeline.ErrAlreadyProcessed) {
		return nil
	}
	return err
}
