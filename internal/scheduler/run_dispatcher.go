package scheduler

import (
	"context"
	"time"

	"callscore_backend/platform/logger"
)

const defaultRunInterval = time.Hour

// RunDispatcher enqueues a full pipeline run on a fixed cadence. The worker
// picks the task up like any other, so a crashed dispatcher tick just means
// the next tick covers the backlog.
type RunDispatcher struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewRunDispatcher(client *Client, interval time.Duration, log *logger.Logger) *RunDispatcher {
	if interval <= 0 {
		interval = defaultRunInterval
	}

	return &RunDispatcher{
		client:   client,
		interval: interval,
		log:      log,
	}
}

func (d *RunDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	d.dispatch(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

func (d *RunDispatcher) dispatch(ctx context.Context) {
	if err := d.client.EnqueuePipelineRun(ctx); err != nil {
		d.log.Warn("pipeline run enqueue failed", "error", err)
		return
	}
	d.log.Info("pipeline run enqueued")
}
