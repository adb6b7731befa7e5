package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"callscore_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues pipeline tasks onto the shared queue.
type Client struct {
	client *asynq.Client
	queue  string
}

// TaskEnqueuer is the enqueue surface the webhook module needs.
type TaskEnqueuer interface {
	EnqueuePipelineCall(ctx context.Context, payload PipelineCallPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueuePipelineRun schedules a full run across all tenant integrations.
func (c *Client) EnqueuePipelineRun(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	_, err := c.client.EnqueueContext(ctx, NewPipelineRunTask(), asynq.Queue(c.queue))
	return err
}

// EnqueuePipelineCall schedules processing of a single call. The task id ties
// the queue entry to the tenant and call so a webhook redelivered before the
// first task runs collapses into one queue entry.
func (c *Client) EnqueuePipelineCall(ctx context.Context, payload PipelineCallPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewPipelineCallTask(payload)
	if err != nil {
		return err
	}

	taskID := TaskPipelineCall + ":" + payload.TenantID + ":" + payload.Platform + ":" + payload.CallID
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.TaskID(taskID))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
