// Package scheduler provides the asynq task plumbing for background pipeline
// work: full runs on a cadence and single-call tasks fanned out by webhooks.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskPipelineRun = "pipeline.run"

const TaskPipelineCall = "pipeline.call"

// PipelineCallPayload targets one call for one tenant integration.
type PipelineCallPayload struct {
	TenantID string `json:"tenantId"`
	Platform string `json:"platform"`
	CallID   string `json:"callId"`
	CallKind string `json:"callKind,omitempty"`
}

func NewPipelineRunTask() *asynq.Task {
	return asynq.NewTask(TaskPipelineRun, nil)
}

func NewPipelineCallTask(payload PipelineCallPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPipelineCall, data), nil
}

func ParsePipelineCallPayload(task *asynq.Task) (PipelineCallPayload, error) {
	var payload PipelineCallPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PipelineCallPayload{}, err
	}
	return payload, nil
}
