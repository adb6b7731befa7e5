// Package webhook accepts inbound call events from the sales platforms and
// fans them out as background pipeline tasks. Delivery is acknowledged with
// 202 before any work happens; completion is observable only through the
// call ledger.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"callscore_backend/internal/credentials"
	"callscore_backend/internal/scheduler"
	"callscore_backend/platform/httpkit"
	"callscore_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	secretHeader   = "X-Webhook-Secret"
	enqueueTimeout = 30 * time.Second
	enqueueWorkers = 4
)

// CredentialLister resolves which tenants have a platform configured.
type CredentialLister interface {
	ListActiveByPlatform(ctx context.Context, platform credentials.Platform) ([]credentials.Credential, error)
}

// Handler processes inbound platform webhooks.
type Handler struct {
	creds    CredentialLister
	enqueuer scheduler.TaskEnqueuer
	secret   string
	log      *logger.Logger
}

// NewHandler creates the webhook handler.
func NewHandler(creds CredentialLister, enqueuer scheduler.TaskEnqueuer, secret string, log *logger.Logger) *Handler {
	return &Handler{creds: creds, enqueuer: enqueuer, secret: secret, log: log}
}

// HandleCallEvent accepts a call event for one platform. The shared secret
// gates delivery; the response never reveals whether any tenant matched.
func (h *Handler) HandleCallEvent(c *gin.Context) {
	if !h.authorized(c) {
		httpkit.Error(c, http.StatusUnauthorized, "invalid webhook secret", nil)
		return
	}

	platform := credentials.Platform(c.Param("platform"))
	if !platform.IsValid() {
		httpkit.Error(c, http.StatusNotFound, "unknown platform", nil)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unreadable body", nil)
		return
	}

	callIDs, err := extractCallIDs(platform, body)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unrecognized event payload", nil)
		return
	}

	httpkit.Accepted(c, gin.H{"accepted": len(callIDs)})

	if len(callIDs) == 0 {
		return
	}
	go h.fanOut(platform, callIDs)
}

func (h *Handler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		return false
	}
	given := c.GetHeader(secretHeader)
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) == 1
}

// fanOut enqueues one task per (tenant with the platform configured, call id).
// Runs detached from the request; failures are logged and rely on the next
// scheduled run to pick the calls up.
func (h *Handler) fanOut(platform credentials.Platform, callIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	creds, err := h.creds.ListActiveByPlatform(ctx, platform)
	if err != nil {
		h.log.WithPlatform(string(platform)).Error("webhook tenant lookup failed", "error", err.Error())
		return
	}
	if len(creds) == 0 {
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(enqueueWorkers)
	for _, cred := range creds {
		for _, callID := range callIDs {
			payload := scheduler.PipelineCallPayload{
				TenantID: cred.TenantID.String(),
				Platform: string(platform),
				CallID:   callID,
			}
			group.Go(func() error {
				return h.enqueuer.EnqueuePipelineCall(groupCtx, payload)
			})
		}
	}

	if err := group.Wait(); err != nil {
		h.log.WithPlatform(string(platform)).Error("webhook task enqueue failed", "error", err.Error())
		return
	}
	h.log.WithPlatform(string(platform)).Info("webhook tasks enqueued",
		"tenants", len(creds), "calls", len(callIDs))
}

// salesloft delivers either a single event or a batch under "events"; the
// conversation id lives in the event payload. gong automation rules post the
// call id directly, singular or plural.
type salesloftEvent struct {
	Payload struct {
		ID json.Number `json:"id"`
	} `json:"payload"`
}

type salesloftEnvelope struct {
	salesloftEvent
	Events []salesloftEvent `json:"events"`
}

type gongEnvelope struct {
	CallID  string   `json:"callId"`
	CallIDs []string `json:"callIds"`
}

func extractCallIDs(platform credentials.Platform, body []byte) ([]string, error) {
	switch platform {
	case credentials.PlatformSalesloft:
		var envelope salesloftEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		var ids []string
		if id := envelope.Payload.ID.String(); id != "" && id != "0" {
			ids = append(ids, id)
		}
		for _, event := range envelope.Events {
			if id := event.Payload.ID.String(); id != "" && id != "0" {
				ids = append(ids, id)
			}
		}
		return dedupe(ids), nil
	case credentials.PlatformGong:
		var envelope gongEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		var ids []string
		if envelope.CallID != "" {
			ids = append(ids, envelope.CallID)
		}
		ids = append(ids, envelope.CallIDs...)
		return dedupe(ids), nil
	default:
		return nil, nil
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
