package pipeline

import (
	"context"
	"errors"
	"fmt"

	"callscore_backend/internal/credentials"
	"callscore_backend/internal/ledger"
	"callscore_backend/internal/platforms"
	"callscore_backend/internal/reviews"
	"callscore_backend/internal/scoring"
	"callscore_backend/internal/transcript"
	"callscore_backend/platform/logger"

	"github.com/google/uuid"
)

// CredentialSource is the credential surface the orchestrator needs.
type CredentialSource interface {
	ListActive(ctx context.Context) ([]credentials.Credential, error)
	ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]credentials.Credential, error)
	GetByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, platform credentials.Platform) (credentials.Credential, error)
}

// TokenSource resolves and refreshes access tokens.
type TokenSource interface {
	EnsureAccessToken(ctx context.Context, cred credentials.Credential) (credentials.Credential, error)
	Refresh(ctx context.Context, cred credentials.Credential) (credentials.Credential, error)
}

// Ledger is the idempotency surface the orchestrator needs.
type Ledger interface {
	Claim(ctx context.Context, tenantID uuid.UUID, callKey string) error
	DoneSet(ctx context.Context, tenantID uuid.UUID) (map[string]struct{}, error)
	MarkOutcome(ctx context.Context, tenantID uuid.UUID, callKey string, outcome ledger.Outcome) error
}

// ReviewStore persists reviews and resolves reps.
type ReviewStore interface {
	CreateReview(ctx context.Context, review reviews.Review) (reviews.Review, error)
	FindOrCreateRep(ctx context.Context, tenantID uuid.UUID, displayName, email string) (reviews.Rep, error)
}

// Archiver stores raw call artifacts for out-of-band rescoring. Optional;
// failures are logged and never affect the run.
type Archiver interface {
	SaveTranscript(ctx context.Context, tenantID uuid.UUID, callKey, text string) error
	SaveScoringPayload(ctx context.Context, tenantID uuid.UUID, callKey string, raw []byte) error
}

// AdapterFactory builds a platform adapter for one credential. The refresh
// callback is invoked by adapters that support it after an authorization
// failure.
type AdapterFactory func(cred credentials.Credential, refresh platforms.RefreshFunc) (platforms.Adapter, error)

// Config carries the pipeline's run-shaping knobs.
type Config struct {
	WindowDays     int
	PerSellerQuota int
	TotalRunQuota  int
	CharBudget     int
}

// RunSummary is the result of one full pipeline invocation.
type RunSummary struct {
	TenantsChecked   int `json:"tenantsChecked"`
	TenantsProcessed int `json:"tenantsProcessed"`
	CallsProcessed   int `json:"callsProcessed"`
	CallsFailed      int `json:"callsFailed"`
}

// CallResult is the outcome of processing a single call on the manual and
// webhook paths.
type CallResult struct {
	ReviewID     uuid.UUID `json:"reviewId"`
	OverallScore int       `json:"overallScore"`
}

// Orchestrator drives the ingestion and scoring pipeline.
type Orchestrator struct {
	creds    CredentialSource
	tokens   TokenSource
	ledger   Ledger
	reviews  ReviewStore
	scorer   scoring.Scorer
	adapters AdapterFactory
	archive  Archiver
	cfg      Config
	log      *logger.Logger
}

// NewOrchestrator wires the pipeline. archive may be nil.
func NewOrchestrator(
	creds CredentialSource,
	tokens TokenSource,
	callLedger Ledger,
	reviewStore ReviewStore,
	scorer scoring.Scorer,
	adapters AdapterFactory,
	archive Archiver,
	cfg Config,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		creds:    creds,
		tokens:   tokens,
		ledger:   callLedger,
		reviews:  reviewStore,
		scorer:   scorer,
		adapters: adapters,
		archive:  archive,
		cfg:      cfg,
		log:      log,
	}
}

// RunAll processes every configured tenant integration sequentially. Tenant
// failures are logged and skipped; only storage unavailability aborts the
// run. The total-per-run quota caps call work across the whole invocation.
func (o *Orchestrator) RunAll(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	creds, err := o.creds.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("list credentials: %w", err)
	}

	remaining := o.cfg.TotalRunQuota
	for _, cred := range creds {
		if remaining <= 0 {
			break
		}
		summary.TenantsChecked++

		processed, failed, err := o.runTenant(ctx, cred, &remaining)
		summary.CallsProcessed += processed
		summary.CallsFailed += failed
		if err != nil {
			if errors.Is(err, ErrStorageUnavailable) {
				return summary, err
			}
			o.log.WithTenantID(cred.TenantID.String()).Error("tenant run failed",
				"platform", string(cred.Platform),
				"error", err.Error(),
			)
			continue
		}
		summary.TenantsProcessed++
	}

	o.log.Info("pipeline run finished",
		"tenants_checked", summary.TenantsChecked,
		"tenants_processed", summary.TenantsProcessed,
		"calls_processed", summary.CallsProcessed,
		"calls_failed", summary.CallsFailed,
	)
	return summary, nil
}

func (o *Orchestrator) runTenant(ctx context.Context, cred credentials.Credential, remaining *int) (processed, failed int, err error) {
	log := o.log.WithTenantID(cred.TenantID.String()).WithPlatform(string(cred.Platform))

	cred, err = o.tokens.EnsureAccessToken(ctx, cred)
	if err != nil {
		return 0, 0, fmt.Errorf("ensure access token: %w", err)
	}

	adapter, err := o.buildAdapter(ctx, cred)
	if err != nil {
		return 0, 0, err
	}

	summaries, err := adapter.ListRecentCalls(ctx, o.cfg.WindowDays)
	if err != nil {
		return 0, 0, fmt.Errorf("list recent calls: %w", err)
	}

	done, err := o.ledger.DoneSet(ctx, cred.TenantID)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: compute done set: %v", ErrStorageUnavailable, err)
	}

	candidates := make([]platforms.CallSummary, 0, len(summaries))
	for _, summary := range summaries {
		key := ledger.CallKey(adapter.Platform(), summary.ID)
		if _, isDone := done[key]; isDone {
			continue
		}
		candidates = append(candidates, summary)
	}

	batch := FairBatch(candidates, o.cfg.PerSellerQuota)
	if len(batch) > *remaining {
		batch = batch[:*remaining]
	}

	log.Info("tenant batch selected",
		"listed", len(summaries),
		"candidates", len(candidates),
		"batch", len(batch),
	)

	for _, summary := range batch {
		*remaining--

		outcome, _ := o.scoreCall(ctx, cred, adapter, summary.ID)
		callKey := ledger.CallKey(adapter.Platform(), summary.ID)
		o.markOutcome(ctx, cred.TenantID, callKey, outcome)

		switch typed := outcome.(type) {
		case ledger.Completed:
			processed++
			log.CallOutcome(cred.TenantID.String(), callKey, ledger.StatusCompleted, "")
		case ledger.Skipped:
			log.CallOutcome(cred.TenantID.String(), callKey, ledger.StatusSkipped, typed.Reason)
		case ledger.Failed:
			failed++
			log.CallOutcome(cred.TenantID.String(), callKey, ledger.StatusFailed, typed.Reason)
		}
	}
	return processed, failed, nil
}

// ProcessCall backs the manual trigger and webhook tasks: claim, fetch,
// score, and persist one call. A call already terminal in the ledger is not
// reprocessed.
func (o *Orchestrator) ProcessCall(ctx context.Context, tenantID uuid.UUID, platform credentials.Platform, callID string) (CallResult, error) {
	cred, err := o.resolveCredential(ctx, tenantID, platform)
	if err != nil {
		return CallResult{}, err
	}

	cred, err = o.tokens.EnsureAccessToken(ctx, cred)
	if err != nil {
		return CallResult{}, fmt.Errorf("ensure access token: %w", err)
	}

	adapter, err := o.buildAdapter(ctx, cred)
	if err != nil {
		return CallResult{}, err
	}

	done, err := o.ledger.DoneSet(ctx, cred.TenantID)
	if err != nil {
		return CallResult{}, fmt.Errorf("%w: compute done set: %v", ErrStorageUnavailable, err)
	}

	callKey := ledger.CallKey(adapter.Platform(), callID)
	if _, isDone := done[callKey]; isDone {
		return CallResult{}, ErrAlreadyProcessed
	}

	outcome, result := o.scoreCall(ctx, cred, adapter, callID)
	o.markOutcome(ctx, cred.TenantID, callKey, outcome)

	switch typed := outcome.(type) {
	case ledger.Completed:
		o.log.CallOutcome(cred.TenantID.String(), callKey, ledger.StatusCompleted, "")
		return result, nil
	case ledger.Skipped:
		o.log.CallOutcome(cred.TenantID.String(), callKey, ledger.StatusSkipped, typed.Reason)
		return CallResult{}, fmt.Errorf("%w: %s", ErrCallSkipped, typed.Reason)
	case ledger.Failed:
		o.log.CallOutcome(cred.TenantID.String(), callKey, ledger.StatusFailed, typed.Reason)
		return CallResult{}, fmt.Errorf("call failed: %s", typed.Reason)
	default:
		return CallResult{}, fmt.Errorf("unexpected outcome %T", outcome)
	}
}

// scoreCall runs the per-call steps and converts the result into a terminal
// ledger outcome. The claim happens first so overlapping invocations see the
// key as live processing.
func (o *Orchestrator) scoreCall(ctx context.Context, cred credentials.Credential, adapter platforms.Adapter, callID string) (ledger.Outcome, CallResult) {
	callKey := ledger.CallKey(adapter.Platform(), callID)

	if err := o.ledger.Claim(ctx, cred.TenantID, callKey); err != nil {
		return ledger.Failed{Reason: FailureReason(fmt.Errorf("%w: claim: %v", ErrStorageUnavailable, err))}, CallResult{}
	}

	meta, err := adapter.GetCallMetadata(ctx, callID)
	if err != nil {
		return ledger.Failed{Reason: FailureReason(fmt.Errorf("fetch metadata: %w", err))}, CallResult{}
	}

	if len(meta.Sellers) == 0 {
		return ledger.Skipped{Reason: "no seller attendees; call cannot be attributed"}, CallResult{}
	}

	if meta.TranscriptRef == "" {
		return ledger.Failed{Reason: FailureReason(ErrNoTranscript)}, CallResult{}
	}
	raw, err := adapter.GetTranscript(ctx, meta.TranscriptRef)
	if err != nil {
		return ledger.Failed{Reason: FailureReason(fmt.Errorf("fetch transcript: %w", err))}, CallResult{}
	}
	if raw.IsEmpty() {
		return ledger.Failed{Reason: FailureReason(ErrEmptyTranscript)}, CallResult{}
	}

	text := transcript.Normalize(meta, raw, o.cfg.CharBudget)

	card, rawResponse, err := o.scorer.Score(ctx, text)
	if err != nil {
		return ledger.Failed{Reason: FailureReason(err)}, CallResult{}
	}

	review, err := scoring.Aggregate(cred.TenantID, adapter.Platform(), meta, card, text, rawResponse)
	if err != nil {
		return ledger.Failed{Reason: FailureReason(err)}, CallResult{}
	}

	// Rep resolution is non-authoritative; a failure never blocks the review.
	if review.RepName != "" {
		rep, repErr := o.reviews.FindOrCreateRep(ctx, cred.TenantID, review.RepName, firstSellerEmail(meta))
		if repErr != nil {
			o.log.WithTenantID(cred.TenantID.String()).Warn("rep lookup failed",
				"rep_name", review.RepName, "error", repErr.Error())
		} else {
			review.RepID = &rep.ID
		}
	}

	created, err := o.reviews.CreateReview(ctx, review)
	if err != nil {
		return ledger.Failed{Reason: KindPersistence.Label() + ": store review: " + err.Error()}, CallResult{}
	}

	o.archiveArtifacts(ctx, cred.TenantID, callKey, text, rawResponse)

	return ledger.Completed{ReviewID: created.ID}, CallResult{ReviewID: created.ID, OverallScore: created.OverallScore}
}

func (o *Orchestrator) archiveArtifacts(ctx context.Context, tenantID uuid.UUID, callKey, text string, rawResponse []byte) {
	if o.archive == nil {
		return
	}
	if err := o.archive.SaveTranscript(ctx, tenantID, callKey, text); err != nil {
		o.log.Warn("transcript archive failed", "call_key", callKey, "error", err.Error())
	}
	if err := o.archive.SaveScoringPayload(ctx, tenantID, callKey, rawResponse); err != nil {
		o.log.Warn("scoring payload archive failed", "call_key", callKey, "error", err.Error())
	}
}

// markOutcome records the terminal state. A write failure here is logged and
// swallowed; the call stays in processing and becomes reclaimable after the
// staleness threshold.
func (o *Orchestrator) markOutcome(ctx context.Context, tenantID uuid.UUID, callKey string, outcome ledger.Outcome) {
	if err := o.ledger.MarkOutcome(ctx, tenantID, callKey, outcome); err != nil {
		o.log.DatabaseError("mark ledger outcome", err)
	}
}

func (o *Orchestrator) buildAdapter(ctx context.Context, cred credentials.Credential) (platforms.Adapter, error) {
	// The refresh callback threads the refreshed credential forward through
	// the local value; the adapter receives only the new token.
	refresh := func(refreshCtx context.Context) (string, error) {
		newCred, err := o.tokens.Refresh(refreshCtx, cred)
		if err != nil {
			return "", err
		}
		cred = newCred
		return newCred.AccessToken, nil
	}

	adapter, err := o.adapters(cred, refresh)
	if err != nil {
		return nil, fmt.Errorf("build %s adapter: %w", cred.Platform, err)
	}
	return adapter, nil
}

func (o *Orchestrator) resolveCredential(ctx context.Context, tenantID uuid.UUID, platform credentials.Platform) (credentials.Credential, error) {
	if platform != "" {
		return o.creds.GetByTenantAndPlatform(ctx, tenantID, platform)
	}

	creds, err := o.creds.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return credentials.Credential{}, fmt.Errorf("list tenant credentials: %w", err)
	}
	if len(creds) == 0 {
		return credentials.Credential{}, credentials.ErrCredentialNotFound
	}
	return creds[0], nil
}

func firstSellerEmail(meta platforms.CallMetadata) string {
	for _, seller := range meta.Sellers {
		if seller.Email != "" {
			return seller.Email
		}
	}
	return ""
}
