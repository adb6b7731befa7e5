package scoring

import (
	"context"
	"fmt"
	"time"

	"callscore_backend/platform/config"
	"callscore_backend/platform/logger"

	"google.golang.org/genai"
)

// GeminiScorer invokes the Gemini API with the rubric prompt and a JSON
// response constraint. Each invocation races against a dedicated timer so a
// hung model call cannot exhaust the rest of the run's budget.
type GeminiScorer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	rubric  Rubric
	log     *logger.Logger
}

// NewGeminiScorer creates a Gemini-backed scorer.
func NewGeminiScorer(ctx context.Context, cfg config.ScoringConfig, log *logger.Logger) (*GeminiScorer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	rubric, err := LoadRubric()
	if err != nil {
		return nil, err
	}

	return &GeminiScorer{
		client:  client,
		model:   cfg.GetGeminiModel(),
		timeout: cfg.GetScoringTimeout(),
		rubric:  rubric,
		log:     log,
	}, nil
}

// CategoryIDs implements Scorer.
func (s *GeminiScorer) CategoryIDs() []string {
	return s.rubric.CategoryIDs()
}

type scoreResult struct {
	card CallScorecard
	raw  []byte
	err  error
}

// Score implements Scorer. The model call runs in its own goroutine and is
// raced against the timer; on expiry the caller gets ErrScoringTimeout while
// the abandoned call is cancelled through its context.
func (s *GeminiScorer) Score(ctx context.Context, transcriptText string) (CallScorecard, []byte, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan scoreResult, 1)
	go func() {
		card, raw, err := s.generate(callCtx, transcriptText)
		resultCh <- scoreResult{card: card, raw: raw, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res.card, res.raw, res.err
	case <-timer.C:
		s.log.Warn("scoring invocation timed out", "model", s.model, "timeout", s.timeout.String())
		return CallScorecard{}, nil, ErrScoringTimeout
	case <-ctx.Done():
		return CallScorecard{}, nil, ctx.Err()
	}
}

func (s *GeminiScorer) generate(ctx context.Context, transcriptText string) (CallScorecard, []byte, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model,
		genai.Text(s.rubric.Prompt(transcriptText)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.2),
		})
	if err != nil {
		return CallScorecard{}, nil, fmt.Errorf("generate content: %w", err)
	}

	raw := []byte(resp.Text())
	if len(raw) == 0 {
		return CallScorecard{}, nil, fmt.Errorf("scoring model returned empty response")
	}

	card, err := ParseScorecard(raw, s.rubric.CategoryIDs())
	if err != nil {
		return CallScorecard{}, raw, err
	}
	return card, raw, nil
}
