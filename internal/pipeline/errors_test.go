package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"callscore_backend/internal/credentials"
	"callscore_backend/internal/platforms"
	"callscore_backend/internal/scoring"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"scoring timeout", scoring.ErrScoringTimeout, KindScoringTimeout},
		{"wrapped scoring timeout", fmt.Errorf("score: %w", scoring.ErrScoringTimeout), KindScoringTimeout},
		{"refresh failed", credentials.ErrRefreshFailed, KindCredential},
		{"credential missing", credentials.ErrCredentialNotFound, KindCredential},
		{"no transcript", ErrNoTranscript, KindData},
		{"empty transcript", ErrEmptyTranscript, KindData},
		{"storage", ErrStorageUnavailable, KindPersistence},
		{"api 401", &platforms.APIError{Status: 401}, KindCredential},
		{"api 403", &platforms.APIError{Status: 403}, KindCredential},
		{"api 429", &platforms.APIError{Status: 429}, KindTransientNetwork},
		{"api 503", &platforms.APIError{Status: 503}, KindTransientNetwork},
		{"api 404", &platforms.APIError{Status: 404}, KindData},
		{"deadline", context.DeadlineExceeded, KindTransientNetwork},
		{"malformed output", errors.New("scorecard has 8 categories, want 9"), KindData},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: Classify = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFailureReasonPrefix(t *testing.T) {
	reason := FailureReason(fmt.Errorf("score call: %w", scoring.ErrScoringTimeout))
	if reason != "scoring_timeout: score call: scoring invocation timed out" {
		t.Fatalf("reason = %q", reason)
	}
}
