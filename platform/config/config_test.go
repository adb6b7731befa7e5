package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CREDENTIAL_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CallWindowDays != 7 {
		t.Fatalf("CallWindowDays = %d, want 7", cfg.CallWindowDays)
	}
	if cfg.LedgerStaleAfter != 10*time.Minute {
		t.Fatalf("LedgerStaleAfter = %v, want 10m", cfg.LedgerStaleAfter)
	}
	if cfg.PipelineRunInterval != time.Hour {
		t.Fatalf("PipelineRunInterval = %v, want 1h", cfg.PipelineRunInterval)
	}
}

func TestLoadRejectsMalformedInteger(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CALL_WINDOW_DAYS", "week")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for a non-numeric CALL_WINDOW_DAYS")
	}
	if !strings.Contains(err.Error(), "CALL_WINDOW_DAYS") {
		t.Fatalf("error %q should name the offending variable", err)
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PIPELINE_RUN_INTERVAL", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for a non-duration PIPELINE_RUN_INTERVAL")
	}
	if !strings.Contains(err.Error(), "PIPELINE_RUN_INTERVAL") {
		t.Fatalf("error %q should name the offending variable", err)
	}
}

func TestLoadRejectsZeroWindow(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CALL_WINDOW_DAYS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for a zero-day call window")
	}
}
