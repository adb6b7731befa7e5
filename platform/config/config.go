// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the task queue backend.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// CredentialConfig provides settings for credential storage.
type CredentialConfig interface {
	GetCredentialEncryptionKey() string
}

// ScoringConfig provides settings for the scoring service.
type ScoringConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetScoringTimeout() time.Duration
	GetTranscriptCharBudget() int
}

// PipelineConfig provides settings for the call processing pipeline.
type PipelineConfig interface {
	GetCallWindowDays() int
	GetPerSellerQuota() int
	GetTotalRunQuota() int
	GetLedgerStaleAfter() time.Duration
	GetPipelineRunInterval() time.Duration
}

// WebhookConfig provides settings for inbound platform webhooks.
type WebhookConfig interface {
	GetWebhookSharedSecret() string
}

// AlertConfig provides settings for operator alert emails.
type AlertConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetAlertFromAddress() string
	GetAlertToAddress() string
	IsAlertEnabled() bool
}

// ArchiveConfig provides settings for MinIO S3-compatible transcript archival.
type ArchiveConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCallArchive() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	JWTAccessSecret         string
	CredentialEncryptionKey string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	GeminiAPIKey            string
	GeminiModel             string
	ScoringTimeout          time.Duration
	TranscriptCharBudget    int
	CallWindowDays          int
	PerSellerQuota          int
	TotalRunQuota           int
	LedgerStaleAfter        time.Duration
	PipelineRunInterval     time.Duration
	WebhookSharedSecret     string
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	AlertFromAddress        string
	AlertToAddress          string
	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	MinioBucketCallArchive  string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// CredentialConfig implementation
func (c *Config) GetCredentialEncryptionKey() string { return c.CredentialEncryptionKey }

// ScoringConfig implementation
func (c *Config) GetGeminiAPIKey() string            { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string             { return c.GeminiModel }
func (c *Config) GetScoringTimeout() time.Duration   { return c.ScoringTimeout }
func (c *Config) GetTranscriptCharBudget() int       { return c.TranscriptCharBudget }

// PipelineConfig implementation
func (c *Config) GetCallWindowDays() int                  { return c.CallWindowDays }
func (c *Config) GetPerSellerQuota() int                  { return c.PerSellerQuota }
func (c *Config) GetTotalRunQuota() int                   { return c.TotalRunQuota }
func (c *Config) GetLedgerStaleAfter() time.Duration      { return c.LedgerStaleAfter }
func (c *Config) GetPipelineRunInterval() time.Duration   { return c.PipelineRunInterval }

// WebhookConfig implementation
func (c *Config) GetWebhookSharedSecret() string { return c.WebhookSharedSecret }

// AlertConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetAlertFromAddress() string { return c.AlertFromAddress }
func (c *Config) GetAlertToAddress() string   { return c.AlertToAddress }
func (c *Config) IsAlertEnabled() bool {
	return c.SMTPHost != "" && c.AlertToAddress != ""
}

// ArchiveConfig implementation
func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCallArchive() string { return c.MinioBucketCallArchive }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var envErr error
	intEnv := func(key, fallback string) int {
		raw := getEnv(key, fallback)
		v, err := strconv.Atoi(raw)
		if err != nil && envErr == nil {
			envErr = fmt.Errorf("%s: invalid integer %q", key, raw)
		}
		return v
	}
	durationEnv := func(key, fallback string) time.Duration {
		raw := getEnv(key, fallback)
		d, err := time.ParseDuration(raw)
		if err != nil && envErr == nil {
			envErr = fmt.Errorf("%s: invalid duration %q", key, raw)
		}
		return d
	}

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency:        intEnv("ASYNQ_CONCURRENCY", "10"),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CredentialEncryptionKey: getEnv("CREDENTIAL_ENCRYPTION_KEY", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ScoringTimeout:          durationEnv("SCORING_TIMEOUT", "45s"),
		TranscriptCharBudget:    intEnv("TRANSCRIPT_CHAR_BUDGET", "60000"),
		CallWindowDays:          intEnv("CALL_WINDOW_DAYS", "7"),
		PerSellerQuota:          intEnv("PER_SELLER_QUOTA", "1"),
		TotalRunQuota:           intEnv("TOTAL_RUN_QUOTA", "10"),
		LedgerStaleAfter:        durationEnv("LEDGER_STALE_AFTER", "10m"),
		PipelineRunInterval:     durationEnv("PIPELINE_RUN_INTERVAL", "1h"),
		WebhookSharedSecret:     getEnv("WEBHOOK_SHARED_SECRET", ""),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                intEnv("SMTP_PORT", "587"),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		AlertFromAddress:        getEnv("ALERT_FROM_ADDRESS", ""),
		AlertToAddress:          getEnv("ALERT_TO_ADDRESS", ""),
		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:          getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:          getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:             strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketCallArchive:  getEnv("MINIO_BUCKET_CALL_ARCHIVE", "call-archive"),
	}

	if envErr != nil {
		return nil, envErr
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if len(cfg.CredentialEncryptionKey) != 32 {
		return nil, fmt.Errorf("CREDENTIAL_ENCRYPTION_KEY must be exactly 32 bytes")
	}
	if cfg.ScoringTimeout <= 0 {
		return nil, fmt.Errorf("SCORING_TIMEOUT must be a positive duration")
	}
	if cfg.TranscriptCharBudget <= 0 {
		return nil, fmt.Errorf("TRANSCRIPT_CHAR_BUDGET must be positive")
	}
	if cfg.PerSellerQuota <= 0 || cfg.TotalRunQuota <= 0 {
		return nil, fmt.Errorf("PER_SELLER_QUOTA and TOTAL_RUN_QUOTA must be positive")
	}
	if cfg.CallWindowDays <= 0 {
		return nil, fmt.Errorf("CALL_WINDOW_DAYS must be positive")
	}
	if cfg.LedgerStaleAfter <= 0 || cfg.PipelineRunInterval <= 0 {
		return nil, fmt.Errorf("LEDGER_STALE_AFTER and PIPELINE_RUN_INTERVAL must be positive durations")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
