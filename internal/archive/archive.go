// Package archive stores raw transcripts and scoring payloads in
// S3-compatible object storage so reviews can be rescored out of band
// without refetching from the platforms. The store is optional; when MinIO
// is not configured every write is a no-op.
package archive

import (
	"bytes"
	"context"
	"fmt"

	"callscore_backend/platform/config"
	"callscore_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store archives call artifacts under <tenant>/<callKey>/.
type Store struct {
	client  *minio.Client
	bucket  string
	enabled bool
	log     *logger.Logger
}

// NewStore creates an archive store from config.
func NewStore(cfg config.ArchiveConfig, log *logger.Logger) (*Store, error) {
	if !cfg.IsMinIOEnabled() {
		return &Store{enabled: false, log: log}, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Store{
		client:  client,
		bucket:  cfg.GetMinioBucketCallArchive(),
		enabled: true,
		log:     log,
	}, nil
}

// IsEnabled reports whether archival is configured.
func (s *Store) IsEnabled() bool { return s.enabled }

// EnsureBucket creates the archive bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	if !s.enabled {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// SaveTranscript archives the normalized transcript for one call.
func (s *Store) SaveTranscript(ctx context.Context, tenantID uuid.UUID, callKey, text string) error {
	return s.put(ctx, tenantID, callKey, "transcript.txt", []byte(text), "text/plain")
}

// SaveScoringPayload archives the raw scoring model response for one call.
func (s *Store) SaveScoringPayload(ctx context.Context, tenantID uuid.UUID, callKey string, raw []byte) error {
	return s.put(ctx, tenantID, callKey, "scoring_response.json", raw, "application/json")
}

func (s *Store) put(ctx context.Context, tenantID uuid.UUID, callKey, name string, data []byte, contentType string) error {
	if !s.enabled || len(data) == 0 {
		return nil
	}

	objectName := fmt.Sprintf("%s/%s/%s", tenantID, callKey, name)
	_, err := s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("archive %s: %w", objectName, err)
	}
	return nil
}
