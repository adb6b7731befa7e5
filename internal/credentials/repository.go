package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callscore_backend/internal/credentials/credcrypto"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides data access for integration credentials.
// Secret columns are encrypted with the tenant-wide encryption key before
// hitting the database and decrypted on the way out.
type Repository struct {
	pool *pgxpool.Pool
	key  []byte
}

// NewRepository creates a new credential repository.
func NewRepository(pool *pgxpool.Pool, encryptionKey []byte) *Repository {
	return &Repository{pool: pool, key: encryptionKey}
}

const credentialColumns = `
	id, tenant_id, platform, base_url,
	access_token_enc, refresh_token_enc, access_key_enc, secret_key_enc,
	is_active, created_at, updated_at`

// ListActive returns every active credential across all tenants,
// oldest first so tenant processing order is stable between runs.
func (r *Repository) ListActive(ctx context.Context) ([]Credential, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+credentialColumns+`
		FROM integration_credentials
		WHERE is_active = true
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		cred, err := r.scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// GetByTenantAndPlatform returns the active credential for one tenant/platform pair.
func (r *Repository) GetByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, platform Platform) (Credential, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+credentialColumns+`
		FROM integration_credentials
		WHERE tenant_id = $1 AND platform = $2 AND is_active = true
	`, tenantID, platform)

	cred, err := r.scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credential{}, ErrCredentialNotFound
	}
	return cred, err
}

// ListActiveByTenant returns all active credentials for one tenant.
func (r *Repository) ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]Credential, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+credentialColumns+`
		FROM integration_credentials
		WHERE tenant_id = $1 AND is_active = true
		ORDER BY created_at ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		cred, err := r.scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// ListActiveByPlatform returns active credentials for one platform,
// used by the webhook path to fan out to every tenant with that platform configured.
func (r *Repository) ListActiveByPlatform(ctx context.Context, platform Platform) ([]Credential, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+credentialColumns+`
		FROM integration_credentials
		WHERE platform = $1 AND is_active = true
		ORDER BY created_at ASC
	`, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		cred, err := r.scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// Create stores a new credential. Called when a tenant connects a platform.
func (r *Repository) Create(ctx context.Context, cred Credential) (Credential, error) {
	accessTokenEnc, err := credcrypto.Encrypt(cred.AccessToken, r.key)
	if err != nil {
		return Credential{}, fmt.Errorf("encrypt access token: %w", err)
	}
	refreshTokenEnc, err := credcrypto.Encrypt(cred.RefreshToken, r.key)
	if err != nil {
		return Credential{}, fmt.Errorf("encrypt refresh token: %w", err)
	}
	accessKeyEnc, err := credcrypto.Encrypt(cred.AccessKey, r.key)
	if err != nil {
		return Credential{}, fmt.Errorf("encrypt access key: %w", err)
	}
	secretKeyEnc, err := credcrypto.Encrypt(cred.SecretKey, r.key)
	if err != nil {
		return Credential{}, fmt.Errorf("encrypt secret key: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO integration_credentials
			(tenant_id, platform, base_url, access_token_enc, refresh_token_enc, access_key_enc, secret_key_enc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, updated_at
	`, cred.TenantID, cred.Platform, cred.BaseURL,
		accessTokenEnc, refreshTokenEnc, accessKeyEnc, secretKeyEnc,
	).Scan(&cred.ID, &cred.IsActive, &cred.CreatedAt, &cred.UpdatedAt)
	return cred, err
}

// UpdateTokens persists a refreshed token pair and returns the new updated_at.
func (r *Repository) UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string) (time.Time, error) {
	accessTokenEnc, err := credcrypto.Encrypt(accessToken, r.key)
	if err != nil {
		return time.Time{}, fmt.Errorf("encrypt access token: %w", err)
	}
	refreshTokenEnc, err := credcrypto.Encrypt(refreshToken, r.key)
	if err != nil {
		return time.Time{}, fmt.Errorf("encrypt refresh token: %w", err)
	}

	var updatedAt time.Time
	err = r.pool.QueryRow(ctx, `
		UPDATE integration_credentials
		SET access_token_enc = $2, refresh_token_enc = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, id, accessTokenEnc, refreshTokenEnc).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrCredentialNotFound
	}
	return updatedAt, err
}

// Deactivate disables a credential. Called when a tenant disconnects a platform.
func (r *Repository) Deactivate(ctx context.Context, tenantID uuid.UUID, platform Platform) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE integration_credentials
		SET is_active = false, updated_at = now()
		WHERE tenant_id = $1 AND platform = $2 AND is_active = true
	`, tenantID, platform)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

func (r *Repository) scanCredential(row pgx.Row) (Credential, error) {
	var (
		cred            Credential
		accessTokenEnc  string
		refreshTokenEnc string
		accessKeyEnc    string
		secretKeyEnc    string
	)
	err := row.Scan(
		&cred.ID, &cred.TenantID, &cred.Platform, &cred.BaseURL,
		&accessTokenEnc, &refreshTokenEnc, &accessKeyEnc, &secretKeyEnc,
		&cred.IsActive, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if err != nil {
		return Credential{}, err
	}

	if cred.AccessToken, err = credcrypto.Decrypt(accessTokenEnc, r.key); err != nil {
		return Credential{}, fmt.Errorf("decrypt access token: %w", err)
	}
	if cred.RefreshToken, err = credcrypto.Decrypt(refreshTokenEnc, r.key); err != nil {
		return Credential{}, fmt.Errorf("decrypt refresh token: %w", err)
	}
	if cred.AccessKey, err = credcrypto.Decrypt(accessKeyEnc, r.key); err != nil {
		return Credential{}, fmt.Errorf("decrypt access key: %w", err)
	}
	if cred.SecretKey, err = credcrypto.Decrypt(secretKeyEnc, r.key); err != nil {
		return Credential{}, fmt.Errorf("decrypt secret key: %w", err)
	}
	return cred, nil
}
