// Package credentials provides the integration credential bounded context.
// It stores per-tenant call platform credentials with encrypted key material
// and manages access token refresh for platforms that require it.
package credentials

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Platform identifies a supported call recording platform.
type Platform string

const (
	// PlatformSalesloft authenticates with a refreshable bearer token pair.
	PlatformSalesloft Platform = "salesloft"
	// PlatformGong authenticates with a static access-key/secret pair.
	PlatformGong Platform = "gong"
)

// IsValid reports whether the platform is one of the supported values.
func (p Platform) IsValid() bool {
	return p == PlatformSalesloft || p == PlatformGong
}

var (
	// ErrCredentialNotFound is returned when no active credential matches.
	ErrCredentialNotFound = errors.New("integration credential not found")
	// ErrRefreshFailed is returned when the platform rejects a token refresh.
	// It signals that operator action is needed; retrying will not help.
	ErrRefreshFailed = errors.New("credential refresh failed")
)

// Credential is an immutable snapshot of one tenant's platform credential.
// Secret fields are decrypted in memory only; at rest they are AES-256-GCM
// encrypted. Token refresh returns a new value rather than mutating this one.
type Credential struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Platform Platform
	BaseURL  string

	// Refreshable token pair (salesloft).
	AccessToken  string
	RefreshToken string

	// Static key pair (gong).
	AccessKey string
	SecretKey string

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WithTokens returns a copy of the credential carrying the new token pair.
func (c Credential) WithTokens(accessToken, refreshToken string, updatedAt time.Time) Credential {
	c.AccessToken = accessToken
	c.RefreshToken = refreshToken
	c.UpdatedAt = updatedAt
	return c
}
