package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callscore_backend/platform/logger"

	"github.com/google/uuid"
)

const refreshTokenPath = "/oauth/token"

// TokenStore is the persistence surface the token manager needs.
type TokenStore interface {
	UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string) (time.Time, error)
}

// Alerter notifies operators when a credential stops working.
type Alerter interface {
	CredentialFailure(ctx context.Context, tenantID uuid.UUID, platform string, cause error)
}

// TokenManager resolves usable access tokens for platform credentials.
// For refreshable platforms it exchanges the long-lived refresh token for a
// short-lived access token and persists both. Every refresh returns a new
// Credential value; callers thread the returned value forward instead of
// holding on to the stale one.
type TokenManager struct {
	store      TokenStore
	httpClient *http.Client
	log        *logger.Logger
	alerts     Alerter
}

// NewTokenManager creates a token manager. alerts may be nil.
func NewTokenManager(store TokenStore, log *logger.Logger, alerts Alerter) *TokenManager {
	return &TokenManager{
		store:      store,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
		alerts:     alerts,
	}
}

// EnsureAccessToken returns a credential guaranteed to carry a usable access
// token. Static key-pair platforms pass through unchanged; refreshable
// platforms refresh when no token is cached.
func (m *TokenManager) EnsureAccessToken(ctx context.Context, cred Credential) (Credential, error) {
	if cred.Platform != PlatformSalesloft {
		return cred, nil
	}
	if cred.AccessToken != "" {
		return cred, nil
	}
	return m.Refresh(ctx, cred)
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges the credential's refresh token at the platform's token
// endpoint and persists the new pair. A rejected refresh means the stored
// material is no longer valid, so the operator is alerted.
func (m *TokenManager) Refresh(ctx context.Context, cred Credential) (Credential, error) {
	if cred.Platform != PlatformSalesloft {
		return cred, fmt.Errorf("platform %q does not support token refresh", cred.Platform)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(cred.BaseURL, "/")+refreshTokenPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return cred, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return cred, m.refreshFailed(ctx, cred, fmt.Errorf("call refresh endpoint: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cred, m.refreshFailed(ctx, cred, fmt.Errorf("refresh endpoint returned status %d", resp.StatusCode))
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return cred, m.refreshFailed(ctx, cred, fmt.Errorf("decode refresh response: %w", err))
	}
	if parsed.AccessToken == "" {
		return cred, m.refreshFailed(ctx, cred, fmt.Errorf("refresh response missing access token"))
	}

	// Some providers do not rotate the refresh token on every exchange.
	newRefresh := parsed.RefreshToken
	if newRefresh == "" {
		newRefresh = cred.RefreshToken
	}

	updatedAt, err := m.store.UpdateTokens(ctx, cred.ID, parsed.AccessToken, newRefresh)
	if err != nil {
		return cred, fmt.Errorf("persist refreshed tokens: %w", err)
	}

	m.log.WithTenantID(cred.TenantID.String()).Info("credential refreshed",
		"platform", string(cred.Platform))

	return cred.WithTokens(parsed.AccessToken, newRefresh, updatedAt), nil
}

func (m *TokenManager) refreshFailed(ctx context.Context, cred Credential, cause error) error {
	m.log.WithTenantID(cred.TenantID.String()).Error("credential refresh failed",
		"platform", string(cred.Platform),
		"error", cause.Error(),
	)
	if m.alerts != nil {
		m.alerts.CredentialFailure(ctx, cred.TenantID, string(cred.Platform), cause)
	}
	return fmt.Errorf("%w: %v", ErrRefreshFailed, cause)
}
