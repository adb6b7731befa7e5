package credentials

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"callscore_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeTokenStore struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	updates      int
	err          error
}

func (s *fakeTokenStore) UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return time.Time{}, s.err
	}
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	s.updates++
	return time.Now(), nil
}

type fakeAlerter struct {
	mu    sync.Mutex
	calls int
}

func (a *fakeAlerter) CredentialFailure(ctx context.Context, tenantID uuid.UUID, platform string, cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
}

func salesloftCred(baseURL string) Credential {
	return Credential{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Platform:     PlatformSalesloft,
		BaseURL:      baseURL,
		RefreshToken: "refresh-old",
	}
}

func TestEnsureAccessTokenPassthrough(t *testing.T) {
	manager := NewTokenManager(&fakeTokenStore{}, logger.New("development"), nil)

	gong := Credential{Platform: PlatformGong, AccessKey: "k", SecretKey: "s"}
	got, err := manager.EnsureAccessToken(context.Background(), gong)
	if err != nil {
		t.Fatalf("EnsureAccessToken: %v", err)
	}
	if got.AccessKey != "k" {
		t.Fatal("static credential must pass through unchanged")
	}

	cached := salesloftCred("http://unused")
	cached.AccessToken = "cached-token"
	got, err = manager.EnsureAccessToken(context.Background(), cached)
	if err != nil {
		t.Fatalf("EnsureAccessToken: %v", err)
	}
	if got.AccessToken != "cached-token" {
		t.Fatal("cached token must pass through without refresh")
	}
}

func TestRefreshPersistsRotatedPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/oauth/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "refresh-old" {
			t.Errorf("refresh_token = %q", r.PostForm.Get("refresh_token"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-new","refresh_token":"refresh-new"}`))
	}))
	defer server.Close()

	store := &fakeTokenStore{}
	manager := NewTokenManager(store, logger.New("development"), nil)

	original := salesloftCred(server.URL)
	refreshed, err := manager.Refresh(context.Background(), original)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if refreshed.AccessToken != "access-new" || refreshed.RefreshToken != "refresh-new" {
		t.Fatalf("refreshed credential = %q/%q", refreshed.AccessToken, refreshed.RefreshToken)
	}
	if store.accessToken != "access-new" || store.refreshToken != "refresh-new" {
		t.Fatalf("persisted pair = %q/%q", store.accessToken, store.refreshToken)
	}
	// The input value must stay untouched.
	if original.AccessToken != "" || original.RefreshToken != "refresh-old" {
		t.Fatal("Refresh mutated the input credential")
	}
}

func TestRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-new"}`))
	}))
	defer server.Close()

	store := &fakeTokenStore{}
	manager := NewTokenManager(store, logger.New("development"), nil)

	refreshed, err := manager.Refresh(context.Background(), salesloftCred(server.URL))
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken != "refresh-old" {
		t.Fatalf("refresh token = %q, want the prior one kept", refreshed.RefreshToken)
	}
	if store.refreshToken != "refresh-old" {
		t.Fatalf("persisted refresh token = %q", store.refreshToken)
	}
}

func TestRefreshRejectionAlertsOperator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := &fakeTokenStore{}
	alerter := &fakeAlerter{}
	manager := NewTokenManager(store, logger.New("development"), alerter)

	_, err := manager.Refresh(context.Background(), salesloftCred(server.URL))
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("err = %v, want ErrRefreshFailed", err)
	}
	if alerter.calls != 1 {
		t.Fatalf("alerter calls = %d, want 1", alerter.calls)
	}
	if store.updates != 0 {
		t.Fatal("no tokens should be persisted on a rejected refresh")
	}
}

func TestRefreshGongUnsupported(t *testing.T) {
	manager := NewTokenManager(&fakeTokenStore{}, logger.New("development"), nil)
	if _, err := manager.Refresh(context.Background(), Credential{Platform: PlatformGong}); err == nil {
		t.Fatal("expected error refreshing a static key platform")
	}
}
