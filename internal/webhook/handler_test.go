package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"callscore_backend/internal/credentials"
	"callscore_backend/internal/scheduler"
	"callscore_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeLister struct {
	creds []credentials.Credential
}

func (f *fakeLister) ListActiveByPlatform(ctx context.Context, platform credentials.Platform) ([]credentials.Credential, error) {
	var out []credentials.Credential
	for _, c := range f.creds {
		if c.Platform == platform {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeEnqueuer struct {
	mu       sync.Mutex
	payloads []scheduler.PipelineCallPayload
}

func (f *fakeEnqueuer) EnqueuePipelineRun(ctx context.Context) error { return nil }

func (f *fakeEnqueuer) EnqueuePipelineCall(ctx context.Context, payload scheduler.PipelineCallPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

// waitForEnqueues polls until the detached fan-out has finished.
func (f *fakeEnqueuer) waitForEnqueues(t *testing.T, want int) []scheduler.PipelineCallPayload {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.count() >= want {
			f.mu.Lock()
			defer f.mu.Unlock()
			return append([]scheduler.PipelineCallPayload(nil), f.payloads...)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d enqueues, got %d", want, f.count())
	return nil
}

func newTestRouter(lister *fakeLister, enqueuer *fakeEnqueuer, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(lister, enqueuer, secret, logger.New("development"))
	engine := gin.New()
	engine.POST("/webhook/calls/:platform", handler.HandleCallEvent)
	return engine
}

func post(router *gin.Engine, path, secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestRejectsBadSecret(t *testing.T) {
	router := newTestRouter(&fakeLister{}, &fakeEnqueuer{}, "s3cret")

	if rec := post(router, "/webhook/calls/gong", "wrong", `{"callId":"1"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec := post(router, "/webhook/calls/gong", "", `{"callId":"1"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status = %d, want 401", rec.Code)
	}
}

func TestRejectsAllWhenNoSecretConfigured(t *testing.T) {
	router := newTestRouter(&fakeLister{}, &fakeEnqueuer{}, "")

	if rec := post(router, "/webhook/calls/gong", "", `{"callId":"1"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUnknownPlatform(t *testing.T) {
	router := newTestRouter(&fakeLister{}, &fakeEnqueuer{}, "s3cret")

	if rec := post(router, "/webhook/calls/zoom", "s3cret", `{}`); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMalformedPayload(t *testing.T) {
	router := newTestRouter(&fakeLister{}, &fakeEnqueuer{}, "s3cret")

	if rec := post(router, "/webhook/calls/gong", "s3cret", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGongEventFansOutPerTenant(t *testing.T) {
	lister := &fakeLister{creds: []credentials.Credential{
		{TenantID: uuid.New(), Platform: credentials.PlatformGong},
		{TenantID: uuid.New(), Platform: credentials.PlatformGong},
		{TenantID: uuid.New(), Platform: credentials.PlatformSalesloft},
	}}
	enqueuer := &fakeEnqueuer{}
	router := newTestRouter(lister, enqueuer, "s3cret")

	rec := post(router, "/webhook/calls/gong", "s3cret", `{"callId":"g-1","callIds":["g-1","g-2"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"accepted":2`) {
		t.Fatalf("body = %s", rec.Body.String())
	}

	// 2 gong tenants x 2 deduped call ids.
	payloads := enqueuer.waitForEnqueues(t, 4)
	if len(payloads) != 4 {
		t.Fatalf("enqueued %d tasks, want 4", len(payloads))
	}
	for _, p := range payloads {
		if p.Platform != "gong" || (p.CallID != "g-1" && p.CallID != "g-2") {
			t.Fatalf("unexpected payload %+v", p)
		}
	}
}

func TestSalesloftBatchEvents(t *testing.T) {
	lister := &fakeLister{creds: []credentials.Credential{
		{TenantID: uuid.New(), Platform: credentials.PlatformSalesloft},
	}}
	enqueuer := &fakeEnqueuer{}
	router := newTestRouter(lister, enqueuer, "s3cret")

	body := `{"events":[
		{"payload":{"id":101}},
		{"payload":{"id":102}},
		{"payload":{"id":0}}
	]}`
	rec := post(router, "/webhook/calls/salesloft", "s3cret", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"accepted":2`) {
		t.Fatalf("zero ids must be dropped: %s", rec.Body.String())
	}

	payloads := enqueuer.waitForEnqueues(t, 2)
	ids := map[string]bool{}
	for _, p := range payloads {
		ids[p.CallID] = true
	}
	if !ids["101"] || !ids["102"] {
		t.Fatalf("call ids = %v", ids)
	}
}

func TestEmptyEventAcceptedWithoutWork(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	router := newTestRouter(&fakeLister{}, enqueuer, "s3cret")

	rec := post(router, "/webhook/calls/salesloft", "s3cret", `{}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"accepted":0`) {
		t.Fatalf("body = %s", rec.Body.String())
	}

	time.Sleep(20 * time.Millisecond)
	if enqueuer.count() != 0 {
		t.Fatal("nothing should be enqueued for an empty event")
	}
}
