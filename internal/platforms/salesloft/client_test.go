package salesloft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"callscore_backend/internal/platforms"
	"callscore_backend/platform/logger"
)

func testLogger() *logger.Logger {
	return logger.New("development")
}

func conversationJSON(id string, occurredAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"kind":        "call",
		"title":       "Call " + id,
		"occurred_at": occurredAt.Format(time.RFC3339),
		"participants": []map[string]string{
			{"name": "Jane Doe", "email": "jane@acme.test", "role": "rep"},
			{"name": "Sam Prospect", "email": "sam@prospect.test", "role": "contact"},
		},
	}
}

func writeList(w http.ResponseWriter, items []map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": items})
}

func TestListRecentCallsStopsOnShortPage(t *testing.T) {
	now := time.Now()
	pagesSeen := map[string][]string{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		page := r.URL.Query().Get("page")
		pagesSeen[kind] = append(pagesSeen[kind], page)

		if kind == "meeting" {
			writeList(w, nil)
			return
		}
		writeList(w, []map[string]interface{}{
			conversationJSON("c-1", now.Add(-1*time.Hour)),
			conversationJSON("c-2", now.Add(-2*time.Hour)),
		})
	}))
	defer server.Close()

	client := New(server.URL, "token", nil, testLogger())
	summaries, err := client.ListRecentCalls(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListRecentCalls: %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if len(pagesSeen["call"]) != 1 || len(pagesSeen["meeting"]) != 1 {
		t.Fatalf("short pages must stop paging, saw %v", pagesSeen)
	}
	if len(summaries[0].Sellers) != 1 || summaries[0].Sellers[0].Email != "jane@acme.test" {
		t.Fatalf("seller split wrong: %+v", summaries[0].Sellers)
	}
}

func TestListRecentCallsFollowsFullPages(t *testing.T) {
	now := time.Now()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("kind") == "meeting" {
			writeList(w, nil)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 1 {
			items := make([]map[string]interface{}, perPage)
			for i := range items {
				items[i] = conversationJSON(fmt.Sprintf("c-%d", i), now.Add(-time.Duration(i)*time.Minute))
			}
			writeList(w, items)
			return
		}
		writeList(w, []map[string]interface{}{conversationJSON("c-last", now.Add(-3*time.Hour))})
	}))
	defer server.Close()

	client := New(server.URL, "token", nil, testLogger())
	summaries, err := client.ListRecentCalls(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListRecentCalls: %v", err)
	}
	if len(summaries) != perPage+1 {
		t.Fatalf("got %d summaries, want %d", len(summaries), perPage+1)
	}
}

func TestListRecentCallsStopsAtWindowCutoff(t *testing.T) {
	now := time.Now()
	var callPages int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("kind") == "meeting" {
			writeList(w, nil)
			return
		}
		callPages++
		items := make([]map[string]interface{}, perPage)
		for i := range items {
			items[i] = conversationJSON(fmt.Sprintf("c-%d", i), now.Add(-1*time.Hour))
		}
		// The oldest item on the page predates the window.
		items[perPage-1] = conversationJSON("c-old", now.AddDate(0, 0, -30))
		writeList(w, items)
	}))
	defer server.Close()

	client := New(server.URL, "token", nil, testLogger())
	summaries, err := client.ListRecentCalls(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListRecentCalls: %v", err)
	}

	if callPages != 1 {
		t.Fatalf("cutoff must stop paging, fetched %d pages", callPages)
	}
	if len(summaries) != perPage-1 {
		t.Fatalf("got %d summaries, want %d (out-of-window item dropped)", len(summaries), perPage-1)
	}
}

func TestGetRefreshesOnceOn401(t *testing.T) {
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		tokens = append(tokens, token)
		if token != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": conversationJSON("c-1", time.Now()),
		})
	}))
	defer server.Close()

	refreshCalls := 0
	refresh := func(ctx context.Context) (string, error) {
		refreshCalls++
		return "fresh", nil
	}

	client := New(server.URL, "stale", refresh, testLogger())
	meta, err := client.GetCallMetadata(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("GetCallMetadata: %v", err)
	}

	if refreshCalls != 1 {
		t.Fatalf("refresh calls = %d, want 1", refreshCalls)
	}
	if len(tokens) != 2 || tokens[0] != "Bearer stale" || tokens[1] != "Bearer fresh" {
		t.Fatalf("token sequence = %v", tokens)
	}
	if meta.ID != "c-1" {
		t.Fatalf("meta.ID = %q", meta.ID)
	}

	// Subsequent requests reuse the refreshed token.
	if _, err := client.GetCallMetadata(context.Background(), "c-1"); err != nil {
		t.Fatalf("second GetCallMetadata: %v", err)
	}
	if refreshCalls != 1 {
		t.Fatalf("refresh calls after reuse = %d, want still 1", refreshCalls)
	}
}

func TestGetSecond401IsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	refreshCalls := 0
	refresh := func(ctx context.Context) (string, error) {
		refreshCalls++
		return "still-bad", nil
	}

	client := New(server.URL, "stale", refresh, testLogger())
	_, err := client.GetCallMetadata(context.Background(), "c-1")

	var apiErr *platforms.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want APIError 401", err)
	}
	if refreshCalls != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", refreshCalls)
	}
}

func TestGetTranscriptSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/transcripts/tr-9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"text":"","segments":[
			{"speaker":"Jane Doe","text":"Hello"},
			{"speaker":"Sam Prospect","text":"Hi there"}
		]}}`))
	}))
	defer server.Close()

	client := New(server.URL, "token", nil, testLogger())
	transcript, err := client.GetTranscript(context.Background(), "tr-9")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if transcript.IsEmpty() {
		t.Fatal("transcript should not be empty")
	}
	if len(transcript.Turns) != 2 || transcript.Turns[1].Speaker != "Sam Prospect" {
		t.Fatalf("turns = %+v", transcript.Turns)
	}
}
