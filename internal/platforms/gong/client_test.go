package gong

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callscore_backend/internal/platforms"
	"callscore_backend/platform/logger"
)

func testLogger() *logger.Logger {
	return logger.New("development")
}

func TestListRecentCallsFollowsCursor(t *testing.T) {
	now := time.Now().UTC()
	var cursors []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ak" || pass != "sk" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		if r.URL.Query().Get("fromDateTime") == "" || r.URL.Query().Get("toDateTime") == "" {
			t.Error("missing date filters")
		}

		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)

		w.Header().Set("Content-Type", "application/json")
		switch cursor {
		case "":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"records": map[string]string{"cursor": "next-1"},
				"calls": []map[string]interface{}{
					{"id": "g-1", "title": "Call 1", "started": now.Add(-time.Hour), "hasTranscript": true,
						"parties": []map[string]string{{"name": "Jane", "emailAddress": "jane@acme.test", "affiliation": "Internal"}}},
				},
			})
		case "next-1":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"records": map[string]string{},
				"calls": []map[string]interface{}{
					{"id": "g-2", "title": "Call 2", "started": now.Add(-2 * time.Hour)},
				},
			})
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
	}))
	defer server.Close()

	client := New(server.URL, "ak", "sk", testLogger())
	summaries, err := client.ListRecentCalls(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListRecentCalls: %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if len(cursors) != 2 || cursors[0] != "" || cursors[1] != "next-1" {
		t.Fatalf("cursor sequence = %v", cursors)
	}
	if summaries[0].ID != "g-1" || summaries[1].ID != "g-2" {
		t.Fatalf("summaries = %s, %s", summaries[0].ID, summaries[1].ID)
	}
	if len(summaries[0].Sellers) != 1 {
		t.Fatalf("internal party should be a seller: %+v", summaries[0])
	}
}

func TestGetCallMetadataExtensive(t *testing.T) {
	started := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/calls/extensive" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Filter struct {
				CallIDs []string `json:"callIds"`
			} `json:"filter"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body.Filter.CallIDs) != 1 || body.Filter.CallIDs[0] != "g-1" {
			t.Errorf("filter = %+v", body.Filter)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"calls": []map[string]interface{}{{
				"metaData": map[string]interface{}{"id": "g-1", "title": "Pricing call", "started": started, "duration": 1800},
				"parties": []map[string]string{
					{"name": "Jane", "emailAddress": "jane@acme.test", "affiliation": "Internal"},
					{"name": "Sam", "emailAddress": "sam@ext.test", "affiliation": "External"},
				},
			}},
		})
	}))
	defer server.Close()

	client := New(server.URL, "ak", "sk", testLogger())
	meta, err := client.GetCallMetadata(context.Background(), "g-1")
	if err != nil {
		t.Fatalf("GetCallMetadata: %v", err)
	}

	if meta.ID != "g-1" || meta.Title != "Pricing call" || meta.DurationSeconds != 1800 {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.TranscriptRef != "g-1" {
		t.Fatalf("TranscriptRef = %q, want call id", meta.TranscriptRef)
	}
	if len(meta.Sellers) != 1 || len(meta.Customers) != 1 {
		t.Fatalf("party split = %d sellers / %d customers", len(meta.Sellers), len(meta.Customers))
	}
}

func TestGetCallMetadataNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"calls":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "ak", "sk", testLogger())
	_, err := client.GetCallMetadata(context.Background(), "missing")

	var apiErr *platforms.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("err = %v, want APIError 404", err)
	}
}

func TestGetTranscriptJoinsSentences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/calls/transcript" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"callTranscripts":[{"callId":"g-1","transcript":[
			{"speakerName":"Jane","sentences":[{"text":"Hello."},{"text":"How are you?"}]},
			{"speakerName":"Sam","sentences":[{"text":"  "}]},
			{"speakerName":"Sam","sentences":[{"text":"Fine, thanks."}]}
		]}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "ak", "sk", testLogger())
	transcript, err := client.GetTranscript(context.Background(), "g-1")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}

	if len(transcript.Turns) != 2 {
		t.Fatalf("turns = %d, want 2 (blank monologue dropped)", len(transcript.Turns))
	}
	if transcript.Turns[0].Text != "Hello. How are you?" {
		t.Fatalf("joined text = %q", transcript.Turns[0].Text)
	}
	if transcript.Turns[1].Speaker != "Sam" {
		t.Fatalf("speaker = %q", transcript.Turns[1].Speaker)
	}
}

func TestAPIErrorOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "ak", "sk", testLogger())
	_, err := client.ListRecentCalls(context.Background(), 7)

	var apiErr *platforms.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("err = %v, want APIError 502", err)
	}
}
