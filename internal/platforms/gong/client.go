// Package gong implements the platform adapter for Gong-style call APIs:
// static access-key/secret Basic auth, cursor-paginated call listings with
// date filters, extensive metadata fetch, and transcript fetch by call id.
package gong

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callscore_backend/internal/platforms"
	"callscore_backend/platform/logger"
)

const platformName = "gong"

// Client is the Gong platform adapter. The key pair is static; there is no
// token refresh path on this platform.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accessKey  string
	secretKey  string
	log        *logger.Logger
}

// New creates a Gong adapter.
func New(baseURL, accessKey, secretKey string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		secretKey:  secretKey,
		log:        log.WithPlatform(platformName),
	}
}

// Platform implements platforms.Adapter.
func (c *Client) Platform() string { return platformName }

type apiParty struct {
	Name         string `json:"name"`
	EmailAddress string `json:"emailAddress"`
	Affiliation  string `json:"affiliation"` // "Internal" or "External"
}

type apiCall struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Started         time.Time  `json:"started"`
	DurationSeconds int        `json:"duration"`
	HasTranscript   bool       `json:"hasTranscript"`
	Parties         []apiParty `json:"parties"`
}

type listResponse struct {
	Records struct {
		Cursor string `json:"cursor"`
	} `json:"records"`
	Calls []apiCall `json:"calls"`
}

type extensiveResponse struct {
	Calls []struct {
		MetaData apiCall    `json:"metaData"`
		Parties  []apiParty `json:"parties"`
	} `json:"calls"`
}

type transcriptResponse struct {
	CallTranscripts []struct {
		CallID     string `json:"callId"`
		Transcript []struct {
			SpeakerName string `json:"speakerName"`
			Sentences   []struct {
				Text string `json:"text"`
			} `json:"sentences"`
		} `json:"transcript"`
	} `json:"callTranscripts"`
}

// ListRecentCalls implements platforms.Adapter. The window is expressed as
// date filters on the listing call; paging follows the response cursor until
// it is absent or the page cap is reached.
func (c *Client) ListRecentCalls(ctx context.Context, windowDays int) ([]platforms.CallSummary, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -windowDays)

	var summaries []platforms.CallSummary
	cursor := ""

	for page := 0; page < platforms.MaxListPages; page++ {
		query := url.Values{}
		query.Set("fromDateTime", from.Format(time.RFC3339))
		query.Set("toDateTime", now.Format(time.RFC3339))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var parsed listResponse
		if err := c.do(ctx, http.MethodGet, "/v2/calls", query, nil, &parsed); err != nil {
			return nil, fmt.Errorf("list calls: %w", err)
		}

		for _, call := range parsed.Calls {
			summaries = append(summaries, toSummary(call, call.Parties))
		}

		cursor = parsed.Records.Cursor
		if cursor == "" {
			break
		}
	}
	return summaries, nil
}

// GetCallMetadata implements platforms.Adapter via the extensive lookup.
func (c *Client) GetCallMetadata(ctx context.Context, id string) (platforms.CallMetadata, error) {
	body := map[string]interface{}{
		"filter": map[string]interface{}{"callIds": []string{id}},
	}

	var parsed extensiveResponse
	if err := c.do(ctx, http.MethodPost, "/v2/calls/extensive", nil, body, &parsed); err != nil {
		return platforms.CallMetadata{}, fmt.Errorf("fetch call metadata: %w", err)
	}
	if len(parsed.Calls) == 0 {
		return platforms.CallMetadata{}, &platforms.APIError{Status: http.StatusNotFound, Body: "call not found: " + id}
	}

	call := parsed.Calls[0]
	parties := call.Parties
	if len(parties) == 0 {
		parties = call.MetaData.Parties
	}
	sellers, customers := splitParties(parties)

	return platforms.CallMetadata{
		ID:              call.MetaData.ID,
		Kind:            platforms.KindCall,
		Title:           call.MetaData.Title,
		OccurredAt:      call.MetaData.Started,
		DurationSeconds: call.MetaData.DurationSeconds,
		Sellers:         sellers,
		Customers:       customers,
		// Transcripts are fetched by call id on this platform.
		TranscriptRef: call.MetaData.ID,
	}, nil
}

// GetTranscript implements platforms.Adapter. transcriptRef is the call id.
func (c *Client) GetTranscript(ctx context.Context, transcriptRef string) (platforms.Transcript, error) {
	body := map[string]interface{}{
		"filter": map[string]interface{}{"callIds": []string{transcriptRef}},
	}

	var parsed transcriptResponse
	if err := c.do(ctx, http.MethodPost, "/v2/calls/transcript", nil, body, &parsed); err != nil {
		return platforms.Transcript{}, fmt.Errorf("fetch transcript: %w", err)
	}
	if len(parsed.CallTranscripts) == 0 {
		return platforms.Transcript{}, nil
	}

	var transcript platforms.Transcript
	for _, monologue := range parsed.CallTranscripts[0].Transcript {
		var sentences []string
		for _, sentence := range monologue.Sentences {
			if strings.TrimSpace(sentence.Text) == "" {
				continue
			}
			sentences = append(sentences, sentence.Text)
		}
		if len(sentences) == 0 {
			continue
		}
		transcript.Turns = append(transcript.Turns, platforms.SpeakerTurn{
			Speaker: monologue.SpeakerName,
			Text:    strings.Join(sentences, " "),
		})
	}
	return transcript, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.accessKey, c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Error("gong request failed", "status", resp.StatusCode, "url", reqURL)
		return &platforms.APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func toSummary(call apiCall, parties []apiParty) platforms.CallSummary {
	sellers, customers := splitParties(parties)
	return platforms.CallSummary{
		ID:                  call.ID,
		Kind:                platforms.KindCall,
		Title:               call.Title,
		OccurredAt:          call.Started,
		Sellers:             sellers,
		Customers:           customers,
		TranscriptAvailable: call.HasTranscript,
	}
}

func splitParties(parties []apiParty) (sellers, customers []platforms.Party) {
	for _, p := range parties {
		party := platforms.Party{Name: p.Name, Email: p.EmailAddress}
		if p.Affiliation == "Internal" {
			sellers = append(sellers, party)
		} else {
			customers = append(customers, party)
		}
	}
	return sellers, customers
}
