// Package salesloft implements the platform adapter for Salesloft-style
// conversation APIs: bearer token auth with refresh-on-401, page-numbered
// listings of calls and meetings, and transcript fetch by id.
package salesloft

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"callscore_backend/internal/platforms"
	"callscore_backend/platform/logger"
)

const (
	platformName = "salesloft"
	perPage      = 100
	apiVersion   = "v2"
)

var listKinds = []string{platforms.KindCall, platforms.KindMeeting}

// Client is the Salesloft platform adapter.
// It is not safe for concurrent use; the pipeline processes calls sequentially.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	refresh    platforms.RefreshFunc
	log        *logger.Logger
}

// New creates a Salesloft adapter. refresh is invoked at most once per request
// when the platform answers 401; it returns a fresh access token which the
// client uses for the retry and all subsequent requests.
func New(baseURL, token string, refresh platforms.RefreshFunc, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		refresh:    refresh,
		log:        log.WithPlatform(platformName),
	}
}

// Platform implements platforms.Adapter.
func (c *Client) Platform() string { return platformName }

type apiParticipant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type apiConversation struct {
	ID                  string           `json:"id"`
	Kind                string           `json:"kind"`
	Title               string           `json:"title"`
	OccurredAt          time.Time        `json:"occurred_at"`
	DurationSeconds     int              `json:"duration_seconds"`
	TranscriptID        string           `json:"transcript_id"`
	TranscriptAvailable bool             `json:"transcript_available"`
	Participants        []apiParticipant `json:"participants"`
}

type listResponse struct {
	Data []apiConversation `json:"data"`
}

type conversationResponse struct {
	Data apiConversation `json:"data"`
}

type transcriptResponse struct {
	Data struct {
		Text     string `json:"text"`
		Segments []struct {
			Speaker string `json:"speaker"`
			Text    string `json:"text"`
		} `json:"segments"`
	} `json:"data"`
}

// ListRecentCalls implements platforms.Adapter. Both conversation kinds are
// listed newest-first; per kind, paging stops at the page cap, a short page,
// or once the oldest item on a page predates the window cutoff.
func (c *Client) ListRecentCalls(ctx context.Context, windowDays int) ([]platforms.CallSummary, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	var summaries []platforms.CallSummary
	for _, kind := range listKinds {
		kindSummaries, err := c.listKind(ctx, kind, cutoff)
		if err != nil {
			return nil, fmt.Errorf("list %ss: %w", kind, err)
		}
		summaries = append(summaries, kindSummaries...)
	}
	return summaries, nil
}

func (c *Client) listKind(ctx context.Context, kind string, cutoff time.Time) ([]platforms.CallSummary, error) {
	var summaries []platforms.CallSummary

	for page := 1; page <= platforms.MaxListPages; page++ {
		query := url.Values{}
		query.Set("kind", kind)
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(perPage))
		query.Set("sort", "-occurred_at")

		var parsed listResponse
		if err := c.get(ctx, "/"+apiVersion+"/conversations", query, &parsed); err != nil {
			return nil, err
		}

		reachedCutoff := false
		for _, conv := range parsed.Data {
			if conv.OccurredAt.Before(cutoff) {
				reachedCutoff = true
				continue
			}
			summaries = append(summaries, toSummary(conv, kind))
		}

		if reachedCutoff || len(parsed.Data) < perPage {
			break
		}
	}
	return summaries, nil
}

// GetCallMetadata implements platforms.Adapter.
func (c *Client) GetCallMetadata(ctx context.Context, id string) (platforms.CallMetadata, error) {
	var parsed conversationResponse
	if err := c.get(ctx, "/"+apiVersion+"/conversations/"+url.PathEscape(id), nil, &parsed); err != nil {
		return platforms.CallMetadata{}, err
	}

	conv := parsed.Data
	sellers, customers := splitParticipants(conv.Participants)
	return platforms.CallMetadata{
		ID:              conv.ID,
		Kind:            normalizeKind(conv.Kind),
		Title:           conv.Title,
		OccurredAt:      conv.OccurredAt,
		DurationSeconds: conv.DurationSeconds,
		Sellers:         sellers,
		Customers:       customers,
		TranscriptRef:   conv.TranscriptID,
	}, nil
}

// GetTranscript implements platforms.Adapter.
func (c *Client) GetTranscript(ctx context.Context, transcriptRef string) (platforms.Transcript, error) {
	var parsed transcriptResponse
	if err := c.get(ctx, "/"+apiVersion+"/transcripts/"+url.PathEscape(transcriptRef), nil, &parsed); err != nil {
		return platforms.Transcript{}, err
	}

	transcript := platforms.Transcript{Text: parsed.Data.Text}
	for _, segment := range parsed.Data.Segments {
		transcript.Turns = append(transcript.Turns, platforms.SpeakerTurn{
			Speaker: segment.Speaker,
			Text:    segment.Text,
		})
	}
	return transcript, nil
}

// get performs an authenticated GET. On a 401 it invokes the refresh callback
// once and retries the request exactly once with the returned token; a second
// 401 surfaces as an APIError like any other non-2xx response.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	resp, err := c.send(ctx, reqURL, c.token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.refresh != nil {
		resp.Body.Close()

		newToken, refreshErr := c.refresh(ctx)
		if refreshErr != nil {
			return fmt.Errorf("refresh token after 401: %w", refreshErr)
		}
		c.token = newToken

		resp, err = c.send(ctx, reqURL, newToken)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Error("salesloft request failed", "status", resp.StatusCode, "url", reqURL)
		return &platforms.APIError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, reqURL, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	return resp, nil
}

func toSummary(conv apiConversation, kind string) platforms.CallSummary {
	sellers, customers := splitParticipants(conv.Participants)
	return platforms.CallSummary{
		ID:                  conv.ID,
		Kind:                kind,
		Title:               conv.Title,
		OccurredAt:          conv.OccurredAt,
		Sellers:             sellers,
		Customers:           customers,
		TranscriptAvailable: conv.TranscriptAvailable,
	}
}

func splitParticipants(participants []apiParticipant) (sellers, customers []platforms.Party) {
	for _, p := range participants {
		party := platforms.Party{Name: p.Name, Email: p.Email}
		if p.Role == "rep" {
			sellers = append(sellers, party)
		} else {
			customers = append(customers, party)
		}
	}
	return sellers, customers
}

func normalizeKind(kind string) string {
	if kind == platforms.KindMeeting {
		return platforms.KindMeeting
	}
	return platforms.KindCall
}
