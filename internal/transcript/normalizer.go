// Package transcript builds the canonical analysis input for the scoring
// service from platform metadata and a raw transcript.
package transcript

import (
	"strings"

	"callscore_backend/internal/platforms"
)

// TruncationMarker is appended whenever the normalized text was cut at the
// character budget. Detect it with IsTruncated.
const TruncationMarker = "\n[TRANSCRIPT TRUNCATED]"

// Normalize merges call metadata and the raw transcript into one text block:
// a header with title, date, and attendees, a separator, then the transcript
// body. Structured transcripts render one "speaker: text" line per turn with
// blank turns dropped. Text longer than charBudget runes is truncated to
// exactly charBudget runes and the truncation marker is appended.
func Normalize(meta platforms.CallMetadata, raw platforms.Transcript, charBudget int) string {
	var b strings.Builder

	b.WriteString("Call: " + meta.Title + "\n")
	b.WriteString("Date: " + meta.OccurredAt.Format("2006-01-02") + "\n")
	b.WriteString("Sellers: " + joinNames(meta.Sellers) + "\n")
	b.WriteString("Customers: " + joinNames(meta.Customers) + "\n")
	b.WriteString("---\n")
	b.WriteString(body(raw))

	text := b.String()
	runes := []rune(text)
	if len(runes) <= charBudget {
		return text
	}
	return string(runes[:charBudget]) + TruncationMarker
}

// IsTruncated reports whether normalized text was cut at the budget.
func IsTruncated(text string) bool {
	return strings.HasSuffix(text, TruncationMarker)
}

func body(raw platforms.Transcript) string {
	if strings.TrimSpace(raw.Text) != "" {
		return raw.Text
	}

	var lines []string
	for _, turn := range raw.Turns {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		speaker := turn.Speaker
		if speaker == "" {
			speaker = "Unknown"
		}
		lines = append(lines, speaker+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}

func joinNames(parties []platforms.Party) string {
	names := make([]string, 0, len(parties))
	for _, p := range parties {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}
