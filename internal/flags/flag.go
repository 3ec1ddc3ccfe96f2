// Package flags detects behavioural red and green flags about the other party
// and enriches them with guidance.
//
// Every flag must quote, verbatim, the full content of a message authored by
// the other party. Findings that fail this check are dropped before they reach
// a result; see Guard.
package flags

import (
	"fmt"
	"strings"
)

// Source records which mechanism produced a flag.
type Source string

const (
	SourceModel     Source = "model"
	SourceHeuristic Source = "heuristic"
	// SourceIndicator marks flags synthesized from parser indicators.
	SourceIndicator Source = "indicator"
)

// Tone is the closed set of suggested-reply tones.
type Tone string

const (
	ToneFirm     Tone = "firm"
	ToneCautious Tone = "cautious"
	ToneFriendly Tone = "friendly"
	ToneNeutral  Tone = "neutral"
)

// ParseTone coerces s to a known tone, defaulting to neutral.
func ParseTone(s string) Tone {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case ToneFirm, ToneCautious, ToneFriendly, ToneNeutral:
		return t
	default:
		return ToneNeutral
	}
}

// SuggestedReply is a message the user could send back.
type SuggestedReply struct {
	Content string `json:"content"`
	Tone    Tone   `json:"tone"`
}

// Flag is a single categorized finding about the other party.
type Flag struct {
	ID              string   `json:"id"`
	Polarity        Polarity `json:"polarity"`
	Category        Category `json:"category"`
	Severity        Severity `json:"severity"`
	Summary         string   `json:"summary"`
	EvidenceQuote   string   `json:"evidence_quote"`
	SourceMessageID string   `json:"source_message_id"`
	Confidence      float64  `json:"confidence"`
	Source          Source   `json:"source"`

	// Filled by enrichment.
	Meaning           string          `json:"meaning,omitempty"`
	RecommendedAction string          `json:"recommended_action,omitempty"`
	SuggestedReply    *SuggestedReply `json:"suggested_reply,omitempty"`
}

// Number assigns sequential ids (flag-1, flag-2, ...) in slice order.
func Number(fs []Flag) {
	for i := range fs {
		fs[i].ID = fmt.Sprintf("flag-%d", i+1)
	}
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
