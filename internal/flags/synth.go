package flags

import (
	"fmt"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
)

// StalkingTriggered reports whether the transcript's call attempts, counted
// across all senders, reach threshold.
func StalkingTriggered(ind conversation.Indicators, threshold int) bool {
	return threshold > 0 && ind.CallAttempts >= threshold
}

// stalkingSource picks the message a stalking flag is attributed to: the
// first call attempt by other, else the first message by other.
func stalkingSource(t *conversation.Transcript) (conversation.Message, bool) {
	if m, ok := t.Find(t.Indicators.FirstOtherCallID); ok && m.Role == conversation.RoleOther {
		return m, true
	}
	others := t.ByRole(conversation.RoleOther)
	if len(others) == 0 {
		return conversation.Message{}, false
	}
	return others[0], true
}

// FromIndicators synthesizes the critical flags implied by parser indicators.
//
// Excessive call attempts yield stalking_behavior on the first call attempt
// by other, or on other's first message when every call came from self. With
// no message by other the flag is omitted. A threat to contact the user's circle yields boundary_violation on
// the triggering message. Both bypass detection.
func FromIndicators(t *conversation.Transcript, callThreshold int) []Flag {
	ind := t.Indicators
	var out []Flag

	if StalkingTriggered(ind, callThreshold) {
		if m, ok := stalkingSource(t); ok {
			out = append(out, Flag{
				Polarity:        PolarityRed,
				Category:        CategoryStalkingBehavior,
				Severity:        SeverityCritical,
				Summary:         fmt.Sprintf("%d call attempts in the conversation (%d from the other party)", ind.CallAttempts, ind.CallAttemptsByOther),
				EvidenceQuote:   m.Content,
				SourceMessageID: m.ID,
				Confidence:      1,
				Source:          SourceIndicator,
			})
		}
	}

	if ind.ThirdPartyContact {
		if m, ok := t.Find(ind.ThirdPartyMessageID); ok && m.Role == conversation.RoleOther {
			out = append(out, Flag{
				Polarity:        PolarityRed,
				Category:        CategoryBoundaryViolation,
				Severity:        SeverityCritical,
				Summary:         "Threatens to contact people in your life",
				EvidenceQuote:   m.Content,
				SourceMessageID: m.ID,
				Confidence:      1,
				Source:          SourceIndicator,
			})
		}
	}
	return out
}
