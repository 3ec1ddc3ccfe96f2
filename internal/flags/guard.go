package flags

import "github.com/fyrsmithlabs/convoscan/internal/conversation"

// Guard resolves the message a quote belongs to.
//
// A quote is accepted only when it equals, exactly, the full content of a
// message authored by the other party. The message named by preferredID wins
// when it qualifies; otherwise the first qualifying message is used. Quotes from
// self, unknown ids and near-misses are rejected.
func Guard(t *conversation.Transcript, quote, preferredID string) (conversation.Message, bool) {
	if quote == "" {
		return conversation.Message{}, false
	}
	if preferredID != "" {
		if m, ok := t.Find(preferredID); ok && qualifies(m, quote) {
			return m, true
		}
	}
	for _, m := range t.Messages {
		if qualifies(m, quote) {
			return m, true
		}
	}
	return conversation.Message{}, false
}

func qualifies(m conversation.Message, quote string) bool {
	return m.Role == conversation.RoleOther && m.Content == quote
}

// Attributable reports whether f is sourced on a message authored by other.
func Attributable(t *conversation.Transcript, f Flag) bool {
	m, ok := t.Find(f.SourceMessageID)
	return ok && m.Role == conversation.RoleOther
}
