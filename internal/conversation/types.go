// Package conversation turns raw transcripts into canonical, ordered message
// sequences with two fixed roles.
//
// Two text formats are understood: generic free text ("Me: hi") and dated
// chat-log exports ("01/02/2024, 09:00 - Alex: hi"). The dated-log parser also
// accumulates harassment indicators (call attempts, deletions, media, edits and
// threats to contact the user's personal circle) that downstream packages turn
// into synthesized flags.
package conversation

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies which party authored a message.
type Role string

const (
	// RoleSelf is the person who submitted the transcript.
	RoleSelf Role = "self"
	// RoleOther is the counterpart being assessed.
	RoleOther Role = "other"
)

// Valid reports whether r is one of the two fixed roles.
func (r Role) Valid() bool {
	return r == RoleSelf || r == RoleOther
}

// Kind distinguishes real text from placeholders the parser substitutes.
type Kind string

const (
	KindText        Kind = "text"
	KindCallAttempt Kind = "call_attempt"
	KindDeleted     Kind = "deleted"
	KindMedia       Kind = "media"
)

// Format names a transcript input format.
type Format string

const (
	FormatAuto     Format = ""
	FormatGeneric  Format = "generic"
	FormatDatedLog Format = "dated-log"
)

// ParseFormat validates a platform hint.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatGeneric, FormatDatedLog:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Message is a single canonical message. It is never mutated after normalization.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender,omitempty"`
	Kind      Kind      `json:"kind"`
}

// Indicators is harassment metadata accumulated while parsing a dated log.
type Indicators struct {
	CallAttempts        int  `json:"call_attempts"`
	CallAttemptsByOther int  `json:"call_attempts_by_other"`
	Deletions           int  `json:"deletions"`
	Media               int  `json:"media"`
	Edits               int  `json:"edits"`
	ThirdPartyContact   bool `json:"third_party_contact"`

	// FirstOtherCallID is the first call-attempt message authored by other.
	FirstOtherCallID string `json:"first_other_call_message_id,omitempty"`
	// ThirdPartyMessageID is the first message that triggered ThirdPartyContact.
	ThirdPartyMessageID string `json:"third_party_message_id,omitempty"`
}

// Input is a normalization request. Exactly one of Text or Messages is used;
// Messages wins when non-nil.
type Input struct {
	Text           string
	Messages       []Message
	RoleIdentifier string
	Format         Format
}

// Transcript is the normalizer's output.
type Transcript struct {
	Messages   []Message
	Indicators Indicators
	Format     Format

	index map[string]int
}

func newTranscript(msgs []Message, ind Indicators, format Format) *Transcript {
	t := &Transcript{
		Messages:   msgs,
		Indicators: ind,
		Format:     format,
		index:      make(map[string]int, len(msgs)),
	}
	for i, m := range msgs {
		t.index[m.ID] = i
	}
	return t
}

// NewTranscript builds a transcript from already-canonical messages.
// Intended for tests and for callers that replay stored results.
func NewTranscript(msgs []Message) *Transcript {
	return newTranscript(msgs, Indicators{}, FormatGeneric)
}

// Find returns the message with id.
func (t *Transcript) Find(id string) (Message, bool) {
	i, ok := t.index[id]
	if !ok {
		return Message{}, false
	}
	return t.Messages[i], true
}

// ByRole returns the messages authored by role, in order.
func (t *Transcript) ByRole(role Role) []Message {
	out := make([]Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// Duration is the time between the first and last message.
func (t *Transcript) Duration() time.Duration {
	if len(t.Messages) < 2 {
		return 0
	}
	return t.Messages[len(t.Messages)-1].Timestamp.Sub(t.Messages[0].Timestamp)
}

// Render formats the transcript one message per line as "[id] role: content".
// Continuation newlines are escaped so ids stay line-anchored.
func (t *Transcript) Render() string {
	var b strings.Builder
	for _, m := range t.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.ID, m.Role, strings.ReplaceAll(m.Content, "\n", `\n`))
	}
	return b.String()
}
