package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/lexicon"
)

// Tone is the emotional register of a message.
type Tone string

const (
	ToneNeutral    Tone = "neutral"
	TonePlayful    Tone = "playful"
	ToneIntimate   Tone = "intimate"
	ToneUrgent     Tone = "urgent"
	TonePressuring Tone = "pressuring"
	ToneSupportive Tone = "supportive"
	ToneDefensive  Tone = "defensive"
)

// ParseTone coerces s to a known tone; unknown values become neutral.
func ParseTone(s string) Tone {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case ToneNeutral, TonePlayful, ToneIntimate, ToneUrgent, TonePressuring, ToneSupportive, ToneDefensive:
		return t
	default:
		return ToneNeutral
	}
}

// tonePriority orders tones for keyword classification, strongest first.
var tonePriority = []Tone{TonePressuring, ToneUrgent, ToneIntimate, ToneDefensive, ToneSupportive, TonePlayful}

// EventKind classifies a timeline event.
type EventKind string

const (
	EventEmotionalShift EventKind = "emotional_shift"
	EventRequest        EventKind = "request"
	EventEscalation     EventKind = "escalation"
)

// ParseEventKind validates s.
func ParseEventKind(s string) (EventKind, bool) {
	switch k := EventKind(strings.ToLower(strings.TrimSpace(s))); k {
	case EventEmotionalShift, EventRequest, EventEscalation:
		return k, true
	default:
		return "", false
	}
}

// TimelineEvent marks a change in the conversation's dynamics.
type TimelineEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	MessageID   string    `json:"message_id"`
	Kind        EventKind `json:"kind"`
	FromTone    Tone      `json:"from_tone,omitempty"`
	ToTone      Tone      `json:"to_tone,omitempty"`
	Description string    `json:"description"`
}

// ToneOf classifies content by the highest-priority tone whose terms it contains.
func ToneOf(lex *lexicon.Compiled, content string) Tone {
	for _, t := range tonePriority {
		if lex.MatchTone(string(t), content) {
			return t
		}
	}
	return ToneNeutral
}

// BuildTimeline emits an event whenever a message's tone differs from the
// previous message's. The first message only sets the baseline.
func BuildTimeline(lex *lexicon.Compiled, msgs []conversation.Message) []TimelineEvent {
	events := []TimelineEvent{}
	if len(msgs) == 0 {
		return events
	}

	prev := ToneOf(lex, msgs[0].Content)
	for _, m := range msgs[1:] {
		cur := ToneOf(lex, m.Content)
		if cur == prev {
			continue
		}
		kind := EventEmotionalShift
		if cur == ToneUrgent || cur == TonePressuring {
			kind = EventEscalation
		}
		events = append(events, TimelineEvent{
			Timestamp:   m.Timestamp,
			MessageID:   m.ID,
			Kind:        kind,
			FromTone:    prev,
			ToTone:      cur,
			Description: fmt.Sprintf("%s tone shifted from %s to %s", m.Role, prev, cur),
		})
		prev = cur
	}
	return events
}

// EscalationIndex is round(100 * escalation events / max(events, 1)).
func EscalationIndex(events []TimelineEvent) int {
	n := 0
	for _, e := range events {
		if e.Kind == EventEscalation {
			n++
		}
	}
	return roundPercent(n, len(events))
}
