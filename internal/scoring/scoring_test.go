package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/flags"
	"github.com/fyrsmithlabs/convoscan/internal/lexicon"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transcript() *conversation.Transcript {
	base := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	at := func(i int) time.Time { return base.Add(time.Duration(i) * time.Minute) }
	return conversation.NewTranscript([]conversation.Message{
		{ID: "msg-1", Role: conversation.RoleOther, Content: "hello", Timestamp: at(0)},
		{ID: "msg-2", Role: conversation.RoleSelf, Content: "haha hi", Timestamp: at(1)},
		{ID: "msg-3", Role: conversation.RoleOther, Content: "I miss you babe", Timestamp: at(2)},
		{ID: "msg-4", Role: conversation.RoleOther, Content: "I need the money right now", Timestamp: at(3)},
		{ID: "msg-5", Role: conversation.RoleOther, Content: "you have to do it now", Timestamp: at(4)},
	})
}

func newScorer(c llm.Completer) *Scorer {
	return NewScorer(c, lexicon.NewStaticStore(lexicon.MustCompileDefault()), nil)
}

func TestToneOf_Priority(t *testing.T) {
	lex := lexicon.MustCompileDefault()
	assert.Equal(t, ToneNeutral, ToneOf(lex, "hello"))
	assert.Equal(t, TonePlayful, ToneOf(lex, "haha"))
	assert.Equal(t, ToneIntimate, ToneOf(lex, "miss you, haha"))
	assert.Equal(t, ToneUrgent, ToneOf(lex, "babe, hurry"))
	assert.Equal(t, TonePressuring, ToneOf(lex, "you have to, it's urgent"))
}

func TestBuildTimeline(t *testing.T) {
	events := BuildTimeline(lexicon.MustCompileDefault(), transcript().Messages)
	require.Len(t, events, 4)

	assert.Equal(t, "msg-2", events[0].MessageID)
	assert.Equal(t, ToneNeutral, events[0].FromTone)
	assert.Equal(t, TonePlayful, events[0].ToTone)
	assert.Equal(t, EventEmotionalShift, events[0].Kind)

	assert.Equal(t, ToneIntimate, events[1].ToTone)
	assert.Equal(t, EventEscalation, events[2].Kind)
	assert.Equal(t, ToneUrgent, events[2].ToTone)
	assert.Equal(t, TonePressuring, events[3].ToTone)
	assert.Equal(t, 50, EscalationIndex(events))
}

func TestBuildTimeline_Empty(t *testing.T) {
	assert.Empty(t, BuildTimeline(lexicon.MustCompileDefault(), nil))
	assert.Equal(t, 0, EscalationIndex(nil))
}

func TestHeuristic_Weights(t *testing.T) {
	fs := []flags.Flag{
		{Polarity: flags.PolarityRed, Severity: flags.SeverityHigh},
		{Polarity: flags.PolarityRed, Severity: flags.SeverityCritical},
		{Polarity: flags.PolarityRed, Severity: flags.SeverityMedium},
		{Polarity: flags.PolarityGreen, Severity: flags.SeverityLow},
		{Polarity: flags.PolarityGreen, Severity: flags.SeverityMedium},
	}
	got := newScorer(llm.Disabled{}).Heuristic(transcript(), fs)

	assert.Equal(t, 100, got.RiskScore, "40+60+25 clamps to 100")
	assert.Equal(t, 30, got.TrustScore)
	assert.Equal(t, 50, got.EscalationIndex)
	assert.Len(t, got.SuggestedReplies, 3)
	assert.Equal(t, flags.ToneFirm, got.SuggestedReplies[0].Tone)
}

func TestHeuristic_NoFlags(t *testing.T) {
	got := newScorer(llm.Disabled{}).Heuristic(transcript(), nil)
	assert.Equal(t, 0, got.RiskScore)
	assert.Equal(t, 0, got.TrustScore)
	assert.Equal(t, friendlyReplies, got.SuggestedReplies)
}

func TestScore_Model(t *testing.T) {
	c := llmtest.New().On(PromptMarker, `{
		"risk_score": 140, "trust_score": -5, "escalation_index": 42.6,
		"timeline": [
			{"message_id":"msg-4","kind":"request","from_tone":"intimate","to_tone":"desperate","description":"asks for money"},
			{"message_id":"msg-77","kind":"escalation","description":"hallucinated"},
			{"message_id":"msg-5","kind":"spiral","from_tone":"urgent","to_tone":"pressuring"}
		],
		"suggested_replies": [{"content":"No.","tone":"firm"}]
	}`)

	got, err := newScorer(c).Score(context.Background(), transcript())
	require.NoError(t, err)

	assert.Equal(t, 100, got.RiskScore)
	assert.Equal(t, 0, got.TrustScore)
	assert.Equal(t, 43, got.EscalationIndex)

	require.Len(t, got.Timeline, 2)
	assert.Equal(t, EventRequest, got.Timeline[0].Kind)
	assert.Equal(t, ToneNeutral, got.Timeline[0].ToTone)
	assert.Equal(t, EventEmotionalShift, got.Timeline[1].Kind)

	require.Len(t, got.SuggestedReplies, 2)
	assert.Equal(t, "No.", got.SuggestedReplies[0].Content)
}

func TestScore_TruncatesReplies(t *testing.T) {
	c := llmtest.New().On(PromptMarker, `{"risk_score":1,"trust_score":2,"escalation_index":3,
		"suggested_replies":[{"content":"a"},{"content":"b"},{"content":"c"},{"content":"d"}]}`)
	got, err := newScorer(c).Score(context.Background(), transcript())
	require.NoError(t, err)
	assert.Len(t, got.SuggestedReplies, 3)
	assert.Equal(t, flags.ToneNeutral, got.SuggestedReplies[0].Tone)
}

func TestScore_MissingScoreRejected(t *testing.T) {
	c := llmtest.New().On(PromptMarker, `{"risk_score":10}`)
	_, err := newScorer(c).Score(context.Background(), transcript())
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

func TestApplyRiskFloor(t *testing.T) {
	s := Scores{RiskScore: 20}
	s.ApplyRiskFloor(95)
	assert.Equal(t, 95, s.RiskScore)

	s = Scores{RiskScore: 99}
	s.ApplyRiskFloor(95)
	assert.Equal(t, 99, s.RiskScore)
}

func TestParseTone(t *testing.T) {
	assert.Equal(t, ToneUrgent, ParseTone(" URGENT "))
	assert.Equal(t, ToneNeutral, ParseTone("melancholy"))
}
