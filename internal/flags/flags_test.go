package flags

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/lexicon"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/llm/llmtest"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func msg(id string, role conversation.Role, content string, minute int) conversation.Message {
	return conversation.Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: base.Add(time.Duration(minute) * time.Minute),
		Kind:      conversation.KindText,
	}
}

func scamTranscript() *conversation.Transcript {
	return conversation.NewTranscript([]conversation.Message{
		msg("msg-1", conversation.RoleOther, "Hi there, how was your day?", 0),
		msg("msg-2", conversation.RoleSelf, "Good! Can you wire me details of your trip?", 1),
		msg("msg-3", conversation.RoleOther, "I need you to wire money right now for customs", 2),
		msg("msg-4", conversation.RoleOther, "Add me on Telegram, what do you think?", 3),
	})
}

func newDetector(c llm.Completer) *Detector {
	return NewDetector(c, lexicon.NewStaticStore(lexicon.MustCompileDefault()), logging.NewNop())
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryFinancialAsk, ParseCategory(" Financial_Ask "))
	assert.Equal(t, CategoryUnknown, ParseCategory("made_up"))
	assert.Equal(t, CategoryUnknown, ParseCategory(""))
	assert.Equal(t, PolarityGreen, CategoryOffersVideoCall.DefaultPolarity())
	assert.Equal(t, PolarityRed, CategoryUnknown.DefaultPolarity())
	assert.False(t, CategoryUnknown.Known())
	assert.Len(t, KnownCategories(), 26)
}

func TestParseTone(t *testing.T) {
	assert.Equal(t, ToneFirm, ParseTone("FIRM"))
	assert.Equal(t, ToneNeutral, ParseTone("sarcastic"))
}

func TestGuard(t *testing.T) {
	tr := scamTranscript()

	tests := []struct {
		name      string
		quote     string
		preferred string
		wantID    string
		wantOK    bool
	}{
		{"exact other", "I need you to wire money right now for customs", "msg-3", "msg-3", true},
		{"wrong id resolved by content", "I need you to wire money right now for customs", "msg-1", "msg-3", true},
		{"self quote", "Good! Can you wire me details of your trip?", "msg-2", "", false},
		{"near miss", "I need you to wire money right now", "msg-3", "", false},
		{"unknown id and no match", "nothing like this", "msg-99", "", false},
		{"empty quote", "", "msg-3", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Guard(tr, tt.quote, tt.preferred)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, m.ID)
		})
	}
}

func TestDetect_ModelFindingsGuarded(t *testing.T) {
	c := llmtest.New().On(DetectPromptMarker, "```json\n"+`{"flags":[
		{"category":"financial_ask","severity":"high","summary":"Asks for money","quote":"I need you to wire money right now for customs","message_id":"msg-3","confidence":0.9},
		{"category":"financial_ask","severity":"high","summary":"self","quote":"Good! Can you wire me details of your trip?","message_id":"msg-2","confidence":0.9},
		{"category":"off_platform_push","severity":"bogus","quote":"Add me on Telegram, what do you think?","message_id":"msg-4"},
		{"category":"space_pirate","polarity":"green","severity":"low","quote":"Hi there, how was your day?","message_id":"msg-1","confidence":3}
	]}`+"\n```")

	got, err := newDetector(c).Detect(context.Background(), scamTranscript())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, CategoryFinancialAsk, got[0].Category)
	assert.Equal(t, PolarityRed, got[0].Polarity)
	assert.Equal(t, "msg-3", got[0].SourceMessageID)
	assert.Equal(t, SourceModel, got[0].Source)

	assert.Equal(t, CategoryUnknown, got[1].Category)
	assert.Equal(t, PolarityGreen, got[1].Polarity)
	assert.Equal(t, 1.0, got[1].Confidence)
	assert.Equal(t, unknownTemplate.summary, got[1].Summary)
}

func TestDetect_Unavailable(t *testing.T) {
	_, err := newDetector(llm.Disabled{}).Detect(context.Background(), scamTranscript())
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestDetect_Malformed(t *testing.T) {
	c := llmtest.New().On(DetectPromptMarker, "I cannot help with that")
	_, err := newDetector(c).Detect(context.Background(), scamTranscript())
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

func TestHeuristic(t *testing.T) {
	got := newDetector(llm.Disabled{}).Heuristic(scamTranscript())

	cats := map[Category][]string{}
	for _, f := range got {
		cats[f.Category] = append(cats[f.Category], f.SourceMessageID)
		assert.Equal(t, SourceHeuristic, f.Source)
		assert.NotEqual(t, "msg-2", f.SourceMessageID, "self messages never produce flags")
	}

	assert.Equal(t, []string{"msg-3"}, cats[CategoryFinancialAsk])
	assert.Equal(t, []string{"msg-3"}, cats[CategoryPressureUrgency])
	assert.Equal(t, []string{"msg-4"}, cats[CategoryOffPlatformPush])
	assert.Equal(t, []string{"msg-1"}, cats[CategoryAsksReciprocalQuestions], "green flag only on the first question")

	for _, f := range got {
		if f.Category == CategoryFinancialAsk {
			assert.Equal(t, SeverityHigh, f.Severity)
			assert.Equal(t, 0.6, f.Confidence)
			assert.Equal(t, "I need you to wire money right now for customs", f.EvidenceQuote)
		}
		if f.Category == CategoryAsksReciprocalQuestions {
			assert.Equal(t, PolarityGreen, f.Polarity)
			assert.Equal(t, SeverityLow, f.Severity)
			assert.Equal(t, 0.4, f.Confidence)
		}
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	d := newDetector(llm.Disabled{})
	assert.Equal(t, d.Heuristic(scamTranscript()), d.Heuristic(scamTranscript()))
}

func TestHeuristic_RedOncePerMessage(t *testing.T) {
	tr := conversation.NewTranscript([]conversation.Message{
		msg("msg-1", conversation.RoleOther, "money money money, wire the money", 0),
		msg("msg-2", conversation.RoleOther, "still need that money", 1),
	})
	var n int
	for _, f := range newDetector(llm.Disabled{}).Heuristic(tr) {
		if f.Category == CategoryFinancialAsk {
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestEnrich_MergesByID(t *testing.T) {
	fs := newDetector(llm.Disabled{}).Heuristic(scamTranscript())
	Number(fs)

	c := llmtest.New().On(EnrichPromptMarker, `{"enrichments":[
		{"flag_id":"flag-1","meaning":"custom meaning","recommended_action":"custom action","suggested_reply":{"content":"No thanks.","tone":"icy"}},
		{"flag_id":"flag-404","meaning":"ignored"}
	]}`)

	got, err := NewEnricher(c, logging.NewNop()).Enrich(context.Background(), fs, StatsFor(scamTranscript()))
	require.NoError(t, err)
	require.Len(t, got, len(fs))

	assert.Equal(t, "custom meaning", got[0].Meaning)
	assert.Equal(t, "custom action", got[0].RecommendedAction)
	assert.Equal(t, &SuggestedReply{Content: "No thanks.", Tone: ToneNeutral}, got[0].SuggestedReply)

	for i := range got {
		assert.Equal(t, fs[i].Category, got[i].Category)
		assert.Equal(t, fs[i].Severity, got[i].Severity)
		assert.Equal(t, fs[i].EvidenceQuote, got[i].EvidenceQuote)
		assert.NotEmpty(t, got[i].Meaning)
		assert.NotNil(t, got[i].SuggestedReply)
	}
	assert.Empty(t, fs[0].Meaning, "input flags are not mutated")
}

func TestEnrich_NoFlagsSkipsModel(t *testing.T) {
	c := llmtest.New()
	got, err := NewEnricher(c, nil).Enrich(context.Background(), nil, Stats{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, c.Calls())
}

func TestEnrich_Failure(t *testing.T) {
	c := llmtest.New()
	c.Err = errors.New("boom")
	_, err := NewEnricher(c, nil).Enrich(context.Background(), []Flag{{ID: "flag-1", Category: CategoryThreats}}, Stats{})
	assert.Error(t, err)
}

func TestEnrichHeuristic_Templates(t *testing.T) {
	got := EnrichHeuristic([]Flag{{ID: "flag-1", Category: CategoryFinancialAsk}, {ID: "flag-2", Category: CategoryUnknown}})
	assert.Equal(t, templates[CategoryFinancialAsk].meaning, got[0].Meaning)
	assert.Equal(t, ToneFirm, got[0].SuggestedReply.Tone)
	assert.Equal(t, unknownTemplate.action, got[1].RecommendedAction)
}

func TestFromIndicators(t *testing.T) {
	msgs := []conversation.Message{
		{ID: "msg-1", Role: conversation.RoleOther, Content: conversation.CallPlaceholder, Kind: conversation.KindCallAttempt},
		{ID: "msg-2", Role: conversation.RoleOther, Content: "answer or I'll text your mom", Kind: conversation.KindText},
	}
	tr := conversation.NewTranscript(msgs)
	tr.Indicators = conversation.Indicators{
		CallAttempts:        60,
		CallAttemptsByOther: 60,
		FirstOtherCallID:    "msg-1",
		ThirdPartyContact:   true,
		ThirdPartyMessageID: "msg-2",
	}

	got := FromIndicators(tr, 50)
	require.Len(t, got, 2)
	assert.Equal(t, CategoryStalkingBehavior, got[0].Category)
	assert.Equal(t, SeverityCritical, got[0].Severity)
	assert.Equal(t, "msg-1", got[0].SourceMessageID)
	assert.Equal(t, conversation.CallPlaceholder, got[0].EvidenceQuote)
	assert.Equal(t, SourceIndicator, got[0].Source)
	assert.Equal(t, CategoryBoundaryViolation, got[1].Category)
	assert.Equal(t, "answer or I'll text your mom", got[1].EvidenceQuote)

	assert.Len(t, FromIndicators(tr, 61), 1, "below threshold only boundary remains")
	assert.True(t, StalkingTriggered(tr.Indicators, 50))
	assert.False(t, StalkingTriggered(tr.Indicators, 0))
}

func TestFromIndicators_StalkingCountsAllSenders(t *testing.T) {
	msgs := []conversation.Message{
		{ID: "msg-1", Role: conversation.RoleSelf, Content: conversation.CallPlaceholder, Kind: conversation.KindCallAttempt},
		{ID: "msg-2", Role: conversation.RoleOther, Content: "why do you keep calling", Kind: conversation.KindText},
	}
	tr := conversation.NewTranscript(msgs)
	tr.Indicators = conversation.Indicators{CallAttempts: 50}

	assert.True(t, StalkingTriggered(tr.Indicators, 50))
	got := FromIndicators(tr, 50)
	require.Len(t, got, 1)
	assert.Equal(t, CategoryStalkingBehavior, got[0].Category)
	assert.Equal(t, "msg-2", got[0].SourceMessageID, "falls back to the first message by other")
	assert.Equal(t, "why do you keep calling", got[0].EvidenceQuote)

	selfOnly := conversation.NewTranscript(msgs[:1])
	selfOnly.Indicators = conversation.Indicators{CallAttempts: 50}
	assert.True(t, StalkingTriggered(selfOnly.Indicators, 50))
	assert.Empty(t, FromIndicators(selfOnly, 50), "no message by other to attribute the flag to")
}

func TestNumber(t *testing.T) {
	fs := make([]Flag, 3)
	Number(fs)
	assert.Equal(t, []string{"flag-1", "flag-2", "flag-3"}, []string{fs[0].ID, fs[1].ID, fs[2].ID})
}
