package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/consistency"
	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/flags"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/llm/llmtest"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"github.com/fyrsmithlabs/convoscan/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const scamTranscript = `Me: hey, how's your week going?
Jordan: Amazing now that I'm talking to you, you are my soulmate
Me: haha that's sweet
Jordan: My camera is broken so no video, but add me on telegram?
Jordan: I need you to wire money right now for the customs fee`

// recordingPublisher captures published results.
type recordingPublisher struct {
	mu      sync.Mutex
	ids     []string
	results []any
	err     error
}

func (p *recordingPublisher) PublishCompleted(_ context.Context, id string, result any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	p.results = append(p.results, result)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newTestOrchestrator(c llm.Completer, opts ...func(*Config)) *Orchestrator {
	cfg := Config{
		LLM:   c,
		Clock: func() time.Time { return fixedNow },
		NewID: func() string { return "analysis-1" },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewOrchestrator(cfg)
}

func analyze(t *testing.T, o *Orchestrator, req Request) *Result {
	t.Helper()
	out, err := o.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.False(t, out.NeedsRoleIdentifier)
	return out.Result
}

func assertInvariants(t *testing.T, r *Result) {
	t.Helper()
	tr := conversation.NewTranscript(r.Messages)

	for _, f := range r.Flags {
		m, ok := tr.Find(f.SourceMessageID)
		require.True(t, ok, "flag %s has unknown source", f.ID)
		assert.Equal(t, conversation.RoleOther, m.Role, "flag %s sourced on self", f.ID)
	}
	for _, e := range r.Evidence {
		m, ok := tr.Find(e.MessageID)
		require.True(t, ok)
		require.True(t, e.StartIndex >= 0 && e.StartIndex < e.EndIndex && e.EndIndex <= len(m.Content))
		assert.Equal(t, e.Text, m.Content[e.StartIndex:e.EndIndex])
	}
	for name, v := range map[string]int{
		"risk":       r.RiskScore,
		"trust":      r.TrustScore,
		"escalation": r.EscalationIndex,
		"balance":    r.Reciprocity.BalanceScore,
		"stability":  r.Consistency.StabilityIndex,
	} {
		assert.True(t, v >= 0 && v <= 100, "%s out of range: %d", name, v)
	}
}

func TestAnalyze_HeuristicPath(t *testing.T) {
	r := analyze(t, newTestOrchestrator(llm.Disabled{}), Request{Text: scamTranscript})
	assertInvariants(t, r)

	assert.Equal(t, "analysis-1", r.ID)
	assert.Equal(t, fixedNow, r.CreatedAt)
	assert.Len(t, r.Messages, 5)

	cats := map[flags.Category]bool{}
	for _, f := range r.Flags {
		cats[f.Category] = true
		assert.Equal(t, flags.SourceHeuristic, f.Source)
		assert.NotEmpty(t, f.Meaning, "heuristic enrichment fills templates")
	}
	assert.True(t, cats[flags.CategoryFinancialAsk])
	assert.True(t, cats[flags.CategoryLoveBombing])
	assert.True(t, cats[flags.CategoryAvoidsVideoCall])
	assert.True(t, cats[flags.CategoryOffPlatformPush])

	assert.Len(t, r.Evidence, len(r.Flags), "full-content quotes always bind")
	assert.Greater(t, r.RiskScore, 50)
	assert.False(t, r.Consistency.Evaluated)
	assert.GreaterOrEqual(t, len(r.SuggestedReplies), 2)
	assert.LessOrEqual(t, len(r.SuggestedReplies), 3)

	for _, pass := range []string{PassFlags, PassEnrichment, PassScoring, PassConsistency} {
		assert.Equal(t, ProvenanceHeuristic, r.Provenance[pass], pass)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	c := llmtest.New()
	o := newTestOrchestrator(c, func(cfg *Config) { cfg.ForceHeuristic = true })

	a := analyze(t, o, Request{Text: scamTranscript})
	b := analyze(t, o, Request{Text: scamTranscript})
	assert.Equal(t, a, b)
	assert.Zero(t, c.Calls(), "forced heuristics never call the model")
}

func TestAnalyze_RequestForceHeuristic(t *testing.T) {
	c := llmtest.New()
	r := analyze(t, newTestOrchestrator(c), Request{Text: scamTranscript, ForceHeuristic: true})
	assert.Zero(t, c.Calls())
	assert.Equal(t, ProvenanceHeuristic, r.Provenance[PassScoring])
}

func TestAnalyze_ModelPath(t *testing.T) {
	c := llmtest.New().
		On(flags.DetectPromptMarker, `{"flags":[
			{"category":"financial_ask","severity":"high","summary":"wants money","quote":"I need you to wire money right now for the customs fee","message_id":"msg-5","confidence":0.95},
			{"category":"love_bombing","severity":"medium","summary":"self quote","quote":"haha that's sweet","message_id":"msg-3","confidence":0.9},
			{"category":"off_platform_push","severity":"medium","summary":"near miss","quote":"add me on telegram","message_id":"msg-4","confidence":0.8}
		]}`).
		On(flags.EnrichPromptMarker, `{"enrichments":[{"flag_id":"flag-1","meaning":"classic scam","recommended_action":"stop","suggested_reply":{"content":"No.","tone":"firm"}}]}`).
		On(scoring.PromptMarker, `{"risk_score":88,"trust_score":5,"escalation_index":70,
			"timeline":[{"message_id":"msg-5","kind":"request","from_tone":"intimate","to_tone":"urgent","description":"asks for money"}],
			"suggested_replies":[{"content":"I won't send money.","tone":"firm"},{"content":"Let's video call first.","tone":"cautious"}]}`).
		On(consistency.PromptMarker, `{"claims":[],"inconsistencies":[],"summary":"nothing to compare"}`)

	r := analyze(t, newTestOrchestrator(c), Request{Text: scamTranscript})
	assertInvariants(t, r)

	require.Len(t, r.Flags, 1, "self quote and near miss are dropped")
	assert.Equal(t, flags.CategoryFinancialAsk, r.Flags[0].Category)
	assert.Equal(t, flags.SourceModel, r.Flags[0].Source)
	assert.Equal(t, "classic scam", r.Flags[0].Meaning)

	assert.Equal(t, 88, r.RiskScore)
	assert.Equal(t, 70, r.EscalationIndex)
	require.Len(t, r.Timeline, 1)
	assert.True(t, r.Consistency.Evaluated)
	assert.Equal(t, 100, r.Consistency.StabilityIndex)

	for _, pass := range []string{PassFlags, PassEnrichment, PassScoring, PassConsistency} {
		assert.Equal(t, ProvenanceModel, r.Provenance[pass], pass)
	}
}

func TestAnalyze_PartialFailureFallsBackPerPass(t *testing.T) {
	c := llmtest.New().
		On(scoring.PromptMarker, `{"risk_score":12,"trust_score":60,"escalation_index":0}`).
		On(consistency.PromptMarker, "sorry, I can't do that")
	c.Err = errors.New("connection reset")

	r := analyze(t, newTestOrchestrator(c), Request{Text: scamTranscript})
	assertInvariants(t, r)

	assert.Equal(t, ProvenanceHeuristic, r.Provenance[PassFlags])
	assert.Equal(t, ProvenanceHeuristic, r.Provenance[PassEnrichment])
	assert.Equal(t, ProvenanceModel, r.Provenance[PassScoring])
	assert.Equal(t, ProvenanceHeuristic, r.Provenance[PassConsistency])
	assert.Equal(t, 12, r.RiskScore)
	assert.NotEmpty(t, r.Flags)
}

func TestAnalyze_PanicIsContained(t *testing.T) {
	c := llmtest.New()
	c.Panic = true

	r := analyze(t, newTestOrchestrator(c), Request{Text: scamTranscript})
	assertInvariants(t, r)
	assert.Equal(t, ProvenanceHeuristic, r.Provenance[PassScoring])
	assert.NotEmpty(t, r.Flags)
}

func TestAnalyze_CallAttemptsRaiseRiskFloor(t *testing.T) {
	var lines []string
	for i := 0; i < 60; i++ {
		lines = append(lines, "01/01/2024, 09:00 - Alex: ")
	}
	lines = append(lines,
		"01/01/2024, 10:00 - Sam: hi, please stop calling",
		"01/01/2024, 10:01 - Alex: hello",
	)

	r := analyze(t, newTestOrchestrator(llm.Disabled{}), Request{
		Text:           strings.Join(lines, "\n"),
		RoleIdentifier: "Sam",
	})
	assertInvariants(t, r)

	var stalking *flags.Flag
	for i := range r.Flags {
		if r.Flags[i].Category == flags.CategoryStalkingBehavior {
			stalking = &r.Flags[i]
		}
	}
	require.NotNil(t, stalking)
	assert.Equal(t, flags.SeverityCritical, stalking.Severity)
	assert.Equal(t, flags.PolarityRed, stalking.Polarity)
	assert.Equal(t, flags.SourceIndicator, stalking.Source)
	assert.Equal(t, "flag-1", stalking.ID)
	assert.GreaterOrEqual(t, r.RiskScore, 95)
	assert.Equal(t, 60, r.Indicators.CallAttemptsByOther)
}

func TestAnalyze_CallAttemptsFromBothSendersRaiseRiskFloor(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, "01/01/2024, 09:00 - Alex: ", "01/01/2024, 09:01 - Sam: ")
	}
	lines = append(lines, "01/01/2024, 10:01 - Alex: hello")

	r := analyze(t, newTestOrchestrator(llm.Disabled{}), Request{
		Text:           strings.Join(lines, "\n"),
		RoleIdentifier: "Sam",
	})
	assertInvariants(t, r)

	assert.Equal(t, 60, r.Indicators.CallAttempts)
	assert.Equal(t, 30, r.Indicators.CallAttemptsByOther)

	var stalking *flags.Flag
	for i := range r.Flags {
		if r.Flags[i].Category == flags.CategoryStalkingBehavior {
			stalking = &r.Flags[i]
		}
	}
	require.NotNil(t, stalking)
	assert.Equal(t, flags.SeverityCritical, stalking.Severity)
	assert.Equal(t, r.Indicators.FirstOtherCallID, stalking.SourceMessageID)
	assert.GreaterOrEqual(t, r.RiskScore, 95)
}

func TestAnalyze_RiskFloorAppliesToModelScores(t *testing.T) {
	var lines []string
	for i := 0; i < 55; i++ {
		lines = append(lines, "01/01/2024, 09:00 - Alex: ")
	}
	lines = append(lines, "01/01/2024, 10:01 - Alex: hello")

	c := llmtest.New().On(scoring.PromptMarker, `{"risk_score":10,"trust_score":50,"escalation_index":0}`)
	r := analyze(t, newTestOrchestrator(c), Request{Text: strings.Join(lines, "\n")})
	assert.Equal(t, ProvenanceModel, r.Provenance[PassScoring])
	assert.Equal(t, 95, r.RiskScore)
}

func TestAnalyze_ThirdPartyContact(t *testing.T) {
	text := strings.Join([]string{
		"01/01/2024, 09:00 - Sam: I don't want to talk",
		"01/01/2024, 09:01 - Alex: answer or I'll text your mom",
	}, "\n")
	r := analyze(t, newTestOrchestrator(llm.Disabled{}), Request{Text: text, RoleIdentifier: "Sam"})

	var found bool
	for _, f := range r.Flags {
		if f.Category == flags.CategoryBoundaryViolation {
			found = true
			assert.Equal(t, flags.SeverityCritical, f.Severity)
			assert.Equal(t, "answer or I'll text your mom", f.EvidenceQuote)
		}
	}
	assert.True(t, found)
	assert.True(t, r.Indicators.ThirdPartyContact)
}

func TestAnalyze_Ambiguity(t *testing.T) {
	text := "01/01/2024, 09:00 - Alex: hi\n01/01/2024, 09:01 - Sam: hello"
	pub := &recordingPublisher{}
	o := newTestOrchestrator(llm.Disabled{}, func(cfg *Config) { cfg.Publisher = pub })

	out, err := o.Analyze(context.Background(), Request{Text: text})
	require.NoError(t, err)
	assert.True(t, out.NeedsRoleIdentifier)
	assert.Equal(t, []string{"Alex", "Sam"}, out.CandidateSenders)
	assert.Nil(t, out.Result)
	assert.Empty(t, pub.ids)

	out, err = o.Analyze(context.Background(), Request{Text: text, RoleIdentifier: "sam"})
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Equal(t, conversation.RoleSelf, out.Result.Messages[1].Role)
}

func TestAnalyze_InputErrors(t *testing.T) {
	o := newTestOrchestrator(llm.Disabled{})

	_, err := o.Analyze(context.Background(), Request{Text: "  \n\n "})
	assert.ErrorIs(t, err, conversation.ErrNoUsableMessages)
	assert.True(t, IsInputError(err))

	_, err = o.Analyze(context.Background(), Request{Messages: []conversation.Message{{Role: "moderator", Content: "hi"}}})
	assert.ErrorIs(t, err, conversation.ErrInvalidMessage)
	assert.True(t, IsInputError(err))

	assert.False(t, IsInputError(errors.New("other")))
}

func TestAnalyze_PublishesCompletedResult(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	o := newTestOrchestrator(llm.Disabled{}, func(cfg *Config) { cfg.Publisher = pub })

	r := analyze(t, o, Request{Text: scamTranscript})
	require.Len(t, pub.ids, 1, "publish failures do not fail the analysis")
	assert.Equal(t, r.ID, pub.ids[0])
	assert.Same(t, r, pub.results[0])
}

func TestAnalyze_MessagesInput(t *testing.T) {
	msgs := []conversation.Message{
		{Role: conversation.RoleOther, Content: "send me $500 via gift card", Timestamp: fixedNow.Add(time.Minute)},
		{Role: conversation.RoleSelf, Content: "who is this?", Timestamp: fixedNow},
	}
	r := analyze(t, newTestOrchestrator(llm.Disabled{}), Request{Messages: msgs})
	assertInvariants(t, r)

	assert.Equal(t, conversation.RoleSelf, r.Messages[0].Role)
	require.NotEmpty(t, r.Flags)
	assert.Equal(t, "msg-2", r.Flags[0].SourceMessageID)
}

func TestAnalyze_LogsNeverCarryContent(t *testing.T) {
	tl := logging.NewTestLogger()
	c := llmtest.New().On(flags.DetectPromptMarker, "not json at all")

	o := newTestOrchestrator(c, func(cfg *Config) { cfg.Logger = tl.Logger })
	analyze(t, o, Request{Text: scamTranscript})

	assert.NotEmpty(t, tl.All())
	tl.AssertNeverContains(t, "customs fee")
	tl.AssertNeverContains(t, "soulmate")
	tl.AssertLogged(t, zapcore.InfoLevel, "analysis complete")
}

func TestAttemptAndOrElse(t *testing.T) {
	v, err := attempt(context.Background(), func(context.Context) (int, error) { panic("boom") })
	assert.ErrorIs(t, err, ErrPassPanicked)
	assert.Zero(t, v)

	got, p := orElse(v, err, func() int { return 7 })
	assert.Equal(t, 7, got)
	assert.Equal(t, ProvenanceHeuristic, p)

	got, p = orElse(3, nil, func() int { return 7 })
	assert.Equal(t, 3, got)
	assert.Equal(t, ProvenanceModel, p)
}

func TestFallbackReason(t *testing.T) {
	assert.Equal(t, "forced", fallbackReason(errForced))
	assert.Equal(t, "unavailable", fallbackReason(llm.ErrUnavailable))
	assert.Equal(t, "malformed", fallbackReason(llm.ErrMalformedResponse))
	assert.Equal(t, "timeout", fallbackReason(context.DeadlineExceeded))
	assert.Equal(t, "error", fallbackReason(errors.New("x")))
}
