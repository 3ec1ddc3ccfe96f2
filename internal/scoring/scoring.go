// Package scoring produces the risk, trust and escalation scores, the
// emotional timeline and suggested replies for a conversation.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/flags"
	"github.com/fyrsmithlabs/convoscan/internal/lexicon"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"go.uber.org/zap"
)

// PromptMarker opens every scoring prompt.
const PromptMarker = "TASK: score_conversation"

const (
	minReplies = 2
	maxReplies = 3
)

var redWeights = map[flags.Severity]int{
	flags.SeverityLow:      10,
	flags.SeverityMedium:   25,
	flags.SeverityHigh:     40,
	flags.SeverityCritical: 60,
}

var greenWeights = map[flags.Severity]int{
	flags.SeverityLow:      10,
	flags.SeverityMedium:   20,
	flags.SeverityHigh:     30,
	flags.SeverityCritical: 30,
}

// Scores is the scoring pass output. All scores are in [0,100].
type Scores struct {
	RiskScore        int                    `json:"risk_score"`
	TrustScore       int                    `json:"trust_score"`
	EscalationIndex  int                    `json:"escalation_index"`
	Timeline         []TimelineEvent        `json:"timeline"`
	SuggestedReplies []flags.SuggestedReply `json:"suggested_replies"`
}

// ApplyRiskFloor raises the risk score to at least floor.
func (s *Scores) ApplyRiskFloor(floor int) {
	s.RiskScore = Clamp(max(s.RiskScore, floor))
}

type modelEvent struct {
	MessageID   string `json:"message_id"`
	Kind        string `json:"kind"`
	FromTone    string `json:"from_tone"`
	ToTone      string `json:"to_tone"`
	Description string `json:"description"`
}

type modelReply struct {
	Content string `json:"content"`
	Tone    string `json:"tone"`
}

type modelResponse struct {
	RiskScore        *float64     `json:"risk_score"`
	TrustScore       *float64     `json:"trust_score"`
	EscalationIndex  *float64     `json:"escalation_index"`
	Timeline         []modelEvent `json:"timeline"`
	SuggestedReplies []modelReply `json:"suggested_replies"`
}

// Scorer runs the scoring pass. Safe for concurrent use.
type Scorer struct {
	llm     llm.Completer
	lexicon *lexicon.Store
	logger  *logging.Logger
}

// NewScorer creates a Scorer. lex supplies tone keywords for the heuristic.
func NewScorer(c llm.Completer, lex *lexicon.Store, logger *logging.Logger) *Scorer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scorer{llm: c, lexicon: lex, logger: logger}
}

// Score asks the model for holistic scores.
//
// A response missing any of the three scores is rejected. Timeline events
// naming unknown messages are dropped, unknown tones become neutral and
// replies are padded or truncated to between two and three.
func (s *Scorer) Score(ctx context.Context, t *conversation.Transcript) (Scores, error) {
	var resp modelResponse
	if err := llm.Ask(ctx, s.llm, prompt(t), &resp); err != nil {
		return Scores{}, fmt.Errorf("scoring: %w", err)
	}
	if resp.RiskScore == nil || resp.TrustScore == nil || resp.EscalationIndex == nil {
		return Scores{}, fmt.Errorf("scoring: %w: missing score", llm.ErrMalformedResponse)
	}

	out := Scores{
		RiskScore:       clampFloat(*resp.RiskScore),
		TrustScore:      clampFloat(*resp.TrustScore),
		EscalationIndex: clampFloat(*resp.EscalationIndex),
		Timeline:        []TimelineEvent{},
	}

	dropped := 0
	for _, e := range resp.Timeline {
		m, ok := t.Find(e.MessageID)
		if !ok {
			dropped++
			continue
		}
		kind, ok := ParseEventKind(e.Kind)
		if !ok {
			kind = EventEmotionalShift
		}
		out.Timeline = append(out.Timeline, TimelineEvent{
			Timestamp:   m.Timestamp,
			MessageID:   m.ID,
			Kind:        kind,
			FromTone:    ParseTone(e.FromTone),
			ToTone:      ParseTone(e.ToTone),
			Description: strings.TrimSpace(e.Description),
		})
	}

	var replies []flags.SuggestedReply
	for _, r := range resp.SuggestedReplies {
		if c := strings.TrimSpace(r.Content); c != "" {
			replies = append(replies, flags.SuggestedReply{Content: c, Tone: flags.ParseTone(r.Tone)})
		}
	}
	out.SuggestedReplies = padReplies(replies, cautiousReplies)

	s.logger.Debug(ctx, "model scores accepted",
		zap.Int("risk", out.RiskScore),
		zap.Int("timeline_events", len(out.Timeline)),
		zap.Int("timeline_dropped", dropped),
	)
	return out, nil
}

// Heuristic scores from flag weights and keyword tones. It needs the flag
// pass's output, so it runs after that pass completes.
func (s *Scorer) Heuristic(t *conversation.Transcript, fs []flags.Flag) Scores {
	var risk, trust int
	for _, f := range fs {
		switch f.Polarity {
		case flags.PolarityRed:
			risk += redWeights[f.Severity]
		case flags.PolarityGreen:
			trust += greenWeights[f.Severity]
		}
	}

	timeline := BuildTimeline(s.lexicon.Current(), t.Messages)
	return Scores{
		RiskScore:        Clamp(risk),
		TrustScore:       Clamp(trust),
		EscalationIndex:  EscalationIndex(timeline),
		Timeline:         timeline,
		SuggestedReplies: padReplies(nil, replyTemplates(fs)),
	}
}

// Clamp bounds v to [0,100].
func Clamp(v int) int {
	return max(0, min(100, v))
}

func clampFloat(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func roundPercent(n, total int) int {
	return Clamp(int(math.Round(100 * float64(n) / float64(max(total, 1)))))
}

func padReplies(replies, pool []flags.SuggestedReply) []flags.SuggestedReply {
	out := make([]flags.SuggestedReply, 0, maxReplies)
	seen := make(map[string]bool, maxReplies)
	add := func(r flags.SuggestedReply) {
		if len(out) < maxReplies && !seen[r.Content] {
			seen[r.Content] = true
			out = append(out, r)
		}
	}
	for _, r := range replies {
		add(r)
	}
	for _, r := range pool {
		if len(out) >= minReplies && len(replies) > 0 {
			break
		}
		add(r)
	}
	return out
}

var (
	firmReplies = []flags.SuggestedReply{
		{Content: "I'm not comfortable with where this is going, so I'm going to step back.", Tone: flags.ToneFirm},
		{Content: "Please stop. I won't be sending money or personal details.", Tone: flags.ToneFirm},
		{Content: "I'd like to verify who you are with a video call before we talk further.", Tone: flags.ToneCautious},
	}
	cautiousReplies = []flags.SuggestedReply{
		{Content: "I'd like to take things slowly and get to know you better first.", Tone: flags.ToneCautious},
		{Content: "Could we do a quick video call sometime this week?", Tone: flags.ToneCautious},
		{Content: "Tell me a bit more about your day-to-day life.", Tone: flags.ToneNeutral},
	}
	friendlyReplies = []flags.SuggestedReply{
		{Content: "I've really enjoyed chatting with you!", Tone: flags.ToneFriendly},
		{Content: "What are you up to this weekend?", Tone: flags.ToneFriendly},
		{Content: "Would you like to video chat sometime?", Tone: flags.ToneNeutral},
	}
)

// replyTemplates picks a reply set by the most severe red flag.
func replyTemplates(fs []flags.Flag) []flags.SuggestedReply {
	worst := 0
	for _, f := range fs {
		if f.Polarity == flags.PolarityRed {
			worst = max(worst, redWeights[f.Severity])
		}
	}
	switch {
	case worst >= redWeights[flags.SeverityHigh]:
		return firmReplies
	case worst > 0:
		return cautiousReplies
	default:
		return friendlyReplies
	}
}

func prompt(t *conversation.Transcript) string {
	var b strings.Builder
	b.WriteString(PromptMarker + "\n\n")
	b.WriteString("Score the conversation from SELF's point of view.\n")
	b.WriteString("risk_score: how likely OTHER is a scammer or abuser (0-100). trust_score: how trustworthy OTHER seems (0-100).\n")
	b.WriteString("escalation_index: how fast the relationship is being pushed forward (0-100).\n")
	b.WriteString("timeline: notable shifts, each naming a message id, kind (emotional_shift, request, escalation) and tones ")
	b.WriteString("(neutral, playful, intimate, urgent, pressuring, supportive, defensive).\n")
	b.WriteString("suggested_replies: two or three replies SELF could send next, tone firm, cautious, friendly or neutral.\n\n")
	b.WriteString(`Respond as {"risk_score":0,"trust_score":0,"escalation_index":0,"timeline":[{"message_id":"","kind":"","from_tone":"","to_tone":"","description":""}],"suggested_replies":[{"content":"","tone":""}]}`)
	b.WriteString("\n\nConversation:\n")
	b.WriteString(t.Render())
	return b.String()
}
