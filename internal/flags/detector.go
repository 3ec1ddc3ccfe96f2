package flags

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/lexicon"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"go.uber.org/zap"
)

// DetectPromptMarker opens every detection prompt.
const DetectPromptMarker = "TASK: detect_flags"

// finding is the raw shape the model is asked to return.
type finding struct {
	Category   string  `json:"category"`
	Polarity   string  `json:"polarity"`
	Severity   string  `json:"severity"`
	Summary    string  `json:"summary"`
	Quote      string  `json:"quote"`
	MessageID  string  `json:"message_id"`
	Confidence float64 `json:"confidence"`
}

type detectResponse struct {
	Flags []finding `json:"flags"`
}

// Detector finds flags in a transcript. Safe for concurrent use.
type Detector struct {
	llm     llm.Completer
	lexicon *lexicon.Store
	logger  *logging.Logger
}

// NewDetector creates a Detector. lex supplies the heuristic keyword pack.
func NewDetector(c llm.Completer, lex *lexicon.Store, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Detector{llm: c, lexicon: lex, logger: logger}
}

// Detect runs one model pass over the whole transcript.
//
// Completion and decoding failures are returned so the caller can fall back
// to Heuristic. Individual findings that fail validation or the integrity
// guard are dropped.
func (d *Detector) Detect(ctx context.Context, t *conversation.Transcript) ([]Flag, error) {
	var resp detectResponse
	if err := llm.Ask(ctx, d.llm, detectPrompt(t), &resp); err != nil {
		return nil, fmt.Errorf("flag detection: %w", err)
	}

	out := make([]Flag, 0, len(resp.Flags))
	for i, f := range resp.Flags {
		sev, ok := ParseSeverity(f.Severity)
		if !ok {
			d.logger.Debug(ctx, "finding dropped",
				zap.Int("finding", i),
				zap.String("reason", "invalid severity"),
			)
			continue
		}

		msg, ok := Guard(t, f.Quote, f.MessageID)
		if !ok {
			d.logger.Debug(ctx, "finding dropped",
				zap.Int("finding", i),
				zap.String("category", f.Category),
				zap.String("message_id", f.MessageID),
				zap.String("reason", "quote is not the content of an other message"),
			)
			continue
		}

		cat := ParseCategory(f.Category)
		polarity := cat.DefaultPolarity()
		if !cat.Known() && strings.EqualFold(f.Polarity, string(PolarityGreen)) {
			polarity = PolarityGreen
		}
		summary := strings.TrimSpace(f.Summary)
		if summary == "" {
			summary = templateFor(cat).summary
		}

		out = append(out, Flag{
			Polarity:        polarity,
			Category:        cat,
			Severity:        sev,
			Summary:         summary,
			EvidenceQuote:   msg.Content,
			SourceMessageID: msg.ID,
			Confidence:      clampConfidence(f.Confidence),
			Source:          SourceModel,
		})
	}

	d.logger.Debug(ctx, "model flags accepted",
		zap.Int("returned", len(resp.Flags)),
		zap.Int("accepted", len(out)),
	)
	return out, nil
}

// Heuristic detects flags from the keyword lexicon. It is deterministic.
//
// Red categories fire at most once per message; green categories fire at
// most once per conversation. Each flag quotes the full message content.
func (d *Detector) Heuristic(t *conversation.Transcript) []Flag {
	lex := d.lexicon.Current()
	greenSeen := make(map[Category]bool)

	var out []Flag
	for _, m := range t.Messages {
		if m.Role != conversation.RoleOther || !isText(m) {
			continue
		}

		for _, name := range lex.Categories() {
			if !lex.MatchFlag(name, m.Content) {
				continue
			}
			rule, _ := lex.Rule(name)
			cat := ParseCategory(name)
			polarity := cat.DefaultPolarity()
			if polarity == PolarityGreen {
				if greenSeen[cat] {
					continue
				}
				greenSeen[cat] = true
			}
			sev, ok := ParseSeverity(rule.Severity)
			if !ok {
				sev = SeverityMedium
			}
			out = append(out, heuristicFlag(m, cat, polarity, sev, rule.Confidence))
		}

		if !greenSeen[CategoryAsksReciprocalQuestions] && strings.Contains(m.Content, "?") {
			greenSeen[CategoryAsksReciprocalQuestions] = true
			out = append(out, heuristicFlag(m, CategoryAsksReciprocalQuestions, PolarityGreen, SeverityLow, 0.4))
		}
	}
	return out
}

func isText(m conversation.Message) bool {
	return m.Kind == "" || m.Kind == conversation.KindText
}

func heuristicFlag(m conversation.Message, cat Category, p Polarity, sev Severity, confidence float64) Flag {
	return Flag{
		Polarity:        p,
		Category:        cat,
		Severity:        sev,
		Summary:         templateFor(cat).summary,
		EvidenceQuote:   m.Content,
		SourceMessageID: m.ID,
		Confidence:      clampConfidence(confidence),
		Source:          SourceHeuristic,
	}
}

func detectPrompt(t *conversation.Transcript) string {
	cats := KnownCategories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}

	var b strings.Builder
	b.WriteString(DetectPromptMarker + "\n\n")
	b.WriteString("Review the conversation between SELF (the user) and OTHER (the person being assessed).\n")
	b.WriteString("Report behavioural red and green flags about OTHER only. Never report on SELF.\n")
	b.WriteString("For each flag, quote the FULL content of exactly one OTHER message, character for character, and give its id.\n\n")
	fmt.Fprintf(&b, "Categories: %s\n", strings.Join(names, ", "))
	b.WriteString("Severities: low, medium, high, critical. Confidence is between 0 and 1.\n\n")
	b.WriteString(`Respond as {"flags":[{"category":"","polarity":"red|green","severity":"","summary":"","quote":"","message_id":"","confidence":0}]}`)
	b.WriteString("\n\nConversation:\n")
	b.WriteString(t.Render())
	return b.String()
}
