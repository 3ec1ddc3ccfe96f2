package flags

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"github.com/fyrsmithlabs/convoscan/internal/reciprocity"
	"go.uber.org/zap"
)

// EnrichPromptMarker opens every enrichment prompt.
const EnrichPromptMarker = "TASK: enrich_flags"

// Stats is the conversation context given to enrichment.
type Stats struct {
	Duration     time.Duration
	MessageCount int
	BalanceScore int
}

// StatsFor summarizes t for enrichment.
func StatsFor(t *conversation.Transcript) Stats {
	return Stats{
		Duration:     t.Duration(),
		MessageCount: len(t.Messages),
		BalanceScore: reciprocity.Calculate(t.Messages).BalanceScore,
	}
}

type enrichment struct {
	FlagID            string `json:"flag_id"`
	Meaning           string `json:"meaning"`
	RecommendedAction string `json:"recommended_action"`
	SuggestedReply    *struct {
		Content string `json:"content"`
		Tone    string `json:"tone"`
	} `json:"suggested_reply"`
}

type enrichResponse struct {
	Enrichments []enrichment `json:"enrichments"`
}

type promptFlag struct {
	ID       string   `json:"id"`
	Polarity Polarity `json:"polarity"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Summary  string   `json:"summary"`
	Quote    string   `json:"quote"`
}

// Enricher adds meaning, recommended action and a suggested reply to flags.
type Enricher struct {
	llm    llm.Completer
	logger *logging.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(c llm.Completer, logger *logging.Logger) *Enricher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Enricher{llm: c, logger: logger}
}

// Enrich runs one model pass over fs and returns enriched copies.
//
// Enrichment never changes category, severity or quote. Entries naming
// unknown flag ids are ignored; flags the model skipped get the template
// guidance for their category. With no flags the model is not called.
func (e *Enricher) Enrich(ctx context.Context, fs []Flag, stats Stats) ([]Flag, error) {
	if len(fs) == 0 {
		return []Flag{}, nil
	}

	prompt, err := enrichPrompt(fs, stats)
	if err != nil {
		return nil, err
	}
	var resp enrichResponse
	if err := llm.Ask(ctx, e.llm, prompt, &resp); err != nil {
		return nil, fmt.Errorf("flag enrichment: %w", err)
	}

	byID := make(map[string]enrichment, len(resp.Enrichments))
	for _, en := range resp.Enrichments {
		byID[en.FlagID] = en
	}

	out := EnrichHeuristic(fs)
	applied := 0
	for i := range out {
		en, ok := byID[out[i].ID]
		if !ok {
			continue
		}
		delete(byID, out[i].ID)
		applied++
		if s := strings.TrimSpace(en.Meaning); s != "" {
			out[i].Meaning = s
		}
		if s := strings.TrimSpace(en.RecommendedAction); s != "" {
			out[i].RecommendedAction = s
		}
		if en.SuggestedReply != nil && strings.TrimSpace(en.SuggestedReply.Content) != "" {
			out[i].SuggestedReply = &SuggestedReply{
				Content: strings.TrimSpace(en.SuggestedReply.Content),
				Tone:    ParseTone(en.SuggestedReply.Tone),
			}
		}
	}
	if len(byID) > 0 {
		e.logger.Debug(ctx, "ignored enrichments for unknown flags", zap.Int("count", len(byID)))
	}
	e.logger.Debug(ctx, "flags enriched", zap.Int("flags", len(out)), zap.Int("applied", applied))
	return out, nil
}

// EnrichHeuristic fills guidance from per-category templates.
func EnrichHeuristic(fs []Flag) []Flag {
	out := make([]Flag, len(fs))
	for i, f := range fs {
		tpl := templateFor(f.Category)
		reply := tpl.reply
		f.Meaning = tpl.meaning
		f.RecommendedAction = tpl.action
		f.SuggestedReply = &reply
		out[i] = f
	}
	return out
}

func enrichPrompt(fs []Flag, stats Stats) (string, error) {
	pf := make([]promptFlag, len(fs))
	for i, f := range fs {
		pf[i] = promptFlag{
			ID:       f.ID,
			Polarity: f.Polarity,
			Category: f.Category,
			Severity: f.Severity,
			Summary:  f.Summary,
			Quote:    f.EvidenceQuote,
		}
	}
	data, err := json.Marshal(pf)
	if err != nil {
		return "", fmt.Errorf("failed to marshal flags: %w", err)
	}

	var b strings.Builder
	b.WriteString(EnrichPromptMarker + "\n\n")
	b.WriteString("For each flag below explain what it means for the user, recommend an action, and suggest one reply.\n")
	b.WriteString("Do not change any flag. Reply tones: firm, cautious, friendly, neutral.\n\n")
	fmt.Fprintf(&b, "Conversation: %d messages over %s, reciprocity balance %d/100.\n\n",
		stats.MessageCount, stats.Duration.Round(time.Minute), stats.BalanceScore)
	b.WriteString(`Respond as {"enrichments":[{"flag_id":"","meaning":"","recommended_action":"","suggested_reply":{"content":"","tone":""}}]}`)
	b.WriteString("\n\nFlags:\n")
	b.Write(data)
	return b.String(), nil
}
