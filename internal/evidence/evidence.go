// Package evidence binds flag quotes to exact byte spans in their source
// messages and renders those spans with markup.
package evidence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/flags"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"go.uber.org/zap"
)

// Evidence is a verbatim span of a message that supports a flag.
// Content[StartIndex:EndIndex] == Text, with byte offsets.
type Evidence struct {
	ID          string `json:"id"`
	MessageID   string `json:"message_id"`
	StartIndex  int    `json:"start_index"`
	EndIndex    int    `json:"end_index"`
	Text        string `json:"text"`
	FlagID      string `json:"flag_id"`
	Explanation string `json:"explanation"`
}

// Bind locates the first exact occurrence of each flag's quote in its source
// message. Flags whose quote is empty or not found produce no evidence; they
// are not removed.
func Bind(ctx context.Context, t *conversation.Transcript, fs []flags.Flag, logger *logging.Logger) []Evidence {
	if logger == nil {
		logger = logging.NewNop()
	}

	out := []Evidence{}
	for _, f := range fs {
		if f.EvidenceQuote == "" {
			continue
		}
		m, ok := t.Find(f.SourceMessageID)
		if !ok {
			logger.Debug(ctx, "evidence binding miss",
				zap.String("flag_id", f.ID),
				zap.String("reason", "source message not found"),
			)
			continue
		}
		start := strings.Index(m.Content, f.EvidenceQuote)
		if start < 0 {
			logger.Debug(ctx, "evidence binding miss",
				zap.String("flag_id", f.ID),
				zap.String("message_id", m.ID),
				zap.String("reason", "quote not found verbatim"),
			)
			continue
		}
		out = append(out, Evidence{
			ID:          fmt.Sprintf("evidence-%d", len(out)+1),
			MessageID:   m.ID,
			StartIndex:  start,
			EndIndex:    start + len(f.EvidenceQuote),
			Text:        f.EvidenceQuote,
			FlagID:      f.ID,
			Explanation: f.Summary,
		})
	}
	return out
}

// Span is a byte range within one message.
type Span struct {
	Start int
	End   int
}

// ForMessage returns the spans of evs that belong to messageID.
func ForMessage(evs []Evidence, messageID string) []Span {
	var spans []Span
	for _, e := range evs {
		if e.MessageID == messageID {
			spans = append(spans, Span{Start: e.StartIndex, End: e.EndIndex})
		}
	}
	return spans
}

// Render wraps each span of content with mark.
//
// Spans are applied in descending start order so earlier offsets stay valid
// as markup is inserted. A span overlapping one already rendered, or falling
// outside content, is skipped.
func Render(content string, spans []Span, mark func(string) string) string {
	sorted := append([]Span(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})

	out := content
	limit := len(content)
	for _, s := range sorted {
		if s.Start < 0 || s.Start >= s.End || s.End > limit {
			continue
		}
		out = out[:s.Start] + mark(out[s.Start:s.End]) + out[s.End:]
		limit = s.Start
	}
	return out
}
