// Package consistency extracts factual claims the other party makes about
// themselves and reports contradictions between them.
package consistency

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"go.uber.org/zap"
)

// PromptMarker opens every consistency prompt.
const PromptMarker = "TASK: check_consistency"

// ClaimCategory is the closed set of claim topics.
type ClaimCategory string

const (
	ClaimLocation  ClaimCategory = "location"
	ClaimJob       ClaimCategory = "job"
	ClaimPersonal  ClaimCategory = "personal"
	ClaimTimeline  ClaimCategory = "timeline"
	ClaimIdentity  ClaimCategory = "identity"
	ClaimLifestyle ClaimCategory = "lifestyle"
	ClaimOther     ClaimCategory = "other"
)

// ParseClaimCategory maps s to a category; anything unrecognised is ClaimOther.
func ParseClaimCategory(s string) ClaimCategory {
	switch c := ClaimCategory(strings.ToLower(strings.TrimSpace(s))); c {
	case ClaimLocation, ClaimJob, ClaimPersonal, ClaimTimeline, ClaimIdentity, ClaimLifestyle:
		return c
	default:
		return ClaimOther
	}
}

// FactualClaim is a statement of fact the other party made about themselves.
type FactualClaim struct {
	ID        string        `json:"id"`
	Category  ClaimCategory `json:"category"`
	Text      string        `json:"text"`
	MessageID string        `json:"message_id"`
	Timestamp time.Time     `json:"timestamp"`
}

// Inconsistency pairs two claims that cannot both be true.
type Inconsistency struct {
	ID          string `json:"id"`
	Claim1      string `json:"claim1"`
	Claim2      string `json:"claim2"`
	Description string `json:"description"`
}

// Report is the consistency pass output.
type Report struct {
	Claims          []FactualClaim  `json:"claims"`
	Inconsistencies []Inconsistency `json:"inconsistencies"`
	StabilityIndex  int             `json:"stability_index"`
	Summary         string          `json:"summary"`
	// Evaluated is false when contradictions were not looked for.
	Evaluated bool `json:"evaluated"`
}

type modelClaim struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Text      string `json:"text"`
	MessageID string `json:"message_id"`
}

type modelInconsistency struct {
	Claim1      string `json:"claim1"`
	Claim2      string `json:"claim2"`
	Description string `json:"description"`
}

type modelResponse struct {
	Claims          []modelClaim         `json:"claims"`
	Inconsistencies []modelInconsistency `json:"inconsistencies"`
	Summary         string               `json:"summary"`
}

// Checker runs the consistency pass. Safe for concurrent use.
type Checker struct {
	llm    llm.Completer
	logger *logging.Logger
}

// NewChecker creates a Checker.
func NewChecker(c llm.Completer, logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Checker{llm: c, logger: logger}
}

// Check asks the model for claims and contradictions.
//
// Claims attributed to anything but an other message are dropped, and
// contradictions must reference two distinct surviving claims.
func (c *Checker) Check(ctx context.Context, t *conversation.Transcript) (Report, error) {
	var resp modelResponse
	if err := llm.Ask(ctx, c.llm, prompt(t), &resp); err != nil {
		return Report{}, fmt.Errorf("consistency check: %w", err)
	}

	rep := Report{
		Claims:          []FactualClaim{},
		Inconsistencies: []Inconsistency{},
		Summary:         strings.TrimSpace(resp.Summary),
		Evaluated:       true,
	}

	ids := make(map[string]string, len(resp.Claims))
	dropped := 0
	for _, mc := range resp.Claims {
		m, ok := t.Find(mc.MessageID)
		if !ok || m.Role != conversation.RoleOther || strings.TrimSpace(mc.Text) == "" {
			dropped++
			continue
		}
		id := fmt.Sprintf("claim-%d", len(rep.Claims)+1)
		if mc.ID != "" {
			ids[mc.ID] = id
		}
		rep.Claims = append(rep.Claims, FactualClaim{
			ID:        id,
			Category:  ParseClaimCategory(mc.Category),
			Text:      strings.TrimSpace(mc.Text),
			MessageID: m.ID,
			Timestamp: m.Timestamp,
		})
	}

	for _, mi := range resp.Inconsistencies {
		a, okA := ids[mi.Claim1]
		b, okB := ids[mi.Claim2]
		if !okA || !okB || a == b {
			dropped++
			continue
		}
		rep.Inconsistencies = append(rep.Inconsistencies, Inconsistency{
			ID:          fmt.Sprintf("inconsistency-%d", len(rep.Inconsistencies)+1),
			Claim1:      a,
			Claim2:      b,
			Description: strings.TrimSpace(mi.Description),
		})
	}

	rep.StabilityIndex = Stability(len(rep.Claims), len(rep.Inconsistencies))
	if rep.Summary == "" {
		rep.Summary = fmt.Sprintf("%d claims, %d inconsistencies", len(rep.Claims), len(rep.Inconsistencies))
	}

	c.logger.Debug(ctx, "consistency evaluated",
		zap.Int("claims", len(rep.Claims)),
		zap.Int("inconsistencies", len(rep.Inconsistencies)),
		zap.Int("dropped", dropped),
	)
	return rep, nil
}

// Stability is round(100 - 100*inconsistencies/max(claims,1)) clamped to [0,100].
func Stability(claims, inconsistencies int) int {
	v := math.Round(100 - 100*float64(inconsistencies)/float64(max(claims, 1)))
	return int(math.Max(0, math.Min(100, v)))
}

var claimTriggers = []struct {
	re       *regexp.Regexp
	category ClaimCategory
}{
	{regexp.MustCompile(`(?i)\bi live\b`), ClaimLocation},
	{regexp.MustCompile(`(?i)\bi['’]m from\b`), ClaimLocation},
	{regexp.MustCompile(`(?i)\bi work\b`), ClaimJob},
	{regexp.MustCompile(`(?i)\bmy job\b`), ClaimJob},
}

// Heuristic extracts trigger-phrase claims without judging contradictions.
func Heuristic(t *conversation.Transcript) Report {
	rep := Report{
		Claims:          []FactualClaim{},
		Inconsistencies: []Inconsistency{},
		StabilityIndex:  100,
		Summary:         "Consistency not evaluated; claims were extracted by keyword only.",
		Evaluated:       false,
	}

	for _, m := range t.Messages {
		if m.Role != conversation.RoleOther {
			continue
		}
		for _, trig := range claimTriggers {
			loc := trig.re.FindStringIndex(m.Content)
			if loc == nil {
				continue
			}
			rep.Claims = append(rep.Claims, FactualClaim{
				ID:        fmt.Sprintf("claim-%d", len(rep.Claims)+1),
				Category:  trig.category,
				Text:      sentenceFrom(m.Content, loc[0]),
				MessageID: m.ID,
				Timestamp: m.Timestamp,
			})
		}
	}
	return rep
}

// sentenceFrom returns content from start up to and excluding the next sentence terminator.
func sentenceFrom(content string, start int) string {
	rest := content[start:]
	if end := strings.IndexAny(rest, ".!?\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func prompt(t *conversation.Transcript) string {
	var b strings.Builder
	b.WriteString(PromptMarker + "\n\n")
	b.WriteString("List the factual claims OTHER makes about themselves (where they live, their job, age, family, history).\n")
	b.WriteString("Then list pairs of claims that contradict each other. Ignore anything SELF says.\n")
	b.WriteString("Claim categories: location, job, personal, timeline, identity, lifestyle, other.\n\n")
	b.WriteString(`Respond as {"claims":[{"id":"c1","category":"","text":"","message_id":""}],"inconsistencies":[{"claim1":"c1","claim2":"c2","description":""}],"summary":""}`)
	b.WriteString("\n\nConversation:\n")
	b.WriteString(t.Render())
	return b.String()
}
