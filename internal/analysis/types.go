// Package analysis orchestrates a full conversation analysis.
//
// An analysis normalizes the transcript, fans out the flag, scoring,
// reciprocity and consistency passes concurrently, then binds evidence once
// every pass has returned. Each model-backed pass is attempted exactly once;
// on any failure its deterministic heuristic is substituted and the result's
// provenance records which path produced it.
package analysis

import (
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/consistency"
	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/evidence"
	"github.com/fyrsmithlabs/convoscan/internal/flags"
	"github.com/fyrsmithlabs/convoscan/internal/reciprocity"
	"github.com/fyrsmithlabs/convoscan/internal/scoring"
)

// Pass names, used as provenance keys and metric labels.
const (
	PassFlags       = "flags"
	PassEnrichment  = "enrichment"
	PassScoring     = "scoring"
	PassConsistency = "consistency"
	PassReciprocity = "reciprocity"
)

// Provenance records which path produced a pass's output.
type Provenance string

const (
	ProvenanceModel     Provenance = "model"
	ProvenanceHeuristic Provenance = "heuristic"
)

// Request is one analysis invocation. Messages wins over Text when non-nil.
type Request struct {
	Text           string                 `json:"transcript,omitempty"`
	Messages       []conversation.Message `json:"messages,omitempty"`
	RoleIdentifier string                 `json:"role_identifier,omitempty"`
	Format         conversation.Format    `json:"platform_hint,omitempty"`
	// ForceHeuristic skips the model for this request only.
	ForceHeuristic bool `json:"force_heuristic,omitempty"`
}

// Result is the complete analysis. It is immutable once returned.
type Result struct {
	ID               string                  `json:"id"`
	CreatedAt        time.Time               `json:"created_at"`
	Messages         []conversation.Message  `json:"messages"`
	RiskScore        int                     `json:"risk_score"`
	TrustScore       int                     `json:"trust_score"`
	EscalationIndex  int                     `json:"escalation_index"`
	Flags            []flags.Flag            `json:"flags"`
	Timeline         []scoring.TimelineEvent `json:"timeline"`
	Reciprocity      reciprocity.Metrics     `json:"reciprocity"`
	Consistency      consistency.Report      `json:"consistency"`
	SuggestedReplies []flags.SuggestedReply  `json:"suggested_replies"`
	Evidence         []evidence.Evidence     `json:"evidence"`
	Indicators       conversation.Indicators `json:"indicators"`
	Provenance       map[string]Provenance   `json:"provenance"`
}

// Outcome is either a Result or a request to name the user's sender.
type Outcome struct {
	Result              *Result  `json:"result,omitempty"`
	NeedsRoleIdentifier bool     `json:"needs_role_identifier,omitempty"`
	CandidateSenders    []string `json:"candidate_senders,omitempty"`
}

// State is an orchestrator lifecycle stage.
type State string

const (
	StateIdle                       State = "idle"
	StateNormalizing                State = "normalizing"
	StateAwaitingRoleDisambiguation State = "awaiting_role_disambiguation"
	StateRunningPasses              State = "running_passes"
	StateBinding                    State = "binding"
	StateComplete                   State = "complete"
)
