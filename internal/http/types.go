package http

import "github.com/fyrsmithlabs/convoscan/internal/conversation"

// AnalyzeRequest is the request body for POST /api/v1/analyze.
// Exactly one of Transcript or Messages is required.
type AnalyzeRequest struct {
	Transcript     string                 `json:"transcript,omitempty"`
	Messages       []conversation.Message `json:"messages,omitempty"`
	RoleIdentifier string                 `json:"role_identifier,omitempty"`
	PlatformHint   string                 `json:"platform_hint,omitempty"`
	ForceHeuristic bool                   `json:"force_heuristic,omitempty"`
}

// AmbiguityResponse asks the caller to resend with a role identifier.
type AmbiguityResponse struct {
	NeedsRoleIdentifier bool     `json:"needs_role_identifier"`
	CandidateSenders    []string `json:"candidate_senders"`
}

// SendersRequest is the request body for POST /api/v1/senders.
type SendersRequest struct {
	Transcript string `json:"transcript"`
}

// SendersResponse lists distinct dated-log senders.
type SendersResponse struct {
	Senders []string `json:"senders"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
