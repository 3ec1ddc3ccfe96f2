package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/analysis"
	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/flags"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	toolAnalyze = "analyze_conversation"
	toolSenders = "list_senders"
)

type analyzeInput struct {
	Transcript     string `json:"transcript" jsonschema:"Raw conversation text, free-form or a dated chat export"`
	RoleIdentifier string `json:"role_identifier,omitempty" jsonschema:"Sender name that belongs to the user"`
	PlatformHint   string `json:"platform_hint,omitempty" jsonschema:"generic or dated-log; detected when empty"`
	ForceHeuristic bool   `json:"force_heuristic,omitempty" jsonschema:"Skip the model and run only deterministic heuristics"`
}

type sendersInput struct {
	Transcript string `json:"transcript" jsonschema:"Dated chat export to list senders from"`
}

type sendersOutput struct {
	Senders []string `json:"senders" jsonschema:"Distinct senders in first-appearance order"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolAnalyze,
		Description: "Analyze a conversation for manipulation, scam, and safety red flags and for healthy green flags",
	}, s.handleAnalyze)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolSenders,
		Description: "List the senders in a dated chat export so the user can say which one is them",
	}, s.handleSenders)
}

// handleAnalyze returns the full analysis as structured content and a short
// text summary. The structured output is untyped because an outcome is either
// a result or a request for a role identifier.
func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, args analyzeInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, toolAnalyze)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, toolAnalyze)
		s.metrics.RecordInvocation(ctx, toolAnalyze, time.Since(start), toolErr)
	}()

	if strings.TrimSpace(args.Transcript) == "" {
		toolErr = fmt.Errorf("invalid input: transcript is required")
		return nil, nil, toolErr
	}
	format, err := conversation.ParseFormat(args.PlatformHint)
	if err != nil {
		toolErr = fmt.Errorf("invalid input: %w", err)
		return nil, nil, toolErr
	}

	out, err := s.analyzer.Analyze(ctx, analysis.Request{
		Text:           args.Transcript,
		RoleIdentifier: args.RoleIdentifier,
		Format:         format,
		ForceHeuristic: args.ForceHeuristic,
	})
	if err != nil {
		if analysis.IsInputError(err) {
			toolErr = fmt.Errorf("invalid input: %w", err)
		} else {
			s.logger.Error(ctx, "analysis failed", zap.Error(err))
			toolErr = fmt.Errorf("analysis failed")
		}
		return nil, nil, toolErr
	}

	if out.NeedsRoleIdentifier {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf(
					"Several senders found (%s). Call again with role_identifier set to the user's sender.",
					strings.Join(out.CandidateSenders, ", "))},
			},
		}, out, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summarize(out.Result)},
		},
	}, out.Result, nil
}

func (s *Server) handleSenders(ctx context.Context, _ *mcp.CallToolRequest, args sendersInput) (*mcp.CallToolResult, sendersOutput, error) {
	start := time.Now()
	s.metrics.IncrementActive(ctx, toolSenders)
	var toolErr error
	defer func() {
		s.metrics.DecrementActive(ctx, toolSenders)
		s.metrics.RecordInvocation(ctx, toolSenders, time.Since(start), toolErr)
	}()

	names, err := s.analyzer.SenderNames(args.Transcript)
	if err != nil {
		toolErr = fmt.Errorf("invalid input: %w", err)
		return nil, sendersOutput{}, toolErr
	}
	if names == nil {
		names = []string{}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Found %d senders", len(names))},
		},
	}, sendersOutput{Senders: names}, nil
}

// summarize renders the headline numbers and flag counts.
func summarize(r *analysis.Result) string {
	var red, green int
	for _, f := range r.Flags {
		if f.Polarity == flags.PolarityGreen {
			green++
		} else {
			red++
		}
	}
	return fmt.Sprintf("Risk %d/100, trust %d/100, escalation %d/100. %d red flags, %d green flags across %d messages.",
		r.RiskScore, r.TrustScore, r.EscalationIndex, red, green, len(r.Messages))
}
