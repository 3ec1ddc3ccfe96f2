package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fyrsmithlabs/convoscan/internal/analysis"
	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	convohttp "github.com/fyrsmithlabs/convoscan/internal/http"
	"github.com/spf13/cobra"
)

var (
	roleIdentifier string
	platformHint   string
	forceHeuristic bool
	outputFormat   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a conversation from a file or stdin",
	Long: `Analyze a conversation for red and green flags.

Examples:
  # Analyze a pasted conversation
  pbpaste | convoscan analyze

  # Analyze a chat export, naming which sender is you
  convoscan analyze --as "Alex" chat.txt

  # Deterministic heuristics only, JSON output
  convoscan analyze --heuristic --output json chat.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&roleIdentifier, "as", "", "sender name that is you (required when a chat export has several senders)")
	analyzeCmd.Flags().StringVar(&platformHint, "format", "", "transcript format: generic or dated-log (detected when empty)")
	analyzeCmd.Flags().BoolVar(&forceHeuristic, "heuristic", false, "skip the model and run only heuristics")
	analyzeCmd.Flags().StringVarP(&outputFormat, "output", "o", "pretty", "output format: pretty or json")
}

// remoteOutcome decodes either response shape of POST /api/v1/analyze.
type remoteOutcome struct {
	analysis.Result
	NeedsRoleIdentifier bool     `json:"needs_role_identifier"`
	CandidateSenders    []string `json:"candidate_senders"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if outputFormat != "pretty" && outputFormat != "json" {
		return fmt.Errorf("unknown output format %q (must be pretty or json)", outputFormat)
	}
	format, err := conversation.ParseFormat(platformHint)
	if err != nil {
		return err
	}

	var out *analysis.Outcome
	if serverURL != "" {
		out, err = analyzeRemote(cmd.Context(), text, format)
	} else {
		out, err = analyzeLocal(cmd.Context(), text, format)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if out.NeedsRoleIdentifier {
		return fmt.Errorf("several senders found (%s); rerun with --as set to the one that is you",
			strings.Join(out.CandidateSenders, ", "))
	}
	if outputFormat == "json" {
		return writeJSON(w, out.Result)
	}
	renderResult(w, out.Result)
	return nil
}

func analyzeLocal(ctx context.Context, text string, format conversation.Format) (*analysis.Outcome, error) {
	a, err := loadApp(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = a.Close(context.Background())
	}()

	return a.Orchestrator.Analyze(ctx, analysis.Request{
		Text:           text,
		RoleIdentifier: roleIdentifier,
		Format:         format,
		ForceHeuristic: forceHeuristic,
	})
}

func analyzeRemote(ctx context.Context, text string, format conversation.Format) (*analysis.Outcome, error) {
	var resp remoteOutcome
	err := newRemote(serverURL, 3*time.Minute).do(ctx, "/api/v1/analyze", convohttp.AnalyzeRequest{
		Transcript:     text,
		RoleIdentifier: roleIdentifier,
		PlatformHint:   string(format),
		ForceHeuristic: forceHeuristic,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.NeedsRoleIdentifier {
		return &analysis.Outcome{NeedsRoleIdentifier: true, CandidateSenders: resp.CandidateSenders}, nil
	}
	return &analysis.Outcome{Result: &resp.Result}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
