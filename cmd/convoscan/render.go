package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fyrsmithlabs/convoscan/internal/analysis"
	"github.com/fyrsmithlabs/convoscan/internal/conversation"
	"github.com/fyrsmithlabs/convoscan/internal/evidence"
	"github.com/fyrsmithlabs/convoscan/internal/flags"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("51")).Bold(true).Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	amberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	markStyle    = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("214"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

// renderResult writes a human-readable report of r.
func renderResult(w io.Writer, r *analysis.Result) {
	var b strings.Builder

	b.WriteString(headerStyle.Render("convoscan "+r.ID) + "\n")
	b.WriteString(boxStyle.Render(strings.Join([]string{
		scoreLine("Risk", r.RiskScore, riskStyle(r.RiskScore)),
		scoreLine("Trust", r.TrustScore, trustStyle(r.TrustScore)),
		scoreLine("Escalation", r.EscalationIndex, riskStyle(r.EscalationIndex)),
		scoreLine("Balance", r.Reciprocity.BalanceScore, trustStyle(r.Reciprocity.BalanceScore)),
		scoreLine("Stability", r.Consistency.StabilityIndex, trustStyle(r.Consistency.StabilityIndex)),
	}, "\n")) + "\n")

	writeFlags(&b, r.Flags)
	writeMessages(&b, r)

	if len(r.Timeline) > 1 {
		b.WriteString(sectionStyle.Render("Timeline") + "\n")
		for _, ev := range r.Timeline {
			fmt.Fprintf(&b, "  %s %s %s\n", dimStyle.Render(ev.MessageID), labelStyle.Render(string(ev.Kind)), ev.Description)
		}
	}

	if n := len(r.Consistency.Claims); n > 0 || r.Consistency.Summary != "" {
		b.WriteString(sectionStyle.Render("Consistency") + "\n")
		fmt.Fprintf(&b, "  %s\n", r.Consistency.Summary)
		for _, inc := range r.Consistency.Inconsistencies {
			fmt.Fprintf(&b, "  %s %s\n", amberStyle.Render("!"), inc.Description)
		}
	}

	if len(r.SuggestedReplies) > 0 {
		b.WriteString(sectionStyle.Render("Suggested replies") + "\n")
		for _, reply := range r.SuggestedReplies {
			fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render("["+string(reply.Tone)+"]"), reply.Content)
		}
	}

	b.WriteString(dimStyle.Render(provenanceLine(r.Provenance)) + "\n")
	fmt.Fprint(w, b.String())
}

func scoreLine(label string, v int, style lipgloss.Style) string {
	return fmt.Sprintf("%s %s%s", labelStyle.Width(11).Render(label), style.Render(fmt.Sprintf("%3d", v)), dimStyle.Render("/100"))
}

func riskStyle(v int) lipgloss.Style {
	switch {
	case v >= 70:
		return redStyle
	case v >= 40:
		return amberStyle
	default:
		return greenStyle
	}
}

func trustStyle(v int) lipgloss.Style {
	switch {
	case v >= 60:
		return greenStyle
	case v >= 30:
		return amberStyle
	default:
		return redStyle
	}
}

func writeFlags(b *strings.Builder, fs []flags.Flag) {
	if len(fs) == 0 {
		b.WriteString(sectionStyle.Render("Flags") + "\n  " + dimStyle.Render("none found") + "\n")
		return
	}
	b.WriteString(sectionStyle.Render("Flags") + "\n")
	for _, f := range fs {
		marker := redStyle.Render("▲ " + string(f.Severity))
		if f.Polarity == flags.PolarityGreen {
			marker = greenStyle.Render("● " + string(f.Severity))
		}
		fmt.Fprintf(b, "  %s %s %s\n", marker, valueStyle.Render(string(f.Category)), f.Summary)
		if f.Meaning != "" {
			fmt.Fprintf(b, "      %s\n", dimStyle.Render(f.Meaning))
		}
		if f.RecommendedAction != "" {
			fmt.Fprintf(b, "      %s %s\n", labelStyle.Render("do:"), f.RecommendedAction)
		}
	}
}

// writeMessages prints the transcript with evidence spans highlighted.
func writeMessages(b *strings.Builder, r *analysis.Result) {
	b.WriteString(sectionStyle.Render("Conversation") + "\n")
	mark := func(s string) string { return markStyle.Render(s) }
	for _, m := range r.Messages {
		who := m.Sender
		if who == "" {
			who = string(m.Role)
		}
		style := labelStyle
		if m.Role == conversation.RoleSelf {
			style = dimStyle
		}
		content := evidence.Render(m.Content, evidence.ForMessage(r.Evidence, m.ID), mark)
		fmt.Fprintf(b, "  %s %s %s\n", dimStyle.Render(m.ID), style.Render(who+":"), content)
	}
}

func provenanceLine(p map[string]analysis.Provenance) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+string(p[k]))
	}
	return "\nprovenance: " + strings.Join(parts, " ")
}
