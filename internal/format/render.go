// Package format renders CLI output: markdown through glamour, run
// summaries and workflow tables through lipgloss.
package format

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/yf176/Polyhedra/internal/agent"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// Markdown renders markdown for a terminal. Piped output and render
// failures fall back to the raw text.
func Markdown(text string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return text
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}

// WorkflowResult renders the outcome of a command run as a short summary:
// status line, elapsed time, per-step status and any errors.
func WorkflowResult(result *agent.WorkflowResult) string {
	var sb strings.Builder

	if result.Success {
		sb.WriteString(successStyle.Render("✓ " + result.Message))
	} else {
		sb.WriteString(failureStyle.Render("✗ " + result.Message))
	}
	sb.WriteString("\n")

	if result.ElapsedSeconds > 0 {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  elapsed: %.1fs", result.ElapsedSeconds)))
		sb.WriteString("\n")
	}

	for _, name := range stepOrder(result.Results) {
		stepResult := result.Results[name]
		mark := successStyle.Render("ok")
		if ok, _ := stepResult["success"].(bool); !ok {
			mark = failureStyle.Render("failed")
		}
		sb.WriteString(fmt.Sprintf("  %-24s %s\n", name, mark))
	}

	for _, msg := range result.Errors {
		sb.WriteString(warnStyle.Render("  ! " + msg))
		sb.WriteString("\n")
	}
	return sb.String()
}

// WorkflowTable renders persisted workflow states as an aligned table.
func WorkflowTable(states []*agent.WorkflowState) string {
	if len(states) == 0 {
		return labelStyle.Render("no workflows") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-38s %-11s %-20s %s", "ID", "STATUS", "CURRENT STEP", "UPDATED")))
	sb.WriteString("\n")

	for _, state := range states {
		step := state.CurrentStep
		if step == "" {
			step = "-"
		}
		sb.WriteString(fmt.Sprintf("%-38s %-11s %-20s %s\n",
			state.WorkflowID,
			statusBadge(state.Status),
			step,
			state.UpdatedAt.Format("2006-01-02 15:04"),
		))
	}
	return sb.String()
}

func statusBadge(status agent.WorkflowStatus) string {
	switch status {
	case agent.StatusCompleted:
		return successStyle.Render(string(status))
	case agent.StatusFailed:
		return failureStyle.Render(string(status))
	case agent.StatusPaused:
		return warnStyle.Render(string(status))
	default:
		return string(status)
	}
}

// stepOrder returns step names sorted for stable output; execution order is
// not recoverable from the results map alone.
func stepOrder(results map[string]map[string]any) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
