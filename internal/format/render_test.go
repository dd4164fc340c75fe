package format

import (
	"strings"
	"testing"
	"time"

	"github.com/yf176/Polyhedra/internal/agent"
)

func TestWorkflowResultSummary(t *testing.T) {
	result := &agent.WorkflowResult{
		Success: true,
		Message: "Workflow 'research_survey_x' completed successfully",
		Results: map[string]map[string]any{
			"search_papers": {"success": true},
			"save_papers":   {"success": false, "error": "disk full"},
		},
		Errors:         []string{"Step 'save_papers' failed: disk full"},
		ElapsedSeconds: 2.5,
	}

	out := WorkflowResult(result)
	for _, want := range []string{"completed successfully", "elapsed: 2.5s", "search_papers", "save_papers", "disk full"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestWorkflowResultFailure(t *testing.T) {
	out := WorkflowResult(&agent.WorkflowResult{
		Success: false,
		Message: "Workflow failed at critical step: search_papers",
		Results: map[string]map[string]any{},
	})
	if !strings.Contains(out, "✗") || !strings.Contains(out, "failed at critical step") {
		t.Errorf("unexpected failure summary:\n%s", out)
	}
}

func TestWorkflowTable(t *testing.T) {
	states := []*agent.WorkflowState{
		{WorkflowID: "abc-123", Status: agent.StatusPaused, CurrentStep: "generate_review", UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
		{WorkflowID: "def-456", Status: agent.StatusCompleted, UpdatedAt: time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)},
	}

	out := WorkflowTable(states)
	for _, want := range []string{"abc-123", "paused", "generate_review", "def-456", "completed", "2026-08-01 12:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWorkflowTableEmpty(t *testing.T) {
	if out := WorkflowTable(nil); !strings.Contains(out, "no workflows") {
		t.Errorf("empty table = %q", out)
	}
}

func TestMarkdownPassthrough(t *testing.T) {
	// Tests run without a tty, so the raw text comes back unchanged.
	text := "# Title\n\nbody\n"
	if out := Markdown(text); out != text {
		t.Errorf("Markdown() = %q, want passthrough", out)
	}
}
