package agent

import (
	"fmt"
	"time"
)

// IntentType classifies a research command.
type IntentType string

const (
	IntentResearchSurvey  IntentType = "research_survey"
	IntentPaperComparison IntentType = "paper_comparison"
	IntentGapAnalysis     IntentType = "gap_analysis"
	IntentCitationFinding IntentType = "citation_finding"
	IntentUnknown         IntentType = "unknown"
)

// Intent is the structured interpretation of a free-text research command.
// RawCommand always preserves the original text for audit.
type Intent struct {
	Type       IntentType     `json:"type"`
	Topic      string         `json:"topic"`
	Parameters map[string]any `json:"parameters"`
	Confidence float64        `json:"confidence"`
	RawCommand string         `json:"raw_command"`
}

// WorkflowStep is one planned tool invocation. Argument values may be
// literals or reference expressions like "${search_papers.count}".
type WorkflowStep struct {
	Name        string         `json:"name"`
	Tool        string         `json:"tool"`
	Arguments   map[string]any `json:"arguments"`
	Critical    bool           `json:"critical"`
	Timeout     float64        `json:"timeout"` // seconds
	RetryCount  int            `json:"retry_count"`
	Description string         `json:"description,omitempty"`
}

// Workflow is an ordered, named plan of tool invocations derived from an
// intent.
type Workflow struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Steps       []WorkflowStep `json:"steps"`
	Metadata    map[string]any `json:"metadata"`
}

// Validate checks workflow shape before execution: non-empty name, at least
// one step, unique step names.
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workflow name cannot be empty")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow %q has no steps", w.Name)
	}
	seen := make(map[string]bool, len(w.Steps))
	for _, step := range w.Steps {
		if step.Name == "" {
			return fmt.Errorf("workflow %q has a step with no name", w.Name)
		}
		if seen[step.Name] {
			return fmt.Errorf("workflow %q has duplicate step name %q", w.Name, step.Name)
		}
		seen[step.Name] = true
	}
	return nil
}

// WorkflowResult is the terminal outcome of a command or workflow run.
// Errors may be non-empty even on success when non-critical steps failed.
type WorkflowResult struct {
	Success        bool                      `json:"success"`
	Results        map[string]map[string]any `json:"results"`
	Errors         []string                  `json:"errors"`
	Message        string                    `json:"message"`
	ElapsedSeconds float64                   `json:"elapsed_seconds,omitempty"`
}

// WorkflowStatus is the lifecycle state of a persisted workflow.
type WorkflowStatus string

const (
	StatusRunning   WorkflowStatus = "running"
	StatusPaused    WorkflowStatus = "paused"
	StatusCompleted WorkflowStatus = "completed"
	StatusFailed    WorkflowStatus = "failed"
)

// IsTerminal reports whether the status is eligible for retention cleanup.
func (s WorkflowStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// WorkflowState is the durable snapshot of an in-flight execution, owned by
// the StateManager. The agent only holds a transient copy during a run.
type WorkflowState struct {
	WorkflowID     string                    `json:"workflow_id"`
	Intent         *Intent                   `json:"intent"`
	Workflow       *Workflow                 `json:"workflow"`
	CompletedSteps []string                  `json:"completed_steps"`
	StepResults    map[string]map[string]any `json:"step_results"`
	CurrentStep    string                    `json:"current_step,omitempty"`
	Status         WorkflowStatus            `json:"status"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
	ErrorCount     int                       `json:"error_count"`
	LastError      string                    `json:"last_error,omitempty"`
}
