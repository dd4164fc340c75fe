package agent

import (
	"strings"
	"testing"
)

func surveyIntent(topic string, params map[string]any) *Intent {
	if params == nil {
		params = map[string]any{}
	}
	return &Intent{
		Type:       IntentResearchSurvey,
		Topic:      topic,
		Parameters: params,
		Confidence: 0.9,
		RawCommand: "research " + topic,
	}
}

func TestGenerateResearchSurveyWorkflow(t *testing.T) {
	generator := NewWorkflowGenerator()

	workflow, err := generator.Generate(surveyIntent("transformers", map[string]any{
		"limit": 50, "depth": "standard", "structure": "thematic",
	}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if workflow.Name != "research_survey_transformers" {
		t.Errorf("name = %q", workflow.Name)
	}
	if !strings.Contains(workflow.Description, "transformers") {
		t.Errorf("description = %q, want topic mentioned", workflow.Description)
	}
	wantSteps := []string{"search_papers", "save_papers", "estimate_cost", "generate_review", "save_review"}
	if len(workflow.Steps) != len(wantSteps) {
		t.Fatalf("steps = %d, want %d", len(workflow.Steps), len(wantSteps))
	}
	for i, name := range wantSteps {
		if workflow.Steps[i].Name != name {
			t.Errorf("step[%d] = %q, want %q", i, workflow.Steps[i].Name, name)
		}
	}
	if err := workflow.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGenerateResearchSurveyYearRange(t *testing.T) {
	generator := NewWorkflowGenerator()

	cases := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"both", map[string]any{"year_from": 2020, "year_to": 2023}, "2020-2023"},
		{"from only", map[string]any{"year_from": 2020}, "2020-"},
		{"to only", map[string]any{"year_to": 2023}, "-2023"},
		{"float64 from json", map[string]any{"year_from": float64(2020), "year_to": float64(2023)}, "2020-2023"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			workflow, err := generator.Generate(surveyIntent("vision transformers", tc.params))
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got := workflow.Steps[0].Arguments["year_range"]; got != tc.want {
				t.Errorf("year_range = %v, want %q", got, tc.want)
			}
		})
	}

	workflow, err := generator.Generate(surveyIntent("transformers", nil))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := workflow.Steps[0].Arguments["year_range"]; ok {
		t.Error("year_range present without year parameters")
	}
}

func TestGeneratePaperComparisonWorkflow(t *testing.T) {
	generator := NewWorkflowGenerator()

	workflow, err := generator.Generate(&Intent{
		Type:       IntentPaperComparison,
		Topic:      "bert vs gpt",
		Parameters: map[string]any{},
		Confidence: 0.9,
		RawCommand: "compare BERT vs GPT",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if workflow.Name != "paper_comparison_bert vs gpt" {
		t.Errorf("name = %q", workflow.Name)
	}
	if len(workflow.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(workflow.Steps))
	}
	comparison := workflow.Steps[1]
	if got := comparison.Arguments["structure"]; got != "methodological" {
		t.Errorf("structure = %v, want methodological", got)
	}
	if got := comparison.Arguments["include_gaps"]; got != false {
		t.Errorf("include_gaps = %v, want false", got)
	}
}

func TestGenerateGapAnalysisWorkflow(t *testing.T) {
	generator := NewWorkflowGenerator()

	workflow, err := generator.Generate(&Intent{
		Type:       IntentGapAnalysis,
		Topic:      "multimodal learning",
		Parameters: map[string]any{"limit": 50},
		Confidence: 0.9,
		RawCommand: "find gaps in multimodal learning",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if workflow.Name != "gap_analysis_multimodal learning" {
		t.Errorf("name = %q", workflow.Name)
	}
	if len(workflow.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(workflow.Steps))
	}
	analysis := workflow.Steps[1]
	if got := analysis.Arguments["depth"]; got != "comprehensive" {
		t.Errorf("depth = %v, want comprehensive", got)
	}
	if got := analysis.Arguments["include_gaps"]; got != true {
		t.Errorf("include_gaps = %v, want true", got)
	}
}

func TestGenerateCitationFindingWorkflow(t *testing.T) {
	generator := NewWorkflowGenerator()

	workflow, err := generator.Generate(&Intent{
		Type:       IntentCitationFinding,
		Topic:      "attention is all you need",
		Parameters: map[string]any{},
		Confidence: 0.9,
		RawCommand: "find citations for attention is all you need",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if workflow.Name != "citation_finding_attention is all you need" {
		t.Errorf("name = %q", workflow.Name)
	}
	if len(workflow.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(workflow.Steps))
	}
	if workflow.Steps[0].Name != "search_papers" || workflow.Steps[1].Name != "add_citations" {
		t.Errorf("step names = %q, %q", workflow.Steps[0].Name, workflow.Steps[1].Name)
	}
}

func TestGenerateUnknownIntentFails(t *testing.T) {
	generator := NewWorkflowGenerator()

	_, err := generator.Generate(&Intent{
		Type:       IntentUnknown,
		Parameters: map[string]any{},
		RawCommand: "unknown command",
	})
	if err == nil {
		t.Fatal("expected error for unknown intent")
	}
	if !strings.Contains(err.Error(), "cannot generate workflow") {
		t.Errorf("error = %v", err)
	}
}

func TestWorkflowMetadataIncludesIntent(t *testing.T) {
	generator := NewWorkflowGenerator()

	workflow, err := generator.Generate(surveyIntent("transformers", map[string]any{"depth": "brief"}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got := workflow.Metadata["intent_type"]; got != string(IntentResearchSurvey) {
		t.Errorf("intent_type = %v", got)
	}
	if got := workflow.Metadata["topic"]; got != "transformers" {
		t.Errorf("topic = %v", got)
	}
	params, ok := workflow.Metadata["parameters"].(map[string]any)
	if !ok || params["depth"] != "brief" {
		t.Errorf("parameters = %v", workflow.Metadata["parameters"])
	}
}

func TestResearchSurveyStepTimeouts(t *testing.T) {
	generator := NewWorkflowGenerator()

	workflow, err := generator.Generate(surveyIntent("test", nil))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if workflow.Steps[0].Timeout != 60.0 {
		t.Errorf("search timeout = %v, want 60", workflow.Steps[0].Timeout)
	}
	if workflow.Steps[3].Timeout != 300.0 {
		t.Errorf("review timeout = %v, want 300", workflow.Steps[3].Timeout)
	}
}

func TestResearchSurveyCriticalFlags(t *testing.T) {
	generator := NewWorkflowGenerator()

	workflow, err := generator.Generate(surveyIntent("test", nil))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	wantCritical := []bool{true, true, false, true, true}
	for i, want := range wantCritical {
		if workflow.Steps[i].Critical != want {
			t.Errorf("step %s critical = %v, want %v", workflow.Steps[i].Name, workflow.Steps[i].Critical, want)
		}
	}
}

func TestResearchSurveyReferenceExpressions(t *testing.T) {
	generator := NewWorkflowGenerator()

	workflow, err := generator.Generate(surveyIntent("test", nil))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	save := workflow.Steps[1]
	if content, _ := save.Arguments["content"].(string); !strings.Contains(content, "${search_papers.papers}") {
		t.Errorf("save_papers content = %v", save.Arguments["content"])
	}
	estimate := workflow.Steps[2]
	if count, _ := estimate.Arguments["paper_count"].(string); !strings.Contains(count, "${search_papers.count}") {
		t.Errorf("estimate paper_count = %v", estimate.Arguments["paper_count"])
	}
}

func TestSaveReviewPathSanitizesTopic(t *testing.T) {
	generator := NewWorkflowGenerator()

	workflow, err := generator.Generate(surveyIntent("vision transformers", nil))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	save := workflow.Steps[4]
	if got := save.Arguments["path"]; got != "literature-review/vision-transformers.md" {
		t.Errorf("path = %v", got)
	}

	// Separators in the topic must not escape the target directory.
	workflow, err = generator.Generate(surveyIntent("tcp/ip security", nil))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := workflow.Steps[4].Arguments["path"]; got != "literature-review/tcp-ip-security.md" {
		t.Errorf("path = %v", got)
	}
}
