package agent

import (
	"fmt"
	"regexp"
	"strings"
)

// WorkflowGenerator builds executable workflows from parsed intents. Each
// intent category maps to a fixed step template; intent parameters fill in
// the arguments.
type WorkflowGenerator struct{}

// NewWorkflowGenerator creates a generator.
func NewWorkflowGenerator() *WorkflowGenerator {
	return &WorkflowGenerator{}
}

// Generate produces the workflow for an intent. Unknown intents are an
// error: there is no meaningful default plan.
func (g *WorkflowGenerator) Generate(intent *Intent) (*Workflow, error) {
	switch intent.Type {
	case IntentResearchSurvey:
		return g.researchSurvey(intent), nil
	case IntentPaperComparison:
		return g.paperComparison(intent), nil
	case IntentGapAnalysis:
		return g.gapAnalysis(intent), nil
	case IntentCitationFinding:
		return g.citationFinding(intent), nil
	default:
		return nil, fmt.Errorf("cannot generate workflow for intent type: %s", intent.Type)
	}
}

func (g *WorkflowGenerator) researchSurvey(intent *Intent) *Workflow {
	limit := intParam(intent.Parameters, "limit", 50)
	depth := stringParam(intent.Parameters, "depth", "standard")
	structure := stringParam(intent.Parameters, "structure", "thematic")
	yearRange := formatYearRange(intent.Parameters)

	searchArgs := map[string]any{
		"query": intent.Topic,
		"limit": limit,
	}
	if yearRange != "" {
		searchArgs["year_range"] = yearRange
	}

	steps := []WorkflowStep{
		{
			Name:        "search_papers",
			Tool:        "search_papers",
			Arguments:   searchArgs,
			Critical:    true,
			Timeout:     60.0,
			Description: fmt.Sprintf("Search for %d papers on %s", limit, intent.Topic),
		},
		{
			Name: "save_papers",
			Tool: "save_file",
			Arguments: map[string]any{
				"path":    "literature/papers.json",
				"content": "${search_papers.papers}",
			},
			Critical:    true,
			Timeout:     10.0,
			Description: "Save papers to literature/papers.json",
		},
		{
			Name: "estimate_cost",
			Tool: "estimate_review_cost",
			Arguments: map[string]any{
				"paper_count": "${search_papers.count}",
				"depth":       depth,
			},
			Critical:    false,
			Timeout:     5.0,
			Description: "Estimate literature review cost",
		},
		{
			Name: "generate_review",
			Tool: "generate_literature_review",
			Arguments: map[string]any{
				"papers_file":  "literature/papers.json",
				"depth":        depth,
				"structure":    structure,
				"focus":        intent.Topic,
				"include_gaps": true,
			},
			Critical:    true,
			Timeout:     300.0,
			RetryCount:  1,
			Description: fmt.Sprintf("Generate %s literature review", depth),
		},
		{
			Name: "save_review",
			Tool: "save_file",
			Arguments: map[string]any{
				"path":    fmt.Sprintf("literature-review/%s.md", pathSafe(intent.Topic)),
				"content": "${generate_review.review}",
			},
			Critical:    true,
			Timeout:     10.0,
			Description: "Save literature review to file",
		},
	}

	return &Workflow{
		Name:        "research_survey_" + intent.Topic,
		Description: "Research survey workflow for: " + intent.Topic,
		Steps:       steps,
		Metadata: map[string]any{
			"intent_type": string(intent.Type),
			"topic":       intent.Topic,
			"parameters":  intent.Parameters,
		},
	}
}

func (g *WorkflowGenerator) paperComparison(intent *Intent) *Workflow {
	steps := []WorkflowStep{
		{
			Name: "search_papers",
			Tool: "search_papers",
			Arguments: map[string]any{
				"query": intent.Topic,
				"limit": 20,
			},
			Critical:    true,
			Timeout:     60.0,
			Description: "Search papers for comparison: " + intent.Topic,
		},
		{
			Name: "generate_comparison",
			Tool: "generate_literature_review",
			Arguments: map[string]any{
				"papers_file":  "literature/papers.json",
				"depth":        "standard",
				"structure":    "methodological",
				"focus":        intent.Topic,
				"include_gaps": false,
			},
			Critical:    true,
			Timeout:     300.0,
			Description: "Generate comparison analysis",
		},
	}

	return &Workflow{
		Name:        "paper_comparison_" + intent.Topic,
		Description: "Paper comparison workflow for: " + intent.Topic,
		Steps:       steps,
		Metadata: map[string]any{
			"intent_type": string(intent.Type),
			"topic":       intent.Topic,
		},
	}
}

func (g *WorkflowGenerator) gapAnalysis(intent *Intent) *Workflow {
	limit := intParam(intent.Parameters, "limit", 50)

	steps := []WorkflowStep{
		{
			Name: "search_papers",
			Tool: "search_papers",
			Arguments: map[string]any{
				"query": intent.Topic,
				"limit": limit,
			},
			Critical:    true,
			Timeout:     60.0,
			Description: fmt.Sprintf("Search %d papers on %s", limit, intent.Topic),
		},
		{
			Name: "analyze_gaps",
			Tool: "generate_literature_review",
			Arguments: map[string]any{
				"papers_file":  "literature/papers.json",
				"depth":        "comprehensive",
				"structure":    "thematic",
				"focus":        intent.Topic,
				"include_gaps": true,
			},
			Critical:    true,
			Timeout:     300.0,
			Description: "Analyze research gaps",
		},
	}

	return &Workflow{
		Name:        "gap_analysis_" + intent.Topic,
		Description: "Gap analysis workflow for: " + intent.Topic,
		Steps:       steps,
		Metadata: map[string]any{
			"intent_type": string(intent.Type),
			"topic":       intent.Topic,
			"parameters":  intent.Parameters,
		},
	}
}

func (g *WorkflowGenerator) citationFinding(intent *Intent) *Workflow {
	steps := []WorkflowStep{
		{
			Name: "search_papers",
			Tool: "search_papers",
			Arguments: map[string]any{
				"query": intent.Topic,
				"limit": 10,
			},
			Critical:    true,
			Timeout:     60.0,
			Description: "Find papers matching: " + intent.Topic,
		},
		{
			Name: "add_citations",
			Tool: "add_citation",
			Arguments: map[string]any{
				"papers": "${search_papers.papers}",
			},
			Critical:    true,
			Timeout:     30.0,
			Description: "Add citations to references.bib",
		},
	}

	return &Workflow{
		Name:        "citation_finding_" + intent.Topic,
		Description: "Citation finding workflow for: " + intent.Topic,
		Steps:       steps,
		Metadata: map[string]any{
			"intent_type": string(intent.Type),
			"topic":       intent.Topic,
		},
	}
}

var unsafePathChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// pathSafe turns a topic into a filename-safe slug. Topics can contain
// slashes or other separators that would escape the target directory.
func pathSafe(topic string) string {
	slug := unsafePathChars.ReplaceAllString(strings.ToLower(topic), "-")
	return strings.Trim(slug, "-.")
}

// formatYearRange renders year constraints as "from-to", "from-" or "-to".
func formatYearRange(params map[string]any) string {
	from, hasFrom := numericParam(params, "year_from")
	to, hasTo := numericParam(params, "year_to")
	switch {
	case hasFrom && hasTo:
		return fmt.Sprintf("%d-%d", from, to)
	case hasFrom:
		return fmt.Sprintf("%d-", from)
	case hasTo:
		return fmt.Sprintf("-%d", to)
	default:
		return ""
	}
}

// Parameter maps cross a JSON boundary when workflows are restored from
// disk, so numbers may arrive as float64.
func numericParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func intParam(params map[string]any, key string, fallback int) int {
	if v, ok := numericParam(params, key); ok {
		return v
	}
	return fallback
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
