package review

import (
	"encoding/json"
	"fmt"
	"strings"
)

type paperSummary struct {
	Index     int      `json:"index"`
	Title     string   `json:"title"`
	Authors   string   `json:"authors"`
	Year      any      `json:"year"`
	Venue     string   `json:"venue"`
	Abstract  string   `json:"abstract"`
	Citations any      `json:"citations"`
	Fields    []string `json:"fields"`
}

func summarizePapers(papers []map[string]any) string {
	summaries := make([]paperSummary, 0, len(papers))
	for i, paper := range papers {
		summaries = append(summaries, paperSummary{
			Index:     i + 1,
			Title:     stringOr(paper, "title", "Unknown"),
			Authors:   formatAuthors(authorsOf(paper)),
			Year:      paper["year"],
			Venue:     stringOr(paper, "venue", "Unknown venue"),
			Abstract:  stringOr(paper, "abstract", "No abstract available"),
			Citations: paper["citation_count"],
			Fields:    stringsOf(paper, "fields_of_study"),
		})
	}
	data, _ := json.MarshalIndent(summaries, "", "  ")
	return string(data)
}

func buildPrompt(papers []map[string]any, opts Options) string {
	cfg := depthConfigs[opts.Depth]
	target := cfg.Target

	topic := opts.Focus
	if topic == "" {
		topic = "the research area covered by these papers"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `You are an expert academic researcher tasked with writing a structured literature review.

INPUT:
%d academic papers on the topic: %q

PAPERS DATA:
%s

TASK:
Write a comprehensive literature review with approximately %d words using the following structure:

1. **Overview** (1-2 paragraphs, ~150 words)
   - Summarize the research area and its significance
   - State the scope of this review
   - Preview the main findings and themes

2. **Taxonomy of Approaches** (main section, ~%d words)
   - Organize papers into 3-5 thematic categories based on their methodology or focus
   - For each category:
     * Define the approach clearly
     * Discuss 3-5 key papers with proper citations [Author et al., Year]
     * Compare and contrast methods within the category
     * Note trends and recent developments

3. **Critical Analysis** (~%d words)
   - Analyze strengths and limitations of different approaches
   - Identify patterns across categories
   - Discuss trade-offs between different methods
   - Highlight breakthrough innovations or paradigm shifts

`, len(papers), topic, summarizePapers(papers), target, target/2, target/4)

	conclusionNumber := 4
	if opts.IncludeGaps {
		conclusionNumber = 5
		fmt.Fprintf(&sb, `4. **Research Gaps** (~%d words)
   - Identify 3-5 underexplored areas or open problems
   - For each gap:
     * Clearly state the gap
     * Explain why it matters
     * Suggest potential research directions

`, target*15/100)
	}

	fmt.Fprintf(&sb, `%d. **Conclusion** (1 paragraph, ~100 words)
   - Synthesize key insights
   - State the current state of the field
   - Provide forward-looking perspective

CITATION FORMAT:
- Use format: [Author et al., Year] for in-text citations
- Example: "Vision Transformers [Dosovitskiy et al., 2021] introduced..."
- Cite papers by referring to their authors and year from the PAPERS DATA above
- Aim to cite at least 80%% of the provided papers

STRUCTURE: %s
%s

QUALITY REQUIREMENTS:
- Academic tone and formal language
- Balanced coverage across papers
- Critical thinking and synthesis (not just summarization)
- Proper attribution for all claims
- Coherent narrative flow between sections
- No hallucinated papers or citations

Generate the literature review now:`, conclusionNumber, capitalize(opts.Structure), structureHint(opts.Structure))

	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func structureHint(structure string) string {
	switch structure {
	case "thematic":
		return "- Organize by themes and methodologies"
	case "chronological":
		return "- Organize by publication timeline and evolution"
	case "methodological":
		return "- Organize by research methods and techniques"
	default:
		return ""
	}
}

func stringOr(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func stringsOf(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func authorsOf(paper map[string]any) []string {
	return stringsOf(paper, "authors")
}
