package agent

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/yf176/Polyhedra/internal/llm"
)

// intentPattern binds one regular expression to an intent category.
// Patterns match against the trimmed, lowercased command; the first
// capturing group is the topic.
type intentPattern struct {
	intentType IntentType
	re         *regexp.Regexp
}

// Pattern order matters: categories are tried in declaration order and the
// first match wins.
var intentPatterns = []intentPattern{
	{IntentResearchSurvey, regexp.MustCompile(`research\s+papers?\s+(?:on|about)\s+(.+)`)},
	{IntentResearchSurvey, regexp.MustCompile(`find\s+(?:\d+\s+)?papers?\s+(?:on|about)\s+(.+)`)},
	{IntentResearchSurvey, regexp.MustCompile(`research\s+on\s+(.+)`)},
	{IntentResearchSurvey, regexp.MustCompile(`^(?:research|survey|review)\s+(.+)`)},
	{IntentPaperComparison, regexp.MustCompile(`compare\s+(.+)`)},
	{IntentPaperComparison, regexp.MustCompile(`difference\s+between\s+(.+)`)},
	{IntentGapAnalysis, regexp.MustCompile(`(?:find|identify|analyze)\s+(?:research\s+)?gaps?\s+in\s+(.+)`)},
	{IntentGapAnalysis, regexp.MustCompile(`^(?:research\s+)?gaps?\s+in\s+(.+)`)},
	{IntentCitationFinding, regexp.MustCompile(`citations?\s+(?:for|of)\s+(.+)`)},
	{IntentCitationFinding, regexp.MustCompile(`cite\s+(.+)`)},
}

var (
	limitRe    = regexp.MustCompile(`(\d+)\s+papers?`)
	yearFromRe = regexp.MustCompile(`(?:from|since|after)\s+(\d{4})`)
	yearToRe   = regexp.MustCompile(`(?:to|until|before)\s+(\d{4})`)
)

// IntentParser converts free-text commands into typed intents using fast
// pattern rules, with an optional LLM fallback for commands no pattern
// recognizes. Parsing never fails: unparseable input degrades to an
// unknown intent with zero confidence.
type IntentParser struct {
	provider llm.Provider // nil disables the fallback
}

// NewIntentParser creates a parser. provider may be nil.
func NewIntentParser(provider llm.Provider) *IntentParser {
	return &IntentParser{provider: provider}
}

// Parse classifies a command.
func (p *IntentParser) Parse(ctx context.Context, command string) *Intent {
	raw := command
	normalized := strings.ToLower(strings.TrimSpace(command))

	for _, pattern := range intentPatterns {
		match := pattern.re.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		return &Intent{
			Type:       pattern.intentType,
			Topic:      strings.TrimSpace(match[1]),
			Parameters: extractParameters(normalized),
			Confidence: 0.9,
			RawCommand: raw,
		}
	}

	if p.provider != nil {
		if intent := p.parseWithLLM(ctx, raw); intent != nil {
			return intent
		}
	}

	return &Intent{
		Type:       IntentUnknown,
		Topic:      "",
		Parameters: map[string]any{},
		Confidence: 0.0,
		RawCommand: raw,
	}
}

// extractParameters scans the full lowercased command independently of
// which pattern matched. Depth and structure always get a value.
func extractParameters(command string) map[string]any {
	params := map[string]any{}

	if match := limitRe.FindStringSubmatch(command); match != nil {
		if limit, err := strconv.Atoi(match[1]); err == nil {
			params["limit"] = limit
		}
	}

	switch {
	case containsAny(command, "brief", "quick", "short"):
		params["depth"] = "brief"
	case containsAny(command, "comprehensive", "detailed", "thorough"):
		params["depth"] = "comprehensive"
	default:
		params["depth"] = "standard"
	}

	switch {
	case containsAny(command, "chronological", "timeline"):
		params["structure"] = "chronological"
	case containsAny(command, "methodological", "methods"):
		params["structure"] = "methodological"
	default:
		params["structure"] = "thematic"
	}

	if match := yearFromRe.FindStringSubmatch(command); match != nil {
		if year, err := strconv.Atoi(match[1]); err == nil {
			params["year_from"] = year
		}
	}
	if match := yearToRe.FindStringSubmatch(command); match != nil {
		if year, err := strconv.Atoi(match[1]); err == nil {
			params["year_to"] = year
		}
	}

	return params
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

const llmIntentSystem = `You classify academic research commands. Respond with JSON only:
{"type": "research_survey|paper_comparison|gap_analysis|citation_finding", "topic": "...", "parameters": {"limit": int, "depth": "brief|standard|comprehensive", "structure": "thematic|chronological|methodological"}}`

// llmIntent is the structured response expected from the fallback.
type llmIntent struct {
	Type       string         `json:"type"`
	Topic      string         `json:"topic"`
	Parameters map[string]any `json:"parameters"`
}

var knownIntentTypes = map[IntentType]bool{
	IntentResearchSurvey:  true,
	IntentPaperComparison: true,
	IntentGapAnalysis:     true,
	IntentCitationFinding: true,
}

// parseWithLLM asks the provider to extract the intent as structured data.
// Any failure returns nil so the caller degrades to unknown.
func (p *IntentParser) parseWithLLM(ctx context.Context, command string) *Intent {
	completion, err := p.provider.Complete(ctx, llmIntentSystem, "Command: "+command)
	if err != nil {
		log.Printf("[intent] llm fallback failed: %v", err)
		return nil
	}

	text := strings.TrimSpace(completion.Text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var parsed llmIntent
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		log.Printf("[intent] llm fallback returned malformed JSON: %v", err)
		return nil
	}

	intentType := IntentType(parsed.Type)
	if !knownIntentTypes[intentType] || parsed.Topic == "" {
		log.Printf("[intent] llm fallback returned unusable intent type %q", parsed.Type)
		return nil
	}

	params := parsed.Parameters
	if params == nil {
		params = map[string]any{}
	}
	if _, ok := params["depth"]; !ok {
		params["depth"] = "standard"
	}
	if _, ok := params["structure"]; !ok {
		params["structure"] = "thematic"
	}

	return &Intent{
		Type:       intentType,
		Topic:      parsed.Topic,
		Parameters: params,
		Confidence: 0.8,
		RawCommand: command,
	}
}
