package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/yf176/Polyhedra/internal/llm"
)

type stubProvider struct {
	text  string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, system, prompt string) (*llm.Completion, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{Text: s.text}, nil
}

func (s *stubProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func TestParseResearchSurvey(t *testing.T) {
	parser := NewIntentParser(nil)

	cases := []struct {
		command string
		topic   string
	}{
		{"research transformers", "transformers"},
		{"research papers on attention mechanisms", "attention mechanisms"},
		{"find papers on vision transformers", "vision transformers"},
		{"detailed research on transformers", "transformers"},
	}
	for _, tc := range cases {
		intent := parser.Parse(context.Background(), tc.command)
		if intent.Type != IntentResearchSurvey {
			t.Errorf("Parse(%q) type = %s, want research_survey", tc.command, intent.Type)
		}
		if intent.Topic != tc.topic {
			t.Errorf("Parse(%q) topic = %q, want %q", tc.command, intent.Topic, tc.topic)
		}
		if intent.Confidence != 0.9 {
			t.Errorf("Parse(%q) confidence = %v, want 0.9", tc.command, intent.Confidence)
		}
		if intent.RawCommand != tc.command {
			t.Errorf("Parse(%q) raw command = %q", tc.command, intent.RawCommand)
		}
	}
}

func TestParsePaperComparison(t *testing.T) {
	parser := NewIntentParser(nil)

	intent := parser.Parse(context.Background(), "compare BERT vs GPT")
	if intent.Type != IntentPaperComparison {
		t.Fatalf("type = %s, want paper_comparison", intent.Type)
	}
	if intent.Topic != "bert vs gpt" {
		t.Errorf("topic = %q, want %q", intent.Topic, "bert vs gpt")
	}
}

func TestParseGapAnalysis(t *testing.T) {
	parser := NewIntentParser(nil)

	intent := parser.Parse(context.Background(), "find research gaps in multimodal learning")
	if intent.Type != IntentGapAnalysis {
		t.Fatalf("type = %s, want gap_analysis", intent.Type)
	}
	if intent.Topic != "multimodal learning" {
		t.Errorf("topic = %q, want %q", intent.Topic, "multimodal learning")
	}
}

func TestParseCitationFinding(t *testing.T) {
	parser := NewIntentParser(nil)

	intent := parser.Parse(context.Background(), "find citations for attention is all you need")
	if intent.Type != IntentCitationFinding {
		t.Fatalf("type = %s, want citation_finding", intent.Type)
	}
	if intent.Topic != "attention is all you need" {
		t.Errorf("topic = %q, want %q", intent.Topic, "attention is all you need")
	}
}

func TestParseExtractsLimit(t *testing.T) {
	parser := NewIntentParser(nil)

	intent := parser.Parse(context.Background(), "find 50 papers on transformers")
	if intent.Type != IntentResearchSurvey {
		t.Fatalf("type = %s, want research_survey", intent.Type)
	}
	if intent.Topic != "transformers" {
		t.Errorf("topic = %q, want %q", intent.Topic, "transformers")
	}
	if got := intent.Parameters["limit"]; got != 50 {
		t.Errorf("limit = %v, want 50", got)
	}
}

func TestParseDepthDefaults(t *testing.T) {
	parser := NewIntentParser(nil)

	cases := []struct {
		command string
		depth   string
	}{
		{"research transformers", "standard"},
		{"research transformers brief review", "brief"},
		{"detailed research on transformers", "comprehensive"},
	}
	for _, tc := range cases {
		intent := parser.Parse(context.Background(), tc.command)
		if got := intent.Parameters["depth"]; got != tc.depth {
			t.Errorf("Parse(%q) depth = %v, want %q", tc.command, got, tc.depth)
		}
	}
}

func TestParseStructureDefaults(t *testing.T) {
	parser := NewIntentParser(nil)

	cases := []struct {
		command   string
		structure string
	}{
		{"research transformers", "thematic"},
		{"research transformers chronological timeline", "chronological"},
		{"research transformers by methods", "methodological"},
	}
	for _, tc := range cases {
		intent := parser.Parse(context.Background(), tc.command)
		if got := intent.Parameters["structure"]; got != tc.structure {
			t.Errorf("Parse(%q) structure = %v, want %q", tc.command, got, tc.structure)
		}
	}
}

func TestParseExtractsYearRange(t *testing.T) {
	parser := NewIntentParser(nil)

	intent := parser.Parse(context.Background(), "research transformers from 2020 to 2023")
	if got := intent.Parameters["year_from"]; got != 2020 {
		t.Errorf("year_from = %v, want 2020", got)
	}
	if got := intent.Parameters["year_to"]; got != 2023 {
		t.Errorf("year_to = %v, want 2023", got)
	}
}

func TestParseUnknownWithoutProvider(t *testing.T) {
	parser := NewIntentParser(nil)

	intent := parser.Parse(context.Background(), "what is the weather today")
	if intent.Type != IntentUnknown {
		t.Fatalf("type = %s, want unknown", intent.Type)
	}
	if intent.Confidence != 0.0 {
		t.Errorf("confidence = %v, want 0.0", intent.Confidence)
	}
	if intent.RawCommand != "what is the weather today" {
		t.Errorf("raw command = %q", intent.RawCommand)
	}
}

func TestParseLLMFallback(t *testing.T) {
	provider := &stubProvider{
		text: `{"type": "research_survey", "topic": "quantum error correction", "parameters": {"limit": 10}}`,
	}
	parser := NewIntentParser(provider)

	intent := parser.Parse(context.Background(), "I want to read up on quantum error correction")
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
	if intent.Type != IntentResearchSurvey {
		t.Fatalf("type = %s, want research_survey", intent.Type)
	}
	if intent.Topic != "quantum error correction" {
		t.Errorf("topic = %q", intent.Topic)
	}
	if intent.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", intent.Confidence)
	}
	if got := intent.Parameters["depth"]; got != "standard" {
		t.Errorf("depth default = %v, want standard", got)
	}
	if got := intent.Parameters["structure"]; got != "thematic" {
		t.Errorf("structure default = %v, want thematic", got)
	}
}

func TestParseLLMFallbackSkippedForPatternMatch(t *testing.T) {
	provider := &stubProvider{text: `{"type": "gap_analysis", "topic": "x"}`}
	parser := NewIntentParser(provider)

	intent := parser.Parse(context.Background(), "research transformers")
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0", provider.calls)
	}
	if intent.Type != IntentResearchSurvey {
		t.Errorf("type = %s, want research_survey", intent.Type)
	}
}

func TestParseLLMFailureDegradesToUnknown(t *testing.T) {
	cases := []struct {
		name     string
		provider *stubProvider
	}{
		{"provider error", &stubProvider{err: errors.New("rate limited")}},
		{"malformed json", &stubProvider{text: "not json at all"}},
		{"unknown type", &stubProvider{text: `{"type": "make_coffee", "topic": "espresso"}`}},
		{"empty topic", &stubProvider{text: `{"type": "research_survey", "topic": ""}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parser := NewIntentParser(tc.provider)
			intent := parser.Parse(context.Background(), "something ambiguous")
			if intent.Type != IntentUnknown {
				t.Errorf("type = %s, want unknown", intent.Type)
			}
			if intent.Confidence != 0.0 {
				t.Errorf("confidence = %v, want 0.0", intent.Confidence)
			}
		})
	}
}
