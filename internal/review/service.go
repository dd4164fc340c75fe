// Package review generates structured literature reviews from papers.
package review

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/yf176/Polyhedra/internal/llm"
)

// DepthConfig bounds the word count for a review depth.
type DepthConfig struct {
	Min    int
	Max    int
	Target int
}

var depthConfigs = map[string]DepthConfig{
	"brief":         {Min: 500, Max: 800, Target: 650},
	"standard":      {Min: 1500, Max: 2500, Target: 2000},
	"comprehensive": {Min: 2000, Max: 3000, Target: 2500},
}

var validStructures = map[string]bool{
	"thematic":       true,
	"chronological":  true,
	"methodological": true,
}

// Options control review generation. Zero values for Structure and Depth
// mean the defaults; DefaultOptions also enables gap identification.
type Options struct {
	Focus       string
	Structure   string
	Depth       string
	IncludeGaps bool
}

// DefaultOptions returns a thematic standard-depth review with gaps.
func DefaultOptions() Options {
	return Options{Structure: "thematic", Depth: "standard", IncludeGaps: true}
}

// Cost is the token usage and price of a generation.
type Cost struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	TotalUSD     float64 `json:"total_usd"`
}

// Gap is one identified research gap.
type Gap struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Metadata is extracted from the generated review text.
type Metadata struct {
	PaperCount       int      `json:"paper_count"`
	WordCount        int      `json:"word_count"`
	Sections         []string `json:"sections"`
	ResearchGaps     []Gap    `json:"research_gaps"`
	CitationsFound   int      `json:"citations_found"`
	CitationCoverage float64  `json:"citation_coverage"`
}

// Result is the full outcome of a review generation.
type Result struct {
	Review   string   `json:"review"`
	Metadata Metadata `json:"metadata"`
	Cost     Cost     `json:"cost"`
}

// Estimate predicts cost before generation.
type Estimate struct {
	EstimatedInputTokens  int     `json:"estimated_input_tokens"`
	EstimatedOutputTokens int     `json:"estimated_output_tokens"`
	EstimatedTotalTokens  int     `json:"estimated_total_tokens"`
	EstimatedUSD          float64 `json:"estimated_usd"`
	PaperCount            int     `json:"paper_count"`
	Depth                 string  `json:"depth"`
}

// Service synthesizes literature reviews through an LLM provider.
type Service struct {
	provider llm.Provider
	model    string
}

// NewService creates a review service. provider may be nil, in which case
// GenerateReview fails but EstimateCost still works.
func NewService(provider llm.Provider, model string) *Service {
	return &Service{provider: provider, model: model}
}

// GenerateReview produces a markdown review of the papers along with
// extracted metadata and the actual token cost.
func (s *Service) GenerateReview(ctx context.Context, papers []map[string]any, opts Options) (*Result, error) {
	if len(papers) == 0 {
		return nil, fmt.Errorf("papers list cannot be empty")
	}
	if opts.Depth == "" {
		opts.Depth = "standard"
	}
	if opts.Structure == "" {
		opts.Structure = "thematic"
	}
	if _, ok := depthConfigs[opts.Depth]; !ok {
		return nil, fmt.Errorf("depth must be one of brief, standard, comprehensive; got %q", opts.Depth)
	}
	if !validStructures[opts.Structure] {
		return nil, fmt.Errorf("structure must be thematic, chronological or methodological; got %q", opts.Structure)
	}
	if s.provider == nil {
		return nil, llm.ErrNotConfigured
	}

	log.Printf("[review] generating %s review for %d papers (structure=%s, gaps=%v)",
		opts.Depth, len(papers), opts.Structure, opts.IncludeGaps)

	prompt := buildPrompt(papers, opts)
	completion, err := s.provider.Complete(ctx, "", prompt)
	if err != nil {
		return nil, fmt.Errorf("review generation failed: %w", err)
	}

	// Some providers omit usage from streamed responses; count locally
	// so the reported cost is never silently zero.
	inputTokens := completion.InputTokens
	if inputTokens == 0 {
		inputTokens = EstimateTokens(prompt)
	}
	outputTokens := completion.OutputTokens
	if outputTokens == 0 {
		outputTokens = EstimateTokens(completion.Text)
	}

	cost := llm.CalculateCost(inputTokens, outputTokens, s.model)
	metadata := extractMetadata(completion.Text, len(papers), opts.IncludeGaps)
	log.Printf("[review] generated %d words, %d citations, cost $%.4f",
		metadata.WordCount, metadata.CitationsFound, cost)

	return &Result{
		Review:   completion.Text,
		Metadata: metadata,
		Cost: Cost{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  inputTokens + outputTokens,
			TotalUSD:     cost,
		},
	}, nil
}

// EstimateCost predicts what a review of paperCount papers would cost,
// assuming roughly a thousand characters of metadata per paper.
func (s *Service) EstimateCost(paperCount int, depth string) (*Estimate, error) {
	if depth == "" {
		depth = "standard"
	}
	cfg, ok := depthConfigs[depth]
	if !ok {
		return nil, fmt.Errorf("depth must be one of brief, standard, comprehensive; got %q", depth)
	}

	inputTokens := (paperCount*1000 + 2000) / 4
	outputTokens := cfg.Target

	return &Estimate{
		EstimatedInputTokens:  inputTokens,
		EstimatedOutputTokens: outputTokens,
		EstimatedTotalTokens:  inputTokens + outputTokens,
		EstimatedUSD:          llm.CalculateCost(inputTokens, outputTokens, s.model),
		PaperCount:            paperCount,
		Depth:                 depth,
	}, nil
}

// EstimateTokens counts prompt tokens with the cl100k_base encoding,
// falling back to the four-characters-per-token rule when the encoding
// is unavailable.
func EstimateTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// formatAuthors renders an author list in citation style.
func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return "Unknown"
	case 1:
		return authors[0]
	case 2:
		return authors[0] + " and " + authors[1]
	default:
		parts := strings.Fields(authors[0])
		last := authors[0]
		if len(parts) > 0 {
			last = parts[len(parts)-1]
		}
		return last + " et al."
	}
}
