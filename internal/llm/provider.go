package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no provider credentials are available.
var ErrNotConfigured = errors.New("llm provider not configured")

// Completion is the result of a single completion call, with token
// accounting for cost tracking.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider is the abstract language-model capability consumed by the intent
// parser fallback, the review service, and the semantic index.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (*Completion, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// modelPricing is USD per 1M tokens (input, output).
var modelPricing = map[string][2]float64{
	"gpt-4o":                 {2.50, 10.00},
	"gpt-4o-mini":            {0.15, 0.60},
	"gpt-4-turbo":            {10.00, 30.00},
	"claude-3-5-sonnet":      {3.00, 15.00},
	"claude-3-opus":          {15.00, 75.00},
	"text-embedding-3-small": {0.02, 0},
}

// CalculateCost returns the USD cost for a token usage on a given model.
// Unknown models use gpt-4o pricing as a conservative default.
func CalculateCost(inputTokens, outputTokens int, model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		pricing = modelPricing["gpt-4o"]
	}
	return float64(inputTokens)/1e6*pricing[0] + float64(outputTokens)/1e6*pricing[1]
}
