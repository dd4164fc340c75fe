package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yf176/Polyhedra/internal/agent"
	"github.com/yf176/Polyhedra/internal/review"
	"github.com/yf176/Polyhedra/internal/scholar"
)

// buildToolRegistry wires the service layer into the tool functions that
// workflow steps invoke. These mirror the MCP tools but speak in plain maps
// so step results can be referenced by later steps.
func (s *Server) buildToolRegistry() *agent.ToolAdapter {
	adapter := agent.NewToolAdapter(nil)

	adapter.Register("search_papers", s.toolSearchPapers)
	adapter.Register("save_file", s.toolSaveFile)
	adapter.Register("estimate_review_cost", s.toolEstimateReviewCost)
	adapter.Register("generate_literature_review", s.toolGenerateReview)
	adapter.Register("add_citation", s.toolAddCitation)

	return adapter
}

func (s *Server) toolSearchPapers(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	opts := scholar.SearchOptions{Limit: intArg(args, "limit", 0)}
	if yearRange, ok := args["year_range"].(string); ok {
		opts.YearStart, opts.YearEnd = parseYearRange(yearRange)
	}

	papers, err := s.search.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"papers": paperMaps(papers),
		"count":  len(papers),
	}, nil
}

func (s *Server) toolSaveFile(ctx context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	content, ok := args["content"].(string)
	if !ok {
		// Step references often resolve to structured data; persist it as JSON.
		data, err := json.MarshalIndent(args["content"], "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode content for %s: %w", path, err)
		}
		content = string(data)
	}

	written, err := s.files.WriteFile(path, content, boolArg(args, "append", false))
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"path":          path,
		"bytes_written": written,
	}, nil
}

func (s *Server) toolEstimateReviewCost(ctx context.Context, args map[string]any) (map[string]any, error) {
	count := intArg(args, "paper_count", 0)
	if count <= 0 {
		return nil, fmt.Errorf("paper_count is required")
	}

	estimate, err := s.reviews.EstimateCost(count, stringArg(args, "depth", "standard"))
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"estimated_tokens": estimate.EstimatedTotalTokens,
		"estimated_usd":    estimate.EstimatedUSD,
		"paper_count":      estimate.PaperCount,
		"depth":            estimate.Depth,
	}, nil
}

func (s *Server) toolGenerateReview(ctx context.Context, args map[string]any) (map[string]any, error) {
	papers, err := s.loadPapers(stringArg(args, "papers_file", "literature/papers.json"))
	if err != nil {
		return nil, err
	}

	opts := review.Options{
		Focus:       stringArg(args, "focus", ""),
		Structure:   stringArg(args, "structure", ""),
		Depth:       stringArg(args, "depth", ""),
		IncludeGaps: boolArg(args, "include_gaps", true),
	}

	result, err := s.reviews.GenerateReview(ctx, papers, opts)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"review":   result.Review,
		"metadata": result.Metadata,
		"cost":     result.Cost,
	}, nil
}

// toolAddCitation accepts either a single bibtex entry or a list of papers
// carrying bibtex_entry fields, as produced by search_papers.
func (s *Server) toolAddCitation(ctx context.Context, args map[string]any) (map[string]any, error) {
	if entry, ok := args["bibtex"].(string); ok && entry != "" {
		key, added, err := s.cites.AddEntry(entry)
		if err != nil {
			return nil, err
		}
		return map[string]any{"key": key, "added": added}, nil
	}

	papers, ok := args["papers"].([]map[string]any)
	if !ok {
		if raw, isList := args["papers"].([]any); isList {
			for _, item := range raw {
				if m, isMap := item.(map[string]any); isMap {
					papers = append(papers, m)
				}
			}
		} else {
			return nil, fmt.Errorf("bibtex or papers is required")
		}
	}

	var keys []string
	added := 0
	for _, paper := range papers {
		entry, _ := paper["bibtex_entry"].(string)
		if entry == "" {
			continue
		}
		key, isNew, err := s.cites.AddEntry(entry)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		if isNew {
			added++
		}
	}

	return map[string]any{
		"keys":        keys,
		"added_count": added,
	}, nil
}

// estimateOperationCost is the checkpoint cost estimator. Only review
// generation carries a real cost; everything else is free.
func (s *Server) estimateOperationCost(ctx context.Context, operation string, opContext map[string]any) (float64, error) {
	if operation != "generate_literature_review" {
		return 0, nil
	}

	count := intArg(opContext, "paper_count", 0)
	if count <= 0 {
		papers, err := s.loadPapers(stringArg(opContext, "papers_file", "literature/papers.json"))
		if err != nil {
			return 0, err
		}
		count = len(papers)
	}
	if count == 0 {
		return 0, nil
	}

	estimate, err := s.reviews.EstimateCost(count, stringArg(opContext, "depth", "standard"))
	if err != nil {
		return 0, err
	}
	return estimate.EstimatedUSD, nil
}

// parseYearRange splits "2020-2023", "2020-" or "-2023" into bounds.
func parseYearRange(yearRange string) (start, end int) {
	from, to, found := strings.Cut(yearRange, "-")
	if !found {
		from = yearRange
	}
	start, _ = strconv.Atoi(strings.TrimSpace(from))
	end, _ = strconv.Atoi(strings.TrimSpace(to))
	return start, end
}

// paperMaps converts papers to plain maps so workflow steps can reference
// individual fields and save_file can persist them as JSON.
func paperMaps(papers []scholar.Paper) []map[string]any {
	data, err := json.Marshal(papers)
	if err != nil {
		return nil
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
