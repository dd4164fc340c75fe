// Package rag provides semantic search over indexed papers.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/yf176/Polyhedra/internal/paths"
)

// Embedder turns texts into vectors. llm.Provider satisfies this.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// PaperMeta is the metadata kept alongside each indexed embedding.
type PaperMeta struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Authors   []string `json:"authors,omitempty"`
	Year      int      `json:"year,omitempty"`
	BibtexKey string   `json:"bibtex_key,omitempty"`
}

// QueryResult is one search hit with its cosine similarity score.
type QueryResult struct {
	PaperMeta
	RelevanceScore float64 `json:"relevance_score"`
}

type indexData struct {
	Embeddings [][]float32 `json:"embeddings"`
	Metadata   []PaperMeta `json:"metadata"`
}

// Service indexes papers by embedding title and abstract, persisting the
// index under .poly/embeddings/. Without an embedder it falls back to a
// deterministic token-hashing vectorizer, which keeps search usable when
// no API key is configured.
type Service struct {
	path     string
	embedder Embedder

	mu    sync.Mutex
	index *indexData
}

// NewService creates a RAG service for a project. embedder may be nil.
func NewService(projectRoot string, embedder Embedder) *Service {
	return &Service{
		path:     filepath.Join(paths.EmbeddingsDir(projectRoot), "papers.json"),
		embedder: embedder,
	}
}

// IsIndexed reports whether an index has been built.
func (s *Service) IsIndexed() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// IndexPapers embeds the papers and writes the index to disk, replacing
// any previous index. It returns the number of papers indexed.
func (s *Service) IndexPapers(ctx context.Context, papers []map[string]any) (int, error) {
	if len(papers) == 0 {
		return 0, fmt.Errorf("cannot index empty papers list")
	}

	texts := make([]string, 0, len(papers))
	metadata := make([]PaperMeta, 0, len(papers))
	for _, paper := range papers {
		title, ok := paper["title"].(string)
		if !ok || title == "" {
			return 0, fmt.Errorf("paper missing required title field")
		}
		abstract, _ := paper["abstract"].(string)
		texts = append(texts, title+". "+abstract)
		metadata = append(metadata, PaperMeta{
			ID:        stringField(paper, "paper_id", "id"),
			Title:     title,
			Abstract:  abstract,
			Authors:   stringSliceField(paper, "authors"),
			Year:      intField(paper, "year"),
			BibtexKey: stringField(paper, "bibtex_key"),
		})
	}

	embeddings, err := s.embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding papers failed: %w", err)
	}

	index := &indexData{Embeddings: embeddings, Metadata: metadata}
	if err := s.saveIndex(index); err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()
	return len(papers), nil
}

// Query returns the k most similar indexed papers. An empty index yields
// no results rather than an error.
func (s *Service) Query(ctx context.Context, query string, k int) ([]QueryResult, error) {
	if k <= 0 {
		k = 5
	}

	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	if index == nil || len(index.Embeddings) == 0 {
		return []QueryResult{}, nil
	}

	queryVecs, err := s.embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query failed: %w", err)
	}
	queryVec := queryVecs[0]

	results := make([]QueryResult, 0, len(index.Embeddings))
	for i, vec := range index.Embeddings {
		results = append(results, QueryResult{
			PaperMeta:      index.Metadata[i],
			RelevanceScore: cosineSimilarity(vec, queryVec),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (s *Service) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedder != nil {
		return s.embedder.Embed(ctx, texts)
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = hashEmbed(text)
	}
	return vecs, nil
}

func (s *Service) loadIndex() (*indexData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var index indexData
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("corrupt paper index at %s: %w", s.path, err)
	}
	s.index = &index
	return s.index, nil
}

func (s *Service) saveIndex(index *indexData) error {
	if err := paths.EnsureDir(filepath.Dir(s.path)); err != nil {
		return err
	}
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stringSliceField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		if typed, ok := m[key].([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
