package rag

import (
	"context"
	"testing"
)

func samplePapers() []map[string]any {
	return []map[string]any{
		{
			"title":      "Attention Is All You Need",
			"abstract":   "We propose the transformer architecture based on attention mechanisms.",
			"authors":    []any{"Ashish Vaswani"},
			"year":       float64(2017),
			"bibtex_key": "vaswani2017",
		},
		{
			"title":    "Deep Residual Learning for Image Recognition",
			"abstract": "Residual networks ease the training of deep convolutional networks for images.",
			"authors":  []any{"Kaiming He"},
			"year":     float64(2016),
		},
		{
			"title":    "BERT Pre-training",
			"abstract": "Bidirectional transformer pre-training with attention for language understanding.",
			"year":     float64(2019),
		},
	}
}

func TestIndexPapersAndQuery(t *testing.T) {
	svc := NewService(t.TempDir(), nil)

	if svc.IsIndexed() {
		t.Fatal("IsIndexed = true before indexing")
	}

	count, err := svc.IndexPapers(context.Background(), samplePapers())
	if err != nil {
		t.Fatalf("IndexPapers: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if !svc.IsIndexed() {
		t.Error("IsIndexed = false after indexing")
	}

	results, err := svc.Query(context.Background(), "transformer attention mechanisms", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].RelevanceScore < results[1].RelevanceScore {
		t.Error("results not sorted by relevance")
	}
	if results[0].Title != "Attention Is All You Need" {
		t.Errorf("top result = %q", results[0].Title)
	}
	if results[0].BibtexKey != "vaswani2017" {
		t.Errorf("bibtex key = %q", results[0].BibtexKey)
	}
	if results[0].Year != 2017 {
		t.Errorf("year = %d", results[0].Year)
	}
}

func TestIndexPapersValidation(t *testing.T) {
	svc := NewService(t.TempDir(), nil)

	if _, err := svc.IndexPapers(context.Background(), nil); err == nil {
		t.Error("expected error for empty papers list")
	}
	if _, err := svc.IndexPapers(context.Background(), []map[string]any{{"abstract": "no title"}}); err == nil {
		t.Error("expected error for paper without title")
	}
}

func TestQueryWithoutIndex(t *testing.T) {
	svc := NewService(t.TempDir(), nil)

	results, err := svc.Query(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
}

func TestQueryReloadsPersistedIndex(t *testing.T) {
	root := t.TempDir()

	first := NewService(root, nil)
	if _, err := first.IndexPapers(context.Background(), samplePapers()); err != nil {
		t.Fatalf("IndexPapers: %v", err)
	}

	second := NewService(root, nil)
	results, err := second.Query(context.Background(), "residual image recognition", 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Title != "Deep Residual Learning for Image Recognition" {
		t.Errorf("top result = %q", results[0].Title)
	}
}

func TestQueryCapsAtIndexSize(t *testing.T) {
	svc := NewService(t.TempDir(), nil)
	if _, err := svc.IndexPapers(context.Background(), samplePapers()); err != nil {
		t.Fatalf("IndexPapers: %v", err)
	}

	results, err := svc.Query(context.Background(), "attention", 50)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("results = %d, want 3", len(results))
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := cosineSimilarity(a, a); got < 0.999 {
		t.Errorf("identical vectors = %v, want 1", got)
	}
	if got := cosineSimilarity(a, []float32{0, 1, 0}); got != 0 {
		t.Errorf("orthogonal vectors = %v, want 0", got)
	}
	if got := cosineSimilarity(a, []float32{0, 0}); got != 0 {
		t.Errorf("mismatched lengths = %v, want 0", got)
	}
}

func TestHashEmbedDeterministic(t *testing.T) {
	a := hashEmbed("transformer attention")
	b := hashEmbed("transformer attention")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("hashEmbed not deterministic")
		}
	}

	sim := cosineSimilarity(hashEmbed("transformer attention networks"), hashEmbed("attention transformer models"))
	other := cosineSimilarity(hashEmbed("transformer attention networks"), hashEmbed("completely unrelated words here"))
	if sim <= other {
		t.Errorf("overlapping text similarity %v not above disjoint %v", sim, other)
	}
}
