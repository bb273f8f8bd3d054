package rank

import (
	"context"
	"errors"
	"testing"
	"time"

	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
	"MindCanvas/internal/infrastructure/storage"
)

type fakeEmbedder struct {
	vector []float64
	err    error
}

func (f *fakeEmbedder) Vector(_ context.Context, _ string) ([]float64, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) Dimension() int { return len(f.vector) }

func searchConfig() config.SearchConfig {
	return config.SearchConfig{SimilarityFloor: 0.3, DefaultLimit: 20}
}

func seedStore(t *testing.T, items []domain.ContentItem) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	for _, item := range items {
		if _, err := store.Upsert(context.Background(), item); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func TestRankVectorPath(t *testing.T) {
	t.Parallel()

	store := seedStore(t, []domain.ContentItem{
		{ID: "a", URL: "u1", Title: "K8s Operators", Embedding: []float64{1, 0}, QualityScore: 8},
		{ID: "b", URL: "u2", Title: "K8s Networking", Embedding: []float64{0.9, 0.1}, QualityScore: 6},
		{ID: "c", URL: "u3", Title: "Cooking", Embedding: []float64{-1, 0}, QualityScore: 9},
	})
	r := New(store, &fakeEmbedder{vector: []float64{1, 0}}, searchConfig(), nil)

	items, err := r.Rank(context.Background(), "container orchestration", 2)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "a" || items[1].ID != "b" {
		t.Fatalf("unexpected order: %s, %s", items[0].ID, items[1].ID)
	}
}

func TestRankFloorFiltersIrrelevant(t *testing.T) {
	t.Parallel()

	store := seedStore(t, []domain.ContentItem{
		{ID: "a", URL: "u1", Title: "Match", Embedding: []float64{1, 0}},
		{ID: "b", URL: "u2", Title: "Orthogonal", Embedding: []float64{0, 1}},
	})
	r := New(store, &fakeEmbedder{vector: []float64{1, 0}}, searchConfig(), nil)

	// k far larger than the matching set: the result must not be padded.
	items, err := r.Rank(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("expected only the relevant item, got %v", items)
	}
}

func TestRankNoDuplicates(t *testing.T) {
	t.Parallel()

	store := seedStore(t, []domain.ContentItem{
		{ID: "a", URL: "u1", Title: "One", Embedding: []float64{1, 0}},
		{ID: "b", URL: "u2", Title: "Two", Embedding: []float64{0.95, 0.05}},
	})
	r := New(store, &fakeEmbedder{vector: []float64{1, 0}}, searchConfig(), nil)

	items, err := r.Rank(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.ID] {
			t.Fatalf("duplicate item %s", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestRankDegradesToLexical(t *testing.T) {
	t.Parallel()

	store := seedStore(t, []domain.ContentItem{
		{ID: "a", URL: "u1", Title: "Kubernetes Deep Dive", KeyTopics: []string{"kubernetes"}, QualityScore: 7},
		{ID: "b", URL: "u2", Title: "Gardening Tips", KeyTopics: []string{"plants"}, QualityScore: 9},
	})
	r := New(store, &fakeEmbedder{err: errors.New("provider down")}, searchConfig(), nil)

	items, err := r.Rank(context.Background(), "kubernetes", 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("expected lexical match for a, got %v", items)
	}
}

func TestRankLexicalWithoutEmbedder(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store := seedStore(t, []domain.ContentItem{
		{ID: "a", URL: "u1", Title: "Go Testing Guide", KeyTopics: []string{"testing"}, QualityScore: 6, VisitTimestamp: now},
		{ID: "b", URL: "u2", Title: "Go Testing Patterns", KeyTopics: []string{"testing"}, QualityScore: 8, VisitTimestamp: now},
	})
	r := New(store, nil, searchConfig(), nil)

	items, err := r.Rank(context.Background(), "go testing", 1)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestRankEmptyQuery(t *testing.T) {
	t.Parallel()

	store := seedStore(t, []domain.ContentItem{{ID: "a", URL: "u1", Title: "Anything"}})
	r := New(store, nil, searchConfig(), nil)

	items, err := r.Rank(context.Background(), "   ", 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items for empty query, got %d", len(items))
	}
}

func TestRankDefaultLimit(t *testing.T) {
	t.Parallel()

	cfg := searchConfig()
	cfg.DefaultLimit = 1

	store := seedStore(t, []domain.ContentItem{
		{ID: "a", URL: "u1", Title: "Rust Memory Safety", KeyTopics: []string{"rust"}},
		{ID: "b", URL: "u2", Title: "Rust Lifetimes", KeyTopics: []string{"rust"}},
	})
	r := New(store, nil, cfg, nil)

	items, err := r.Rank(context.Background(), "rust", 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected default limit 1, got %d", len(items))
	}
}
