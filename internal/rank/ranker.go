// Package rank returns the top-k items for a free-text query, preferring
// vector similarity and degrading to lexical overlap when no embedding can
// be produced. Both search and the chat context-builder consume it.
package rank

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
	"MindCanvas/internal/extract"
	"MindCanvas/internal/ports"
)

// Ranker orders stored items by relevance to a query.
type Ranker struct {
	store    ports.ContentStore
	embedder ports.Embedder
	cfg      config.SearchConfig
	logger   *slog.Logger
}

// New builds a Ranker. The embedder may be nil; lexical scoring then
// handles every query.
func New(store ports.ContentStore, embedder ports.Embedder, cfg config.SearchConfig, logger *slog.Logger) *Ranker {
	return &Ranker{store: store, embedder: embedder, cfg: cfg, logger: logger}
}

// Rank returns at most k items, best first, never padded with irrelevant
// results and never containing duplicates. Embedding failures degrade to
// the lexical path instead of erroring.
func (r *Ranker) Rank(ctx context.Context, query string, k int) ([]domain.ContentItem, error) {
	if k <= 0 {
		k = r.cfg.DefaultLimit
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	if r.embedder != nil {
		items, err := r.rankByVector(ctx, query, k)
		if err == nil {
			return items, nil
		}
		if r.logger != nil {
			r.logger.Warn("vector ranking degraded to lexical", "error", err)
		}
	}
	return r.rankLexical(ctx, query, k)
}

func (r *Ranker) rankByVector(ctx context.Context, query string, k int) ([]domain.ContentItem, error) {
	vector, err := r.embedder.Vector(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.VectorSearch(ctx, vector, k, r.cfg.SimilarityFloor)
	if err != nil {
		return nil, err
	}

	// Similarity descending, quality breaking ties.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Item.QualityScore > scored[j].Item.QualityScore
	})

	seen := make(map[string]bool, len(scored))
	items := make([]domain.ContentItem, 0, k)
	for _, s := range scored {
		if seen[s.Item.ID] || s.Similarity < r.cfg.SimilarityFloor {
			continue
		}
		seen[s.Item.ID] = true
		items = append(items, s.Item)
		if len(items) == k {
			break
		}
	}
	return items, nil
}

func (r *Ranker) rankLexical(ctx context.Context, query string, k int) ([]domain.ContentItem, error) {
	all, err := r.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	type scored struct {
		item  domain.ContentItem
		score float64
	}
	var ranked []scored
	seen := make(map[string]bool, len(all))
	for _, item := range all {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		if score := lexicalScore(tokens, item); score > 0 {
			ranked = append(ranked, scored{item, score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].item.QualityScore != ranked[j].item.QualityScore {
			return ranked[i].item.QualityScore > ranked[j].item.QualityScore
		}
		return ranked[i].item.VisitTimestamp.After(ranked[j].item.VisitTimestamp)
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	items := make([]domain.ContentItem, len(ranked))
	for i, s := range ranked {
		items[i] = s.item
	}
	return items, nil
}

// lexicalScore measures term overlap between the query and the item's
// title, topics and summary, normalized by item length so short precise
// matches beat long rambling ones.
func lexicalScore(tokens []string, item domain.ContentItem) float64 {
	haystack := extract.Normalize(item.Title + " " +
		strings.Join(item.KeyTopics, " ") + " " + item.Summary)
	if haystack == "" {
		return 0
	}

	hits := 0
	for _, token := range tokens {
		if strings.Contains(haystack, token) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}

	overlap := float64(hits) / float64(len(tokens))
	length := float64(len(strings.Fields(haystack)))
	return overlap / (1.0 + length/100.0)
}

func queryTokens(query string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(extract.Normalize(query)) {
		if len(w) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}
