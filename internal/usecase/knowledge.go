package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"MindCanvas/internal/cluster"
	"MindCanvas/internal/domain"
	"MindCanvas/internal/graph"
	"MindCanvas/internal/ports"
	"MindCanvas/internal/rank"
)

// Knowledge is the read side: graph assembly, cluster listing, search,
// statistics. Clusters and graphs are recomputed from the stored items on
// every call; nothing derived is persisted.
type Knowledge struct {
	store     ports.ContentStore
	clusterer *cluster.Clusterer
	builder   *graph.Builder
	ranker    *rank.Ranker
	logger    *slog.Logger
}

// NewKnowledge wires the read-side services.
func NewKnowledge(store ports.ContentStore, clusterer *cluster.Clusterer, builder *graph.Builder, ranker *rank.Ranker, logger *slog.Logger) *Knowledge {
	return &Knowledge{
		store:     store,
		clusterer: clusterer,
		builder:   builder,
		ranker:    ranker,
		logger:    logger,
	}
}

// BuildGraph clusters the current item set and assembles the exportable
// similarity graph.
func (k *Knowledge) BuildGraph(ctx context.Context) (graph.Export, error) {
	items, err := k.store.LoadAll(ctx)
	if err != nil {
		return graph.Export{}, fmt.Errorf("load items: %w", err)
	}

	assignment := k.clusterer.Cluster(ctx, items)
	g, err := k.builder.Build(items, assignment)
	if err != nil {
		return graph.Export{}, fmt.Errorf("build graph: %w", err)
	}

	if k.logger != nil {
		k.logger.Info("graph assembled",
			"nodes", len(g.Nodes),
			"edges", len(g.Edges),
			"method", assignment.Method)
	}
	return graph.NewExport(g, assignment.Method, time.Now().UTC()), nil
}

// Clusters returns the current partition with the method that produced it.
func (k *Knowledge) Clusters(ctx context.Context) ([]domain.Cluster, domain.ProcessingMethod, error) {
	items, err := k.store.LoadAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load items: %w", err)
	}
	assignment := k.clusterer.Cluster(ctx, items)
	return assignment.Clusters, assignment.Method, nil
}

// Search returns the top-k items for the query.
func (k *Knowledge) Search(ctx context.Context, query string, limit int) ([]domain.ContentItem, error) {
	return k.ranker.Rank(ctx, query, limit)
}

// Items returns the whole stored collection ordered by id.
func (k *Knowledge) Items(ctx context.Context) ([]domain.ContentItem, error) {
	return k.store.LoadAll(ctx)
}

// Stats summarizes the stored collection.
type Stats struct {
	TotalItems     int            `json:"total_items"`
	EmbeddedItems  int            `json:"embedded_items"`
	AverageQuality float64        `json:"average_quality"`
	ByContentType  map[string]int `json:"by_content_type"`
	ByMethod       map[string]int `json:"by_method"`
}

// Stats computes collection-level counters.
func (k *Knowledge) Stats(ctx context.Context) (Stats, error) {
	items, err := k.store.LoadAll(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load items: %w", err)
	}

	stats := Stats{
		TotalItems:    len(items),
		ByContentType: make(map[string]int),
		ByMethod:      make(map[string]int),
	}
	qualitySum := 0
	for _, item := range items {
		if item.HasEmbedding() {
			stats.EmbeddedItems++
		}
		qualitySum += item.QualityScore
		stats.ByContentType[string(item.ContentType)]++
		stats.ByMethod[string(item.ProcessingMethod)]++
	}
	if len(items) > 0 {
		stats.AverageQuality = float64(qualitySum) / float64(len(items))
	}
	return stats, nil
}

// TopicCount is one trending-topic entry.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Trending ranks key topics across items visited inside the window,
// descending by count with alphabetical ties, truncated to limit.
func (k *Knowledge) Trending(ctx context.Context, window time.Duration, limit int) ([]TopicCount, error) {
	items, err := k.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	cutoff := time.Now().UTC().Add(-window)
	counts := make(map[string]int)
	for _, item := range items {
		if window > 0 && item.VisitTimestamp.Before(cutoff) {
			continue
		}
		for _, topic := range item.KeyTopics {
			counts[topic]++
		}
	}

	ranked := make([]TopicCount, 0, len(counts))
	for topic, count := range counts {
		ranked = append(ranked, TopicCount{Topic: topic, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Topic < ranked[j].Topic
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
