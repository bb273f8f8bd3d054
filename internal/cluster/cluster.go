// Package cluster assigns every content item to exactly one named cluster.
// Three strategies are tried in strict priority order — LLM structured
// clustering, density clustering over embeddings, topic-signature grouping —
// and a failed or unavailable strategy degrades to the next one instead of
// surfacing an error.
package cluster

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
	"MindCanvas/internal/ports"
)

// ErrUnavailable is the tagged "not applicable" result of a strategy:
// the strategy cannot run on this input (no embeddings, no credential),
// as opposed to having tried and failed.
var ErrUnavailable = errors.New("cluster strategy unavailable")

// Strategy is one way of grouping items. TryCluster returns a complete or
// partial id→label mapping; ErrUnavailable or any other error makes the
// clusterer fall through to the next strategy.
type Strategy interface {
	Name() string
	Method() domain.ProcessingMethod
	TryCluster(ctx context.Context, items []domain.ContentItem) (map[string]string, error)
}

// Assignment is the clusterer output: a total id→label mapping, per-cluster
// metadata and the processing method of the strategy that won.
type Assignment struct {
	Labels   map[string]string
	Clusters []domain.Cluster
	Method   domain.ProcessingMethod
}

// ClusterOf returns the label for an item id, or "General" when unknown.
func (a Assignment) ClusterOf(id string) string {
	if label, ok := a.Labels[id]; ok {
		return label
	}
	return domain.GeneralClusterLabel
}

// Clusterer evaluates the ordered strategy list.
type Clusterer struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New builds the standard strategy chain. The classifier may be nil, in
// which case the LLM strategy is skipped entirely.
func New(cfg config.ClusteringConfig, classifier ports.ClusterClassifier, logger *slog.Logger) *Clusterer {
	var strategies []Strategy
	if classifier != nil {
		strategies = append(strategies, &llmStrategy{
			classifier:  classifier,
			maxClusters: cfg.MaxClusters,
		})
	}
	strategies = append(strategies,
		&densityStrategy{
			eps:           cfg.Eps,
			minPoints:     cfg.MinPoints,
			minEmbeddings: cfg.MinEmbeddings,
		},
		&topicStrategy{},
	)
	return &Clusterer{strategies: strategies, logger: logger}
}

// NewWithStrategies builds a clusterer over an explicit strategy list.
func NewWithStrategies(logger *slog.Logger, strategies ...Strategy) *Clusterer {
	return &Clusterer{strategies: strategies, logger: logger}
}

// Cluster assigns every item to exactly one cluster. The result is total:
// no item is left unassigned, and repeated runs over unchanged input yield
// identical labels and membership.
func (c *Clusterer) Cluster(ctx context.Context, items []domain.ContentItem) Assignment {
	sorted := make([]domain.ContentItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if len(sorted) == 0 {
		return Assignment{Labels: map[string]string{}, Method: domain.MethodFallback}
	}

	for _, strategy := range c.strategies {
		labels, err := strategy.TryCluster(ctx, sorted)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				c.debug("strategy unavailable", "strategy", strategy.Name())
			} else {
				c.warn("strategy failed, degrading", "strategy", strategy.Name(), "error", err)
			}
			continue
		}

		assignment := finalize(sorted, labels, strategy.Method())
		c.debug("clustering done",
			"strategy", strategy.Name(),
			"items", len(sorted),
			"clusters", len(assignment.Clusters))
		return assignment
	}

	// The topic strategy never fails, so this is unreachable in the
	// standard chain; covered anyway for custom strategy lists.
	return finalize(sorted, map[string]string{}, domain.MethodFallback)
}

// finalize enforces the partition invariant over a raw strategy result:
// ids the strategy missed land in "General", ids it invented are dropped,
// and per-cluster metadata is derived with deterministic ordering.
func finalize(sorted []domain.ContentItem, labels map[string]string, method domain.ProcessingMethod) Assignment {
	// Building from the item list drops any hallucinated ids and fills
	// any missing ones at the same time.
	total := make(map[string]string, len(sorted))
	for _, item := range sorted {
		label := labels[item.ID]
		if label == "" {
			label = domain.GeneralClusterLabel
		}
		total[item.ID] = label
	}

	return Assignment{
		Labels:   total,
		Clusters: buildClusterMeta(sorted, total),
		Method:   method,
	}
}

// buildClusterMeta groups members under their labels and picks up to five
// representative terms per cluster by topic majority, ties broken by
// first-seen order.
func buildClusterMeta(sorted []domain.ContentItem, labels map[string]string) []domain.Cluster {
	members := make(map[string][]string)
	topicCounts := make(map[string]map[string]int)
	topicOrder := make(map[string][]string)

	for _, item := range sorted {
		label := labels[item.ID]
		members[label] = append(members[label], item.ID)

		if topicCounts[label] == nil {
			topicCounts[label] = make(map[string]int)
		}
		for _, topic := range item.KeyTopics {
			if topicCounts[label][topic] == 0 {
				topicOrder[label] = append(topicOrder[label], topic)
			}
			topicCounts[label][topic]++
		}
	}

	clusterLabels := make([]string, 0, len(members))
	for label := range members {
		clusterLabels = append(clusterLabels, label)
	}
	sort.Strings(clusterLabels)

	clusters := make([]domain.Cluster, 0, len(clusterLabels))
	for _, label := range clusterLabels {
		clusters = append(clusters, domain.Cluster{
			Label:               label,
			MemberIDs:           members[label],
			RepresentativeTerms: dominantTopics(topicCounts[label], topicOrder[label], 5),
		})
	}
	return clusters
}

// dominantTopics ranks topics by count descending, first-seen order on
// ties, and truncates to n.
func dominantTopics(counts map[string]int, order []string, n int) []string {
	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (c *Clusterer) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Clusterer) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
