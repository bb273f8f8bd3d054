// Package graph turns cluster assignments into a weighted similarity graph
// suitable for force-directed layout: dense high-weight edges inside
// clusters, sparse similarity edges across them.
package graph

import (
	"fmt"
	"sort"

	"MindCanvas/internal/cluster"
	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
	"MindCanvas/internal/vectors"
)

// Builder constructs graphs under the configured density bounds.
type Builder struct {
	cfg config.GraphConfig
}

// NewBuilder returns a Builder with the given tuning.
func NewBuilder(cfg config.GraphConfig) *Builder {
	return &Builder{cfg: cfg}
}

// Build produces one node per item and two edge passes: same-cluster edges
// capped per node, and one cross-cluster edge per cluster when embeddings
// exist. Zero items yield an empty graph, one item a single node; an error
// here means a data-integrity bug, never an expected runtime condition.
func (b *Builder) Build(items []domain.ContentItem, assignment cluster.Assignment) (domain.Graph, error) {
	sorted := make([]domain.ContentItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	nodes := make([]domain.GraphNode, 0, len(sorted))
	seen := make(map[string]bool, len(sorted))
	for _, item := range sorted {
		if seen[item.ID] {
			return domain.Graph{}, fmt.Errorf("duplicate node id %q", item.ID)
		}
		seen[item.ID] = true
		nodes = append(nodes, domain.GraphNode{
			ID:      item.ID,
			Label:   item.Title,
			Cluster: assignment.ClusterOf(item.ID),
			Size:    b.nodeSize(item.QualityScore),
			Quality: item.QualityScore,
		})
	}

	if len(nodes) <= 1 {
		return domain.Graph{Nodes: nodes, Edges: []domain.GraphEdge{}}, nil
	}

	edges := newEdgeSet()
	degrees := make(map[string]int, len(sorted))
	byCluster := groupByCluster(sorted, assignment)

	for _, label := range sortedKeys(byCluster) {
		b.connectCluster(byCluster[label], edges, degrees)
	}
	b.connectAcrossClusters(byCluster, edges)

	list := edges.sorted()
	if err := validate(seen, list); err != nil {
		return domain.Graph{}, err
	}
	return domain.Graph{Nodes: nodes, Edges: list}, nil
}

func (b *Builder) nodeSize(quality int) float64 {
	size := b.cfg.NodeSizeBase + float64(quality)*b.cfg.NodeSizeScale
	if size < b.cfg.MinNodeSize {
		return b.cfg.MinNodeSize
	}
	if size > b.cfg.MaxNodeSize {
		return b.cfg.MaxNodeSize
	}
	return size
}

// connectCluster wires one cluster's members. Small clusters get a complete
// subgraph (the cap cannot be exceeded there); large ones connect each node
// to nearest neighbors by embedding, or fall back to a ring over insertion
// order, so connectivity survives without a complete-graph blowup.
func (b *Builder) connectCluster(members []domain.ContentItem, edges *edgeSet, degrees map[string]int) {
	m := len(members)
	if m < 2 {
		return
	}

	weight := b.cfg.SameClusterWeight
	degreeCap := b.cfg.DegreeCap

	if m-1 <= degreeCap {
		for i := 0; i < m; i++ {
			for j := i + 1; j < m; j++ {
				addCapped(edges, degrees, members[i].ID, members[j].ID, weight, domain.EdgeSameCluster, degreeCap)
			}
		}
		return
	}

	if allEmbedded(members) {
		// Nearest-neighbour wiring, degree-capped on both endpoints.
		perNode := degreeCap / 2
		if perNode < 1 {
			perNode = 1
		}
		for i, item := range members {
			for _, j := range nearestIndices(members, i, perNode) {
				addCapped(edges, degrees, item.ID, members[j].ID, weight, domain.EdgeSameCluster, degreeCap)
			}
		}
		return
	}

	// Ring topology over id order.
	for i := 0; i < m; i++ {
		next := (i + 1) % m
		if i == next {
			continue
		}
		addCapped(edges, degrees, members[i].ID, members[next].ID, weight, domain.EdgeSameCluster, degreeCap)
	}
}

// connectAcrossClusters adds one sparse edge per cluster to its closest
// peer by centroid similarity, between the two members nearest their own
// centroids. Skipped entirely when embeddings are absent.
func (b *Builder) connectAcrossClusters(byCluster map[string][]domain.ContentItem, edges *edgeSet) {
	labels := sortedKeys(byCluster)
	if len(labels) < 2 {
		return
	}

	centroids := make(map[string][]float64, len(labels))
	for _, label := range labels {
		var vecs [][]float64
		for _, item := range byCluster[label] {
			if item.HasEmbedding() {
				vecs = append(vecs, item.Embedding)
			}
		}
		if c := vectors.Centroid(vecs); c != nil {
			centroids[label] = c
		}
	}

	for _, label := range labels {
		from, ok := centroids[label]
		if !ok {
			continue
		}

		bestLabel := ""
		bestSim := -1.0
		for _, other := range labels {
			if other == label {
				continue
			}
			to, ok := centroids[other]
			if !ok {
				continue
			}
			if sim := vectors.Cosine(from, to); sim > bestSim {
				bestSim = sim
				bestLabel = other
			}
		}
		if bestLabel == "" || bestSim <= 0 {
			continue
		}

		src := representative(byCluster[label], from)
		dst := representative(byCluster[bestLabel], centroids[bestLabel])
		if src == "" || dst == "" || src == dst {
			continue
		}
		edges.add(domain.GraphEdge{Source: src, Target: dst, Weight: bestSim, Kind: domain.EdgeCrossCluster})
	}
}

// representative picks the member closest to the cluster centroid,
// preferring lower ids on ties.
func representative(members []domain.ContentItem, centroid []float64) string {
	best := ""
	bestSim := -1.0
	for _, item := range members {
		if !item.HasEmbedding() {
			continue
		}
		if sim := vectors.Cosine(item.Embedding, centroid); sim > bestSim {
			bestSim = sim
			best = item.ID
		}
	}
	return best
}

// nearestIndices returns up to k member indices ranked by embedding
// similarity to members[i], ids breaking ties.
func nearestIndices(members []domain.ContentItem, i, k int) []int {
	type scored struct {
		idx int
		sim float64
	}
	ranked := make([]scored, 0, len(members)-1)
	for j := range members {
		if j == i {
			continue
		}
		ranked = append(ranked, scored{j, vectors.Cosine(members[i].Embedding, members[j].Embedding)})
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].sim != ranked[b].sim {
			return ranked[a].sim > ranked[b].sim
		}
		return members[ranked[a].idx].ID < members[ranked[b].idx].ID
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]int, len(ranked))
	for n, s := range ranked {
		out[n] = s.idx
	}
	return out
}

func addCapped(edges *edgeSet, degrees map[string]int, a, b string, weight float64, kind domain.EdgeKind, degreeCap int) {
	if a == b {
		return
	}
	if degrees[a] >= degreeCap || degrees[b] >= degreeCap {
		return
	}
	if edges.add(domain.GraphEdge{Source: a, Target: b, Weight: weight, Kind: kind}) {
		degrees[a]++
		degrees[b]++
	}
}

func allEmbedded(members []domain.ContentItem) bool {
	for _, m := range members {
		if !m.HasEmbedding() {
			return false
		}
	}
	return true
}

func groupByCluster(sorted []domain.ContentItem, assignment cluster.Assignment) map[string][]domain.ContentItem {
	byCluster := make(map[string][]domain.ContentItem)
	for _, item := range sorted {
		label := assignment.ClusterOf(item.ID)
		byCluster[label] = append(byCluster[label], item)
	}
	return byCluster
}

func sortedKeys(m map[string][]domain.ContentItem) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// validate enforces the graph invariants: endpoints exist, no self loops.
// Violations are programming errors and fail the build loudly.
func validate(nodes map[string]bool, edges []domain.GraphEdge) error {
	for _, e := range edges {
		if e.Source == e.Target {
			return fmt.Errorf("self loop on node %q", e.Source)
		}
		if !nodes[e.Source] || !nodes[e.Target] {
			return fmt.Errorf("edge %s-%s references unknown node", e.Source, e.Target)
		}
	}
	return nil
}

// edgeSet deduplicates unordered pairs, keeping the higher weight when both
// directions are offered.
type edgeSet struct {
	byPair map[[2]string]domain.GraphEdge
}

func newEdgeSet() *edgeSet {
	return &edgeSet{byPair: make(map[[2]string]domain.GraphEdge)}
}

// add stores the edge unless the pair already exists with weight >= this
// one. Reports whether the pair was newly added (not merely re-weighted).
func (s *edgeSet) add(e domain.GraphEdge) bool {
	key := [2]string{e.Source, e.Target}
	if key[0] > key[1] {
		key[0], key[1] = key[1], key[0]
	}
	existing, ok := s.byPair[key]
	if !ok {
		s.byPair[key] = e
		return true
	}
	if e.Weight > existing.Weight {
		s.byPair[key] = e
	}
	return false
}

func (s *edgeSet) sorted() []domain.GraphEdge {
	list := make([]domain.GraphEdge, 0, len(s.byPair))
	for _, e := range s.byPair {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Source != list[j].Source {
			return list[i].Source < list[j].Source
		}
		return list[i].Target < list[j].Target
	})
	return list
}
