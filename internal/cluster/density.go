package cluster

import (
	"context"
	"fmt"
	"sort"

	"MindCanvas/internal/domain"
	"MindCanvas/internal/vectors"
)

// densityStrategy runs neighborhood (DBSCAN-style) clustering over item
// embeddings with cosine distance. Items without embeddings, and items not
// reachable from any dense region, fall into the "General" cluster instead
// of being dropped.
type densityStrategy struct {
	eps           float64
	minPoints     int // 0 = adaptive
	minEmbeddings int
}

func (s *densityStrategy) Name() string                    { return "density" }
func (s *densityStrategy) Method() domain.ProcessingMethod { return domain.MethodEmbedding }

func (s *densityStrategy) TryCluster(ctx context.Context, items []domain.ContentItem) (map[string]string, error) {
	embedded := embeddedSubset(items)
	if len(embedded) < s.minEmbeddings {
		return nil, ErrUnavailable
	}

	minPts := s.minPoints
	if minPts <= 0 {
		minPts = adaptiveMinPoints(len(embedded))
	}

	componentIDs := dbscan(embedded, s.eps, minPts)

	// Post-hoc naming: each dense component is labeled by the dominant
	// key topic of its members, majority vote with ties broken by
	// first-seen order over the id-sorted input.
	byComponent := make(map[int][]domain.ContentItem)
	for i, item := range embedded {
		if componentIDs[i] >= 0 {
			byComponent[componentIDs[i]] = append(byComponent[componentIDs[i]], item)
		}
	}

	componentKeys := make([]int, 0, len(byComponent))
	for key := range byComponent {
		componentKeys = append(componentKeys, key)
	}
	sort.Ints(componentKeys)

	labels := make(map[string]string, len(items))
	used := make(map[string]bool)
	for _, key := range componentKeys {
		members := byComponent[key]
		label := componentLabel(members)
		if used[label] {
			for suffix := 2; ; suffix++ {
				candidate := fmt.Sprintf("%s %d", label, suffix)
				if !used[candidate] {
					label = candidate
					break
				}
			}
		}
		used[label] = true
		for _, member := range members {
			labels[member.ID] = label
		}
	}
	// Noise and unembedded items are left unlabeled; the clusterer routes
	// them to "General".
	return labels, nil
}

// adaptiveMinPoints keeps small collections clusterable: max(2, min(4, n/8)).
func adaptiveMinPoints(n int) int {
	pts := n / 8
	if pts > 4 {
		pts = 4
	}
	if pts < 2 {
		pts = 2
	}
	return pts
}

func embeddedSubset(items []domain.ContentItem) []domain.ContentItem {
	dim := 0
	for _, item := range items {
		if item.HasEmbedding() {
			dim = len(item.Embedding)
			break
		}
	}
	if dim == 0 {
		return nil
	}

	var out []domain.ContentItem
	for _, item := range items {
		if len(item.Embedding) == dim {
			out = append(out, item)
		}
	}
	return out
}

// dbscan assigns a component id per item (-1 = noise). Input order is the
// id-sorted item list, which fixes seed ordering and therefore component
// numbering across runs.
func dbscan(items []domain.ContentItem, eps float64, minPts int) []int {
	const (
		unvisited = -2
		noise     = -1
	)

	n := len(items)
	unit := make([][]float64, n)
	for i, item := range items {
		unit[i] = vectors.NormalizeUnit(item.Embedding)
	}

	neighbors := func(i int) []int {
		var hits []int
		for j := 0; j < n; j++ {
			if vectors.CosineDistance(unit[i], unit[j]) <= eps {
				hits = append(hits, j)
			}
		}
		return hits
	}

	assigned := make([]int, n)
	for i := range assigned {
		assigned[i] = unvisited
	}

	component := 0
	for i := 0; i < n; i++ {
		if assigned[i] != unvisited {
			continue
		}

		seeds := neighbors(i)
		if len(seeds) < minPts {
			assigned[i] = noise
			continue
		}

		assigned[i] = component
		queue := append([]int(nil), seeds...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if assigned[j] == noise {
				assigned[j] = component // border point
			}
			if assigned[j] != unvisited {
				continue
			}
			assigned[j] = component

			reach := neighbors(j)
			if len(reach) >= minPts {
				queue = append(queue, reach...)
			}
		}
		component++
	}
	return assigned
}

// componentLabel derives the cluster name from the dominant topic among
// members, falling back to the dominant content type when no member
// carries topics.
func componentLabel(members []domain.ContentItem) string {
	counts := make(map[string]int)
	var order []string
	for _, m := range members {
		for _, topic := range m.KeyTopics {
			if counts[topic] == 0 {
				order = append(order, topic)
			}
			counts[topic]++
		}
	}
	if len(order) > 0 {
		best := order[0]
		for _, topic := range order {
			if counts[topic] > counts[best] {
				best = topic
			}
		}
		return best
	}

	typeCounts := make(map[domain.ContentType]int)
	var typeOrder []domain.ContentType
	for _, m := range members {
		if typeCounts[m.ContentType] == 0 {
			typeOrder = append(typeOrder, m.ContentType)
		}
		typeCounts[m.ContentType]++
	}
	if len(typeOrder) > 0 {
		best := typeOrder[0]
		for _, ct := range typeOrder {
			if typeCounts[ct] > typeCounts[best] {
				best = ct
			}
		}
		if best != "" {
			return string(best)
		}
	}
	return domain.GeneralClusterLabel
}
