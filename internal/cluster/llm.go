package cluster

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"MindCanvas/internal/domain"
	"MindCanvas/internal/ports"
)

// llmChunkSize bounds how many item references travel in one classify call
// so payloads stay inside provider token limits.
const llmChunkSize = 40

// llmStrategy delegates grouping to the configured LLM capability.
type llmStrategy struct {
	classifier  ports.ClusterClassifier
	maxClusters int
}

func (s *llmStrategy) Name() string                    { return "llm" }
func (s *llmStrategy) Method() domain.ProcessingMethod { return domain.MethodAI }

// TryCluster sends item references in chunks, possibly concurrently, and
// merges the responses. Chunks land in a map keyed by item id, so the merge
// never depends on completion order. Any chunk failure fails the whole
// strategy; the clusterer then degrades to density clustering.
func (s *llmStrategy) TryCluster(ctx context.Context, items []domain.ContentItem) (map[string]string, error) {
	if s.classifier == nil {
		return nil, ErrUnavailable
	}

	refs := make([]domain.ClusterItemRef, len(items))
	for i, item := range items {
		refs[i] = domain.ClusterItemRef{
			ID:     item.ID,
			Title:  item.Title,
			Topics: item.KeyTopics,
		}
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		merged   = make(map[string]string, len(refs))
	)

	for start := 0; start < len(refs); start += llmChunkSize {
		end := start + llmChunkSize
		if end > len(refs) {
			end = len(refs)
		}
		chunk := refs[start:end]

		wg.Add(1)
		go func() {
			defer wg.Done()
			labels, err := s.classifier.Classify(ctx, chunk, s.maxClusters)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for id, label := range labels {
				merged[id] = label
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("llm classify: %w", firstErr)
	}

	return s.boundClusterCount(items, merged), nil
}

// boundClusterCount keeps the graph legible: when the model returned more
// clusters than allowed, only the largest maxClusters survive and the rest
// fold into "General". Sizes tie-break on label so the cut is stable.
func (s *llmStrategy) boundClusterCount(items []domain.ContentItem, labels map[string]string) map[string]string {
	if s.maxClusters <= 0 {
		return labels
	}

	sizes := make(map[string]int)
	for _, item := range items {
		if label := labels[item.ID]; label != "" {
			sizes[label]++
		}
	}
	if len(sizes) <= s.maxClusters {
		return labels
	}

	ranked := make([]string, 0, len(sizes))
	for label := range sizes {
		ranked = append(ranked, label)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if sizes[ranked[i]] != sizes[ranked[j]] {
			return sizes[ranked[i]] > sizes[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	keep := make(map[string]bool, s.maxClusters)
	for _, label := range ranked[:s.maxClusters] {
		keep[label] = true
	}
	keep[domain.GeneralClusterLabel] = true

	bounded := make(map[string]string, len(labels))
	for id, label := range labels {
		if keep[label] {
			bounded[id] = label
		} else {
			bounded[id] = domain.GeneralClusterLabel
		}
	}
	return bounded
}
