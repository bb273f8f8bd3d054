package cluster

import (
	"context"

	"MindCanvas/internal/domain"
)

// topicStrategy is the deterministic, always-available fallback: group by
// primary topic, then content type, then "General". It guarantees every
// item gets a cluster even with zero embeddings and no LLM.
type topicStrategy struct{}

func (s *topicStrategy) Name() string                    { return "topic" }
func (s *topicStrategy) Method() domain.ProcessingMethod { return domain.MethodFallback }

func (s *topicStrategy) TryCluster(_ context.Context, items []domain.ContentItem) (map[string]string, error) {
	labels := make(map[string]string, len(items))
	for _, item := range items {
		labels[item.ID] = signatureLabel(item)
	}
	return labels, nil
}

func signatureLabel(item domain.ContentItem) string {
	if topic := item.PrimaryTopic(); topic != "" {
		return topic
	}
	if item.ContentType != "" && item.ContentType != domain.TypeWebContent {
		return string(item.ContentType)
	}
	return domain.GeneralClusterLabel
}
