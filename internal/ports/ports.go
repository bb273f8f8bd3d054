package ports

import (
	"context"
	"time"

	"MindCanvas/internal/domain"
)

// ContentStore persists processed items and answers similarity queries.
// It owns its own consistency guarantees; per-URL upsert is atomic with
// last-writer-wins semantics.
type ContentStore interface {
	LoadAll(ctx context.Context) ([]domain.ContentItem, error)
	FindByURL(ctx context.Context, url string) (*domain.ContentItem, error)
	FindByHash(ctx context.Context, hash string) (*domain.ContentItem, error)
	Upsert(ctx context.Context, item domain.ContentItem) (string, error)
	VectorSearch(ctx context.Context, vector []float64, k int, threshold float64) ([]domain.ScoredItem, error)
}

// Embedder produces a fixed-dimension vector per text when available.
// Absence of the capability is a first-class state, not an error.
type Embedder interface {
	Vector(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// Enricher pushes batched page text to an LLM for structured metadata.
type Enricher interface {
	EnrichBatch(ctx context.Context, pages []domain.PageContent) ([]domain.PageMetadata, error)
}

// ClusterClassifier asks an LLM to map item identifiers to cluster names.
// Implementations must be safely callable with a short timeout and are
// treated as absent when no credential is configured.
type ClusterClassifier interface {
	Classify(ctx context.Context, items []domain.ClusterItemRef, maxClusters int) (map[string]string, error)
}

// PageFetcher downloads a page and extracts its main text content.
// Returns nil content (no error) when the page yields nothing usable.
type PageFetcher interface {
	Fetch(ctx context.Context, entry domain.HistoryEntry) (*domain.PageContent, error)
}

// Scheduler controls when recurring maintenance jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
