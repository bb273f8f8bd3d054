package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"MindCanvas/internal/domain"
	"MindCanvas/internal/ports"
)

// MemoryStore is a thread-safe in-memory ContentStore. It backs tests and
// single-process deployments that run without Postgres.
type MemoryStore struct {
	mu    sync.RWMutex
	byURL map[string]domain.ContentItem
}

var _ ports.ContentStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byURL: make(map[string]domain.ContentItem)}
}

// LoadAll returns every stored item ordered by id.
func (s *MemoryStore) LoadAll(_ context.Context) ([]domain.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.ContentItem, 0, len(s.byURL))
	for _, item := range s.byURL {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// FindByURL returns the item stored under url, or nil when absent.
func (s *MemoryStore) FindByURL(_ context.Context, url string) (*domain.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, ok := s.byURL[url]; ok {
		return &item, nil
	}
	return nil, nil
}

// FindByHash returns any item sharing the content hash, or nil. Ties are
// broken by lowest id so repeat lookups are stable.
func (s *MemoryStore) FindByHash(_ context.Context, hash string) (*domain.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.ContentItem
	for _, item := range s.byURL {
		if item.ContentHash != hash {
			continue
		}
		if found == nil || item.ID < found.ID {
			copied := item
			found = &copied
		}
	}
	return found, nil
}

// Upsert stores the item keyed by URL, keeping the original id and
// created_at when the URL already exists.
func (s *MemoryStore) Upsert(_ context.Context, item domain.ContentItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byURL[item.URL]; ok {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.byURL[item.URL] = item
	return item.ID, nil
}

// VectorSearch ranks stored embeddings against the query vector by cosine
// similarity.
func (s *MemoryStore) VectorSearch(ctx context.Context, vector []float64, k int, threshold float64) ([]domain.ScoredItem, error) {
	items, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return RankBySimilarity(items, vector, k, threshold), nil
}
