package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"MindCanvas/internal/ports"
)

// Backfill attaches embeddings to items stored without one, typically items
// ingested while the embedding capability was down. It runs on a schedule
// and on demand via the reindex endpoint.
type Backfill struct {
	store    ports.ContentStore
	embedder ports.Embedder
	logger   *slog.Logger
}

// NewBackfill wires the job. A nil embedder makes Run a no-op.
func NewBackfill(store ports.ContentStore, embedder ports.Embedder, logger *slog.Logger) *Backfill {
	return &Backfill{store: store, embedder: embedder, logger: logger}
}

// Run embeds every item lacking a vector and reports how many were updated.
// Per-item embedding failures are logged and skipped; the remainder still
// proceeds.
func (b *Backfill) Run(ctx context.Context) (int, error) {
	if b.embedder == nil {
		return 0, nil
	}

	items, err := b.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load items: %w", err)
	}

	updated := 0
	for _, item := range items {
		if item.HasEmbedding() {
			continue
		}
		text := embeddingText(item)
		if text == "" {
			text = strings.TrimSpace(item.URL)
		}
		if text == "" {
			continue
		}

		vector, err := b.embedder.Vector(ctx, text)
		if err != nil {
			if b.logger != nil {
				b.logger.Warn("backfill embedding failed", "url", item.URL, "error", err)
			}
			continue
		}

		item.Embedding = vector
		if _, err := b.store.Upsert(ctx, item); err != nil {
			return updated, fmt.Errorf("store %s: %w", item.URL, err)
		}
		updated++
	}

	if b.logger != nil && updated > 0 {
		b.logger.Info("embedding backfill finished", "updated", updated)
	}
	return updated, nil
}
