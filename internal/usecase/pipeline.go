// Package usecase orchestrates the ingest pipeline and the read-side
// knowledge services over the driven adapters.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
	"MindCanvas/internal/extract"
	"MindCanvas/internal/ports"
)

// PipelineDeps wires the driven adapters into the ingest workflow. Enricher
// and Embedder are optional capabilities; a nil value means every item goes
// through the rule-based path.
type PipelineDeps struct {
	Store    ports.ContentStore
	Fetcher  ports.PageFetcher
	Enricher ports.Enricher
	Embedder ports.Embedder
	Config   config.PipelineConfig
	Logger   *slog.Logger
}

// Pipeline implements the history-ingestion workflow: fetch, extract,
// enrich, fingerprint, embed, persist.
type Pipeline struct {
	store    ports.ContentStore
	fetcher  ports.PageFetcher
	enricher ports.Enricher
	embedder ports.Embedder
	cfg      config.PipelineConfig
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		store:    deps.Store,
		fetcher:  deps.Fetcher,
		enricher: deps.Enricher,
		embedder: deps.Embedder,
		cfg:      deps.Config,
		logger:   deps.Logger,
	}
}

// IngestReport summarizes one ingest run.
type IngestReport struct {
	Received         int `json:"received"`
	Stored           int `json:"stored"`
	Refreshed        int `json:"refreshed"`
	Skipped          int `json:"skipped"`
	DuplicateContent int `json:"duplicate_content"`
	Failed           int `json:"failed"`
}

// Ingest processes raw history entries. Re-ingesting a known URL refreshes
// its content and metadata in place, keeping the original id. Fetch and
// capability failures degrade per entry; store errors abort the run.
func (p *Pipeline) Ingest(ctx context.Context, entries []domain.HistoryEntry) (IngestReport, error) {
	report := IngestReport{Received: len(entries)}

	var pending []domain.PageContent
	known := make(map[string]bool)
	for _, entry := range entries {
		if strings.TrimSpace(entry.URL) == "" {
			report.Skipped++
			continue
		}

		existing, err := p.store.FindByURL(ctx, entry.URL)
		if err != nil {
			return report, fmt.Errorf("lookup %s: %w", entry.URL, err)
		}
		if existing != nil {
			known[entry.URL] = true
		}

		page, err := p.fetcher.Fetch(ctx, entry)
		if err != nil {
			p.warn("fetch failed", "url", entry.URL, "error", err)
			report.Failed++
			continue
		}
		if page == nil {
			report.Skipped++
			continue
		}
		pending = append(pending, *page)
	}

	batchSize := p.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := p.processBatch(ctx, pending[start:end], known, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// processBatch enriches one batch and persists its items. A failing
// enricher downgrades the whole batch to the rule-based extractor rather
// than dropping it.
func (p *Pipeline) processBatch(ctx context.Context, pages []domain.PageContent, known map[string]bool, report *IngestReport) error {
	metas := p.enrich(ctx, pages)

	for i, page := range pages {
		item, err := p.buildItem(ctx, page, metas[i])
		if err != nil {
			return err
		}
		dup, err := p.store.FindByHash(ctx, item.ContentHash)
		if err != nil {
			return fmt.Errorf("hash lookup %s: %w", page.URL, err)
		}
		if dup != nil && dup.URL != item.URL {
			p.debug("duplicate content under new url", "url", item.URL, "existing", dup.URL)
			report.DuplicateContent++
		}

		// Upsert is keyed by URL; a known URL keeps its id and created_at.
		if _, err := p.store.Upsert(ctx, item); err != nil {
			return fmt.Errorf("store %s: %w", page.URL, err)
		}
		if known[item.URL] {
			report.Refreshed++
		} else {
			report.Stored++
		}
	}
	return nil
}

// enrich returns one metadata entry per page, falling back to the
// rule-based extractor when the LLM capability is absent or failing.
func (p *Pipeline) enrich(ctx context.Context, pages []domain.PageContent) []domain.PageMetadata {
	if p.enricher != nil {
		metas, err := p.enricher.EnrichBatch(ctx, pages)
		if err == nil && len(metas) == len(pages) {
			return metas
		}
		if err != nil {
			p.warn("enrichment degraded to rule-based extraction", "pages", len(pages), "error", err)
		}
	}

	metas := make([]domain.PageMetadata, len(pages))
	for i, page := range pages {
		metas[i] = extract.BasicMetadata(page)
	}
	return metas
}

func (p *Pipeline) buildItem(ctx context.Context, page domain.PageContent, meta domain.PageMetadata) (domain.ContentItem, error) {
	item := domain.ContentItem{
		URL:              page.URL,
		Title:            meta.Title,
		Content:          page.Content,
		Summary:          meta.Summary,
		ContentType:      meta.ContentType,
		KeyTopics:        meta.KeyTopics,
		QualityScore:     extract.QualityScore(meta.Title, page.URL, page.Content),
		ProcessingMethod: meta.Method,
		ContentHash:      extract.Fingerprint(meta.Title, page.Content),
		VisitTimestamp:   page.VisitedAt,
		CreatedAt:        time.Now().UTC(),
	}

	if p.embedder != nil {
		vector, err := p.embedder.Vector(ctx, embeddingText(item))
		if err != nil {
			p.warn("embedding failed, stored without vector", "url", item.URL, "error", err)
		} else {
			item.Embedding = vector
		}
	}
	return item, nil
}

// embeddingText is the canonical projection embedded for an item: title,
// summary and topics, not the raw page text.
func embeddingText(item domain.ContentItem) string {
	parts := []string{item.Title, item.Summary}
	parts = append(parts, item.KeyTopics...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
