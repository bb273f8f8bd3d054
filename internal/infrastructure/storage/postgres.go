// Package storage provides ContentStore implementations: Postgres for
// deployment and an in-memory store for tests and embedded use.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"MindCanvas/internal/domain"
	"MindCanvas/internal/ports"
	"MindCanvas/internal/vectors"
)

const contentColumns = "id, url, title, content, summary, content_type, key_topics, " +
	"quality_score, processing_method, embedding, content_hash, visit_timestamp, created_at"

// PostgresStore persists content items in a single processed_content table.
// Vector search loads candidate embeddings and ranks by cosine in Go; item
// volumes are personal-scale so a round trip over all vectors is fine.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ContentStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// LoadAll returns every stored item ordered by id.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]domain.ContentItem, error) {
	query, args, err := s.builder.
		Select(contentColumns).
		From("processed_content").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build load query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

// FindByURL returns the item stored under url, or nil when absent.
func (s *PostgresStore) FindByURL(ctx context.Context, url string) (*domain.ContentItem, error) {
	return s.findOne(ctx, sq.Eq{"url": url})
}

// FindByHash returns any item sharing the content hash, or nil.
func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (*domain.ContentItem, error) {
	return s.findOne(ctx, sq.Eq{"content_hash": hash})
}

func (s *PostgresStore) findOne(ctx context.Context, pred sq.Eq) (*domain.ContentItem, error) {
	query, args, err := s.builder.
		Select(contentColumns).
		From("processed_content").
		Where(pred).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	item, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &item, nil
}

// Upsert stores the item keyed by URL. Re-ingesting an existing URL
// refreshes metadata but keeps the original id and created_at.
func (s *PostgresStore) Upsert(ctx context.Context, item domain.ContentItem) (string, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query, args, err := s.builder.
		Insert("processed_content").
		Columns("id", "url", "title", "content", "summary", "content_type",
			"key_topics", "quality_score", "processing_method", "embedding",
			"content_hash", "visit_timestamp", "created_at").
		Values(item.ID, item.URL, item.Title, item.Content, item.Summary,
			string(item.ContentType), pq.StringArray(item.KeyTopics),
			item.QualityScore, string(item.ProcessingMethod),
			pq.Float64Array(item.Embedding), item.ContentHash,
			item.VisitTimestamp, item.CreatedAt).
		Suffix(`ON CONFLICT (url) DO UPDATE
			SET title = EXCLUDED.title,
			    content = EXCLUDED.content,
			    summary = EXCLUDED.summary,
			    content_type = EXCLUDED.content_type,
			    key_topics = EXCLUDED.key_topics,
			    quality_score = EXCLUDED.quality_score,
			    processing_method = EXCLUDED.processing_method,
			    embedding = EXCLUDED.embedding,
			    content_hash = EXCLUDED.content_hash,
			    visit_timestamp = EXCLUDED.visit_timestamp
			RETURNING id`).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build upsert: %w", err)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("upsert item: %w", err)
	}
	return id, nil
}

// VectorSearch ranks items with embeddings by cosine similarity to the
// query vector and returns at most k above the threshold.
func (s *PostgresStore) VectorSearch(ctx context.Context, vector []float64, k int, threshold float64) ([]domain.ScoredItem, error) {
	query, args, err := s.builder.
		Select(contentColumns).
		From("processed_content").
		Where("embedding IS NOT NULL").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build vector query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query embedded items: %w", err)
	}
	defer rows.Close()

	var candidates []domain.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		candidates = append(candidates, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return RankBySimilarity(candidates, vector, k, threshold), nil
}

// RankBySimilarity is the shared brute-force cosine ranking used by both
// store implementations.
func RankBySimilarity(items []domain.ContentItem, vector []float64, k int, threshold float64) []domain.ScoredItem {
	var scored []domain.ScoredItem
	for _, item := range items {
		if !item.HasEmbedding() || len(item.Embedding) != len(vector) {
			continue
		}
		sim := vectors.Cosine(vector, item.Embedding)
		if sim >= threshold {
			scored = append(scored, domain.ScoredItem{Item: item, Similarity: sim})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Item.ID < scored[j].Item.ID
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (domain.ContentItem, error) {
	var (
		item      domain.ContentItem
		ctype     string
		method    string
		topics    pq.StringArray
		embedding pq.Float64Array
	)
	err := scanner.Scan(
		&item.ID, &item.URL, &item.Title, &item.Content, &item.Summary,
		&ctype, &topics, &item.QualityScore, &method, &embedding,
		&item.ContentHash, &item.VisitTimestamp, &item.CreatedAt,
	)
	if err != nil {
		return domain.ContentItem{}, err
	}
	item.ContentType = domain.ContentType(ctype)
	item.ProcessingMethod = domain.ProcessingMethod(method)
	item.KeyTopics = []string(topics)
	item.Embedding = []float64(embedding)
	return item, nil
}
