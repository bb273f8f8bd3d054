// Package app wires configuration, adapters and use cases into a runnable
// service.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"MindCanvas/internal/cluster"
	"MindCanvas/internal/config"
	"MindCanvas/internal/graph"
	"MindCanvas/internal/infrastructure/embedding"
	"MindCanvas/internal/infrastructure/httpapi"
	"MindCanvas/internal/infrastructure/llm"
	"MindCanvas/internal/infrastructure/parser"
	"MindCanvas/internal/infrastructure/scheduler"
	"MindCanvas/internal/infrastructure/storage"
	"MindCanvas/internal/logging"
	"MindCanvas/internal/ports"
	"MindCanvas/internal/rank"
	"MindCanvas/internal/usecase"
)

// Application owns the composed service and its lifecycle.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	server    *http.Server
	scheduler ports.Scheduler
	backfill  *usecase.Backfill
	db        *sql.DB
}

// New builds the full application graph. The LLM and embedding clients are
// nil when unconfigured; every consumer treats that as an absent capability
// and degrades.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	var store ports.ContentStore
	var db *sql.DB
	if cfg.Database.DSN != "" {
		opened, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		store = storage.NewPostgresStore(db)
	} else {
		baseLogger.Warn("no database configured, using in-memory store")
		store = storage.NewMemoryStore()
	}

	openAIClient := llm.NewOpenAIClient(cfg.OpenAI)
	embedClient := embedding.NewClient(cfg.Embedding, cfg.OpenAI.APIKey)

	// Typed nils must not leak into interface fields.
	var enricher ports.Enricher
	var classifier ports.ClusterClassifier
	if openAIClient != nil {
		enricher = openAIClient
		classifier = openAIClient
	}
	var embedder ports.Embedder
	if embedClient != nil {
		embedder = embedClient
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Store:    store,
		Fetcher:  parser.NewPageFetcher(nil, cfg.Pipeline),
		Enricher: enricher,
		Embedder: embedder,
		Config:   cfg.Pipeline,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	clusterer := cluster.New(cfg.Clustering, classifier, baseLogger.With("component", "cluster"))
	builder := graph.NewBuilder(cfg.Graph)
	ranker := rank.New(store, embedder, cfg.Search, baseLogger.With("component", "rank"))
	knowledge := usecase.NewKnowledge(store, clusterer, builder, ranker, baseLogger.With("component", "knowledge"))
	backfill := usecase.NewBackfill(store, embedder, baseLogger.With("component", "backfill"))

	api := httpapi.New(pipeline, knowledge, backfill, baseLogger.With("component", "http"))

	return &Application{
		cfg:    cfg,
		logger: baseLogger,
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		scheduler: scheduler.NewIntervalScheduler(cfg.Pipeline.BackfillInterval),
		backfill:  backfill,
		db:        db,
	}, nil
}

// Run starts the backfill scheduler and serves HTTP until the context is
// cancelled or the listener fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx, func(time.Time) {
		if _, err := a.backfill.Run(ctx); err != nil {
			a.logger.Error("scheduled backfill failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.scheduler.Stop(shutdownCtx)
	if a.db != nil {
		defer a.db.Close()
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
