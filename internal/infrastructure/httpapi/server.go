// Package httpapi exposes the pipeline and knowledge services over a JSON
// HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"MindCanvas/internal/domain"
	"MindCanvas/internal/usecase"
)

// Server wraps a gin engine around the use cases.
type Server struct {
	pipeline  *usecase.Pipeline
	knowledge *usecase.Knowledge
	backfill  *usecase.Backfill
	logger    *slog.Logger
	engine    *gin.Engine
}

// New builds the router. Gin runs in release mode; request logging goes
// through slog, not gin's default writer.
func New(pipeline *usecase.Pipeline, knowledge *usecase.Knowledge, backfill *usecase.Backfill, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		pipeline:  pipeline,
		knowledge: knowledge,
		backfill:  backfill,
		logger:    logger,
		engine:    engine,
	}
	s.routes()
	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.POST("/ingest", s.handleIngest)
	api.GET("/graph", s.handleGraph)
	api.GET("/clusters", s.handleClusters)
	api.GET("/search", s.handleSearch)
	api.GET("/content", s.handleContent)
	api.GET("/stats", s.handleStats)
	api.GET("/trending", s.handleTrending)
	api.POST("/reindex", s.handleReindex)
	api.GET("/health", s.handleHealth)
}

type ingestEntry struct {
	URL           string    `json:"url" binding:"required"`
	Title         string    `json:"title"`
	LastVisitTime time.Time `json:"last_visit_time"`
}

type ingestRequest struct {
	Entries []ingestEntry `json:"entries" binding:"required"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := make([]domain.HistoryEntry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = domain.HistoryEntry{
			URL:           e.URL,
			Title:         e.Title,
			LastVisitTime: e.LastVisitTime,
		}
	}

	report, err := s.pipeline.Ingest(c.Request.Context(), entries)
	if err != nil {
		s.fail(c, "ingest", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleGraph(c *gin.Context) {
	export, err := s.knowledge.BuildGraph(c.Request.Context())
	if err != nil {
		s.fail(c, "graph", err)
		return
	}
	c.JSON(http.StatusOK, export)
}

func (s *Server) handleClusters(c *gin.Context) {
	clusters, method, err := s.knowledge.Clusters(c.Request.Context())
	if err != nil {
		s.fail(c, "clusters", err)
		return
	}

	type clusterView struct {
		Label               string   `json:"label"`
		MemberIDs           []string `json:"member_ids"`
		RepresentativeTerms []string `json:"representative_terms"`
		Size                int      `json:"size"`
	}
	views := make([]clusterView, len(clusters))
	for i, cl := range clusters {
		views[i] = clusterView{
			Label:               cl.Label,
			MemberIDs:           cl.MemberIDs,
			RepresentativeTerms: cl.RepresentativeTerms,
			Size:                len(cl.MemberIDs),
		}
	}
	c.JSON(http.StatusOK, gin.H{"clusters": views, "method": method})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	items, err := s.knowledge.Search(c.Request.Context(), query, limit)
	if err != nil {
		s.fail(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": itemViews(items), "count": len(items)})
}

func (s *Server) handleContent(c *gin.Context) {
	items, err := s.knowledge.Items(c.Request.Context())
	if err != nil {
		s.fail(c, "content", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": itemViews(items), "count": len(items)})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.knowledge.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleTrending(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	topics, err := s.knowledge.Trending(c.Request.Context(), time.Duration(days)*24*time.Hour, limit)
	if err != nil {
		s.fail(c, "trending", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (s *Server) handleReindex(c *gin.Context) {
	updated, err := s.backfill.Run(c.Request.Context())
	if err != nil {
		s.fail(c, "reindex", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	if s.logger != nil {
		s.logger.Error("request failed", "op", op, "error", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type itemView struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	ContentType    string    `json:"content_type"`
	KeyTopics      []string  `json:"key_topics"`
	QualityScore   int       `json:"quality_score"`
	Method         string    `json:"processing_method"`
	HasEmbedding   bool      `json:"has_embedding"`
	VisitTimestamp time.Time `json:"visit_timestamp"`
}

func itemViews(items []domain.ContentItem) []itemView {
	views := make([]itemView, len(items))
	for i, item := range items {
		views[i] = itemView{
			ID:             item.ID,
			URL:            item.URL,
			Title:          item.Title,
			Summary:        item.Summary,
			ContentType:    string(item.ContentType),
			KeyTopics:      item.KeyTopics,
			QualityScore:   item.QualityScore,
			Method:         string(item.ProcessingMethod),
			HasEmbedding:   item.HasEmbedding(),
			VisitTimestamp: item.VisitTimestamp,
		}
	}
	return views
}
