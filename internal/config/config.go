package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "MINDCANVAS_CONFIG"
	databaseDSNEnv  = "DATABASE_DSN"
	openAIAPIKeyEnv = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	serverAddrEnv   = "MINDCANVAS_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Graph      GraphConfig      `yaml:"graph"`
	Search     SearchConfig     `yaml:"search"`
}

// LoggingConfig controls the slog handler level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// OpenAIConfig defines how to contact the chat-completions API used for
// metadata enrichment and structured clustering. An empty APIKey means the
// capability is absent and every consumer must degrade.
type OpenAIConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EmbeddingConfig describes the embeddings capability. Dimension is a
// deployment constant, never negotiated at runtime.
type EmbeddingConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// PipelineConfig bounds the ingest workflow.
type PipelineConfig struct {
	BatchSize        int           `yaml:"batchSize"`
	MinContentLength int           `yaml:"minContentLength"`
	MaxContentLength int           `yaml:"maxContentLength"`
	FetchTimeout     time.Duration `yaml:"fetchTimeout"`
	BackfillInterval time.Duration `yaml:"backfillInterval"`
	ExcludedDomains  []string      `yaml:"excludedDomains"`
}

// ClusteringConfig tunes the semantic clusterer strategy chain.
type ClusteringConfig struct {
	MaxClusters   int     `yaml:"maxClusters"`
	Eps           float64 `yaml:"eps"`
	MinPoints     int     `yaml:"minPoints"`
	MinEmbeddings int     `yaml:"minEmbeddings"`
}

// GraphConfig tunes similarity graph construction.
type GraphConfig struct {
	DegreeCap         int     `yaml:"degreeCap"`
	SameClusterWeight float64 `yaml:"sameClusterWeight"`
	MinNodeSize       float64 `yaml:"minNodeSize"`
	MaxNodeSize       float64 `yaml:"maxNodeSize"`
	NodeSizeBase      float64 `yaml:"nodeSizeBase"`
	NodeSizeScale     float64 `yaml:"nodeSizeScale"`
}

// SearchConfig tunes the relevance ranker.
type SearchConfig struct {
	SimilarityFloor float64 `yaml:"similarityFloor"`
	DefaultLimit    int     `yaml:"defaultLimit"`
}

// Load reads .env and YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// ExcludedDomainSet returns the excluded domains as a lookup set with the
// leading "www." stripped, matching how the fetcher normalizes hosts.
func (p PipelineConfig) ExcludedDomainSet() map[string]bool {
	set := make(map[string]bool, len(p.ExcludedDomains))
	for _, d := range p.ExcludedDomains {
		set[strings.TrimPrefix(strings.ToLower(d), "www.")] = true
	}
	return set
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}
	if override.Server.Addr != "" {
		base.Server = override.Server
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.Timeout > 0 {
		base.OpenAI.Timeout = override.OpenAI.Timeout
	}

	if override.Embedding.Endpoint != "" {
		base.Embedding.Endpoint = override.Embedding.Endpoint
	}
	if override.Embedding.Model != "" {
		base.Embedding.Model = override.Embedding.Model
	}
	if override.Embedding.Dimension > 0 {
		base.Embedding.Dimension = override.Embedding.Dimension
	}
	if override.Embedding.Timeout > 0 {
		base.Embedding.Timeout = override.Embedding.Timeout
	}

	if override.Pipeline.BatchSize > 0 {
		base.Pipeline.BatchSize = override.Pipeline.BatchSize
	}
	if override.Pipeline.MinContentLength > 0 {
		base.Pipeline.MinContentLength = override.Pipeline.MinContentLength
	}
	if override.Pipeline.MaxContentLength > 0 {
		base.Pipeline.MaxContentLength = override.Pipeline.MaxContentLength
	}
	if override.Pipeline.FetchTimeout > 0 {
		base.Pipeline.FetchTimeout = override.Pipeline.FetchTimeout
	}
	if override.Pipeline.BackfillInterval > 0 {
		base.Pipeline.BackfillInterval = override.Pipeline.BackfillInterval
	}
	if len(override.Pipeline.ExcludedDomains) > 0 {
		base.Pipeline.ExcludedDomains = override.Pipeline.ExcludedDomains
	}

	if override.Clustering.MaxClusters > 0 {
		base.Clustering.MaxClusters = override.Clustering.MaxClusters
	}
	if override.Clustering.Eps > 0 {
		base.Clustering.Eps = override.Clustering.Eps
	}
	if override.Clustering.MinPoints > 0 {
		base.Clustering.MinPoints = override.Clustering.MinPoints
	}
	if override.Clustering.MinEmbeddings > 0 {
		base.Clustering.MinEmbeddings = override.Clustering.MinEmbeddings
	}

	if override.Graph.DegreeCap > 0 {
		base.Graph.DegreeCap = override.Graph.DegreeCap
	}
	if override.Graph.SameClusterWeight > 0 {
		base.Graph.SameClusterWeight = override.Graph.SameClusterWeight
	}
	if override.Graph.MinNodeSize > 0 {
		base.Graph.MinNodeSize = override.Graph.MinNodeSize
	}
	if override.Graph.MaxNodeSize > 0 {
		base.Graph.MaxNodeSize = override.Graph.MaxNodeSize
	}
	if override.Graph.NodeSizeBase > 0 {
		base.Graph.NodeSizeBase = override.Graph.NodeSizeBase
	}
	if override.Graph.NodeSizeScale > 0 {
		base.Graph.NodeSizeScale = override.Graph.NodeSizeScale
	}

	if override.Search.SimilarityFloor > 0 {
		base.Search.SimilarityFloor = override.Search.SimilarityFloor
	}
	if override.Search.DefaultLimit > 0 {
		base.Search.DefaultLimit = override.Search.DefaultLimit
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		// Empty DSN keeps the service on the in-memory store until Postgres
		// is configured.
		Database: DatabaseConfig{DSN: ""},
		Server:   ServerConfig{Addr: ":8090"},
		OpenAI: OpenAIConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			APIKey:   "",
			Timeout:  20 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Endpoint:  "https://api.openai.com/v1/embeddings",
			Model:     "text-embedding-3-small",
			Dimension: 384,
			Timeout:   15 * time.Second,
		},
		Pipeline: PipelineConfig{
			BatchSize:        10,
			MinContentLength: 30,
			MaxContentLength: 1500,
			FetchTimeout:     10 * time.Second,
			BackfillInterval: 6 * time.Hour,
			ExcludedDomains: []string{
				"google.com", "bing.com", "facebook.com", "twitter.com", "x.com",
				"instagram.com", "linkedin.com", "tiktok.com", "reddit.com",
			},
		},
		Clustering: ClusteringConfig{
			MaxClusters:   12,
			Eps:           0.4,
			MinPoints:     0, // 0 = adaptive: max(2, min(4, n/8))
			MinEmbeddings: 3,
		},
		Graph: GraphConfig{
			DegreeCap:         8,
			SameClusterWeight: 1.3,
			MinNodeSize:       6,
			MaxNodeSize:       30,
			NodeSizeBase:      4,
			NodeSizeScale:     2,
		},
		Search: SearchConfig{
			SimilarityFloor: 0.3,
			DefaultLimit:    20,
		},
	}
}
