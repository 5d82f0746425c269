// Package config loads and validates the codelens configuration from a TOML
// file with environment-variable overrides. Configuration errors are
// rejected at load time; no component silently substitutes defaults for
// values the operator is required to supply.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variable overrides. Secrets (the embedding API key) are only
// ever read from the environment, never from the config file.
const (
	EnvDBPath          = "CODELENS_DB_PATH"
	EnvEmbeddingAPIKey = "CODELENS_EMBEDDING_API_KEY"
	EnvRedisAddr       = "CODELENS_REDIS_ADDR"
	EnvLogLevel        = "CODELENS_LOG_LEVEL"
)

// Config errors.
var (
	ErrMissingDimension = errors.New("embedding dimension is required")
	ErrBadBatchBounds   = errors.New("min_batch_size must be >= 1 and <= max_batch_size")
	ErrUnknownPriority  = errors.New("unknown project priority tier")
)

// Config is the root configuration.
type Config struct {
	DBPath     string `toml:"db_path"`
	Collection string `toml:"collection"`
	LogLevel   string `toml:"log_level"`

	Embedding EmbeddingConfig `toml:"embedding"`
	Indexing  IndexingConfig  `toml:"indexing"`
	Search    SearchConfig    `toml:"search"`
	Workspace WorkspaceConfig `toml:"workspace"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider          string  `toml:"provider"` // "http" or "local"
	Endpoint          string  `toml:"endpoint"`
	Model             string  `toml:"model"`
	Dimension         int     `toml:"dimension"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	CacheSize         int     `toml:"cache_size"`
	APIKey            string  `toml:"-"` // environment only
}

// IndexingConfig configures the queue and the priority indexer.
type IndexingConfig struct {
	QueueCapacity int      `toml:"queue_capacity"`
	MinBatchSize  int      `toml:"min_batch_size"`
	MaxBatchSize  int      `toml:"max_batch_size"`
	MaxRetries    int      `toml:"max_retries"`
	AutoFixDim    bool     `toml:"auto_fix_dimension"`
	WatchPaths    []string `toml:"watch_paths"`
	Extensions    []string `toml:"extensions"`
}

// SearchConfig configures the single-project search engine.
type SearchConfig struct {
	CacheTTL         duration `toml:"cache_ttl"`
	CacheSize        int      `toml:"cache_size"`
	RedisAddr        string   `toml:"redis_addr"` // empty disables the shared cache
	SimilarityWeight float64  `toml:"similarity_weight"`
	KeywordWeight    float64  `toml:"keyword_weight"`
	SizeWeight       float64  `toml:"size_weight"`
	TypeWeight       float64  `toml:"type_weight"`
	FreshnessWeight  float64  `toml:"freshness_weight"`
	SlowQuery        duration `toml:"slow_query_threshold"`
}

// WorkspaceConfig describes the known projects and their relationships.
type WorkspaceConfig struct {
	Concurrency int             `toml:"concurrency"`
	Projects    []ProjectConfig `toml:"projects"`
	Relations   []Relation      `toml:"relations"`
}

// ProjectConfig declares one searchable project.
type ProjectConfig struct {
	ID         string `toml:"id"`
	Name       string `toml:"name"`
	Collection string `toml:"collection"`
	Priority   string `toml:"priority"` // critical, high, normal, low
}

// Relation is a directed dependency edge between two projects.
type Relation struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// duration wraps time.Duration for TOML strings like "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		DBPath:     "~/.codelens/index.db",
		Collection: "codelens",
		LogLevel:   "info",
		Embedding: EmbeddingConfig{
			Provider:          "local",
			Dimension:         384,
			RequestsPerSecond: 10,
			CacheSize:         10000,
		},
		Indexing: IndexingConfig{
			QueueCapacity: 1024,
			MinBatchSize:  1,
			MaxBatchSize:  50,
			MaxRetries:    3,
			Extensions:    []string{".go", ".py", ".js", ".ts", ".rs", ".java", ".md"},
		},
		Search: SearchConfig{
			CacheTTL:         duration{5 * time.Minute},
			CacheSize:        1000,
			SimilarityWeight: 0.7,
			KeywordWeight:    0.15,
			SizeWeight:       0.05,
			TypeWeight:       0.05,
			FreshnessWeight:  0.05,
			SlowQuery:        duration{time.Second},
		},
		Workspace: WorkspaceConfig{
			Concurrency: 10,
		},
	}
}

// Load reads the TOML file at path (if non-empty), applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvEmbeddingAPIKey); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Search.RedisAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// Validate rejects configuration-class errors before any component starts.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return ErrMissingDimension
	}
	if c.Indexing.MinBatchSize < 1 || c.Indexing.MinBatchSize > c.Indexing.MaxBatchSize {
		return ErrBadBatchBounds
	}
	if c.Indexing.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.Indexing.MaxRetries)
	}
	for _, p := range c.Workspace.Projects {
		if p.ID == "" || p.Collection == "" {
			return fmt.Errorf("project %q: id and collection are required", p.Name)
		}
		switch p.Priority {
		case "", "critical", "high", "normal", "low":
		default:
			return fmt.Errorf("%w: project %s has priority %q", ErrUnknownPriority, p.ID, p.Priority)
		}
	}
	return nil
}

// TTL returns the query cache TTL as a time.Duration.
func (s SearchConfig) TTL() time.Duration { return s.CacheTTL.Duration }

// SlowQueryThreshold returns the profiler slow-query threshold.
func (s SearchConfig) SlowQueryThreshold() time.Duration { return s.SlowQuery.Duration }
