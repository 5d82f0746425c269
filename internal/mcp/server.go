package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/vectralab/codelens/internal/config"
	"github.com/vectralab/codelens/internal/embedder"
	"github.com/vectralab/codelens/internal/indexer"
	"github.com/vectralab/codelens/internal/parser"
	"github.com/vectralab/codelens/internal/pipeline"
	"github.com/vectralab/codelens/internal/profiler"
	"github.com/vectralab/codelens/internal/queue"
	"github.com/vectralab/codelens/internal/searcher"
	"github.com/vectralab/codelens/internal/storage"
	"github.com/vectralab/codelens/internal/workspace"
	"github.com/vectralab/codelens/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "codelens"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp        *server.MCPServer
	gateway    storage.Gateway
	provider   embedder.Provider
	pipeline   *pipeline.Pipeline
	queue      *queue.Queue
	indexer    *indexer.PriorityIndexer
	engine     *searcher.Engine
	workspace  *workspace.Searcher
	profiler   *profiler.Profiler
	collection string
	buildMode  string
	log        *zap.Logger
}

// NewServer wires the full application from configuration.
func NewServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dbPath, err := expandPath(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	gateway, err := storage.NewSQLiteGateway(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	collection, err := gateway.EnsureCollection(ctx, cfg.Collection, cfg.Embedding.Dimension, cfg.Indexing.AutoFixDim)
	if err != nil {
		_ = gateway.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	provider, err := embedder.New(cfg.Embedding)
	if err != nil {
		_ = gateway.Close()
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}

	pipe := pipeline.New(parser.NewMetadataParser(), provider, gateway, collection, log)

	q := queue.New(pipe, cfg.Indexing.QueueCapacity, log)

	controller := indexer.NewBatchController(cfg.Indexing.MinBatchSize, cfg.Indexing.MaxBatchSize, indexer.RuntimeSampler{})
	collector := indexer.NewCollector(0)
	pi := indexer.New(pipe, controller, collector, cfg.Indexing.MaxRetries, log)

	prof := profiler.New(cfg.Search.SlowQueryThreshold())

	var shared searcher.SharedCache
	if cfg.Search.RedisAddr != "" {
		shared = searcher.NewRedisCache(cfg.Search.RedisAddr)
	}

	engine := searcher.NewEngine(searcher.Config{
		Gateway:    gateway,
		Provider:   provider,
		Collection: collection,
		Weights: searcher.Weights{
			Similarity: cfg.Search.SimilarityWeight,
			Keyword:    cfg.Search.KeywordWeight,
			Size:       cfg.Search.SizeWeight,
			Type:       cfg.Search.TypeWeight,
			Freshness:  cfg.Search.FreshnessWeight,
		},
		CacheSize: cfg.Search.CacheSize,
		CacheTTL:  cfg.Search.TTL(),
		Shared:    shared,
		Profiler:  prof,
		Logger:    log,
	})

	registry, err := buildRegistry(cfg.Workspace)
	if err != nil {
		_ = gateway.Close()
		return nil, err
	}
	ws := workspace.NewSearcher(registry, provider, engine, cfg.Workspace.Concurrency, log)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:        mcpServer,
		gateway:    gateway,
		provider:   provider,
		pipeline:   pipe,
		queue:      q,
		indexer:    pi,
		engine:     engine,
		workspace:  ws,
		profiler:   prof,
		collection: collection,
		buildMode:  storage.BuildMode,
		log:        log,
	}
	s.registerTools()

	return s, nil
}

// buildRegistry constructs the project registry and relationship graph from
// workspace configuration. The serving project itself is always registered.
func buildRegistry(cfg config.WorkspaceConfig) (*workspace.Registry, error) {
	graph := workspace.NewMemoryGraph()
	for _, rel := range cfg.Relations {
		graph.AddEdge(rel.From, rel.To)
	}

	registry := workspace.NewRegistry(graph)
	for _, p := range cfg.Projects {
		registry.AddProject(workspace.Project{
			ID:         p.ID,
			Name:       p.Name,
			Collection: p.Collection,
			Priority:   types.ParsePriority(p.Priority),
		})
	}

	// Reject cyclic dependency declarations up front.
	ids := make([]string, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		ids = append(ids, p.ID)
	}
	if _, err := graph.TopoOrder(ids); err != nil {
		return nil, fmt.Errorf("workspace relations: %w", err)
	}

	return registry, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer s.shutdown()
	return server.ServeStdio(s.mcp)
}

func (s *Server) shutdown() {
	s.queue.Close()
	if err := s.provider.Close(); err != nil {
		s.log.Warn("embedder close failed", zap.Error(err))
	}
	if err := s.gateway.Close(); err != nil {
		s.log.Warn("storage close failed", zap.Error(err))
	}
}

// Queue exposes the indexing queue for the watcher bridge.
func (s *Server) Queue() *queue.Queue { return s.queue }

// Indexer exposes the priority indexer for bulk CLI indexing.
func (s *Server) Indexer() *indexer.PriorityIndexer { return s.indexer }

// Engine exposes the search engine for CLI queries.
func (s *Server) Engine() *searcher.Engine { return s.engine }

// Close releases held resources without serving. The serve path releases
// them itself when ServeStdio returns.
func (s *Server) Close() { s.shutdown() }

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(indexFileTool(), s.handleIndexFile)
	s.mcp.AddTool(removeFileTool(), s.handleRemoveFile)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(searchWorkspaceTool(), s.handleSearchWorkspace)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(getQueryProfileTool(), s.handleGetQueryProfile)
}

// expandPath resolves a leading "~/" against the user's home directory.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") && path != "~" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
