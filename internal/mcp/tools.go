package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vectralab/codelens/internal/pagination"
	"github.com/vectralab/codelens/internal/searcher"
	"github.com/vectralab/codelens/internal/workspace"
	"github.com/vectralab/codelens/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
	ErrorCodeEmbedding     = -32005 // Embedding provider unavailable
	ErrorCodeInvalidScope  = -32006 // Unknown workspace scope or target
	ErrorCodeInvalidCursor = -32007 // Corrupted pagination cursor
)

// handleIndexFile handles the index_file tool invocation. The file runs
// through the priority indexer so retries and batch metrics apply.
func (s *Server) handleIndexFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validateFilePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	priority := types.ParsePriority(getStringDefault(args, "priority", "normal"))

	before := s.indexer.Stats()
	s.indexer.Enqueue(path, priority)
	if err := s.indexer.Run(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing interrupted", map[string]interface{}{
			"error": err.Error(),
		})
	}
	after := s.indexer.Stats()

	s.engine.InvalidateCache()

	response := map[string]interface{}{
		"path":      path,
		"priority":  priority.String(),
		"completed": after.Completed - before.Completed,
		"skipped":   after.Skipped - before.Skipped,
		"failed":    after.Failed - before.Failed,
		"retried":   after.Retried - before.Retried,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRemoveFile handles the remove_file tool invocation
func (s *Server) handleRemoveFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := s.pipeline.RemovePath(ctx, path); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "remove failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.engine.InvalidateCache()

	response := map[string]interface{}{
		"path":    path,
		"removed": true,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	req := searcher.Request{
		Query:   query,
		Limit:   limit,
		Filters: parseFilters(args),
	}

	resp, err := s.engine.Search(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrEmbeddingUnavailable) {
			return nil, newMCPError(ErrorCodeEmbedding, "embedding provider unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cursor := getStringDefault(args, "cursor", "")
	pageSize := getIntDefault(args, "page_size", limit)
	page, err := pagination.Paginate(resp.Results, cursor, pageSize)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidCursor, "invalid pagination cursor", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"results":     page.Items,
		"total":       page.Total,
		"has_next":    page.HasNext,
		"has_prev":    page.HasPrev,
		"next_cursor": page.NextCursor,
		"prev_cursor": page.PrevCursor,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchWorkspace handles the search_workspace tool invocation
func (s *Server) handleSearchWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	req := workspace.Request{
		Query:           query,
		Scope:           workspace.Scope(getStringDefault(args, "scope", "")),
		TargetProjectID: getStringDefault(args, "target_project", ""),
		Limit:           limit,
		Filters:         parseFilters(args),
	}

	results, metrics, err := s.workspace.Search(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidScope):
			return nil, newMCPError(ErrorCodeInvalidScope, "invalid scope or target project", map[string]interface{}{
				"error": err.Error(),
			})
		case errors.Is(err, types.ErrEmbeddingUnavailable):
			return nil, newMCPError(ErrorCodeEmbedding, "embedding provider unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		default:
			return nil, newMCPError(ErrorCodeInternalError, "workspace search failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	response := map[string]interface{}{
		"results": results,
		"total":   len(results),
		"metrics": map[string]interface{}{
			"projects_searched":    metrics.ProjectsSearched,
			"projects_failed":      metrics.ProjectsFailed,
			"results_before_merge": metrics.ResultsBeforeMerge,
			"results_after_merge":  metrics.ResultsAfterMerge,
			"embed_ms":             metrics.EmbedDuration.Milliseconds(),
			"fanout_ms":            metrics.FanoutDuration.Milliseconds(),
			"merge_ms":             metrics.MergeDuration.Milliseconds(),
			"total_ms":             metrics.TotalDuration.Milliseconds(),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	qs := s.queue.Status()
	is := s.indexer.Stats()

	count, err := s.gateway.Count(ctx, s.collection)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read store", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"collection":     s.collection,
		"indexed_files":  count,
		"vector_backend": s.buildMode,
		"queue": map[string]interface{}{
			"processing": qs.Processing,
			"depth":      qs.QueueDepth,
			"enqueued":   qs.Stats.Enqueued,
			"processed":  qs.Stats.Processed,
			"skipped":    qs.Stats.Skipped,
			"failed":     qs.Stats.Failed,
		},
		"indexer": map[string]interface{}{
			"queued":    is.Queued,
			"completed": is.Completed,
			"retried":   is.Retried,
			"skipped":   is.Skipped,
			"failed":    is.Failed,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetQueryProfile handles the get_query_profile tool invocation
func (s *Server) handleGetQueryProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.profiler.Snapshot()

	phases := make(map[string]interface{}, len(stats.AvgPhase))
	for phase, d := range stats.AvgPhase {
		phases[string(phase)] = d.Milliseconds()
	}

	response := map[string]interface{}{
		"queries":           stats.Queries,
		"avg_duration_ms":   stats.AvgDuration.Milliseconds(),
		"cache_hit_rate":    fmt.Sprintf("%.2f", stats.CacheHitRate),
		"slow_queries":      stats.SlowQueries,
		"slow_threshold_ms": stats.SlowThreshold.Milliseconds(),
		"avg_phase_ms":      phases,
		"recommendations":   s.profiler.Recommendations(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateFilePath checks that a path is absolute and names a regular file.
func validateFilePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if info.IsDir() {
		return ErrPathIsDirectory
	}
	return nil
}

// parseFilters extracts the optional filters object from tool arguments.
func parseFilters(args map[string]interface{}) *searcher.Filters {
	raw, ok := args["filters"].(map[string]interface{})
	if !ok {
		return nil
	}
	f := &searcher.Filters{
		Directory: getStringDefault(raw, "directory", ""),
		Author:    getStringDefault(raw, "author", ""),
	}
	if v, ok := raw["min_score"].(float64); ok {
		f.MinScore = v
	}
	f.FileTypes = stringSlice(raw["file_types"])
	f.ExcludePatterns = stringSlice(raw["exclude_patterns"])
	if v, ok := raw["modified_after"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.ModifiedAfter = t
		}
	}
	if v, ok := raw["modified_before"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.ModifiedBefore = t
		}
	}
	return f
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrPathIsDirectory = errors.New("path is a directory, not a file")
)
