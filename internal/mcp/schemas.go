package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexFileTool returns the tool definition for index_file
func indexFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_file",
		Description: "Index or re-index a single file into the vector store",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the file to index",
				},
				"priority": map[string]interface{}{
					"type":        "string",
					"description": "Scheduling tier for bulk indexing",
					"enum":        []string{"critical", "high", "normal", "low"},
					"default":     "normal",
				},
			},
			Required: []string{"path"},
		},
	}
}

// removeFileTool returns the tool definition for remove_file
func removeFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_file",
		Description: "Remove a file's record from the vector store",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the file to remove",
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Semantic search over the indexed project with hybrid ranking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"cursor": map[string]interface{}{
					"type":        "string",
					"description": "Opaque pagination cursor from a previous page",
				},
				"page_size": map[string]interface{}{
					"type":        "integer",
					"description": "Results per page when paginating",
					"default":     10,
				},
				"filters": filtersSchema(),
			},
			Required: []string{"query"},
		},
	}
}

// filtersSchema is the shared filters property used by both search tools.
func filtersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional filters to narrow results",
		"properties": map[string]interface{}{
			"file_types": map[string]interface{}{
				"type":        "array",
				"description": "File extension allow-list, without the dot",
				"items":       map[string]interface{}{"type": "string"},
			},
			"directory": map[string]interface{}{
				"type":        "string",
				"description": "Restrict results to this path prefix",
			},
			"exclude_patterns": map[string]interface{}{
				"type":        "array",
				"description": "Substring patterns to exclude from paths",
				"items":       map[string]interface{}{"type": "string"},
			},
			"author": map[string]interface{}{
				"type":        "string",
				"description": "Exact author match",
			},
			"min_score": map[string]interface{}{
				"type":        "number",
				"description": "Minimum composite score threshold (0.0-1.0)",
				"minimum":     0.0,
				"maximum":     1.0,
			},
			"modified_after": map[string]interface{}{
				"type":        "string",
				"description": "RFC3339 lower bound on modification time",
			},
			"modified_before": map[string]interface{}{
				"type":        "string",
				"description": "RFC3339 upper bound on modification time",
			},
		},
	}
}

// searchWorkspaceTool returns the tool definition for search_workspace
func searchWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_workspace",
		Description: "Cross-project semantic search over the configured workspace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"scope": map[string]interface{}{
					"type":        "string",
					"description": "Project set to search",
					"enum":        []string{"project", "dependencies", "workspace", "related"},
					"default":     "project",
				},
				"target_project": map[string]interface{}{
					"type":        "string",
					"description": "Target project ID; required for all scopes except workspace",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of merged results (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"filters": filtersSchema(),
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report queue depth, indexing counters, and store size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getQueryProfileTool returns the tool definition for get_query_profile
func getQueryProfileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_query_profile",
		Description: "Report rolling query statistics and optimization recommendations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
