// Package mcp implements the Model Context Protocol (MCP) server for
// codelens.
//
// The server exposes six tools to AI coding assistants:
//   - index_file: Index or re-index a single file
//   - remove_file: Remove a file's record from the vector store
//   - search_code: Hybrid semantic search over the indexed project
//   - search_workspace: Cross-project search over the configured workspace
//   - get_status: Queue depth, indexing counters, and store size
//   - get_query_profile: Rolling query statistics and recommendations
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Because stdout carries the protocol, all logging goes to stderr.
//
// # Basic Usage
//
// The server is typically started via the serve command:
//
//	codelens serve
//
// It then listens on stdin for MCP protocol messages and writes responses
// to stdout.
//
// # Tool: search_code
//
//	Request:
//	{
//	  "name": "search_code",
//	  "arguments": {
//	    "query": "connection pool retry logic",
//	    "limit": 10,
//	    "filters": {"file_types": ["go"], "directory": "internal/"}
//	  }
//	}
//
// Results are ranked by a weighted composite of vector similarity, keyword
// overlap, file size, file type, and freshness, then paginated with opaque
// cursors.
//
// # Tool: search_workspace
//
//	Request:
//	{
//	  "name": "search_workspace",
//	  "arguments": {
//	    "query": "authentication middleware",
//	    "scope": "dependencies",
//	    "target_project": "api-server"
//	  }
//	}
//
// Scope selects the project set: project (target only), dependencies
// (target plus direct dependencies), related (target plus graph-similar
// projects), or workspace (everything). One project's failure excludes its
// results; it never fails the query.
//
// # Error Codes
//
// Handlers return JSON-RPC errors with codes in the server range:
// -32602 invalid params, -32603 internal, -32004 empty query, -32005
// embedding unavailable, -32006 invalid scope, -32007 invalid cursor.
package mcp
