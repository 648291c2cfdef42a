// Package mcp implements the Model Context Protocol (MCP) server for coderecall.
//
// The server exposes three tools over stdio:
//   - index_codebase: index a source tree
//   - search_code: fused retrieval over an indexed tree, including graph mode
//   - get_status: index statistics and retrieval configuration
//
// # Tool: search_code
//
//	Request:
//	{
//	  "name": "search_code",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "query": "UserAuth",
//	    "limit": 10,
//	    "search_mode": "hybrid"
//	  }
//	}
//
//	Response:
//	{
//	  "query_shape": "identifier",
//	  "weights": {"exact": 0.8, "fuzzy": 0.3, "vector": 0.15, "sparse": 0.3, "graph": 0.5},
//	  "results": [
//	    {
//	      "rank": 1,
//	      "score": 0.0198,
//	      "path": "internal/auth/service.go",
//	      "symbol": "UserAuth",
//	      "kind": "struct",
//	      "start_line": 12,
//	      "end_line": 30,
//	      "sources": {"exact": 1, "vector": 3}
//	    }
//	  ],
//	  "backends": [{"source": "exact", "hits": 14, "duration_ms": 3}]
//	}
//
// A failing backend never fails the call; it shows up in "backends" with an
// "error" field and contributes nothing to the ranking.
//
// # Error Handling
//
// Handler errors are *MCPError values carrying one of:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Path does not exist or is not a directory
//   - -32002: Indexing in progress
//   - -32003: Project not indexed
//   - -32004: Empty query
//
// # Logging
//
// Stdout carries the protocol, so the server logs to stderr through the
// engine's logrus logger.
package mcp
