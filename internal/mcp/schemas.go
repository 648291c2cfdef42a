package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/coderecall/internal/fusion"
	"github.com/dshills/coderecall/internal/searcher"
)

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a source tree so it can be searched. Unchanged files are skipped unless force_reindex is set.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index all files ignoring file hashes (full rebuild)",
					"default":     false,
				},
				"include_tests": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index test files",
					"default":     true,
				},
				"include_vendor": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index vendor/ directory",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name: "search_code",
		Description: "Search an indexed project with identifiers or natural language. " +
			"Exact, fuzzy, semantic and expanded-term results are fused into one ranking; " +
			"graph mode returns the callers and callees of the best matches.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the indexed project",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (identifier, keywords or natural language)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     searcher.DefaultLimit,
					"minimum":     1,
					"maximum":     searcher.MaxLimit,
				},
				"search_mode": map[string]interface{}{
					"type": "string",
					"description": "hybrid fuses every backend; exact, fuzzy, sparse and pure_vector run one; " +
						"graph expands the call graph around the best seeds",
					"enum":    modeNames(),
					"default": string(searcher.ModeHybrid),
				},
				"preset": map[string]interface{}{
					"type":        "string",
					"description": "Fusion weight preset",
					"enum":        fusion.PresetNames(),
				},
				"enable_exact": map[string]interface{}{
					"type":        "boolean",
					"description": "Run the exact lexical backend",
					"default":     true,
				},
				"enable_fuzzy": map[string]interface{}{
					"type":        "boolean",
					"description": "Run the fuzzy lexical backend",
					"default":     true,
				},
				"enable_vector": map[string]interface{}{
					"type":        "boolean",
					"description": "Run the semantic vector backend",
					"default":     true,
				},
				"enable_sparse": map[string]interface{}{
					"type":        "boolean",
					"description": "Run the expanded-term backend",
					"default":     true,
				},
				"adaptive": map[string]interface{}{
					"type":        "boolean",
					"description": "Tilt fusion weights by query shape",
				},
				"boost_symbols": map[string]interface{}{
					"type":        "boolean",
					"description": "Boost results whose symbol name matches the query",
				},
				"rerank": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-score the fused head with the configured reranker",
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status, index statistics and retrieval configuration for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project",
				},
			},
			Required: []string{"path"},
		},
	}
}
