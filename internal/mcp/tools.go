package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/dshills/coderecall/internal/engine"
	"github.com/dshills/coderecall/internal/fusion"
	"github.com/dshills/coderecall/internal/indexer"
	"github.com/dshills/coderecall/internal/searcher"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Path does not exist or is not a directory
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Project not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// maxReportedErrors caps the per-file errors echoed back by index_codebase
const maxReportedErrors = 5

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	config := s.engine.IndexConfig()
	config.Force = getBoolDefault(args, "force_reindex", false)
	config.IncludeTests = getBoolDefault(args, "include_tests", config.IncludeTests)
	config.IncludeVendor = getBoolDefault(args, "include_vendor", config.IncludeVendor)

	s.log.WithFields(logrus.Fields{
		"path":  path,
		"force": config.Force,
	}).Info("Indexing project")

	stats, err := s.engine.Index(ctx, path, config)
	if errors.Is(err, indexer.ErrIndexInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"path": path,
		})
	}
	if err != nil {
		s.log.WithError(err).WithField("path", path).Error("Indexing failed")
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":              true,
		"path":                 path,
		"files_indexed":        stats.FilesIndexed,
		"files_skipped":        stats.FilesSkipped,
		"files_failed":         stats.FilesFailed,
		"files_deleted":        stats.FilesDeleted,
		"chunks_created":       stats.ChunksCreated,
		"embeddings_generated": stats.EmbeddingsGenerated,
		"embeddings_failed":    stats.EmbeddingsFailed,
		"duration_ms":          stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	opts, err := s.searchOptions(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.engine.Search(ctx, path, query, opts)
	switch {
	case errors.Is(err, engine.ErrNotIndexed):
		return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed", map[string]interface{}{
			"path":    path,
			"message": "Use index_codebase tool to index this project first.",
		})
	case errors.Is(err, searcher.ErrInvalidRequest), errors.Is(err, searcher.ErrUnknownMode):
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search request", map[string]interface{}{
			"error": err.Error(),
		})
	case err != nil:
		s.log.WithError(err).WithField("path", path).Error("Search failed")
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(searchResponse(resp))), nil
}

// searchOptions overlays tool arguments on the configured defaults
func (s *Server) searchOptions(args map[string]interface{}) (searcher.Options, error) {
	opts := s.engine.SearchOptions()

	limit := getIntDefault(args, "limit", opts.Limit)
	if limit < 1 || limit > searcher.MaxLimit {
		return opts, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	opts.Limit = limit

	mode, err := searcher.ParseMode(getStringDefault(args, "search_mode", string(opts.Mode)))
	if err != nil {
		return opts, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"reason":  err.Error(),
			"allowed": modeNames(),
		})
	}
	opts.Mode = mode

	if preset := getStringDefault(args, "preset", ""); preset != "" {
		if _, err := fusion.Preset(preset); err != nil {
			return opts, newMCPError(ErrorCodeInvalidParams, "invalid preset", map[string]interface{}{
				"param":   "preset",
				"reason":  err.Error(),
				"allowed": fusion.PresetNames(),
			})
		}
		opts.Preset = preset
	}

	opts.EnableExact = getBoolDefault(args, "enable_exact", opts.EnableExact)
	opts.EnableFuzzy = getBoolDefault(args, "enable_fuzzy", opts.EnableFuzzy)
	opts.EnableVector = getBoolDefault(args, "enable_vector", opts.EnableVector)
	opts.EnableSparse = getBoolDefault(args, "enable_sparse", opts.EnableSparse)
	opts.Adaptive = getBoolDefault(args, "adaptive", opts.Adaptive)
	opts.BoostSymbols = getBoolDefault(args, "boost_symbols", opts.BoostSymbols)
	opts.Rerank = getBoolDefault(args, "rerank", opts.Rerank)

	return opts, nil
}

// searchResponse renders a search response for the client
func searchResponse(resp *searcher.SearchResponse) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(resp.Results))
	for i, r := range resp.Results {
		ranks := make(map[string]int, len(r.SourceRanks))
		for src, rank := range r.SourceRanks {
			ranks[string(src)] = rank
		}

		result := map[string]interface{}{
			"rank":       i + 1,
			"score":      r.Score,
			"path":       r.Path,
			"start_line": r.StartLine,
			"end_line":   r.EndLine,
			"sources":    ranks,
			"content":    r.Excerpt,
		}
		if r.Symbol != "" {
			result["symbol"] = r.Symbol
			result["kind"] = r.SymbolKind
		}
		if r.RerankScore != nil {
			result["rerank_score"] = *r.RerankScore
		}
		if depth, ok := r.Metadata["depth"]; ok {
			result["depth"] = depth
		}
		results = append(results, result)
	}

	backends := make([]map[string]interface{}, 0, len(resp.Backends))
	for _, b := range resp.Backends {
		entry := map[string]interface{}{
			"source":      b.Source,
			"hits":        b.Hits,
			"duration_ms": b.Duration.Milliseconds(),
		}
		if b.Error != "" {
			entry["error"] = b.Error
		}
		backends = append(backends, entry)
	}

	weights := make(map[string]float64, len(resp.Weights))
	for src, w := range resp.Weights {
		weights[string(src)] = w
	}

	response := map[string]interface{}{
		"request_id":     resp.RequestID,
		"query":          resp.Query,
		"expanded_query": resp.ExpandedQuery,
		"mode":           resp.Mode,
		"query_shape":    resp.Shape,
		"weights":        weights,
		"results":        results,
		"total_results":  len(results),
		"backends":       backends,
		"reranked":       resp.Reranked,
		"cache_hit":      resp.CacheHit,
		"duration_ms":    resp.Duration.Milliseconds(),
	}
	if len(resp.Warnings) > 0 {
		response["warnings"] = resp.Warnings
	}
	return response
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	status, err := s.engine.Status(ctx, path)
	if errors.Is(err, engine.ErrNotIndexed) {
		response := map[string]interface{}{
			"indexed":  false,
			"indexing": s.engine.Indexing(),
			"path":     path,
			"message":  "Project not indexed. Use index_codebase tool to index this project.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	sources := make([]string, len(status.Sources))
	for i, src := range status.Sources {
		sources[i] = string(src)
	}

	response := map[string]interface{}{
		"indexed":  true,
		"indexing": status.Indexing,
		"project": map[string]interface{}{
			"path":            status.Project.RootPath,
			"index_version":   status.Project.IndexVersion,
			"last_indexed_at": status.Project.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
		"statistics": map[string]interface{}{
			"files_count":      status.Store.FilesCount,
			"symbols_count":    status.Store.SymbolsCount,
			"chunks_count":     status.Store.ChunksCount,
			"embeddings_count": status.Store.EmbeddingsCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.Store.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Store.Health.DatabaseAccessible,
			"embeddings_available": status.Store.Health.EmbeddingsAvailable,
			"fts_indexes_built":    status.Store.Health.FTSIndexesBuilt,
		},
		"retrieval": map[string]interface{}{
			"sources":              sources,
			"graph_enabled":        status.GraphEnabled,
			"rerank_enabled":       status.RerankEnabled,
			"embedder":             status.EmbedderName,
			"embedding_model":      status.EmbedderModel,
			"cached_responses":     status.CachedResponses,
			"bridge_cache_hits":    status.BridgeCache.Hits,
			"bridge_cache_misses":  status.BridgeCache.Misses,
			"bridge_cache_entries": status.BridgeCache.Entries,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// requirePath extracts and validates the path argument
func requirePath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrNotDirectory) {
			code = ErrorCodeProjectNotFound
		}
		return "", newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return filepath.Clean(path), nil
}

func modeNames() []string {
	modes := searcher.Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return names
}

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

// validatePath checks if a path exists and is accessible
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

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

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
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
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
