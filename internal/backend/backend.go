// Package backend adapts the index store to the retrieval sources fused by
// the searcher: exact, fuzzy and sparse lexical matching over FTS5, and
// dense-vector similarity.
package backend

import (
	"context"
	"strings"

	"github.com/dshills/coderecall/internal/storage"
	"github.com/dshills/coderecall/pkg/types"
)

// Backend is one retrieval source. Search returns at most limit hits, best
// first. An index with nothing to match returns an empty list, not an error.
type Backend interface {
	Source() types.Source
	Search(ctx context.Context, index types.IndexHandle, query string, limit int) ([]types.Hit, error)
}

// TextStore is the part of storage.Storage used by the lexical backends
type TextStore interface {
	SearchText(ctx context.Context, projectID int64, match string, limit int, opts storage.TextOptions) ([]storage.ChunkResult, error)
}

// VectorStore is the part of storage.Storage used by the vector backend
type VectorStore interface {
	SearchVector(ctx context.Context, projectID int64, vector []float32, limit int) ([]storage.ChunkResult, error)
}

// maxExcerptLines bounds the excerpt attached to a hit
const maxExcerptLines = 12

// toHits converts ranked chunks to hits of the given source
func toHits(results []storage.ChunkResult, source types.Source) []types.Hit {
	hits := make([]types.Hit, 0, len(results))
	for _, r := range results {
		c := r.Chunk
		if c == nil {
			continue
		}
		hits = append(hits, types.Hit{
			Path:       c.FilePath,
			Symbol:     c.SymbolName,
			SymbolKind: c.SymbolKind,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
			Score:      r.Score,
			Source:     source,
			Excerpt:    excerpt(c.Content),
			Metadata: map[string]any{
				"chunk_id":   c.ID,
				"chunk_type": c.ChunkType,
			},
		})
	}
	return hits
}

// excerpt returns the first maxExcerptLines lines of content
func excerpt(content string) string {
	lines := strings.SplitN(content, "\n", maxExcerptLines+1)
	if len(lines) > maxExcerptLines {
		lines = lines[:maxExcerptLines]
	}
	return strings.Join(lines, "\n")
}

func storageOptions(symbolWeight float64) storage.TextOptions {
	return storage.TextOptions{SymbolWeight: symbolWeight}
}
