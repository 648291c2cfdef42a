package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/coderecall/internal/embedder"
	"github.com/dshills/coderecall/pkg/types"
)

// Vector ranks chunks by cosine similarity between the query embedding and
// the stored chunk embeddings.
type Vector struct {
	store    VectorStore
	embedder embedder.Embedder
}

// NewVector creates the dense vector backend
func NewVector(store VectorStore, emb embedder.Embedder) *Vector {
	return &Vector{store: store, embedder: emb}
}

func (v *Vector) Source() types.Source { return types.SourceVector }

// Search embeds the raw query. An index without embeddings yields no hits.
func (v *Vector) Search(ctx context.Context, index types.IndexHandle, query string, limit int) ([]types.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return []types.Hit{}, nil
	}

	emb, err := v.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("vector search: embed query: %w", err)
	}

	results, err := v.store.SearchVector(ctx, index.ProjectID, emb.Vector, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return toHits(results, types.SourceVector), nil
}
