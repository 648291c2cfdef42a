package backend

import (
	"context"
	"fmt"

	"github.com/dshills/coderecall/pkg/types"
)

// Exact matches query words literally and ranks by bm25
type Exact struct {
	store TextStore
}

// NewExact creates the exact lexical backend
func NewExact(store TextStore) *Exact {
	return &Exact{store: store}
}

func (e *Exact) Source() types.Source { return types.SourceExact }

// ExactExpression renders a user query as a literal FTS5 expression.
// Juxtaposed terms are ANDed as in FTS5 itself.
func ExactExpression(q string) string {
	return parseQuery(q).build(func(t term) []string {
		return []string{renderTerm(t)}
	}, "AND", "")
}

func (e *Exact) Search(ctx context.Context, index types.IndexHandle, query string, limit int) ([]types.Hit, error) {
	match := ExactExpression(query)
	if match == "" {
		return []types.Hit{}, nil
	}

	results, err := e.store.SearchText(ctx, index.ProjectID, match, limit, storageOptions(1.0))
	if err != nil {
		return nil, fmt.Errorf("exact search: %w", err)
	}
	return toHits(results, types.SourceExact), nil
}
