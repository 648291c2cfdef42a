package backend

import (
	"context"
	"fmt"

	"github.com/dshills/coderecall/pkg/types"
)

// Fuzzy matches stems as prefixes so inflections and truncations still hit:
// "authentication" becomes "authenticat"*.
type Fuzzy struct {
	store TextStore
}

// NewFuzzy creates the fuzzy lexical backend
func NewFuzzy(store TextStore) *Fuzzy {
	return &Fuzzy{store: store}
}

func (f *Fuzzy) Source() types.Source { return types.SourceFuzzy }

// FuzzyExpression renders every term as a prefix stem, all ORed. Phrases
// stay phrases.
func FuzzyExpression(q string) string {
	return parseQuery(q).build(func(t term) []string {
		if t.phrase() {
			return []string{renderTerm(t)}
		}
		return []string{prefixStem(t.words[0])}
	}, "OR", "OR")
}

func (f *Fuzzy) Search(ctx context.Context, index types.IndexHandle, query string, limit int) ([]types.Hit, error) {
	match := FuzzyExpression(query)
	if match == "" {
		return []types.Hit{}, nil
	}

	results, err := f.store.SearchText(ctx, index.ProjectID, match, limit, storageOptions(1.0))
	if err != nil {
		return nil, fmt.Errorf("fuzzy search: %w", err)
	}
	return toHits(results, types.SourceFuzzy), nil
}
