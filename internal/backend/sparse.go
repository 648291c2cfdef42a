package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/coderecall/internal/query"
	"github.com/dshills/coderecall/pkg/types"
)

// SparseSymbolWeight is the bm25 weight of the symbol name column
const SparseSymbolWeight = 4.0

// Sparse expands each term into its identifier parts and stems, weights
// strong terms by repeating them, and ranks with a heavy symbol column.
type Sparse struct {
	store TextStore
}

// NewSparse creates the sparse lexical-semantic backend
func NewSparse(store TextStore) *Sparse {
	return &Sparse{store: store}
}

func (s *Sparse) Source() types.Source { return types.SourceSparse }

// strongTerm reports compound identifiers and long words, which carry more
// signal than short generic words.
func strongTerm(word string) bool {
	return len(query.SplitIdentifier(word)) > 1 || strings.Contains(word, "_") || len(word) >= 6
}

// SparseExpression renders the weighted expansion of a query. Stop words are
// dropped unless nothing else remains.
func SparseExpression(q string) string {
	pq := parseQuery(q)

	kept := pq.clauses[:0:0]
	for _, c := range pq.clauses {
		if !c.term.phrase() && query.IsStopWord(c.term.words[0]) {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) > 0 {
		pq.clauses = kept
	}

	seen := make(map[string]bool)
	return pq.build(func(t term) []string {
		if t.phrase() {
			return []string{renderTerm(t)}
		}

		word := t.words[0]
		lower := strings.ToLower(word)
		var alts []string
		add := func(operand string) bool {
			if seen[operand] {
				return false
			}
			seen[operand] = true
			alts = append(alts, operand)
			return true
		}

		whole := quote(lower)
		if t.prefix {
			whole += "*"
		}
		if add(whole) && strongTerm(word) {
			// bm25 sums over query phrases, so a repeated phrase counts twice
			alts = append(alts, whole)
		}
		for _, part := range query.SplitIdentifier(word) {
			if len(part) < query.MinSubtokenLen {
				continue
			}
			p := strings.ToLower(part)
			add(quote(p))
			if stem := query.Stem(p); stem != p {
				add(quote(stem) + "*")
			}
		}
		return alts
	}, "OR", "OR")
}

func (s *Sparse) Search(ctx context.Context, index types.IndexHandle, query string, limit int) ([]types.Hit, error) {
	match := SparseExpression(query)
	if match == "" {
		return []types.Hit{}, nil
	}

	results, err := s.store.SearchText(ctx, index.ProjectID, match, limit, storageOptions(SparseSymbolWeight))
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}
	return toHits(results, types.SourceSparse), nil
}
