package fusion

import (
	"context"

	"github.com/dshills/coderecall/pkg/types"
)

// DefaultRerankTopN is the number of fused hits handed to a reranker
const DefaultRerankTopN = 100

// Reranker scores a batch of hits against a query.
// Implementations return the hits they scored, best first, with Score set to
// the reranker's relevance score. Hits may be omitted but not invented.
type Reranker interface {
	Rerank(ctx context.Context, query string, hits []types.Hit, topK int) ([]types.Hit, error)
}

// Rerank reorders the first topN hits with r and truncates the result to limit.
// Hits beyond topN keep their fused order after the reranked head. If r fails,
// the fused order is returned unchanged (apart from truncation) together with
// the error so the caller can log it.
func Rerank(ctx context.Context, r Reranker, q string, hits []types.FusedHit, topN, limit int) ([]types.FusedHit, error) {
	if r == nil || len(hits) == 0 {
		return Truncate(hits, limit), nil
	}
	if topN <= 0 {
		topN = DefaultRerankTopN
	}
	if topN > len(hits) {
		topN = len(hits)
	}

	head := hits[:topN]
	candidates := make([]types.Hit, len(head))
	for i, h := range head {
		candidates[i] = h.Hit
	}

	scored, err := r.Rerank(ctx, q, candidates, topN)
	if err != nil {
		return Truncate(hits, limit), err
	}

	byID := make(map[types.SymbolIdentity]int, len(head))
	for i, h := range head {
		byID[h.Identity()] = i
	}

	out := make([]types.FusedHit, 0, len(hits))
	used := make(map[int]bool, len(head))
	for _, s := range scored {
		idx, ok := byID[s.Identity()]
		if !ok || used[idx] {
			continue
		}
		used[idx] = true
		fh := head[idx]
		score := s.Score
		fh.RerankScore = &score
		out = append(out, fh)
	}

	// Head entries the reranker dropped stay in fused order behind the reranked ones
	for i, h := range head {
		if !used[i] {
			out = append(out, h)
		}
	}
	out = append(out, hits[topN:]...)

	return Truncate(out, limit), nil
}
