package fusion

import (
	"sort"

	"github.com/dshills/coderecall/pkg/types"
)

// accumulator holds the fusion state of one identity
type accumulator struct {
	hit   types.Hit
	score float64
	ranks map[types.Source]int
	order int // first-encountered position
}

// Fuse combines ranked lists using weighted Reciprocal Rank Fusion.
// Lists must already be ordered best-first. k <= 0 selects DefaultK.
func Fuse(lists map[types.Source][]types.Hit, weights Weights, k float64) []types.FusedHit {
	if k <= 0 {
		k = DefaultK
	}

	sources := make([]types.Source, 0, len(lists))
	for s := range lists {
		sources = append(sources, s)
	}

	byID := make(map[types.SymbolIdentity]*accumulator)
	ordered := make([]*accumulator, 0)

	for _, src := range types.OrderSources(sources) {
		weight := weights.Get(src)
		for i, hit := range lists[src] {
			rank := i + 1
			id := hit.Identity()

			acc, ok := byID[id]
			if !ok {
				acc = &accumulator{
					hit:   hit.Clone(),
					ranks: make(map[types.Source]int),
					order: len(ordered),
				}
				byID[id] = acc
				ordered = append(ordered, acc)
			}

			// A source listing the same identity twice only counts its best rank
			if _, seen := acc.ranks[src]; seen {
				continue
			}
			acc.ranks[src] = rank
			acc.score += weight / (k + float64(rank))

			if acc.hit.Excerpt == "" && hit.Excerpt != "" {
				acc.hit.Excerpt = hit.Excerpt
			}
			if acc.hit.EndLine < hit.EndLine && acc.hit.StartLine == hit.StartLine {
				acc.hit.EndLine = hit.EndLine
			}
		}
	}

	fused := make([]types.FusedHit, len(ordered))
	for i, acc := range ordered {
		fused[i] = types.FusedHit{
			Hit:         acc.hit,
			Score:       acc.score,
			SourceRanks: acc.ranks,
		}
	}

	SortFused(fused)
	return fused
}

// SortFused orders hits by non-increasing fused score. The sort is stable so
// ties keep their current relative order.
func SortFused(hits []types.FusedHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

// Truncate returns at most limit hits. limit <= 0 keeps everything.
func Truncate(hits []types.FusedHit, limit int) []types.FusedHit {
	if limit <= 0 || len(hits) <= limit {
		return hits
	}
	return hits[:limit]
}
