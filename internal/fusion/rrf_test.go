package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/coderecall/pkg/types"
)

func hit(path, symbol string, line int, src types.Source) types.Hit {
	return types.Hit{Path: path, Symbol: symbol, StartLine: line, EndLine: line + 5, Source: src}
}

func TestFuseSingleSource(t *testing.T) {
	lists := map[types.Source][]types.Hit{
		types.SourceExact: {
			hit("a.go", "A", 1, types.SourceExact),
			hit("b.go", "B", 1, types.SourceExact),
		},
	}

	fused := Fuse(lists, Weights{types.SourceExact: 1.0}, 60)
	require.Len(t, fused, 2)
	assert.Equal(t, "A", fused[0].Symbol)
	assert.InDelta(t, 1.0/61, fused[0].Score, 1e-12)
	assert.InDelta(t, 1.0/62, fused[1].Score, 1e-12)
	assert.Equal(t, map[types.Source]int{types.SourceExact: 1}, fused[0].SourceRanks)
}

func TestFuseAccumulatesAcrossSources(t *testing.T) {
	lists := map[types.Source][]types.Hit{
		types.SourceExact:  {hit("auth.go", "authenticate", 10, types.SourceExact)},
		types.SourceFuzzy:  {hit("auth.go", "authenticate", 10, types.SourceFuzzy)},
		types.SourceVector: {hit("auth.go", "authenticate", 10, types.SourceVector)},
	}
	w := Weights{types.SourceExact: 0.4, types.SourceFuzzy: 0.3, types.SourceVector: 0.3}

	fused := Fuse(lists, w, 60)
	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/61, fused[0].Score, 1e-12)
	assert.Equal(t, []types.Source{types.SourceExact, types.SourceFuzzy, types.SourceVector}, fused[0].Sources())
}

func TestFuseDeduplicatesWithinSource(t *testing.T) {
	lists := map[types.Source][]types.Hit{
		types.SourceExact: {
			hit("a.go", "A", 1, types.SourceExact),
			hit("b.go", "B", 1, types.SourceExact),
			hit("a.go", "A", 1, types.SourceExact),
		},
	}

	fused := Fuse(lists, DefaultWeights(), 60)
	require.Len(t, fused, 2)
	assert.Equal(t, 1, fused[0].SourceRanks[types.SourceExact])
	assert.InDelta(t, 0.4/61, fused[0].Score, 1e-12)
}

func TestFuseTieBreakIsFirstEncounter(t *testing.T) {
	// B ranks first in exact and A ranks first in fuzzy with equal weights.
	// Exact is walked first, so B wins the tie.
	lists := map[types.Source][]types.Hit{
		types.SourceFuzzy: {hit("a.go", "A", 1, types.SourceFuzzy)},
		types.SourceExact: {hit("b.go", "B", 1, types.SourceExact)},
	}
	w := Weights{types.SourceExact: 1, types.SourceFuzzy: 1}

	for i := 0; i < 20; i++ {
		fused := Fuse(lists, w, 60)
		require.Len(t, fused, 2)
		assert.Equal(t, "B", fused[0].Symbol)
		assert.Equal(t, "A", fused[1].Symbol)
	}
}

func TestFuseDeterministic(t *testing.T) {
	lists := map[types.Source][]types.Hit{
		types.SourceExact:  {hit("a.go", "A", 1, ""), hit("b.go", "B", 3, ""), hit("c.go", "C", 9, "")},
		types.SourceVector: {hit("c.go", "C", 9, ""), hit("d.go", "D", 2, ""), hit("a.go", "A", 1, "")},
		types.SourceSparse: {hit("d.go", "D", 2, ""), hit("b.go", "B", 3, "")},
	}

	first := Fuse(lists, DefaultWeights(), 60)
	for i := 0; i < 10; i++ {
		again := Fuse(lists, DefaultWeights(), 60)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Identity(), again[j].Identity())
			assert.Equal(t, first[j].Score, again[j].Score)
		}
	}
}

func TestFuseMonotonicInWeight(t *testing.T) {
	lists := map[types.Source][]types.Hit{
		types.SourceExact:  {hit("a.go", "A", 1, "")},
		types.SourceVector: {hit("b.go", "B", 1, "")},
	}

	low := Fuse(lists, Weights{types.SourceExact: 0.2, types.SourceVector: 0.5}, 60)
	high := Fuse(lists, Weights{types.SourceExact: 0.8, types.SourceVector: 0.5}, 60)

	scoreOf := func(hits []types.FusedHit, name string) float64 {
		for _, h := range hits {
			if h.Symbol == name {
				return h.Score
			}
		}
		t.Fatalf("missing %s", name)
		return 0
	}

	assert.Greater(t, scoreOf(high, "A"), scoreOf(low, "A"))
	assert.Equal(t, scoreOf(high, "B"), scoreOf(low, "B"))
	assert.Equal(t, "B", low[0].Symbol)
	assert.Equal(t, "A", high[0].Symbol)
}

func TestFuseMonotonicInRank(t *testing.T) {
	target := hit("t.go", "Target", 1, "")
	other := []types.Hit{hit("x.go", "X", 1, ""), hit("y.go", "Y", 1, "")}
	vector := []types.Hit{hit("y.go", "Y", 1, ""), target}

	scoreAt := func(rank int) float64 {
		exact := append([]types.Hit(nil), other...)
		pos := rank - 1
		exact = append(exact[:pos], append([]types.Hit{target}, exact[pos:]...)...)
		lists := map[types.Source][]types.Hit{
			types.SourceExact:  exact,
			types.SourceVector: vector,
		}
		for _, h := range Fuse(lists, DefaultWeights(), 60) {
			if h.Symbol == "Target" {
				require.Equal(t, rank, h.SourceRanks[types.SourceExact])
				return h.Score
			}
		}
		t.Fatalf("Target missing at rank %d", rank)
		return 0
	}

	rank3, rank2, rank1 := scoreAt(3), scoreAt(2), scoreAt(1)
	assert.GreaterOrEqual(t, rank2, rank3)
	assert.GreaterOrEqual(t, rank1, rank2)
	assert.Greater(t, rank1, rank3)
}

func TestFuseScoresNonIncreasing(t *testing.T) {
	lists := map[types.Source][]types.Hit{
		types.SourceExact:  {hit("a.go", "A", 1, ""), hit("b.go", "B", 1, ""), hit("c.go", "C", 1, "")},
		types.SourceFuzzy:  {hit("c.go", "C", 1, ""), hit("e.go", "E", 1, "")},
		types.SourceVector: {hit("e.go", "E", 1, ""), hit("b.go", "B", 1, "")},
	}

	fused := Fuse(lists, DefaultWeights(), 0)
	for i := 1; i < len(fused); i++ {
		assert.GreaterOrEqual(t, fused[i-1].Score, fused[i].Score)
	}
}

func TestFuseEmpty(t *testing.T) {
	assert.Empty(t, Fuse(nil, DefaultWeights(), 60))
	assert.Empty(t, Fuse(map[types.Source][]types.Hit{types.SourceExact: nil}, DefaultWeights(), 60))
}

func TestFuseKeepsFirstExcerpt(t *testing.T) {
	withExcerpt := hit("a.go", "A", 1, "")
	withExcerpt.Excerpt = "func A() {}"

	lists := map[types.Source][]types.Hit{
		types.SourceExact:  {hit("a.go", "A", 1, "")},
		types.SourceVector: {withExcerpt},
	}

	fused := Fuse(lists, DefaultWeights(), 60)
	require.Len(t, fused, 1)
	assert.Equal(t, "func A() {}", fused[0].Excerpt)
}

func TestTruncate(t *testing.T) {
	hits := make([]types.FusedHit, 5)
	assert.Len(t, Truncate(hits, 3), 3)
	assert.Len(t, Truncate(hits, 0), 5)
	assert.Len(t, Truncate(hits, 10), 5)
}
