package fusion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/coderecall/pkg/types"
)

type stubReranker struct {
	scores map[string]float64
	err    error
	seen   int
}

func (s *stubReranker) Rerank(_ context.Context, _ string, hits []types.Hit, _ int) ([]types.Hit, error) {
	s.seen = len(hits)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]types.Hit, 0, len(hits))
	for _, h := range hits {
		if score, ok := s.scores[h.Symbol]; ok {
			h.Score = score
			out = append(out, h)
		}
	}
	// best first
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func TestRerankReordersHead(t *testing.T) {
	hits := []types.FusedHit{fusedHit("A", 0.3), fusedHit("B", 0.2), fusedHit("C", 0.1), fusedHit("D", 0.05)}
	r := &stubReranker{scores: map[string]float64{"A": 0.1, "B": 0.9, "C": 0.5}}

	out, err := Rerank(context.Background(), r, "q", hits, 3, 10)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, 3, r.seen)

	assert.Equal(t, []string{"B", "C", "A", "D"}, symbols(out))
	require.NotNil(t, out[0].RerankScore)
	assert.Equal(t, 0.9, *out[0].RerankScore)
	assert.Nil(t, out[3].RerankScore)
	// fused score is preserved
	assert.Equal(t, 0.2, out[0].Score)
}

func TestRerankDroppedHeadKeepsFusedOrder(t *testing.T) {
	hits := []types.FusedHit{fusedHit("A", 0.3), fusedHit("B", 0.2), fusedHit("C", 0.1)}
	r := &stubReranker{scores: map[string]float64{"C": 0.9}}

	out, err := Rerank(context.Background(), r, "q", hits, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, symbols(out))
}

func TestRerankFailureFallsBack(t *testing.T) {
	hits := []types.FusedHit{fusedHit("A", 0.3), fusedHit("B", 0.2), fusedHit("C", 0.1)}
	r := &stubReranker{err: errors.New("connection refused")}

	out, err := Rerank(context.Background(), r, "q", hits, 100, 2)
	require.Error(t, err)
	assert.Equal(t, []string{"A", "B"}, symbols(out))
}

func TestRerankNilReranker(t *testing.T) {
	hits := []types.FusedHit{fusedHit("A", 0.3), fusedHit("B", 0.2)}
	out, err := Rerank(context.Background(), nil, "q", hits, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, symbols(out))
}

func symbols(hits []types.FusedHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Symbol
	}
	return out
}
