package fusion

import (
	"strings"

	"github.com/dshills/coderecall/internal/query"
	"github.com/dshills/coderecall/pkg/types"
)

// DefaultBoostFactor is applied to hits whose symbol matches a query token
const DefaultBoostFactor = 1.5

// BoostSymbols multiplies the fused score of every hit whose symbol name
// case-insensitively equals a query token, then re-sorts. The input slice is
// not modified.
func BoostSymbols(hits []types.FusedHit, q string, factor float64) []types.FusedHit {
	if factor <= 0 {
		factor = DefaultBoostFactor
	}

	tokens := make(map[string]bool)
	for _, tok := range query.Tokens(q) {
		tokens[strings.ToLower(tok)] = true
	}

	out := make([]types.FusedHit, len(hits))
	copy(out, hits)
	if len(tokens) == 0 {
		return out
	}

	boosted := false
	for i := range out {
		if out[i].Symbol == "" {
			continue
		}
		if tokens[strings.ToLower(out[i].Symbol)] {
			out[i].Score *= factor
			boosted = true
		}
	}

	if boosted {
		SortFused(out)
	}
	return out
}
