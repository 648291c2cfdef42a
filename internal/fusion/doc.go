// Package fusion merges ranked lists from independent retrieval sources.
//
// # Reciprocal Rank Fusion
//
// Every hit at 1-based rank r in source s contributes
//
//	weight[s] / (k + r)
//
// to the fused score of its symbol identity, where k defaults to 60. Scores
// accumulate across sources and SourceRanks records where each contributor
// ranked the hit.
//
// Output is ordered by non-increasing fused score. Ties keep the order in
// which identities were first encountered while walking sources in
// types.SourceOrder (exact, fuzzy, vector, sparse, graph), so identical
// inputs always produce identical output.
//
// # Weights
//
// Two named presets exist because both triples have been used in practice:
//
//	PresetBalanced  exact 0.4, fuzzy 0.3, vector 0.3
//	PresetSemantic  exact 0.3, fuzzy 0.1, vector 0.6
//
// AdaptiveWeights tilts a copy of the base weights toward exact matching for
// identifier-like queries and toward vectors for natural-language queries.
//
// # Post-processing
//
// BoostSymbols multiplies the score of hits whose symbol name equals a query
// token; Rerank hands the head of the list to an external scorer and falls
// back to the fused order when the scorer fails.
package fusion
