// Package searcher orchestrates retrieval: it fans a query out to the
// registered backends, fuses their ranked lists with Reciprocal Rank Fusion
// and optionally reranks the head of the fused list.
//
// # Basic Usage
//
//	s, err := searcher.New(searcher.Config{Logger: log},
//	    backend.NewExact(store),
//	    backend.NewFuzzy(store),
//	    backend.NewSparse(store),
//	    backend.NewVector(store, embed),
//	)
//
//	resp, err := s.Search(ctx, index, "authenticate user", searcher.DefaultOptions())
//	for _, r := range resp.Results {
//	    fmt.Printf("%s:%d %s (%.4f)\n", r.Path, r.StartLine, r.Symbol, r.Score)
//	}
//
// # Search Modes
//
//   - hybrid: exact, fuzzy, vector and sparse in parallel, fused (default)
//   - exact, fuzzy, sparse, pure_vector: a single backend
//   - graph: seeds from the first non-empty of vector, sparse and exact,
//     expanded through the navigation service into a call graph
//
// pure_vector falls back to exact when no vector backend is available and
// says so in SearchResponse.Warnings.
//
// # Failure Isolation
//
// Each backend runs under its own timeout, detached from the caller's
// cancellation. A backend that errors, panics or times out contributes an
// empty list and an entry in SearchResponse.Backends; the request itself
// only fails on invalid arguments.
//
// # Fusion
//
//	score(d) = sum over sources s of w_s / (k + rank_s(d))
//
// with k = 60. Weights come from a preset (balanced, semantic) and are
// tilted by query shape when Options.Adaptive is set. Hits whose symbol
// matches a query token are boosted by Config.BoostFactor.
//
// # Caching
//
// Responses are cached per index, query, options and base weights for
// Config.CacheTTL. InvalidateCache must be called after reindexing.
// Navigation lookups for graph mode go through a separate cache keyed by
// file mtime that lives as long as the Searcher.
package searcher
