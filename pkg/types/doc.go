// Package types provides shared type definitions for coderecall.
//
// The retrieval pipeline moves three kinds of values between components:
//
//   - Hit: one ranked result produced by a single retrieval source
//     (exact, fuzzy, vector, sparse or graph).
//   - FusedHit: a Hit after Reciprocal Rank Fusion, carrying the fused
//     score and the rank it held in every contributing source.
//   - SymbolIdentity: the (path, symbol, start line) triple used to merge
//     hits across sources and to key graph nodes.
//
// Example:
//
//	hit := types.Hit{
//	    Path:      "internal/auth/service.go",
//	    Symbol:    "Authenticate",
//	    StartLine: 42,
//	    EndLine:   71,
//	    Score:     0.87,
//	    Source:    types.SourceExact,
//	}
//	key := hit.Identity().String() // "internal/auth/service.go#Authenticate@42"
//
// Scores are always higher-is-better once they leave a backend.
package types
