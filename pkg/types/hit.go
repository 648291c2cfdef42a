package types

import (
	"fmt"
	"sort"
	"strings"
)

// Source names a retrieval signal
type Source string

const (
	SourceExact  Source = "exact"  // Exact lexical match (FTS5 bm25)
	SourceFuzzy  Source = "fuzzy"  // Prefix/stem lexical match
	SourceVector Source = "vector" // Dense embedding similarity
	SourceSparse Source = "sparse" // Term-expansion weighted lexical match
	SourceGraph  Source = "graph"  // Call/reference graph expansion
)

// SourceOrder is the fixed iteration order used wherever sources are walked.
// Fusion tie-breaking depends on it.
var SourceOrder = []Source{SourceExact, SourceFuzzy, SourceVector, SourceSparse, SourceGraph}

// Valid reports whether s is one of the known sources
func (s Source) Valid() bool {
	for _, known := range SourceOrder {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSource converts a string to a Source
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	return src, nil
}

// OrderSources returns the given sources in SourceOrder, followed by any
// unknown sources in lexical order.
func OrderSources(sources []Source) []Source {
	present := make(map[Source]bool, len(sources))
	for _, s := range sources {
		present[s] = true
	}

	ordered := make([]Source, 0, len(present))
	for _, s := range SourceOrder {
		if present[s] {
			ordered = append(ordered, s)
			delete(present, s)
		}
	}

	rest := make([]Source, 0, len(present))
	for s := range present {
		rest = append(rest, s)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })

	return append(ordered, rest...)
}

// SymbolIdentity is the merge key shared by every source and the code graph
type SymbolIdentity struct {
	Path      string
	Name      string
	StartLine int
}

// String returns the stable textual key for the identity
func (id SymbolIdentity) String() string {
	return fmt.Sprintf("%s#%s@%d", id.Path, id.Name, id.StartLine)
}

// Hit is one ranked result from a single retrieval source
type Hit struct {
	// Location
	Path       string
	Symbol     string // Optional
	SymbolKind string // Optional
	StartLine  int
	EndLine    int

	// Scoring
	Score  float64 // Source specific, higher is better
	Source Source

	// Content
	Excerpt  string
	Metadata map[string]any
}

// Identity returns the symbol identity of the hit
func (h Hit) Identity() SymbolIdentity {
	return SymbolIdentity{
		Path:      h.Path,
		Name:      h.Symbol,
		StartLine: h.StartLine,
	}
}

// Validate checks the location fields of the hit
func (h Hit) Validate() error {
	if h.Path == "" {
		return ErrEmptyPath
	}
	if h.StartLine <= 0 || (h.EndLine > 0 && h.EndLine < h.StartLine) {
		return ErrInvalidLineRange
	}
	return nil
}

// Clone returns a copy of the hit with its own metadata map
func (h Hit) Clone() Hit {
	if h.Metadata != nil {
		md := make(map[string]any, len(h.Metadata))
		for k, v := range h.Metadata {
			md[k] = v
		}
		h.Metadata = md
	}
	return h
}

// FusedHit is a hit after rank fusion
type FusedHit struct {
	Hit

	// Score is the fused score. It shadows the source score of the embedded
	// hit, which stays available as Hit.Score.
	Score       float64
	SourceRanks map[Source]int
	RerankScore *float64 // Set only when a reranker scored this hit
}

// Sources returns the contributing sources in SourceOrder
func (f FusedHit) Sources() []Source {
	sources := make([]Source, 0, len(f.SourceRanks))
	for s := range f.SourceRanks {
		sources = append(sources, s)
	}
	return OrderSources(sources)
}

// IndexHandle identifies the indexed corpus a backend searches
type IndexHandle struct {
	ProjectID int64
	Root      string
}
