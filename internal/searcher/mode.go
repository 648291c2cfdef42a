package searcher

import (
	"fmt"
	"strings"

	"github.com/dshills/coderecall/pkg/types"
)

// Mode selects which backends a search runs
type Mode string

const (
	ModeHybrid     Mode = "hybrid"      // exact + fuzzy + vector + sparse, fused
	ModeExact      Mode = "exact"       // FTS5 literal match only
	ModeFuzzy      Mode = "fuzzy"       // prefix stems only
	ModePureVector Mode = "pure_vector" // embeddings only
	ModeSparse     Mode = "sparse"      // expanded terms only
	ModeGraph      Mode = "graph"       // call graph around the best seeds
)

var modes = []Mode{ModeHybrid, ModeExact, ModeFuzzy, ModePureVector, ModeSparse, ModeGraph}

// Modes lists the supported modes
func Modes() []Mode {
	out := make([]Mode, len(modes))
	copy(out, modes)
	return out
}

// ParseMode resolves a mode name. The empty string means hybrid.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeHybrid, nil
	}
	for _, m := range modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// modeConfig is the resolved backend plan for one request
type modeConfig struct {
	mode     Mode
	sources  []types.Source // fanned out and fused, or tried in order as graph seeds
	graph    bool
	fallback bool // pure_vector degraded to exact
}

// enabled reports whether opts allow source and a backend serves it
func enabled(src types.Source, opts Options, registered map[types.Source]bool) bool {
	if !registered[src] {
		return false
	}
	switch src {
	case types.SourceExact:
		return opts.EnableExact
	case types.SourceFuzzy:
		return opts.EnableFuzzy
	case types.SourceVector:
		return opts.EnableVector
	case types.SourceSparse:
		return opts.EnableSparse
	default:
		return false
	}
}

// planFor builds the mode's backend plan masked by opts and the registered
// backends
func planFor(mode Mode, opts Options, registered map[types.Source]bool) modeConfig {
	var wanted []types.Source
	mc := modeConfig{mode: mode}

	switch mode {
	case ModeHybrid:
		wanted = []types.Source{types.SourceExact, types.SourceFuzzy, types.SourceVector, types.SourceSparse}
	case ModeExact:
		wanted = []types.Source{types.SourceExact}
	case ModeFuzzy:
		wanted = []types.Source{types.SourceFuzzy}
	case ModeSparse:
		wanted = []types.Source{types.SourceSparse}
	case ModePureVector:
		wanted = []types.Source{types.SourceVector}
		if !enabled(types.SourceVector, opts, registered) {
			wanted = []types.Source{types.SourceExact}
			mc.fallback = true
		}
	case ModeGraph:
		// Seed chain, tried in this order
		wanted = []types.Source{types.SourceVector, types.SourceSparse, types.SourceExact}
		mc.graph = true
	}

	for _, src := range wanted {
		if mc.fallback && src == types.SourceExact && registered[src] {
			mc.sources = append(mc.sources, src)
			continue
		}
		if enabled(src, opts, registered) {
			mc.sources = append(mc.sources, src)
		}
	}
	return mc
}
