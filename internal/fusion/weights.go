package fusion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/coderecall/internal/query"
	"github.com/dshills/coderecall/pkg/types"
)

// DefaultK is the standard RRF constant
const DefaultK = 60.0

// Weights maps each source to its RRF weight. A missing source weighs 1.0.
type Weights map[types.Source]float64

// Get returns the weight for a source
func (w Weights) Get(s types.Source) float64 {
	if v, ok := w[s]; ok {
		return v
	}
	return 1.0
}

// Clone returns an independent copy
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// String renders the weights in source order, for cache keys and logs
func (w Weights) String() string {
	sources := make([]types.Source, 0, len(w))
	for s := range w {
		sources = append(sources, s)
	}
	parts := make([]string, 0, len(sources))
	for _, s := range types.OrderSources(sources) {
		parts = append(parts, fmt.Sprintf("%s=%.4f", s, w[s]))
	}
	return strings.Join(parts, ",")
}

// Named weight presets
const (
	PresetBalanced = "balanced"
	PresetSemantic = "semantic"
)

var presets = map[string]Weights{
	PresetBalanced: {
		types.SourceExact:  0.4,
		types.SourceFuzzy:  0.3,
		types.SourceVector: 0.3,
		types.SourceSparse: 0.3,
		types.SourceGraph:  0.5,
	},
	PresetSemantic: {
		types.SourceExact:  0.3,
		types.SourceFuzzy:  0.1,
		types.SourceVector: 0.6,
		types.SourceSparse: 0.3,
		types.SourceGraph:  0.5,
	},
}

// Preset returns a copy of the named weight preset
func Preset(name string) (Weights, error) {
	if name == "" {
		name = PresetBalanced
	}
	w, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown weight preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return w.Clone(), nil
}

// PresetNames lists the available presets
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultWeights returns the balanced preset
func DefaultWeights() Weights {
	return presets[PresetBalanced].Clone()
}

// Shape multipliers
const (
	identifierExactFactor  = 2.0
	identifierFuzzyFactor  = 1.25
	identifierVectorFactor = 0.5

	naturalVectorFactor = 1.5
	naturalSparseFactor = 1.25
	naturalExactFactor  = 0.75
)

// AdaptiveWeights returns a copy of base tilted by the shape of q.
// base is never modified.
func AdaptiveWeights(q string, base Weights) Weights {
	w := base.Clone()
	scale := func(s types.Source, f float64) {
		w[s] = w.Get(s) * f
	}

	switch query.Classify(q) {
	case query.ShapeIdentifier:
		scale(types.SourceExact, identifierExactFactor)
		scale(types.SourceFuzzy, identifierFuzzyFactor)
		scale(types.SourceVector, identifierVectorFactor)
	case query.ShapeNaturalLanguage:
		scale(types.SourceVector, naturalVectorFactor)
		scale(types.SourceSparse, naturalSparseFactor)
		scale(types.SourceExact, naturalExactFactor)
	}

	return w
}
