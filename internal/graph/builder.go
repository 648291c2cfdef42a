package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/coderecall/internal/logging"
	"github.com/dshills/coderecall/internal/navigation"
	"github.com/dshills/coderecall/pkg/types"
)

const (
	DefaultMaxDepth       = 2
	DefaultMaxNodes       = 50
	DefaultMaxConcurrent  = 8
	DefaultRequestTimeout = 10 * time.Second
)

var ErrNoBridge = errors.New("graph builder requires a navigation bridge")

// Config bounds a traversal. Zero values take the defaults.
type Config struct {
	MaxDepth       int
	MaxNodes       int
	MaxConcurrent  int           // nodes expanded at once across the whole build
	RequestTimeout time.Duration // per bridge call
	Logger         logrus.FieldLogger
}

func (c Config) withDefaults() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

// Seed is a starting point for expansion. A seed without a name is resolved
// to the symbol enclosing StartLine.
type Seed struct {
	Path      string
	Name      string
	Kind      types.SymbolKind
	StartLine int
	EndLine   int
}

// SeedFromHit converts a search hit to a seed
func SeedFromHit(h types.Hit) Seed {
	return Seed{
		Path:      h.Path,
		Name:      h.Symbol,
		Kind:      types.ParseSymbolKind(h.SymbolKind),
		StartLine: h.StartLine,
		EndLine:   h.EndLine,
	}
}

// Builder runs bounded BFS expansions. A Builder is not safe for concurrent
// Build calls; its document-symbol cache is reset by each one.
type Builder struct {
	bridge  navigation.Bridge
	cfg     Config
	log     logrus.FieldLogger
	symbols *symbolCache
}

func NewBuilder(bridge navigation.Bridge, cfg Config) *Builder {
	cfg = cfg.withDefaults()
	return &Builder{
		bridge:  bridge,
		cfg:     cfg,
		log:     logging.OrDiscard(cfg.Logger).WithField("component", "graph"),
		symbols: newSymbolCache(),
	}
}

// ClearSymbolCache drops document symbols remembered by the last build
func (b *Builder) ClearSymbolCache() {
	b.symbols.clear()
}

// neighbor is one edge discovered while expanding a node
type neighbor struct {
	sym      navigation.Symbol
	rel      Relationship
	incoming bool // neighbor -> node rather than node -> neighbor
}

// Build expands seeds level by level up to MaxDepth, never holding more than
// MaxNodes nodes. Expansion tasks only return neighbors; the graph is
// mutated here, between levels, in frontier order. Bridge failures only
// stop the affected node. A cancelled ctx ends the build early with the
// partial graph and ctx's error.
func (b *Builder) Build(ctx context.Context, seeds []Seed) (*CodeGraph, error) {
	if b.bridge == nil {
		return nil, ErrNoBridge
	}
	b.ClearSymbolCache()

	g := NewCodeGraph()
	var frontier []navigation.Symbol
	for _, seed := range seeds {
		if g.Len() >= b.cfg.MaxNodes {
			break
		}
		sym, ok := b.resolveSeed(ctx, seed)
		if !ok {
			continue
		}
		if g.AddNode(nodeFor(sym, 0)) {
			frontier = append(frontier, sym)
		}
	}

	sem := semaphore.NewWeighted(int64(b.cfg.MaxConcurrent))
	for depth := 0; depth < b.cfg.MaxDepth && len(frontier) > 0; depth++ {
		results := make([][]neighbor, len(frontier))

		var eg errgroup.Group
		for i, sym := range frontier {
			if err := sem.Acquire(ctx, 1); err != nil {
				_ = eg.Wait()
				return g, err
			}
			eg.Go(func() error {
				defer sem.Release(1)
				results[i] = b.expand(ctx, sym)
				return nil
			})
		}
		_ = eg.Wait()

		var next []navigation.Symbol
		for i, found := range results {
			from := frontier[i].Identity()
			for _, nb := range found {
				to := nb.sym.Identity()

				if g.Has(to) {
					// The edge closes a cycle when its head already reaches its tail
					tail, head := from, to
					if nb.incoming {
						tail, head = to, from
					}
					closes := g.Reaches(head, tail)
					if b.link(g, from, to, nb) && closes {
						g.MarkCyclic(head)
					}
					continue
				}
				if g.Len() >= b.cfg.MaxNodes {
					continue
				}

				g.AddNode(nodeFor(nb.sym, depth+1))
				b.link(g, from, to, nb)
				next = append(next, nb.sym)
			}
		}
		frontier = next
	}

	b.log.WithFields(logrus.Fields{
		"seeds": len(seeds),
		"nodes": g.Len(),
		"edges": len(g.edges),
	}).Debug("graph built")
	return g, ctx.Err()
}

// link records the edge between node and a neighbor and reports whether it
// was new
func (b *Builder) link(g *CodeGraph, node, other types.SymbolIdentity, nb neighbor) bool {
	from, to := node, other
	if nb.incoming {
		from, to = other, node
	}
	added, err := g.AddEdge(from, to, nb.rel)
	if err != nil {
		b.log.WithError(err).Debug("edge dropped")
	}
	return added
}

func nodeFor(sym navigation.Symbol, depth int) Node {
	return Node{
		ID:     sym.Identity(),
		Name:   sym.Name,
		Kind:   sym.Kind,
		Path:   sym.Path,
		Range:  sym.Range,
		Detail: sym.Detail,
		Depth:  depth,
	}
}

// resolveSeed anchors a seed on the document symbol it names, or on the
// symbol enclosing its start line when it has no name.
func (b *Builder) resolveSeed(ctx context.Context, seed Seed) (navigation.Symbol, bool) {
	cctx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	syms, err := b.symbols.get(cctx, b.bridge, seed.Path)
	cancel()
	if err != nil {
		b.log.WithError(err).WithField("path", seed.Path).Debug("document symbols unavailable for seed")
	}

	if seed.Name == "" {
		sym, ok := navigation.Enclosing(syms, seed.StartLine)
		if !ok {
			b.log.WithFields(logrus.Fields{"path": seed.Path, "line": seed.StartLine}).Debug("seed has no enclosing symbol")
		}
		return sym, ok
	}

	for _, s := range syms {
		if s.Name == seed.Name && (s.Range.Start.Line == seed.StartLine || s.Range.Contains(seed.StartLine)) {
			return s, true
		}
	}

	end := seed.EndLine
	if end < seed.StartLine {
		end = seed.StartLine
	}
	return navigation.Symbol{
		Name:  seed.Name,
		Kind:  seed.Kind,
		Path:  seed.Path,
		Range: types.Range{Start: types.Position{Line: seed.StartLine, Column: 1}, End: types.Position{Line: end, Column: 1}},
	}, true
}

// expand looks up callers and callees of sym concurrently. Any failure
// discards the node's neighbors.
func (b *Builder) expand(ctx context.Context, sym navigation.Symbol) []neighbor {
	var in, out []neighbor

	var eg errgroup.Group
	eg.Go(func() error {
		var err error
		in, err = b.incoming(ctx, sym)
		return err
	})
	eg.Go(func() error {
		var err error
		out, err = b.outgoing(ctx, sym)
		return err
	})

	if err := eg.Wait(); err != nil {
		b.log.WithError(err).WithField("symbol", sym.Identity().String()).Warn("node expansion failed")
		return nil
	}
	return append(in, out...)
}

func (b *Builder) incoming(ctx context.Context, sym navigation.Symbol) ([]neighbor, error) {
	cctx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()

	callers, err := b.bridge.CallHierarchy(cctx, sym, navigation.Incoming)
	if errors.Is(err, navigation.ErrCallHierarchyUnsupported) {
		return b.referrers(cctx, sym)
	}
	if err != nil {
		return nil, fmt.Errorf("incoming calls: %w", err)
	}

	out := make([]neighbor, 0, len(callers))
	for _, c := range callers {
		out = append(out, neighbor{sym: c, rel: Calls, incoming: true})
	}
	return out, nil
}

// referrers maps reference locations to their enclosing symbols
func (b *Builder) referrers(ctx context.Context, sym navigation.Symbol) ([]neighbor, error) {
	locs, err := b.bridge.References(ctx, sym)
	if err != nil {
		return nil, fmt.Errorf("references: %w", err)
	}

	self := sym.Identity()
	seen := make(map[types.SymbolIdentity]bool)
	var out []neighbor
	for _, loc := range locs {
		encl, ok, err := b.symbols.enclosing(ctx, b.bridge, loc.Path, loc.Range.Start.Line)
		if err != nil {
			b.log.WithError(err).WithField("path", loc.Path).Debug("cannot resolve reference")
			continue
		}
		if !ok {
			continue
		}
		id := encl.Identity()
		if id == self || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, neighbor{sym: encl, rel: References, incoming: true})
	}
	return out, nil
}

func (b *Builder) outgoing(ctx context.Context, sym navigation.Symbol) ([]neighbor, error) {
	cctx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()

	callees, err := b.bridge.CallHierarchy(cctx, sym, navigation.Outgoing)
	if err != nil {
		return nil, fmt.Errorf("outgoing calls: %w", err)
	}

	out := make([]neighbor, 0, len(callees))
	for _, c := range callees {
		out = append(out, neighbor{sym: c, rel: Calls})
	}
	return out, nil
}
