// Package graph expands search hits into a call and reference graph by
// breadth-first traversal through a navigation bridge.
package graph

import (
	"errors"
	"fmt"

	"github.com/dshills/coderecall/pkg/types"
)

var (
	ErrUnknownNode         = errors.New("edge references unknown node")
	ErrUnknownRelationship = errors.New("unknown relationship")
)

// Relationship labels a directed edge
type Relationship string

const (
	Calls      Relationship = "calls"
	References Relationship = "references"
	Inherits   Relationship = "inherits"
	Imports    Relationship = "imports"
)

func (r Relationship) valid() bool {
	switch r {
	case Calls, References, Inherits, Imports:
		return true
	}
	return false
}

// Node is a symbol in the graph. Depth is its BFS distance from the nearest
// seed; seeds have depth 0.
type Node struct {
	ID     types.SymbolIdentity
	Name   string
	Kind   types.SymbolKind
	Path   string
	Range  types.Range
	Detail string
	Depth  int
	Cyclic bool // reached again through a back edge
}

// Edge is a directed relationship between two nodes
type Edge struct {
	From         types.SymbolIdentity
	To           types.SymbolIdentity
	Relationship Relationship
}

// CodeGraph holds nodes in insertion order and deduplicated edges. Not safe
// for concurrent mutation.
type CodeGraph struct {
	nodes map[types.SymbolIdentity]*Node
	order []types.SymbolIdentity
	edges []Edge
	seen  map[Edge]struct{}
	bulk  bool
}

func NewCodeGraph() *CodeGraph {
	return &CodeGraph{
		nodes: make(map[types.SymbolIdentity]*Node),
		seen:  make(map[Edge]struct{}),
	}
}

// AddNode inserts n and reports whether it was new. An existing node with
// the same identity is left untouched.
func (g *CodeGraph) AddNode(n Node) bool {
	if _, ok := g.nodes[n.ID]; ok {
		return false
	}
	node := n
	g.nodes[n.ID] = &node
	g.order = append(g.order, n.ID)
	return true
}

func (g *CodeGraph) Has(id types.SymbolIdentity) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns a copy of the node with the given identity
func (g *CodeGraph) Node(id types.SymbolIdentity) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of all nodes in insertion order
func (g *CodeGraph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

func (g *CodeGraph) Len() int {
	return len(g.order)
}

// MarkCyclic flags an existing node as reached through a cycle
func (g *CodeGraph) MarkCyclic(id types.SymbolIdentity) {
	if n, ok := g.nodes[id]; ok {
		n.Cyclic = true
	}
}

// AddEdge records a directed edge and reports whether it was new. Outside a
// bulk phase both endpoints must already exist.
func (g *CodeGraph) AddEdge(from, to types.SymbolIdentity, rel Relationship) (bool, error) {
	if !rel.valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownRelationship, rel)
	}
	if !g.bulk && (!g.Has(from) || !g.Has(to)) {
		return false, fmt.Errorf("%w: %s -> %s", ErrUnknownNode, from, to)
	}

	e := Edge{From: from, To: to, Relationship: rel}
	if _, dup := g.seen[e]; dup {
		return false, nil
	}
	g.seen[e] = struct{}{}
	g.edges = append(g.edges, e)
	return true, nil
}

// Edges returns all edges in insertion order
func (g *CodeGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesFrom returns the edges leaving id
func (g *CodeGraph) EdgesFrom(id types.SymbolIdentity) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Reaches reports whether a directed path leads from one node to another.
// A node always reaches itself.
func (g *CodeGraph) Reaches(from, to types.SymbolIdentity) bool {
	if from == to {
		return true
	}
	adj := make(map[types.SymbolIdentity][]types.SymbolIdentity)
	for _, e := range g.edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	visited := map[types.SymbolIdentity]bool{from: true}
	queue := []types.SymbolIdentity{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// BeginBulk suspends endpoint checks on AddEdge until EndBulk
func (g *CodeGraph) BeginBulk() {
	g.bulk = true
}

// EndBulk ends the bulk phase, dropping edges whose endpoints are missing.
// It returns the number of edges dropped.
func (g *CodeGraph) EndBulk() int {
	g.bulk = false

	kept := g.edges[:0]
	dropped := 0
	for _, e := range g.edges {
		if g.Has(e.From) && g.Has(e.To) {
			kept = append(kept, e)
			continue
		}
		delete(g.seen, e)
		dropped++
	}
	g.edges = kept
	return dropped
}
