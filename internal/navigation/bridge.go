// Package navigation talks to a language server for references, call
// hierarchy and document symbols, and caches its answers per file
// modification time.
package navigation

import (
	"context"
	"errors"
	"io"

	"github.com/dshills/coderecall/pkg/types"
)

var (
	// ErrCallHierarchyUnsupported is returned for incoming calls when the
	// server does not implement call hierarchy. Callers fall back to
	// References.
	ErrCallHierarchyUnsupported = errors.New("call hierarchy not supported by server")
	ErrClosed                   = errors.New("navigation client closed")
)

// Direction selects callers or callees in a call hierarchy lookup
type Direction int

const (
	Incoming Direction = iota
	Outgoing
)

func (d Direction) String() string {
	if d == Outgoing {
		return "outgoing"
	}
	return "incoming"
}

// Location is a 1-based span in a file
type Location struct {
	Path  string
	Range types.Range
}

// Symbol is a named code element as the server reports it. Range covers the
// whole declaration; Selection covers the name and is where lookups are
// anchored.
type Symbol struct {
	Name      string
	Kind      types.SymbolKind
	Detail    string
	Container string
	Path      string
	Range     types.Range
	Selection types.Range
}

// Identity returns the symbol's dedup key
func (s Symbol) Identity() types.SymbolIdentity {
	return types.SymbolIdentity{Path: s.Path, Name: s.Name, StartLine: s.Range.Start.Line}
}

// anchor is the position lookups are issued at
func (s Symbol) anchor() types.Position {
	if s.Selection.Start.Line > 0 {
		return s.Selection.Start
	}
	return s.Range.Start
}

// Bridge is the lookup surface of a navigation service
type Bridge interface {
	References(ctx context.Context, sym Symbol) ([]Location, error)
	CallHierarchy(ctx context.Context, sym Symbol, dir Direction) ([]Symbol, error)
	DocumentSymbols(ctx context.Context, path string) ([]Symbol, error)
	Hover(ctx context.Context, sym Symbol) (string, error)
	Definition(ctx context.Context, sym Symbol) (*Location, error)
}

// Session is a Bridge holding a live connection
type Session interface {
	Bridge
	io.Closer
}

// Enclosing returns the innermost symbol whose range contains line
func Enclosing(symbols []Symbol, line int) (Symbol, bool) {
	var best Symbol
	found := false
	for _, s := range symbols {
		if !s.Range.Contains(line) {
			continue
		}
		if !found || s.Range.Lines() < best.Range.Lines() {
			best = s
			found = true
		}
	}
	return best, found
}

// kindFromLSP maps an LSP SymbolKind to ours
func kindFromLSP(k int) types.SymbolKind {
	switch k {
	case lspFile:
		return types.KindFile
	case lspModule, lspNamespace:
		return types.KindModule
	case lspPackage:
		return types.KindPackage
	case lspClass, lspEnum:
		return types.KindClass
	case lspMethod, lspConstructor:
		return types.KindMethod
	case lspProperty:
		return types.KindProperty
	case lspField:
		return types.KindField
	case lspInterface:
		return types.KindInterface
	case lspFunction:
		return types.KindFunction
	case lspVariable:
		return types.KindVar
	case lspConstant:
		return types.KindConst
	case lspStruct:
		return types.KindStruct
	case lspTypeParameter:
		return types.KindType
	default:
		return types.KindUnknown
	}
}

func toPosition(p wirePosition) types.Position {
	return types.Position{Line: p.Line + 1, Column: p.Character + 1}
}

func toRange(r wireRange) types.Range {
	return types.Range{Start: toPosition(r.Start), End: toPosition(r.End)}
}

func fromPosition(p types.Position) wirePosition {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return wirePosition{Line: line, Character: col}
}
