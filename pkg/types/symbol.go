package types

import "strings"

// SymbolKind represents the kind of a code symbol
type SymbolKind string

const (
	KindFile      SymbolKind = "file"
	KindModule    SymbolKind = "module"
	KindPackage   SymbolKind = "package"
	KindClass     SymbolKind = "class"
	KindMethod    SymbolKind = "method"
	KindProperty  SymbolKind = "property"
	KindField     SymbolKind = "field"
	KindFunction  SymbolKind = "function"
	KindInterface SymbolKind = "interface"
	KindStruct    SymbolKind = "struct"
	KindType      SymbolKind = "type"
	KindConst     SymbolKind = "const"
	KindVar       SymbolKind = "var"
	KindUnknown   SymbolKind = "unknown"
)

// IsCallable reports whether symbols of this kind can appear in a call hierarchy
func (k SymbolKind) IsCallable() bool {
	switch k {
	case KindFunction, KindMethod:
		return true
	default:
		return false
	}
}

// ParseSymbolKind normalizes a kind name, returning KindUnknown for anything unrecognized
func ParseSymbolKind(s string) SymbolKind {
	k := SymbolKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindFile, KindModule, KindPackage, KindClass, KindMethod, KindProperty, KindField,
		KindFunction, KindInterface, KindStruct, KindType, KindConst, KindVar:
		return k
	default:
		return KindUnknown
	}
}

// Position represents a 1-based location in source code
type Position struct {
	Line   int
	Column int
}

// Range is a 1-based, inclusive source span
type Range struct {
	Start Position
	End   Position
}

// Contains reports whether line falls inside the range
func (r Range) Contains(line int) bool {
	return line >= r.Start.Line && line <= r.End.Line
}

// Lines returns the number of lines spanned by the range
func (r Range) Lines() int {
	if r.End.Line < r.Start.Line {
		return 0
	}
	return r.End.Line - r.Start.Line + 1
}
