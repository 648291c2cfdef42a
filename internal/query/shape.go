package query

import (
	"strings"
	"unicode"
)

// Shape describes what a query looks like to the weighting heuristics
type Shape int

const (
	ShapeMixed Shape = iota
	ShapeIdentifier
	ShapeNaturalLanguage
)

func (s Shape) String() string {
	switch s {
	case ShapeIdentifier:
		return "identifier"
	case ShapeNaturalLanguage:
		return "natural_language"
	default:
		return "mixed"
	}
}

// questionWords mark a query as natural language even when it is short
var questionWords = map[string]bool{
	"how": true, "what": true, "where": true, "why": true, "which": true,
	"when": true, "who": true, "does": true, "find": true, "show": true,
}

// Classify decides whether a query reads like a code identifier or a
// natural-language question.
//
// Identifier-like: one or two tokens and at least one of them is compound
// (camelCase, snake_case, dotted or call syntax). Natural language: three or
// more mostly lowercase words with no compound token, or any query opening
// with a question word.
func Classify(q string) Shape {
	fields := strings.Fields(strings.TrimSpace(q))
	if len(fields) == 0 {
		return ShapeMixed
	}

	if questionWords[strings.ToLower(fields[0])] && len(fields) > 1 {
		return ShapeNaturalLanguage
	}

	compound := 0
	plain := 0
	for _, f := range fields {
		if isCompoundIdentifier(f) {
			compound++
		} else if isPlainWord(f) {
			plain++
		}
	}

	switch {
	case len(fields) <= 2 && compound > 0:
		return ShapeIdentifier
	case len(fields) == 1 && plain == 0:
		return ShapeIdentifier
	case len(fields) >= 3 && compound == 0 && plain >= len(fields)-1:
		return ShapeNaturalLanguage
	default:
		return ShapeMixed
	}
}

// isCompoundIdentifier reports camelCase, snake_case, kebab-case, dotted
// selectors and call syntax.
func isCompoundIdentifier(tok string) bool {
	if strings.ContainsAny(tok, "_.(:") {
		return true
	}
	if strings.Contains(strings.Trim(tok, "-"), "-") {
		return true
	}
	return len(SplitIdentifier(tok)) > 1
}

// isPlainWord reports an all-lowercase alphabetic word, allowing trailing punctuation
func isPlainWord(tok string) bool {
	tok = strings.TrimRight(tok, "?.,!;:")
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}
