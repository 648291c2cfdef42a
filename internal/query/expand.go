// Package query turns raw user queries into backend-ready search text.
//
// Expand rewrites compound identifiers into an OR of their parts so that
// lexical backends can match "UserAuth" against code mentioning "user" or
// "auth". Queries that already use search syntax are left alone.
//
//	query.Expand("UserAuth")        // "UserAuth OR User OR Auth"
//	query.Expand(`"exact phrase"`)  // unchanged
//	query.Expand("a AND b")         // unchanged
package query

import (
	"strings"
	"unicode"
)

// MinSubtokenLen is the shortest sub-token kept by Expand
const MinSubtokenLen = 2

// booleanOperators are the upper-case keywords understood by FTS-style backends
var booleanOperators = map[string]bool{
	"AND":  true,
	"OR":   true,
	"NOT":  true,
	"NEAR": true,
}

// HasOperators reports whether the query already uses boolean, phrase,
// wildcard or prefix syntax.
func HasOperators(q string) bool {
	if strings.Contains(q, `"`) {
		return true
	}
	for _, tok := range strings.Fields(q) {
		if booleanOperators[tok] {
			return true
		}
		if strings.Contains(tok, "*") {
			return true
		}
		// a trailing question mark is punctuation, an inner one is a wildcard
		if strings.Contains(strings.TrimRight(tok, "?"), "?") {
			return true
		}
		if len(tok) > 1 && (tok[0] == '+' || tok[0] == '-') && isWordRune(rune(tok[1])) {
			return true
		}
		if strings.HasPrefix(tok, "NEAR(") {
			return true
		}
	}
	return false
}

// Expand returns the query with each compound token followed by its parts,
// all joined with " OR ". Queries with existing operators are returned unchanged.
func Expand(q string) string {
	if HasOperators(q) {
		return q
	}

	tokens := strings.Fields(q)
	if len(tokens) == 0 {
		return q
	}

	seen := make(map[string]bool)
	terms := make([]string, 0, len(tokens)*3)
	add := func(t string) {
		key := strings.ToLower(t)
		if seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, t)
	}

	for _, tok := range tokens {
		add(tok)
		for _, part := range SplitIdentifier(tok) {
			if len([]rune(part)) < MinSubtokenLen {
				continue
			}
			add(part)
		}
	}

	return strings.Join(terms, " OR ")
}

// SplitIdentifier splits a token on CamelCase boundaries, underscores and
// hyphens. Runs of capitals are one part ("HTTPServer" -> "HTTP", "Server")
// and digits stay attached to the preceding part ("utf8Decode" -> "utf8", "Decode").
// Characters that are neither letters nor digits act as separators.
func SplitIdentifier(token string) []string {
	var parts []string
	separator := func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }
	for _, field := range strings.FieldsFunc(token, separator) {
		parts = append(parts, splitCamel(field)...)
	}
	return parts
}

// splitCamel splits a single alphanumeric run on case transitions
func splitCamel(s string) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			// fooBar
			boundary = true
		case unicode.IsDigit(prev) && unicode.IsUpper(cur):
			// utf8Decode
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// HTTPServer: split before the last capital of the run
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}

// Tokens returns the identifier-like words of a query, without operators or
// quoting, in order of appearance.
func Tokens(q string) []string {
	fields := strings.FieldsFunc(q, func(r rune) bool { return !isWordRune(r) })
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if booleanOperators[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}
