package query

import "strings"

// stemSuffixes are tried in order; the first that leaves a stem of at least
// minStemLen characters wins.
var stemSuffixes = []string{"ing", "ion", "ers", "ed", "er", "es", "e", "s"}

const minStemLen = 4

// Stem strips one common English suffix from a lowercase word so that
// "authenticate", "authenticated" and "authentication" share "authenticat".
func Stem(word string) string {
	for _, suffix := range stemSuffixes {
		if len(word)-len(suffix) >= minStemLen && strings.HasSuffix(word, suffix) {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

// stopWords carry no retrieval signal in natural-language queries
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "do": true, "does": true, "for": true, "from": true,
	"how": true, "in": true, "is": true, "it": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "this": true, "to": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "why": true, "with": true,
}

// IsStopWord reports common English function words, case-insensitively
func IsStopWord(word string) bool {
	return stopWords[strings.ToLower(word)]
}
