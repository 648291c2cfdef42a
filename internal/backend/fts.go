package backend

import (
	"strings"
	"unicode"

	"github.com/dshills/coderecall/internal/query"
)

// term is one operand of a user query
type term struct {
	words  []string // one word, or several for a phrase
	prefix bool     // trailing * or inner ? wildcard
}

func (t term) phrase() bool { return len(t.words) > 1 }

// clause is a positive operand and the connector that precedes it
type clause struct {
	op   string // "", "AND" or "OR"; empty means the caller's default
	term term
}

// parsedQuery is a user query reduced to what FTS5 can express
type parsedQuery struct {
	clauses  []clause
	excluded []term
}

// parseQuery reads boolean operators, phrases, wildcards and +/- prefixes.
// NEAR is read as AND.
func parseQuery(q string) parsedQuery {
	var pq parsedQuery
	pendingOp := ""
	negateNext := false

	emit := func(t term, op string, negate bool) {
		if len(t.words) == 0 {
			return
		}
		if negate {
			pq.excluded = append(pq.excluded, t)
			return
		}
		pq.clauses = append(pq.clauses, clause{op: op, term: t})
	}

	for _, raw := range splitRaw(q) {
		if strings.HasPrefix(raw, `"`) {
			emit(term{words: words(strings.Trim(raw, `"`))}, pendingOp, negateNext)
			pendingOp, negateNext = "", false
			continue
		}

		if strings.HasPrefix(raw, "NEAR(") {
			raw, pendingOp = raw[len("NEAR("):], "AND"
			if raw == "" {
				continue
			}
		}

		switch raw {
		case "AND", "NEAR":
			pendingOp = "AND"
			continue
		case "OR":
			pendingOp = "OR"
			continue
		case "NOT":
			negateNext = true
			continue
		}

		op, negate := pendingOp, negateNext
		switch {
		case strings.HasPrefix(raw, "+") && len(raw) > 1:
			raw, op = raw[1:], "AND"
		case strings.HasPrefix(raw, "-") && len(raw) > 1:
			raw, negate = raw[1:], true
		}

		t := term{}
		if i := strings.IndexRune(raw, '?'); i >= 0 && i < len(strings.TrimRight(raw, "?")) {
			raw, t.prefix = raw[:i], true
		}
		if strings.HasSuffix(strings.TrimRight(raw, ")"), "*") {
			t.prefix = true
		}
		t.words = words(raw)
		if len(t.words) == 0 {
			continue
		}
		emit(t, op, negate)
		pendingOp, negateNext = "", false
	}
	return pq
}

// splitRaw splits on whitespace, keeping double-quoted phrases whole
func splitRaw(q string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range q {
		switch {
		case r == '"':
			if inQuote {
				cur.WriteRune(r)
				flush()
				inQuote = false
				continue
			}
			flush()
			inQuote = true
			cur.WriteRune(r)
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// words returns the FTS-indexable words of s
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// quote renders an FTS5 string literal
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// renderTerm is the default operand rendering: a quoted word or phrase,
// with * for prefix terms.
func renderTerm(t term) string {
	s := quote(strings.Join(t.words, " "))
	if t.prefix && !t.phrase() {
		s += "*"
	}
	return s
}

// build assembles an FTS5 expression. rewrite turns a term into one or more
// alternative operands; forceOp, when set, replaces every connector.
func (pq parsedQuery) build(rewrite func(term) []string, defaultOp, forceOp string) string {
	var b strings.Builder
	n := 0
	for _, c := range pq.clauses {
		alts := rewrite(c.term)
		if len(alts) == 0 {
			continue
		}
		operand := alts[0]
		if len(alts) > 1 {
			operand = "(" + strings.Join(alts, " OR ") + ")"
		}

		if n > 0 {
			op := c.op
			if op == "" {
				op = defaultOp
			}
			if forceOp != "" {
				op = forceOp
			}
			b.WriteString(" " + op + " ")
		}
		b.WriteString(operand)
		n++
	}
	if n == 0 {
		return ""
	}

	expr := b.String()
	if len(pq.excluded) > 0 {
		neg := make([]string, 0, len(pq.excluded))
		for _, t := range pq.excluded {
			neg = append(neg, renderTerm(t))
		}
		expr = "(" + expr + ") NOT (" + strings.Join(neg, " OR ") + ")"
	}
	return expr
}

// prefixStem renders a word as a prefix match on its stem
func prefixStem(word string) string {
	lower := strings.ToLower(word)
	return quote(query.Stem(lower)) + "*"
}
