package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "camel case",
			query:    "UserAuth",
			expected: "UserAuth OR User OR Auth",
		},
		{
			name:     "acronym run",
			query:    "HTTPServerError",
			expected: "HTTPServerError OR HTTP OR Server OR Error",
		},
		{
			name:     "snake case",
			query:    "parse_config_file",
			expected: "parse_config_file OR parse OR config OR file",
		},
		{
			name:     "kebab case",
			query:    "rate-limiter",
			expected: "rate-limiter OR rate OR limiter",
		},
		{
			name:     "short parts dropped",
			query:    "getX",
			expected: "getX OR get",
		},
		{
			name:     "plain word unchanged",
			query:    "authenticate",
			expected: "authenticate",
		},
		{
			name:     "duplicates removed across tokens",
			query:    "UserAuth user",
			expected: "UserAuth OR User OR Auth",
		},
		{
			name:     "phrase unchanged",
			query:    `"exact phrase"`,
			expected: `"exact phrase"`,
		},
		{
			name:     "boolean unchanged",
			query:    "a AND b",
			expected: "a AND b",
		},
		{
			name:     "prefix unchanged",
			query:    "auth*",
			expected: "auth*",
		},
		{
			name:     "excluded term unchanged",
			query:    "token -refresh",
			expected: "token -refresh",
		},
		{
			name:     "empty",
			query:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Expand(tt.query))
		})
	}
}

func TestExpandKeepsOriginalToken(t *testing.T) {
	out := Expand("UserAuth")
	parts := strings.Split(out, " OR ")
	assert.Contains(t, parts, "UserAuth")
	assert.Contains(t, parts, "User")
	assert.Contains(t, parts, "Auth")
	assert.Equal(t, "UserAuth", parts[0])
}

func TestHasOperators(t *testing.T) {
	assert.True(t, HasOperators(`find "this"`))
	assert.True(t, HasOperators("x OR y"))
	assert.True(t, HasOperators("NOT deprecated"))
	assert.True(t, HasOperators("te?t"))
	assert.True(t, HasOperators("+required"))
	assert.False(t, HasOperators("how does auth work?"))
	assert.False(t, HasOperators("or and not"))
	assert.False(t, HasOperators("rate-limiter"))
}

func TestSplitIdentifier(t *testing.T) {
	tests := map[string][]string{
		"parseJSON":       {"parse", "JSON"},
		"HTTPServer":      {"HTTP", "Server"},
		"utf8Decode":      {"utf8", "Decode"},
		"snake_case_name": {"snake", "case", "name"},
		"pkg.Func":        {"pkg", "Func"},
		"simple":          {"simple"},
		"":                nil,
	}
	for in, want := range tests {
		assert.Equal(t, want, SplitIdentifier(in), "SplitIdentifier(%q)", in)
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"Authenticate", "user"}, Tokens(`"Authenticate" AND user`))
	assert.Equal(t, []string{"pkg", "Func"}, Tokens("pkg.Func()"))
	assert.Empty(t, Tokens("  "))
}
