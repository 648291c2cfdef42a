package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"authenticate", "authenticat"},
		{"authenticated", "authenticat"},
		{"authentication", "authenticat"},
		{"parsing", "pars"},
		{"handlers", "handl"},
		{"go", "go"},
		{"user", "user"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Stem(tt.in))
		})
	}
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("The"))
	assert.True(t, IsStopWord("how"))
	assert.False(t, IsStopWord("parser"))
}
