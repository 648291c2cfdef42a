package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{"exact", SourceExact, false},
		{" Vector ", SourceVector, false},
		{"GRAPH", SourceGraph, false},
		{"bm25", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSource(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownSource)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrderSources(t *testing.T) {
	in := []Source{"zeta", SourceGraph, SourceExact, "alpha", SourceVector, SourceExact}
	assert.Equal(t, []Source{SourceExact, SourceVector, SourceGraph, "alpha", "zeta"}, OrderSources(in))
	assert.Empty(t, OrderSources(nil))
}

func TestHitIdentity(t *testing.T) {
	a := Hit{Path: "auth/login.go", Symbol: "Login", StartLine: 12, EndLine: 40, Source: SourceExact, Score: 3}
	b := Hit{Path: "auth/login.go", Symbol: "Login", StartLine: 12, EndLine: 38, Source: SourceVector, Score: 0.9}
	c := Hit{Path: "auth/login.go", Symbol: "Login", StartLine: 13}

	assert.Equal(t, a.Identity(), b.Identity())
	assert.NotEqual(t, a.Identity(), c.Identity())
	assert.Equal(t, "auth/login.go#Login@12", a.Identity().String())
}

func TestHitValidate(t *testing.T) {
	tests := []struct {
		name string
		hit  Hit
		err  error
	}{
		{"valid", Hit{Path: "a.go", StartLine: 1, EndLine: 3}, nil},
		{"open end", Hit{Path: "a.go", StartLine: 5}, nil},
		{"no path", Hit{StartLine: 1}, ErrEmptyPath},
		{"zero start", Hit{Path: "a.go"}, ErrInvalidLineRange},
		{"inverted", Hit{Path: "a.go", StartLine: 9, EndLine: 2}, ErrInvalidLineRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hit.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestHitCloneCopiesMetadata(t *testing.T) {
	orig := Hit{Path: "a.go", StartLine: 1, Metadata: map[string]any{"lang": "go"}}
	clone := orig.Clone()
	clone.Metadata["lang"] = "rust"

	assert.Equal(t, "go", orig.Metadata["lang"])
}

func TestFusedHitSources(t *testing.T) {
	f := FusedHit{SourceRanks: map[Source]int{SourceVector: 2, SourceExact: 1, SourceGraph: 4}}
	assert.Equal(t, []Source{SourceExact, SourceVector, SourceGraph}, f.Sources())
}

func TestSymbolKind(t *testing.T) {
	assert.Equal(t, KindMethod, ParseSymbolKind(" Method"))
	assert.Equal(t, KindUnknown, ParseSymbolKind("namespace"))
	assert.True(t, KindFunction.IsCallable())
	assert.False(t, KindStruct.IsCallable())
}

func TestRange(t *testing.T) {
	r := Range{Start: Position{Line: 10}, End: Position{Line: 14}}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(14))
	assert.False(t, r.Contains(15))
	assert.Equal(t, 5, r.Lines())
	assert.Equal(t, 0, Range{Start: Position{Line: 3}, End: Position{Line: 1}}.Lines())
}
