package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/coderecall/pkg/types"
)

func span(start, end int) types.Range {
	return types.Range{Start: types.Position{Line: start, Column: 1}, End: types.Position{Line: end, Column: 1}}
}

func TestEnclosing(t *testing.T) {
	symbols := []Symbol{
		{Name: "Server", Range: span(1, 40)},
		{Name: "Start", Range: span(10, 20)},
		{Name: "Stop", Range: span(22, 30)},
	}

	got, ok := Enclosing(symbols, 15)
	assert.True(t, ok)
	assert.Equal(t, "Start", got.Name)

	got, ok = Enclosing(symbols, 35)
	assert.True(t, ok)
	assert.Equal(t, "Server", got.Name)

	_, ok = Enclosing(symbols, 50)
	assert.False(t, ok)
}

func TestKindFromLSP(t *testing.T) {
	assert.Equal(t, types.KindFunction, kindFromLSP(lspFunction))
	assert.Equal(t, types.KindMethod, kindFromLSP(lspConstructor))
	assert.Equal(t, types.KindUnknown, kindFromLSP(99))
}

func TestSymbolAnchor(t *testing.T) {
	s := Symbol{Range: span(4, 9)}
	assert.Equal(t, types.Position{Line: 4, Column: 1}, s.anchor())

	s.Selection = types.Range{Start: types.Position{Line: 4, Column: 6}}
	assert.Equal(t, types.Position{Line: 4, Column: 6}, s.anchor())
	assert.Equal(t, wirePosition{Line: 3, Character: 5}, fromPosition(s.anchor()))
	assert.Equal(t, wirePosition{}, fromPosition(types.Position{}))
}
