package graph

import (
	"context"
	"sync"

	"github.com/dshills/coderecall/internal/navigation"
)

// symbolCache remembers document symbols per file for one build. The first
// successful lookup for a file wins; failures are not remembered.
type symbolCache struct {
	mu    sync.Mutex
	files map[string][]navigation.Symbol
}

func newSymbolCache() *symbolCache {
	return &symbolCache{files: make(map[string][]navigation.Symbol)}
}

func (c *symbolCache) get(ctx context.Context, bridge navigation.Bridge, path string) ([]navigation.Symbol, error) {
	c.mu.Lock()
	if syms, ok := c.files[path]; ok {
		c.mu.Unlock()
		return syms, nil
	}
	c.mu.Unlock()

	syms, err := bridge.DocumentSymbols(ctx, path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.files[path]; ok {
		return existing, nil
	}
	c.files[path] = syms
	return syms, nil
}

// enclosing maps a line in path to its innermost declared symbol
func (c *symbolCache) enclosing(ctx context.Context, bridge navigation.Bridge, path string, line int) (navigation.Symbol, bool, error) {
	syms, err := c.get(ctx, bridge, path)
	if err != nil {
		return navigation.Symbol{}, false, err
	}
	sym, ok := navigation.Enclosing(syms, line)
	return sym, ok, nil
}

func (c *symbolCache) clear() {
	c.mu.Lock()
	c.files = make(map[string][]navigation.Symbol)
	c.mu.Unlock()
}

func (c *symbolCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}
