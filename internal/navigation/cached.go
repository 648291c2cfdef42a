package navigation

import (
	"context"
	"fmt"
	"path/filepath"
)

// CachedBridge serves Bridge lookups through a Cache, keyed per file.
// Relative symbol paths are resolved against root for mtime checks, and
// keys carry root so bridges for different projects can share one Cache.
type CachedBridge struct {
	bridge Bridge
	cache  *Cache
	root   string
}

// NewCachedBridge wraps b with c
func NewCachedBridge(b Bridge, c *Cache, root string) *CachedBridge {
	return &CachedBridge{bridge: b, cache: c, root: root}
}

func (b *CachedBridge) file(path string) string {
	if filepath.IsAbs(path) || b.root == "" {
		return path
	}
	return filepath.Join(b.root, path)
}

func (b *CachedBridge) symbolKey(op string, sym Symbol) string {
	p := sym.anchor()
	return fmt.Sprintf("%s|%s|%s|%s|%d:%d", b.root, op, sym.Path, sym.Name, p.Line, p.Column)
}

func (b *CachedBridge) References(ctx context.Context, sym Symbol) ([]Location, error) {
	return GetOrFetch(ctx, b.cache, b.symbolKey("refs", sym), b.file(sym.Path), func(ctx context.Context) ([]Location, error) {
		return b.bridge.References(ctx, sym)
	})
}

func (b *CachedBridge) CallHierarchy(ctx context.Context, sym Symbol, dir Direction) ([]Symbol, error) {
	return GetOrFetch(ctx, b.cache, b.symbolKey("calls:"+dir.String(), sym), b.file(sym.Path), func(ctx context.Context) ([]Symbol, error) {
		return b.bridge.CallHierarchy(ctx, sym, dir)
	})
}

func (b *CachedBridge) DocumentSymbols(ctx context.Context, path string) ([]Symbol, error) {
	return GetOrFetch(ctx, b.cache, b.root+"|symbols|"+path, b.file(path), func(ctx context.Context) ([]Symbol, error) {
		return b.bridge.DocumentSymbols(ctx, path)
	})
}

func (b *CachedBridge) Hover(ctx context.Context, sym Symbol) (string, error) {
	return GetOrFetch(ctx, b.cache, b.symbolKey("hover", sym), b.file(sym.Path), func(ctx context.Context) (string, error) {
		return b.bridge.Hover(ctx, sym)
	})
}

func (b *CachedBridge) Definition(ctx context.Context, sym Symbol) (*Location, error) {
	return GetOrFetch(ctx, b.cache, b.symbolKey("def", sym), b.file(sym.Path), func(ctx context.Context) (*Location, error) {
		return b.bridge.Definition(ctx, sym)
	})
}

var _ Bridge = (*CachedBridge)(nil)
