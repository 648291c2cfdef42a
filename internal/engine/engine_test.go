package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/coderecall/internal/config"
	"github.com/dshills/coderecall/internal/searcher"
	"github.com/dshills/coderecall/pkg/types"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.DBPath = memoryDB
	cfg.Embedding.Provider = "local"
	cfg.Embedding.APIKey = ""
	cfg.Indexing.Workers = 2
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"auth.go": `package app

// Authenticate checks credentials
func Authenticate(user, password string) bool {
	return user != "" && password != ""
}
`,
		"store.go": `package app

type Store struct {
	items map[string]string
}

func (s *Store) Get(key string) string {
	return s.items[key]
}
`,
		"README.md": "# app\n\nSmall sample used to exercise indexing.\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}
	return root
}

func TestNew(t *testing.T) {
	e := newTestEngine(t, testConfig())

	assert.False(t, e.GraphEnabled())
	assert.False(t, e.Indexing())
	assert.Equal(t,
		[]types.Source{types.SourceExact, types.SourceFuzzy, types.SourceVector, types.SourceSparse},
		e.searcher.Sources())
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Mode = "psychic"

	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewCreatesDatabaseDirectory(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "nested", "dir", "index.db")

	e := newTestEngine(t, cfg)
	require.NotNil(t, e)

	_, err := os.Stat(filepath.Dir(cfg.Storage.DBPath))
	assert.NoError(t, err)
}

func TestIndexAndSearch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, testConfig())
	root := writeProject(t)

	stats, err := e.Index(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.FilesIndexed)
	assert.Positive(t, stats.ChunksCreated)
	assert.Equal(t, stats.ChunksCreated, stats.EmbeddingsGenerated)

	opts := e.SearchOptions()
	opts.Mode = searcher.ModeExact
	resp, err := e.Search(ctx, root, "Authenticate", opts)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "auth.go", resp.Results[0].Path)
	assert.Equal(t, "Authenticate", resp.Results[0].Symbol)

	hybrid, err := e.Search(ctx, root, "store get item", e.SearchOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, hybrid.Results)
}

func TestIndexInvalidatesSearchCache(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, testConfig())
	root := writeProject(t)

	_, err := e.Index(ctx, root, nil)
	require.NoError(t, err)

	_, err = e.Search(ctx, root, "Authenticate", e.SearchOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, e.searcher.CacheLen())

	_, err = e.Index(ctx, root, nil)
	require.NoError(t, err)
	assert.Zero(t, e.searcher.CacheLen())
}

func TestNotIndexed(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, testConfig())
	root := t.TempDir()

	_, err := e.Search(ctx, root, "anything", e.SearchOptions())
	assert.ErrorIs(t, err, ErrNotIndexed)

	_, err = e.Status(ctx, root)
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, testConfig())
	root := writeProject(t)

	_, err := e.Index(ctx, root, nil)
	require.NoError(t, err)

	status, err := e.Status(ctx, root)
	require.NoError(t, err)

	assert.Equal(t, root, status.Project.RootPath)
	assert.Equal(t, 3, status.Store.FilesCount)
	assert.Equal(t, status.Store.ChunksCount, status.Store.EmbeddingsCount)
	assert.Equal(t, "local", status.EmbedderName)
	assert.False(t, status.GraphEnabled)
	assert.False(t, status.RerankEnabled)
	assert.False(t, status.Indexing)
	assert.Len(t, status.Sources, 4)
}

func TestSearchOptionsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Mode = "sparse"
	cfg.Search.Limit = 7
	cfg.Search.Adaptive = false
	cfg.Search.BoostSymbols = false
	e := newTestEngine(t, cfg)

	opts := e.SearchOptions()
	assert.Equal(t, searcher.ModeSparse, opts.Mode)
	assert.Equal(t, 7, opts.Limit)
	assert.False(t, opts.Adaptive)
	assert.False(t, opts.BoostSymbols)
	assert.False(t, opts.Rerank)
	assert.True(t, opts.UseCache)
	assert.True(t, opts.EnableExact && opts.EnableFuzzy && opts.EnableVector && opts.EnableSparse)
}

func TestGraphSearchWithoutServerDegrades(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, testConfig())
	root := writeProject(t)

	_, err := e.Index(ctx, root, nil)
	require.NoError(t, err)

	opts := e.SearchOptions()
	opts.Mode = searcher.ModeGraph
	resp, err := e.Search(ctx, root, "Authenticate", opts)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	var graphStat *searcher.BackendStat
	for i := range resp.Backends {
		if resp.Backends[i].Source == types.SourceGraph {
			graphStat = &resp.Backends[i]
		}
	}
	require.NotNil(t, graphStat)
	assert.NotEmpty(t, graphStat.Error)
}

func TestGraphEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Navigation.Command = "gopls"
	e := newTestEngine(t, cfg)
	assert.True(t, e.GraphEnabled())
}
