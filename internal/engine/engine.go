// Package engine assembles the index store, embedder, backends, indexer and
// searcher from configuration. The MCP server and the CLI both drive a
// single Engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dshills/coderecall/internal/backend"
	"github.com/dshills/coderecall/internal/config"
	"github.com/dshills/coderecall/internal/embedder"
	"github.com/dshills/coderecall/internal/fusion"
	"github.com/dshills/coderecall/internal/graph"
	"github.com/dshills/coderecall/internal/indexer"
	"github.com/dshills/coderecall/internal/logging"
	"github.com/dshills/coderecall/internal/navigation"
	"github.com/dshills/coderecall/internal/rerank"
	"github.com/dshills/coderecall/internal/searcher"
	"github.com/dshills/coderecall/internal/storage"
	"github.com/dshills/coderecall/pkg/types"
)

const memoryDB = ":memory:"

var ErrNotIndexed = errors.New("project not indexed")

// Engine owns the store and every component built on it
type Engine struct {
	cfg      *config.Config
	store    storage.Storage
	embedder embedder.Embedder
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	log      logrus.FieldLogger
}

// New opens the store at cfg.Storage.DBPath and wires the components. A nil
// logger discards output.
func New(cfg *config.Config, logger logrus.FieldLogger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.OrDiscard(logger)

	dbPath := cfg.Storage.DBPath
	if dbPath != memoryDB {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:          cfg.Embedding.Provider,
		Model:             cfg.Embedding.Model,
		APIKey:            cfg.Embedding.APIKey,
		BaseURL:           cfg.Embedding.BaseURL,
		CacheSize:         cfg.Embedding.CacheSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Logger:            log,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		store:    store,
		embedder: emb,
		log:      log,
	}

	e.indexer = indexer.New(store,
		indexer.WithEmbedder(emb),
		indexer.WithLogger(log),
	)

	e.searcher, err = searcher.New(e.searcherConfig(),
		backend.NewExact(store),
		backend.NewFuzzy(store),
		backend.NewVector(store, emb),
		backend.NewSparse(store),
	)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("failed to initialize searcher: %w", err)
	}

	log.WithFields(logrus.Fields{
		"db":       dbPath,
		"driver":   storage.DriverName,
		"embedder": emb.Provider(),
		"model":    emb.Model(),
		"graph":    e.GraphEnabled(),
		"rerank":   cfg.Rerank.Endpoint != "",
	}).Debug("Engine ready")

	return e, nil
}

func (e *Engine) searcherConfig() searcher.Config {
	weights, err := fusion.Preset(e.cfg.Search.Preset)
	if err != nil {
		weights = fusion.DefaultWeights()
	}

	sc := searcher.Config{
		Weights:        weights,
		K:              e.cfg.Search.K,
		BoostFactor:    e.cfg.Search.BoostFactor,
		RerankTopN:     e.cfg.Search.RerankTopN,
		BackendTimeout: e.cfg.Search.BackendTimeout,
		CacheSize:      e.cfg.Search.CacheSize,
		CacheTTL:       e.cfg.Search.CacheTTL,
		Graph: graph.Config{
			MaxDepth:       e.cfg.Graph.MaxDepth,
			MaxNodes:       e.cfg.Graph.MaxNodes,
			MaxConcurrent:  e.cfg.Graph.MaxConcurrent,
			RequestTimeout: e.cfg.Graph.RequestTimeout,
			Logger:         e.log,
		},
		Bridge: navigation.CacheConfig{
			Capacity:       e.cfg.Graph.CacheSize,
			TTL:            e.cfg.Graph.CacheTTL,
			RequestTimeout: e.cfg.Graph.RequestTimeout,
		},
		Logger: e.log,
	}

	if e.cfg.Rerank.Endpoint != "" {
		sc.Reranker = rerank.New(rerank.Config{
			Endpoint: e.cfg.Rerank.Endpoint,
			Model:    e.cfg.Rerank.Model,
			Timeout:  e.cfg.Rerank.Timeout,
		})
	}
	if command := e.cfg.NavigationCommand(); len(command) > 0 {
		sc.Navigator = e.dialer(command)
	}
	return sc
}

// dialer starts one language server session per graph search, rooted at
// the searched project
func (e *Engine) dialer(command []string) searcher.NavigatorFactory {
	return func(ctx context.Context, index types.IndexHandle) (navigation.Session, error) {
		client, err := navigation.Dial(ctx, navigation.Config{
			Command:           command,
			RootPath:          index.Root,
			LanguageID:        e.cfg.Navigation.LanguageID,
			RequestTimeout:    e.cfg.Graph.RequestTimeout,
			RequestsPerSecond: e.cfg.Navigation.RequestsPerSecond,
			Logger:            e.log,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// IndexConfig returns the configured indexing settings; callers may adjust
// the copy before passing it to Index
func (e *Engine) IndexConfig() *indexer.Config {
	cfg := indexer.DefaultConfig()
	cfg.Workers = e.cfg.Indexing.Workers
	cfg.BatchSize = e.cfg.Indexing.BatchSize
	cfg.IncludeTests = e.cfg.Indexing.IncludeTests
	cfg.IncludeVendor = e.cfg.Indexing.IncludeVendor
	cfg.MaxFileSize = e.cfg.Indexing.MaxFileSize
	return cfg
}

// Index indexes the tree at path and drops cached search responses. A nil
// cfg uses IndexConfig.
func (e *Engine) Index(ctx context.Context, path string, cfg *indexer.Config) (*indexer.Statistics, error) {
	if cfg == nil {
		cfg = e.IndexConfig()
	}

	stats, err := e.indexer.IndexProject(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	e.searcher.InvalidateCache()
	return stats, nil
}

// Indexing reports whether an index run is active
func (e *Engine) Indexing() bool {
	return e.indexer.Indexing()
}

// Resolve returns the handle of the indexed project rooted at path, or
// ErrNotIndexed
func (e *Engine) Resolve(ctx context.Context, path string) (types.IndexHandle, *storage.Project, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return types.IndexHandle{}, nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	project, err := e.store.GetProject(ctx, root)
	if errors.Is(err, storage.ErrNotFound) {
		return types.IndexHandle{}, nil, fmt.Errorf("%w: %s", ErrNotIndexed, root)
	}
	if err != nil {
		return types.IndexHandle{}, nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project.LastIndexedAt.IsZero() {
		return types.IndexHandle{}, nil, fmt.Errorf("%w: %s", ErrNotIndexed, root)
	}

	return types.IndexHandle{ProjectID: project.ID, Root: project.RootPath}, project, nil
}

// SearchOptions returns per-request options seeded from configuration
func (e *Engine) SearchOptions() searcher.Options {
	opts := searcher.DefaultOptions()
	if mode, err := searcher.ParseMode(e.cfg.Search.Mode); err == nil {
		opts.Mode = mode
	}
	opts.Limit = e.cfg.Search.Limit
	opts.Adaptive = e.cfg.Search.Adaptive
	opts.BoostSymbols = e.cfg.Search.BoostSymbols
	opts.Rerank = e.cfg.Search.Rerank
	opts.Deadline = e.cfg.Search.Deadline
	opts.UseCache = true
	return opts
}

// Search runs q against the project indexed at path
func (e *Engine) Search(ctx context.Context, path, q string, opts searcher.Options) (*searcher.SearchResponse, error) {
	index, _, err := e.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.searcher.Search(ctx, index, q, opts)
}

// Status describes an indexed project and the engine serving it
type Status struct {
	Project         *storage.Project
	Store           *storage.ProjectStatus
	Indexing        bool
	Sources         []types.Source
	GraphEnabled    bool
	RerankEnabled   bool
	EmbedderName    string
	EmbedderModel   string
	CachedResponses int
	BridgeCache     navigation.CacheStats
}

// Status reports on the project indexed at path
func (e *Engine) Status(ctx context.Context, path string) (*Status, error) {
	_, project, err := e.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	store, err := e.store.GetStatus(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	return &Status{
		Project:         project,
		Store:           store,
		Indexing:        e.indexer.Indexing(),
		Sources:         e.searcher.Sources(),
		GraphEnabled:    e.GraphEnabled(),
		RerankEnabled:   e.cfg.Rerank.Endpoint != "",
		EmbedderName:    e.embedder.Provider(),
		EmbedderModel:   e.embedder.Model(),
		CachedResponses: e.searcher.CacheLen(),
		BridgeCache:     e.searcher.BridgeCacheStats(),
	}, nil
}

// GraphEnabled reports whether a language server is configured
func (e *Engine) GraphEnabled() bool {
	return len(e.cfg.NavigationCommand()) > 0
}

// Config returns the engine's configuration
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Close releases the embedder and the store
func (e *Engine) Close() error {
	var errs []error
	if e.embedder != nil {
		errs = append(errs, e.embedder.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}
