package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/coderecall/internal/chunker"
	"github.com/dshills/coderecall/internal/embedder"
	"github.com/dshills/coderecall/internal/logging"
	"github.com/dshills/coderecall/internal/storage"
)

const (
	DefaultBatchSize   = 32
	DefaultMaxFileSize = 1 << 20
)

var (
	ErrIndexInProgress = errors.New("indexing already in progress")
	ErrNotDirectory    = errors.New("not a directory")
)

// skipDirs are never descended into
var skipDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
}

// Indexer coordinates the indexing pipeline: discover -> chunk -> store -> embed
type Indexer struct {
	storage  storage.Storage
	chunker  *chunker.Chunker
	embedder embedder.Embedder // optional
	log      logrus.FieldLogger
	lock     IndexLock
}

// Config contains configuration for one indexing run
type Config struct {
	Workers       int   // Number of concurrent workers (default: runtime.NumCPU())
	BatchSize     int   // Chunks per embedding request (default: 32)
	IncludeTests  bool  // Whether to index test files
	IncludeVendor bool  // Whether to index the vendor directory
	MaxFileSize   int64 // Larger files are ignored (default: 1 MiB)
	Force         bool  // Reindex files whose content hash is unchanged
}

// DefaultConfig returns the configuration used when IndexProject gets nil
func DefaultConfig() *Config {
	return &Config{
		Workers:      runtime.NumCPU(),
		BatchSize:    DefaultBatchSize,
		IncludeTests: true,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	ProjectID           int64
	FilesIndexed        int
	FilesSkipped        int
	FilesFailed         int
	FilesDeleted        int
	ChunksCreated       int
	EmbeddingsGenerated int
	EmbeddingsFailed    int
	Duration            time.Duration
	ErrorMessages       []string
}

// counters is the shared, lock-free tally of a run
type counters struct {
	indexed, skipped, failed, chunks, embedded, embedFailed atomic.Int32

	mu     sync.Mutex
	errors []string
}

func (c *counters) fail(path string, err error) {
	c.failed.Add(1)
	c.mu.Lock()
	c.errors = append(c.errors, fmt.Sprintf("%s: %v", path, err))
	c.mu.Unlock()
}

// Option configures an Indexer
type Option func(*Indexer)

// WithEmbedder generates embeddings for new chunks
func WithEmbedder(e embedder.Embedder) Option {
	return func(idx *Indexer) { idx.embedder = e }
}

// WithChunker replaces the default chunker
func WithChunker(c *chunker.Chunker) Option {
	return func(idx *Indexer) { idx.chunker = c }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(idx *Indexer) { idx.log = l }
}

// New creates a new Indexer instance
func New(store storage.Storage, opts ...Option) *Indexer {
	idx := &Indexer{
		storage: store,
		chunker: chunker.New(chunker.Config{}),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.log = logging.OrDiscard(idx.log).WithField("component", "indexer")
	return idx
}

// IndexProject indexes the tree under rootPath. Per-file failures are
// counted in the statistics; only setup errors and cancellation fail the run.
// Files removed from disk since the last run are dropped from the index.
func (idx *Indexer) IndexProject(ctx context.Context, rootPath string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer idx.lock.Release()

	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}

	root, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	startTime := time.Now()
	log := idx.log.WithField("root", root)

	project, err := idx.storage.GetOrCreateProject(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}

	files, err := discoverFiles(root, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	existing, err := idx.storage.ListFiles(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed files: %w", err)
	}
	known := make(map[string]*storage.File, len(existing))
	for _, f := range existing {
		known[f.FilePath] = f
	}

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, rel := range files {
		prev := known[rel]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := idx.indexFile(gctx, project, root, rel, prev, &cfg, &c); err != nil {
				log.WithError(err).WithField("file", rel).Warn("failed to index file")
				c.fail(rel, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deleted, err := idx.removeMissing(ctx, files, existing)
	if err != nil {
		return nil, err
	}

	if err := idx.updateProjectStats(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project stats: %w", err)
	}

	stats := &Statistics{
		ProjectID:           project.ID,
		FilesIndexed:        int(c.indexed.Load()),
		FilesSkipped:        int(c.skipped.Load()),
		FilesFailed:         int(c.failed.Load()),
		FilesDeleted:        deleted,
		ChunksCreated:       int(c.chunks.Load()),
		EmbeddingsGenerated: int(c.embedded.Load()),
		EmbeddingsFailed:    int(c.embedFailed.Load()),
		Duration:            time.Since(startTime),
		ErrorMessages:       c.errors,
	}
	if stats.ErrorMessages == nil {
		stats.ErrorMessages = []string{}
	}

	log.WithFields(logrus.Fields{
		"indexed":  stats.FilesIndexed,
		"skipped":  stats.FilesSkipped,
		"failed":   stats.FilesFailed,
		"deleted":  stats.FilesDeleted,
		"chunks":   stats.ChunksCreated,
		"duration": stats.Duration,
	}).Info("indexing complete")
	return stats, nil
}

// indexFile indexes a single file unless its content hash is unchanged
func (idx *Indexer) indexFile(ctx context.Context, project *storage.Project, root, rel string, prev *storage.File, cfg *Config, c *counters) error {
	path := filepath.Join(root, filepath.FromSlash(rel))
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	hash := sha256.Sum256(content)
	if prev != nil && prev.ContentHash == hash && !cfg.Force {
		c.skipped.Add(1)
		return nil
	}

	chunks := idx.chunker.ChunkFile(rel, content)

	file := &storage.File{
		ProjectID:     project.ID,
		FilePath:      rel,
		Language:      chunker.Language(rel),
		ContentHash:   hash,
		ModTime:       info.ModTime(),
		SizeBytes:     info.Size(),
		LastIndexedAt: time.Now(),
	}
	if err := idx.storage.UpsertFile(ctx, file); err != nil {
		return err
	}
	if err := idx.storage.ReplaceChunks(ctx, file.ID, chunks); err != nil {
		// Drop the row so the unchanged hash does not skip the file next time
		_ = idx.storage.DeleteFile(ctx, file.ID)
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	c.indexed.Add(1)
	c.chunks.Add(int32(len(chunks)))

	idx.embedChunks(ctx, rel, chunks, cfg.BatchSize, c)
	return nil
}

// embedChunks stores embeddings for chunks in batches. Failures leave the
// affected chunks lexical-only.
func (idx *Indexer) embedChunks(ctx context.Context, rel string, chunks []*storage.Chunk, batchSize int, c *counters) {
	if idx.embedder == nil || len(chunks) == 0 {
		return
	}

	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, ch := range batch {
			texts[j] = ch.Content
		}

		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err == nil && len(resp.Embeddings) != len(batch) {
			err = fmt.Errorf("%w: got %d embeddings for %d texts", embedder.ErrProviderFailed, len(resp.Embeddings), len(batch))
		}
		if err != nil {
			idx.log.WithError(err).WithField("file", rel).Warn("embedding failed, chunks stay lexical-only")
			c.embedFailed.Add(int32(len(batch)))
			continue
		}

		for j, emb := range resp.Embeddings {
			if emb == nil {
				c.embedFailed.Add(1)
				continue
			}
			err := idx.storage.UpsertEmbedding(ctx, &storage.Embedding{
				ChunkID:   batch[j].ID,
				Vector:    emb.Vector,
				Dimension: emb.Dimension,
				Provider:  emb.Provider,
				Model:     emb.Model,
			})
			if err != nil {
				idx.log.WithError(err).WithField("file", rel).Warn("failed to store embedding")
				c.embedFailed.Add(1)
				continue
			}
			c.embedded.Add(1)
		}
	}
}

// removeMissing drops indexed files that are no longer discovered
func (idx *Indexer) removeMissing(ctx context.Context, discovered []string, existing []*storage.File) (int, error) {
	present := make(map[string]bool, len(discovered))
	for _, rel := range discovered {
		present[rel] = true
	}

	deleted := 0
	for _, f := range existing {
		if present[f.FilePath] {
			continue
		}
		if err := idx.storage.DeleteFile(ctx, f.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", f.FilePath, err)
		}
		deleted++
	}
	return deleted, nil
}

// updateProjectStats updates the project's file and chunk counts
func (idx *Indexer) updateProjectStats(ctx context.Context, project *storage.Project) error {
	status, err := idx.storage.GetStatus(ctx, project.ID)
	if err != nil {
		return err
	}

	project.TotalFiles = status.FilesCount
	project.TotalChunks = status.ChunksCount
	project.LastIndexedAt = time.Now()

	return idx.storage.TouchProject(ctx, project)
}

// discoverFiles returns the slash-separated paths, relative to root, of the
// files to index in lexical order
func discoverFiles(root string, cfg *Config) ([]string, error) {
	var gitignore *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gitignore = gi
	}
	ignored := func(rel string) bool {
		return gitignore != nil && gitignore.MatchesPath(rel)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			if name == "vendor" && !cfg.IncludeVendor {
				return filepath.SkipDir
			}
			if ignored(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || strings.HasPrefix(name, ".") {
			return nil
		}
		if chunker.Language(name) == "" {
			return nil
		}
		if !cfg.IncludeTests && chunker.IsTestFile(name) {
			return nil
		}
		if ignored(rel) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > cfg.MaxFileSize {
			return nil
		}

		files = append(files, rel)
		return nil
	})

	return files, err
}

// Indexing reports whether a run is in progress
func (idx *Indexer) Indexing() bool {
	return idx.lock.Held()
}
