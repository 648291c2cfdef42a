// Package indexer builds and refreshes the searchable index of a source tree.
//
// # Basic Usage
//
//	idx := indexer.New(store,
//	    indexer.WithEmbedder(embed),
//	    indexer.WithLogger(log),
//	)
//
//	stats, err := idx.IndexProject(ctx, "/path/to/project", nil)
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Indexing Pipeline
//
//  1. Discovery: walk the tree, honoring .gitignore, skipping hidden,
//     vendor and build directories and files without a known language
//  2. Incremental decision: compare SHA-256 content hashes, skip unchanged files
//  3. Chunk: Go files at top-level declarations, others in line windows
//  4. Store: replace the file's chunks in one transaction
//  5. Embed: generate vectors in batches when an embedder is configured
//  6. Prune: drop files that disappeared since the last run
//
// Files are processed by an errgroup worker pool of Config.Workers. A file
// that fails is counted in Statistics.FilesFailed and the run carries on;
// a chunk whose embedding fails stays searchable by the lexical backends.
//
// Only one run per Indexer may be active; a second concurrent call gets
// ErrIndexInProgress. Callers holding a searcher must invalidate its
// response cache after a run.
package indexer
