// Package storage provides the SQLite index that the retrieval backends read.
//
// # Database Schema
//
// Tables:
//   - projects: one row per indexed root
//   - files: relative paths with SHA-256 content hashes and mtimes
//   - chunks: searchable sections (one declaration or one line window)
//   - chunks_fts: FTS5 index over chunk content, symbol name and split
//     identifier terms
//   - embeddings: one float32 vector per chunk, little-endian blobs
//
// Schema changes are versioned migrations compared with semver.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.coderecall/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	project, err := db.GetOrCreateProject(ctx, "/src/myproject")
//	file := &storage.File{ProjectID: project.ID, FilePath: "auth/login.go", ContentHash: hash}
//	err = db.UpsertFile(ctx, file)
//	err = db.ReplaceChunks(ctx, file.ID, chunks)
//
// # Searching
//
// SearchText takes a ready FTS5 match expression; building one from user
// input is the caller's job. Results are ordered by bm25 and Score is the
// negated bm25 value so that higher is better. TextOptions.SymbolWeight
// raises the bm25 weight of the symbol name column.
//
// SearchVector computes cosine similarity in Go over every stored vector of
// matching dimension. A project without embeddings yields an empty result.
//
// # Build Tags
//
// Default builds use modernc.org/sqlite (pure Go, FTS5 included):
//
//	CGO_ENABLED=0 go build ./...
//
// The cgo_sqlite tag switches to github.com/mattn/go-sqlite3, which needs
// sqlite_fts5 as well:
//
//	CGO_ENABLED=1 go build -tags "cgo_sqlite sqlite_fts5" ./...
package storage
