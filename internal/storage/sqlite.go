package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/coderecall/internal/query"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrEmptyMatch is returned by SearchText for an empty match expression
	ErrEmptyMatch = errors.New("empty match expression")
)

// IndexVersion is recorded on every project; bump when chunking changes
const IndexVersion = "1"

// SQLiteStorage implements Storage on SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer. Also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (or creates) the database at dbPath and migrates it
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is implemented by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction, rolling back on error
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Project operations

const projectColumns = `id, root_path, index_version, total_files, total_chunks, last_indexed_at, created_at, updated_at`

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var lastIndexedAt sql.NullTime
	err := row.Scan(&p.ID, &p.RootPath, &p.IndexVersion, &p.TotalFiles, &p.TotalChunks,
		&lastIndexedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIndexedAt.Valid {
		p.LastIndexedAt = lastIndexedAt.Time
	}
	return &p, nil
}

// GetProject returns the project rooted at rootPath or ErrNotFound
func (s *SQLiteStorage) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE root_path = ?`, rootPath)
	return scanProject(row)
}

func (s *SQLiteStorage) getProjectByID(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// GetOrCreateProject returns the project rooted at rootPath, creating it if needed
func (s *SQLiteStorage) GetOrCreateProject(ctx context.Context, rootPath string) (*Project, error) {
	p, err := s.GetProject(ctx, rootPath)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (root_path, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, rootPath, IndexVersion, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Project{
		ID:           id,
		RootPath:     rootPath,
		IndexVersion: IndexVersion,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// TouchProject stores the project's counters and last indexed time
func (s *SQLiteStorage) TouchProject(ctx context.Context, p *Project) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET total_files = ?, total_chunks = ?, last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`, p.TotalFiles, p.TotalChunks, p.LastIndexedAt, now, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	p.UpdatedAt = now
	return nil
}

// File operations

// UpsertFile inserts or updates a file keyed by (project, path) and sets file.ID
func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO files (project_id, file_path, language, content_hash, mod_time, size_bytes, last_indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, file_path) DO UPDATE SET
			language = excluded.language,
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			last_indexed_at = excluded.last_indexed_at
		RETURNING id
	`, file.ProjectID, file.FilePath, file.Language, file.ContentHash[:], file.ModTime,
		file.SizeBytes, file.LastIndexedAt).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	return nil
}

const fileColumns = `id, project_id, file_path, language, content_hash, mod_time, size_bytes, last_indexed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row rowScanner) (*File, error) {
	var f File
	var language sql.NullString
	var hash []byte
	var modTime, lastIndexedAt sql.NullTime
	var size sql.NullInt64
	if err := row.Scan(&f.ID, &f.ProjectID, &f.FilePath, &language, &hash, &modTime, &size, &lastIndexedAt); err != nil {
		return nil, err
	}
	f.Language = language.String
	copy(f.ContentHash[:], hash)
	f.ModTime = modTime.Time
	f.SizeBytes = size.Int64
	f.LastIndexedAt = lastIndexedAt.Time
	return &f, nil
}

// GetFile returns a file by project and relative path or ErrNotFound
func (s *SQLiteStorage) GetFile(ctx context.Context, projectID int64, filePath string) (*File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE project_id = ? AND file_path = ?`, projectID, filePath)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

// ListFiles returns all files of a project ordered by path
func (s *SQLiteStorage) ListFiles(ctx context.Context, projectID int64) ([]*File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileColumns+` FROM files WHERE project_id = ? ORDER BY file_path`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteFile removes a file together with its chunks and embeddings
func (s *SQLiteStorage) DeleteFile(ctx context.Context, fileID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID)
	return err
}

// Chunk operations

// ReplaceChunks atomically swaps the chunks of a file and sets each chunk's ID.
// Embeddings of the previous chunks are removed with them.
func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, fileID int64, chunks []*Chunk) error {
	return s.withTx(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}

		for _, c := range chunks {
			result, err := q.ExecContext(ctx, `
				INSERT INTO chunks (file_id, symbol_name, symbol_kind, content, terms, start_line, end_line, chunk_type)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, fileID, c.SymbolName, c.SymbolKind, c.Content, indexTerms(c), c.StartLine, c.EndLine, c.ChunkType)
			if err != nil {
				return fmt.Errorf("failed to insert chunk %d-%d: %w", c.StartLine, c.EndLine, err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return err
			}
			c.ID = id
			c.FileID = fileID
		}
		return nil
	})
}

const chunkColumns = `c.id, c.file_id, f.file_path, c.symbol_name, c.symbol_kind, c.content, c.start_line, c.end_line, c.chunk_type`

func scanChunk(row rowScanner, extra ...interface{}) (*Chunk, error) {
	var c Chunk
	dest := []interface{}{&c.ID, &c.FileID, &c.FilePath, &c.SymbolName, &c.SymbolKind,
		&c.Content, &c.StartLine, &c.EndLine, &c.ChunkType}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChunksByFile returns a file's chunks in line order
func (s *SQLiteStorage) ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c JOIN files f ON c.file_id = f.id
		WHERE c.file_id = ?
		ORDER BY c.start_line
	`, fileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// indexTerms is the text of the FTS terms column: the identifier sub-tokens
// of the chunk, so "User" finds "getUserById".
func indexTerms(c *Chunk) string {
	seen := make(map[string]bool)
	var terms []string
	add := func(word string) {
		for _, part := range query.SplitIdentifier(word) {
			lower := strings.ToLower(part)
			if len(lower) < query.MinSubtokenLen || seen[lower] {
				continue
			}
			seen[lower] = true
			terms = append(terms, lower)
		}
	}

	add(c.SymbolName)
	for _, tok := range query.Tokens(c.Content) {
		add(tok)
	}
	return strings.Join(terms, " ")
}

// Embedding operations

// UpsertEmbedding stores the vector of a chunk, replacing any previous one
func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, e *Embedding) error {
	dim := e.Dimension
	if dim == 0 {
		dim = len(e.Vector)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`, e.ChunkID, serializeVector(e.Vector), dim, e.Provider, e.Model)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// Search operations

// SearchText ranks chunks matching an FTS5 match expression by bm25.
// The expression is passed through unchanged; callers build it.
func (s *SQLiteStorage) SearchText(ctx context.Context, projectID int64, match string, limit int, opts TextOptions) ([]ChunkResult, error) {
	return searchText(ctx, s.db, projectID, match, limit, opts)
}

// SearchVector ranks embedded chunks by cosine similarity to vector
func (s *SQLiteStorage) SearchVector(ctx context.Context, projectID int64, vector []float32, limit int) ([]ChunkResult, error) {
	return searchVector(ctx, s.db, projectID, vector, limit)
}

// Status operations

// GetStatus returns counters and health of a project's index
func (s *SQLiteStorage) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	project, err := s.getProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	status := &ProjectStatus{Project: project}

	counts := []struct {
		dest  *int
		query string
	}{
		{&status.FilesCount, `SELECT COUNT(*) FROM files WHERE project_id = ?`},
		{&status.ChunksCount, `SELECT COUNT(*) FROM chunks c JOIN files f ON c.file_id = f.id WHERE f.project_id = ?`},
		{&status.SymbolsCount, `SELECT COUNT(*) FROM chunks c JOIN files f ON c.file_id = f.id WHERE f.project_id = ? AND c.symbol_name <> ''`},
		{&status.EmbeddingsCount, `SELECT COUNT(*) FROM embeddings e JOIN chunks c ON e.chunk_id = c.id JOIN files f ON c.file_id = f.id WHERE f.project_id = ?`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, projectID).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		FTSIndexesBuilt:     true,
	}

	return status, nil
}
