package storage

import (
	"context"
	"time"
)

// Storage persists the indexed corpus and answers lexical and vector queries
// over it.
type Storage interface {
	// Project operations
	GetOrCreateProject(ctx context.Context, rootPath string) (*Project, error)
	GetProject(ctx context.Context, rootPath string) (*Project, error)
	TouchProject(ctx context.Context, project *Project) error

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, projectID int64, filePath string) (*File, error)
	ListFiles(ctx context.Context, projectID int64) ([]*File, error)
	DeleteFile(ctx context.Context, fileID int64) error

	// Chunk operations
	ReplaceChunks(ctx context.Context, fileID int64, chunks []*Chunk) error
	ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error

	// Search operations
	SearchText(ctx context.Context, projectID int64, match string, limit int, opts TextOptions) ([]ChunkResult, error)
	SearchVector(ctx context.Context, projectID int64, vector []float32, limit int) ([]ChunkResult, error)

	// Status operations
	GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error)

	Close() error
}

// Project is one indexed source tree
type Project struct {
	ID            int64
	RootPath      string
	IndexVersion  string
	TotalFiles    int
	TotalChunks   int
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// File is a tracked source file
type File struct {
	ID            int64
	ProjectID     int64
	FilePath      string // Relative to project root, slash separated
	Language      string
	ContentHash   [32]byte
	ModTime       time.Time
	SizeBytes     int64
	LastIndexedAt time.Time
}

// Chunk is a searchable section of a file, usually one declaration
type Chunk struct {
	ID         int64
	FileID     int64
	FilePath   string // Filled on reads
	SymbolName string // Empty for line-window chunks
	SymbolKind string
	Content    string
	StartLine  int
	EndLine    int
	ChunkType  string
}

// Embedding is the dense vector of one chunk
type Embedding struct {
	ChunkID   int64
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
}

// TextOptions tunes bm25 ranking in SearchText
type TextOptions struct {
	// SymbolWeight is the bm25 column weight of the symbol name; 0 means 1.0
	SymbolWeight float64
}

// ChunkResult is a ranked chunk. Score is higher-is-better.
type ChunkResult struct {
	Chunk *Chunk
	Score float64
}

// ProjectStatus contains statistics about an indexed project
type ProjectStatus struct {
	Project         *Project
	FilesCount      int
	ChunksCount     int
	SymbolsCount    int
	EmbeddingsCount int
	IndexSizeMB     float64
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
}
