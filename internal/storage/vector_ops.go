package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// defaultSymbolWeight is the symbol_name bm25 weight when none is given
const defaultSymbolWeight = 1.0

// termsWeight is the bm25 weight of the split identifier column
const termsWeight = 0.5

// searchText runs an FTS5 MATCH and ranks by bm25
func searchText(ctx context.Context, db *sql.DB, projectID int64, match string, limit int, opts TextOptions) ([]ChunkResult, error) {
	if strings.TrimSpace(match) == "" {
		return nil, ErrEmptyMatch
	}
	if limit <= 0 {
		return []ChunkResult{}, nil
	}

	symbolWeight := opts.SymbolWeight
	if symbolWeight <= 0 {
		symbolWeight = defaultSymbolWeight
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+chunkColumns+`, bm25(chunks_fts, 1.0, ?, ?) AS rank
		FROM chunks_fts
		JOIN chunks c ON chunks_fts.rowid = c.id
		JOIN files f ON c.file_id = f.id
		WHERE chunks_fts MATCH ?
		AND f.project_id = ?
		ORDER BY rank, c.id
		LIMIT ?
	`, symbolWeight, termsWeight, match, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ChunkResult, 0, limit)
	for rows.Next() {
		var rank float64
		c, err := scanChunk(rows, &rank)
		if err != nil {
			return nil, err
		}
		// bm25 is negative with lower being better
		results = append(results, ChunkResult{Chunk: c, Score: -rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	return results, nil
}

// searchVector scores every stored embedding of the project in Go
func searchVector(ctx context.Context, db *sql.DB, projectID int64, queryVector []float32, limit int) ([]ChunkResult, error) {
	if limit <= 0 || len(queryVector) == 0 {
		return []ChunkResult{}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT c.id, e.vector
		FROM embeddings e
		JOIN chunks c ON e.chunk_id = c.id
		JOIN files f ON c.file_id = f.id
		WHERE f.project_id = ? AND e.dimension = ?
	`, projectID, len(queryVector))
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}

	candidates, err := computeSimilarityScores(rows, queryVector)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]ChunkResult, 0, len(candidates))
	for _, cand := range candidates {
		c, err := scanChunk(db.QueryRowContext(ctx, `
			SELECT `+chunkColumns+`
			FROM chunks c JOIN files f ON c.file_id = f.id
			WHERE c.id = ?
		`, cand.chunkID))
		if err != nil {
			// chunk replaced between the two queries
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		results = append(results, ChunkResult{Chunk: c, Score: cand.score})
	}
	return results, nil
}

// candidate is a chunk with its similarity score
type candidate struct {
	chunkID int64
	score   float64
}

func computeSimilarityScores(rows *sql.Rows, queryVector []float32) ([]candidate, error) {
	candidates := make([]candidate, 0, 256)
	for rows.Next() {
		var chunkID int64
		var blob []byte
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return nil, err
		}
		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue
		}
		candidates = append(candidates, candidate{chunkID: chunkID, score: cosineSimilarity(queryVector, vector)})
	}
	return candidates, rows.Err()
}

// sortCandidates orders by score descending, then chunk id for stability
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].chunkID < candidates[j].chunkID
	})
}

// serializeVector converts a float32 slice to a little-endian blob
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// cosineSimilarity returns 0 for mismatched or zero vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineSimilarity is exported for the embedder tests and tooling
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
