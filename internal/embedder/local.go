package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/dshills/coderecall/internal/query"
)

// LocalModel names the feature hashing model
const LocalModel = "feature-hash-v1"

// LocalProvider embeds text offline by hashing identifier sub-tokens into a
// fixed number of signed buckets. Texts sharing vocabulary land close in
// cosine space, which is enough to make the vector signal useful without a
// model download.
type LocalProvider struct {
	dim   int
	cache *Cache
}

// NewLocalProvider creates a local embedder with LocalDimension buckets
func NewLocalProvider(cache *Cache) *LocalProvider {
	return &LocalProvider{dim: LocalDimension, cache: cache}
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(ProviderLocal, LocalModel, hash); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    l.embed(req.Text),
		Dimension: l.dim,
		Provider:  ProviderLocal,
		Model:     LocalModel,
		Hash:      hash,
	}
	if l.cache != nil {
		l.cache.Set(emb)
	}
	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      LocalModel,
	}, nil
}

// embed builds the hashed feature vector of text
func (l *LocalProvider) embed(text string) []float32 {
	vector := make([]float32, l.dim)
	add := func(feature string, weight float32) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		bucket := int(sum % uint64(l.dim))
		// the top bit picks the sign so collisions tend to cancel
		if sum>>63 == 1 {
			weight = -weight
		}
		vector[bucket] += weight
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, word := range words {
		parts := query.SplitIdentifier(word)
		if len(parts) > 1 {
			add("w:"+strings.ToLower(word), 0.5)
		}
		for _, part := range parts {
			if len(part) < query.MinSubtokenLen {
				continue
			}
			lower := strings.ToLower(part)
			add("t:"+lower, 1.0)
			add("s:"+query.Stem(lower), 0.5)
		}
	}

	return NormalizeVector(vector)
}

func (l *LocalProvider) Dimension() int {
	return l.dim
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return LocalModel
}

func (l *LocalProvider) Close() error {
	return nil
}
