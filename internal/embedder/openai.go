package embedder

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// OpenAIProvider implements Embedder on the OpenAI embeddings API
type OpenAIProvider struct {
	client *openai.Client
	model  string
	dim    int
	cache  *Cache
	retry  retrier
}

// OpenAIOptions configures NewOpenAIProvider
type OpenAIOptions struct {
	APIKey            string
	Model             string  // Defaults to DefaultOpenAIModel
	BaseURL           string  // Optional, for proxies and tests
	RequestsPerSecond float64 // 0 disables rate limiting
	Cache             *Cache
	Logger            logrus.FieldLogger
}

// NewOpenAIProvider creates an OpenAI embedder. The API key falls back to
// OPENAI_API_KEY.
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}

	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    openAIDimension(model),
		cache:  opts.Cache,
		retry:  newRetrier(DefaultRetryConfig(), limiter, opts.Logger),
	}, nil
}

func openAIDimension(model string) int {
	if model == "text-embedding-3-large" {
		return 3072
	}
	return OpenAIDimension
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := o.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return resp.Embeddings[0], nil
}

func (o *OpenAIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	// Serve what the cache has and only send the rest
	embeddings := make([]*Embedding, len(req.Texts))
	var missing []int
	for i, text := range req.Texts {
		if o.cache != nil {
			if emb, ok := o.cache.Get(ProviderOpenAI, model, ComputeHash(text)); ok {
				embeddings[i] = emb
				continue
			}
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for j, idx := range missing {
			texts[j] = req.Texts[idx]
		}

		fetched, err := retryWithBackoff(ctx, o.retry, func(ctx context.Context) ([]*Embedding, error) {
			return o.callAPI(ctx, texts, model)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderFailed, err)
		}

		for j, idx := range missing {
			emb := fetched[j]
			emb.Hash = ComputeHash(req.Texts[idx])
			embeddings[idx] = emb
			if o.cache != nil {
				o.cache.Set(emb)
			}
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOpenAI,
		Model:      model,
	}, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("api returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	embeddings := make([]*Embedding, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("api returned out of range index %d", data.Index)
		}
		vector := make([]float32, len(data.Embedding))
		for i := range data.Embedding {
			vector[i] = float32(data.Embedding[i])
		}
		embeddings[data.Index] = &Embedding{
			Vector:    NormalizeVector(vector),
			Dimension: len(vector),
			Provider:  ProviderOpenAI,
			Model:     model,
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("api returned no embedding for text %d", i)
		}
	}
	return embeddings, nil
}

func (o *OpenAIProvider) Dimension() int {
	return o.dim
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	return nil
}
