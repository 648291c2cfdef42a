package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI answers /v1/embeddings with one vector per input, listed in
// reverse order to exercise index mapping.
func fakeOpenAI(t *testing.T, calls *int32, fail bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/v1/embeddings" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Object: "embedding", Embedding: []float32{float32(len(req.Input[i])), 0, 0}, Index: i})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestOpenAIProviderBatch(t *testing.T) {
	var calls int32
	server := fakeOpenAI(t, &calls, false)
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIOptions{
		APIKey:  "sk-test",
		BaseURL: server.URL + "/v1",
		Cache:   NewCache(10),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, p.Model())
	assert.Equal(t, OpenAIDimension, p.Dimension())

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "bbb"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{1, 0, 0}, resp.Embeddings[0].Vector)
	assert.Equal(t, []float32{1, 0, 0}, resp.Embeddings[1].Vector)
	assert.Equal(t, ComputeHash("bbb"), resp.Embeddings[1].Hash)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Served from cache
	single, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "bbb"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, single.Provider)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIProviderRetriesThenFails(t *testing.T) {
	var calls int32
	server := fakeOpenAI(t, &calls, true)
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIOptions{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)
	p.retry.cfg = RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAIProviderRejectedKeyIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIOptions{APIKey: "sk-bad", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)
	p.retry.cfg = RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIProviderBatchTooLarge(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIOptions{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1"})
	require.NoError(t, err)

	texts := make([]string, MaxBatchSize+1)
	for i := range texts {
		texts[i] = "t"
	}
	_, err = p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: texts})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestOpenAIDimension(t *testing.T) {
	assert.Equal(t, 3072, openAIDimension("text-embedding-3-large"))
	assert.Equal(t, OpenAIDimension, openAIDimension("text-embedding-3-small"))
}
