package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestCache(t *testing.T) {
	cache := NewCache(2)
	emb := &Embedding{Vector: []float32{1, 2}, Dimension: 2, Provider: ProviderLocal, Model: "m", Hash: "h1"}
	cache.Set(emb)

	// stored copy is independent of the caller's slice
	emb.Vector[0] = 99
	got, ok := cache.Get(ProviderLocal, "m", "h1")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, got.Vector)

	// returned copy is independent of the cache
	got.Vector[1] = 42
	again, _ := cache.Get(ProviderLocal, "m", "h1")
	assert.Equal(t, float32(2), again.Vector[1])

	// scoped by model
	_, ok = cache.Get(ProviderLocal, "other", "h1")
	assert.False(t, ok)

	cache.Set(&Embedding{Vector: []float32{1}, Provider: ProviderLocal, Model: "m", Hash: "h2"})
	cache.Set(&Embedding{Vector: []float32{1}, Provider: ProviderLocal, Model: "m", Hash: "h3"})
	assert.Equal(t, 2, cache.Size())
	_, ok = cache.Get(ProviderLocal, "m", "h1")
	assert.False(t, ok, "least recently used entry evicted")

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{}), ErrEmptyText)
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", ""}}), ErrInvalidInput)
	assert.NoError(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a"}}))
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))
}

func TestComputeHash(t *testing.T) {
	assert.Equal(t, ComputeHash("abc"), ComputeHash("abc"))
	assert.NotEqual(t, ComputeHash("abc"), ComputeHash("abd"))
	assert.Len(t, ComputeHash("abc"), 64)
}

func TestRetryWithBackoff(t *testing.T) {
	r := newRetrier(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}, nil, nil)

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		got, err := retryWithBackoff(context.Background(), r, func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), r, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("permanent")
		})
		require.EqualError(t, err, "permanent")
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := retryWithBackoff(ctx, r, func(context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("client errors are final", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), r, func(context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("api call: %w", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"})
		})
		var apiErr *openai.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("rate limited requests are retried", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), r, func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}
			}
			return 1, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestRetryWaitsForLimiter(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(30*time.Millisecond), 1)
	r := newRetrier(RetryConfig{MaxRetries: 3, Multiplier: 1}, limiter, nil)

	start := time.Now()
	calls := 0
	_, err := retryWithBackoff(context.Background(), r, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// The first token is free, the next two each wait one interval
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", errors.New("connection reset"), true},
		{"server error", &openai.APIError{HTTPStatusCode: http.StatusBadGateway}, true},
		{"too many requests", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"request timeout", &openai.RequestError{HTTPStatusCode: http.StatusRequestTimeout, Err: errors.New("timeout")}, true},
		{"unauthorized", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, false},
		{"bad request", fmt.Errorf("wrapped: %w", &openai.RequestError{HTTPStatusCode: http.StatusBadRequest, Err: errors.New("bad")}), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestNew(t *testing.T) {
	emb, err := New(Config{Provider: "local", CacheSize: 10})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())
	assert.Equal(t, LocalDimension, emb.Dimension())

	_, err = New(Config{Provider: "jina"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	t.Setenv(EnvOpenAIAPIKey, "")
	_, err = New(Config{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	assert.Equal(t, ProviderLocal, DetectProvider(""))
	assert.Equal(t, ProviderOpenAI, DetectProvider("sk-test"))
}
