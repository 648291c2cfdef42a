// Package embedder turns code and queries into dense vectors for the vector
// backend.
//
// Two providers exist:
//
//   - openai: the OpenAI embeddings API through github.com/sashabaranov/go-openai,
//     rate limited with golang.org/x/time/rate and retried with exponential
//     backoff.
//   - local: deterministic feature hashing of identifier sub-tokens and light
//     stems into LocalDimension signed buckets. No network, no model files.
//
// Both return L2-normalised vectors so cosine similarity reduces to a dot
// product.
//
// # Caching
//
// A Cache holds embeddings keyed by provider, model and the SHA-256 of the
// text, with LRU eviction. Cached vectors are copied on the way in and out.
//
// # Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 10000})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	e, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: "parse config file"})
//
// With an empty Provider, New picks openai when an API key is configured or
// OPENAI_API_KEY is set, and local otherwise.
package embedder
