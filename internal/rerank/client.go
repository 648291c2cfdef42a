// Package rerank talks to a cross-encoder reranking server exposing the
// llama.cpp compatible /v1/rerank endpoint.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dshills/coderecall/pkg/types"
)

// Defaults
const (
	DefaultEndpoint = "http://localhost:8081"
	DefaultTimeout  = 30 * time.Second

	// maxDocumentChars bounds the text sent per hit
	maxDocumentChars = 2000
)

// Config holds reranker client configuration
type Config struct {
	Endpoint string        // Server base URL
	Model    string        // Optional model name forwarded to the server
	Timeout  time.Duration // Per-request timeout
}

// Result is one scored document as returned by the server
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"relevance_score"`
}

type request struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type response struct {
	Model   string   `json:"model"`
	Results []Result `json:"results"`
}

// Client is an HTTP reranking client. It satisfies fusion.Reranker.
type Client struct {
	endpoint string
	model    string
	client   *http.Client
}

// New creates a client. Endpoint defaults to DefaultEndpoint.
func New(cfg Config) *Client {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		endpoint: endpoint,
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the server base URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Score sends documents to the server and returns results sorted by score.
func (c *Client) Score(ctx context.Context, query string, documents []string, topN int) ([]Result, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(request{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse rerank response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		// skip indices that do not refer to a submitted document
		if r.Index < 0 || r.Index >= len(documents) {
			continue
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// Rerank scores hits against query and returns them best first with Score
// replaced by the relevance score.
func (c *Client) Rerank(ctx context.Context, query string, hits []types.Hit, topK int) ([]types.Hit, error) {
	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = document(h)
	}

	results, err := c.Score(ctx, query, docs, topK)
	if err != nil {
		return nil, err
	}

	out := make([]types.Hit, 0, len(results))
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		if seen[r.Index] {
			continue
		}
		seen[r.Index] = true
		h := hits[r.Index]
		h.Score = r.Score
		out = append(out, h)
	}

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// document renders the text the reranker sees for a hit
func document(h types.Hit) string {
	var b strings.Builder
	b.WriteString(h.Path)
	if h.Symbol != "" {
		b.WriteString(" ")
		b.WriteString(h.Symbol)
	}
	if h.Excerpt != "" {
		b.WriteString("\n")
		excerpt := h.Excerpt
		if len(excerpt) > maxDocumentChars {
			excerpt = excerpt[:maxDocumentChars]
		}
		b.WriteString(excerpt)
	}
	return b.String()
}
