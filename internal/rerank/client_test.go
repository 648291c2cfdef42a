package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/coderecall/pkg/types"
)

// newServer scores documents by whether they contain the query
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rerank" || r.Method != http.MethodPost {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		results := make([]Result, 0, len(req.Documents)+1)
		for i, doc := range req.Documents {
			score := 0.1
			if strings.Contains(doc, req.Query) {
				score = 0.9
			}
			results = append(results, Result{Index: i, Score: score})
		}
		// out of range index is ignored by the client
		results = append(results, Result{Index: 99, Score: 5})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response{Model: "mock", Results: results})
	}))
}

func TestClientRerank(t *testing.T) {
	server := newServer(t)
	defer server.Close()

	c := New(Config{Endpoint: server.URL + "/", Timeout: 5 * time.Second})
	assert.Equal(t, server.URL, c.Endpoint())

	hits := []types.Hit{
		{Path: "a.go", Symbol: "Login", StartLine: 1, Excerpt: "func Login() {}"},
		{Path: "b.go", Symbol: "authenticate", StartLine: 4, Excerpt: "func authenticate(token string) error"},
		{Path: "c.go", Symbol: "Logout", StartLine: 9},
	}

	out, err := c.Rerank(context.Background(), "authenticate", hits, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "authenticate", out[0].Symbol)
	assert.Equal(t, 0.9, out[0].Score)
	assert.Equal(t, "Login", out[1].Symbol)
}

func TestClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New(Config{Endpoint: server.URL})
	_, err := c.Rerank(context.Background(), "q", []types.Hit{{Path: "a.go", StartLine: 1}}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestClientUnreachable(t *testing.T) {
	c := New(Config{Endpoint: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.Rerank(context.Background(), "q", []types.Hit{{Path: "a.go", StartLine: 1}}, 1)
	require.Error(t, err)
}

func TestClientNoDocuments(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultEndpoint, c.Endpoint())

	out, err := c.Rerank(context.Background(), "q", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDocumentTruncatesExcerpt(t *testing.T) {
	h := types.Hit{Path: "a.go", Symbol: "X", Excerpt: strings.Repeat("x", maxDocumentChars+500)}
	doc := document(h)
	assert.True(t, strings.HasPrefix(doc, "a.go X\n"))
	assert.Len(t, doc, len("a.go X\n")+maxDocumentChars)
}
