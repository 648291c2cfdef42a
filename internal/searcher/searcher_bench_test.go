package searcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/dshills/coderecall/internal/fusion"
	"github.com/dshills/coderecall/internal/logging"
	"github.com/dshills/coderecall/pkg/types"
)

func benchHits(n int, prefix string) []types.Hit {
	hits := make([]types.Hit, n)
	for i := range hits {
		hits[i] = types.Hit{
			Path:      fmt.Sprintf("%s/file%03d.go", prefix, i%40),
			Symbol:    fmt.Sprintf("Func%d", i),
			StartLine: i + 1,
			EndLine:   i + 10,
			Score:     float64(n - i),
		}
	}
	return hits
}

func setupSearchBenchmark(b *testing.B) *Searcher {
	b.Helper()
	s, err := New(Config{Logger: logging.Discard()},
		&stubBackend{source: types.SourceExact, hits: benchHits(100, "pkg/a")},
		&stubBackend{source: types.SourceFuzzy, hits: benchHits(100, "pkg/a")},
		&stubBackend{source: types.SourceVector, hits: benchHits(100, "pkg/b")},
		&stubBackend{source: types.SourceSparse, hits: benchHits(100, "pkg/a")},
	)
	if err != nil {
		b.Fatal(err)
	}
	return s
}

// BenchmarkHybridSearch benchmarks fan-out plus fusion over four backends
func BenchmarkHybridSearch(b *testing.B) {
	s := setupSearchBenchmark(b)
	opts := DefaultOptions()
	opts.Limit = 50

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := s.Search(context.Background(), testIndex, "order service business logic", opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCachedSearch benchmarks the response cache hit path
func BenchmarkCachedSearch(b *testing.B) {
	s := setupSearchBenchmark(b)
	opts := DefaultOptions()
	opts.UseCache = true

	if _, err := s.Search(context.Background(), testIndex, "OrderService", opts); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := s.Search(context.Background(), testIndex, "OrderService", opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkQueryHashing benchmarks cache key computation
func BenchmarkQueryHashing(b *testing.B) {
	opts := DefaultOptions()
	weights := fusion.DefaultWeights()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = computeQueryHash(testIndex, "user authentication handler", opts, weights)
	}
}

// BenchmarkConcurrentSearch benchmarks parallel requests against one searcher
func BenchmarkConcurrentSearch(b *testing.B) {
	s := setupSearchBenchmark(b)
	opts := DefaultOptions()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := s.Search(context.Background(), testIndex, "payment processing", opts); err != nil {
				b.Error(err)
			}
		}
	})
}
