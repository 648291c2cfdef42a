package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/coderecall/internal/embedder"
	"github.com/dshills/coderecall/internal/storage"
)

// createBenchProject writes a synthetic project of n Go files
func createBenchProject(b *testing.B, n int) string {
	b.Helper()
	root := b.TempDir()
	for i := 0; i < n; i++ {
		dir := filepath.Join(root, fmt.Sprintf("pkg%02d", i%10))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.Fatal(err)
		}
		src := fmt.Sprintf(`package pkg%02d

// Service%d handles requests
type Service%d struct {
	name string
}

// Handle%d processes one request
func (s *Service%d) Handle%d(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("empty input")
	}
	return s.name + input, nil
}
`, i%10, i, i, i, i, i)
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("file%03d.go", i)), []byte(src), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return root
}

func benchmarkIndex(b *testing.B, files int, opts ...Option) {
	root := createBenchProject(b, files)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		store, err := storage.NewSQLiteStorage(":memory:")
		if err != nil {
			b.Fatal(err)
		}
		idx := New(store, opts...)
		b.StartTimer()

		if _, err := idx.IndexProject(context.Background(), root, nil); err != nil {
			b.Fatal(err)
		}

		b.StopTimer()
		_ = store.Close()
		b.StartTimer()
	}
}

func BenchmarkIndexProject_100Files(b *testing.B) {
	benchmarkIndex(b, 100)
}

func BenchmarkIndexProject_100FilesLocalEmbeddings(b *testing.B) {
	benchmarkIndex(b, 100, WithEmbedder(embedder.NewLocalProvider(nil)))
}

// BenchmarkIncrementalReindex measures a run where nothing changed
func BenchmarkIncrementalReindex(b *testing.B) {
	root := createBenchProject(b, 100)
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	idx := New(store)
	if _, err := idx.IndexProject(context.Background(), root, nil); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.IndexProject(context.Background(), root, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDiscoverFiles(b *testing.B) {
	root := createBenchProject(b, 200)
	cfg := DefaultConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := discoverFiles(root, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
