package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/coderecall/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status <path>",
	Short: "Show index statistics for a source tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	ctx, stop := signalContext()
	defer stop()

	out := cmd.OutOrStdout()
	status, err := e.Status(ctx, args[0])
	if errors.Is(err, engine.ErrNotIndexed) {
		fmt.Fprintf(out, "%s is not indexed. Run 'coderecall index %s' first.\n", args[0], args[0])
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Project: %s\n", status.Project.RootPath)
	fmt.Fprintf(out, "  Index version: %s\n", status.Project.IndexVersion)
	fmt.Fprintf(out, "  Last indexed:  %s\n", status.Project.LastIndexedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Files:         %d\n", status.Store.FilesCount)
	fmt.Fprintf(out, "  Chunks:        %d\n", status.Store.ChunksCount)
	fmt.Fprintf(out, "  Symbols:       %d\n", status.Store.SymbolsCount)
	fmt.Fprintf(out, "  Embeddings:    %d\n", status.Store.EmbeddingsCount)
	fmt.Fprintf(out, "  Size:          %.2f MB\n", status.Store.IndexSizeMB)

	sources := make([]string, len(status.Sources))
	for i, src := range status.Sources {
		sources[i] = string(src)
	}
	fmt.Fprintf(out, "Retrieval:\n")
	fmt.Fprintf(out, "  Backends:  %s\n", strings.Join(sources, ", "))
	fmt.Fprintf(out, "  Embedder:  %s (%s)\n", status.EmbedderName, status.EmbedderModel)
	fmt.Fprintf(out, "  Graph:     %s\n", enabled(status.GraphEnabled))
	fmt.Fprintf(out, "  Rerank:    %s\n", enabled(status.RerankEnabled))
	fmt.Fprintf(out, "Health:\n")
	fmt.Fprintf(out, "  Database:   %s\n", health(status.Store.Health.DatabaseAccessible))
	fmt.Fprintf(out, "  FTS:        %s\n", health(status.Store.Health.FTSIndexesBuilt))
	fmt.Fprintf(out, "  Embeddings: %s\n", health(status.Store.Health.EmbeddingsAvailable))
	return nil
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func health(b bool) string {
	if b {
		return "ok"
	}
	return "missing"
}
