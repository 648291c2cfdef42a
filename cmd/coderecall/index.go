package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	indexForce         bool
	indexIncludeTests  bool
	indexIncludeVendor bool
	indexWorkers       int
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a source tree",
	Long: `Walk the tree at path, chunk every supported file, embed the chunks and
store them in the index. Files whose content hash is unchanged are skipped
unless --force is given; files removed from disk are dropped from the index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "re-index every file regardless of content hash")
	indexCmd.Flags().BoolVar(&indexIncludeTests, "tests", true, "index test files")
	indexCmd.Flags().BoolVar(&indexIncludeVendor, "vendor", false, "index vendor/ directories")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "parallel file workers (default from config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	ctx, stop := signalContext()
	defer stop()

	config := e.IndexConfig()
	config.Force = indexForce
	if cmd.Flags().Changed("tests") {
		config.IncludeTests = indexIncludeTests
	}
	if cmd.Flags().Changed("vendor") {
		config.IncludeVendor = indexIncludeVendor
	}
	if indexWorkers > 0 {
		config.Workers = indexWorkers
	}

	stats, err := e.Index(ctx, args[0], config)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexed %s in %s\n", args[0], stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Files indexed:  %d\n", stats.FilesIndexed)
	fmt.Fprintf(out, "  Files skipped:  %d\n", stats.FilesSkipped)
	fmt.Fprintf(out, "  Files deleted:  %d\n", stats.FilesDeleted)
	fmt.Fprintf(out, "  Files failed:   %d\n", stats.FilesFailed)
	fmt.Fprintf(out, "  Chunks created: %d\n", stats.ChunksCreated)
	fmt.Fprintf(out, "  Embeddings:     %d (%d failed)\n", stats.EmbeddingsGenerated, stats.EmbeddingsFailed)
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}
	return nil
}
