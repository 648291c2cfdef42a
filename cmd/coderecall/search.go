package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/coderecall/internal/searcher"
)

var (
	searchMode     string
	searchLimit    int
	searchPreset   string
	searchRerank   bool
	searchNoCache  bool
	searchJSON     bool
	searchExplain  bool
	searchDisabled []string
)

var searchCmd = &cobra.Command{
	Use:   "search <path> <query>",
	Short: "Search an indexed source tree",
	Long: `Run a query against the index of the tree at path. Identifier-like
queries lean on exact matching, natural-language queries on semantic
retrieval; --mode graph returns the callers and callees of the best matches
when a language server is configured.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "", "search mode: hybrid, exact, fuzzy, pure_vector, sparse, graph")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum results (default from config)")
	searchCmd.Flags().StringVar(&searchPreset, "preset", "", "fusion weight preset")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "re-score results with the configured reranker")
	searchCmd.Flags().BoolVar(&searchNoCache, "no-cache", false, "bypass the response cache")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the raw response as JSON")
	searchCmd.Flags().BoolVar(&searchExplain, "explain", false, "print per-backend timings and fusion weights")
	searchCmd.Flags().StringSliceVar(&searchDisabled, "disable", nil, "backends to skip: exact, fuzzy, vector, sparse")
}

func runSearch(cmd *cobra.Command, args []string) error {
	path := args[0]
	q := strings.Join(args[1:], " ")

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	opts := e.SearchOptions()
	if searchMode != "" {
		mode, err := searcher.ParseMode(searchMode)
		if err != nil {
			return err
		}
		opts.Mode = mode
	}
	if searchLimit > 0 {
		opts.Limit = searchLimit
	}
	if searchPreset != "" {
		opts.Preset = searchPreset
	}
	if cmd.Flags().Changed("rerank") {
		opts.Rerank = searchRerank
	}
	opts.UseCache = !searchNoCache
	for _, name := range searchDisabled {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "exact":
			opts.EnableExact = false
		case "fuzzy":
			opts.EnableFuzzy = false
		case "vector":
			opts.EnableVector = false
		case "sparse":
			opts.EnableSparse = false
		default:
			return fmt.Errorf("unknown backend %q", name)
		}
	}

	ctx, stop := signalContext()
	defer stop()

	resp, err := e.Search(ctx, path, q, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printResults(out, resp)
	if searchExplain {
		printExplain(out, resp)
	}
	return nil
}

func printResults(out io.Writer, resp *searcher.SearchResponse) {
	for _, w := range resp.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintf(out, "No results for %q\n", resp.Query)
		return
	}

	for i, r := range resp.Results {
		name := r.Symbol
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(out, "%2d. %s:%d-%d  %s", i+1, r.Path, r.StartLine, r.EndLine, name)
		if r.SymbolKind != "" {
			fmt.Fprintf(out, " (%s)", r.SymbolKind)
		}
		fmt.Fprintf(out, "  score=%.4f", r.Score)
		if r.RerankScore != nil {
			fmt.Fprintf(out, " rerank=%.3f", *r.RerankScore)
		}

		sources := r.Sources()
		names := make([]string, len(sources))
		for j, src := range sources {
			names[j] = fmt.Sprintf("%s#%d", src, r.SourceRanks[src])
		}
		fmt.Fprintf(out, "  [%s]\n", strings.Join(names, " "))
	}
}

func printExplain(out io.Writer, resp *searcher.SearchResponse) {
	fmt.Fprintf(out, "\nmode=%s shape=%s cache_hit=%t reranked=%t duration=%s\n",
		resp.Mode, resp.Shape, resp.CacheHit, resp.Reranked, resp.Duration.Round(time.Microsecond))
	fmt.Fprintf(out, "expanded: %s\n", resp.ExpandedQuery)
	fmt.Fprintf(out, "weights:  %s\n", resp.Weights)
	for _, b := range resp.Backends {
		status := "ok"
		if b.Error != "" {
			status = b.Error
		}
		fmt.Fprintf(out, "  %-7s hits=%-4d %-10s %s\n", b.Source, b.Hits, b.Duration.Round(time.Microsecond), status)
	}
}
