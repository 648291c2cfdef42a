package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a YAML file",
	Long: `Write the effective configuration (defaults, config file and
environment merged) to path, by default .coderecall/config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(".coderecall", "config.yaml")
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		// Never persist a key picked up from the environment
		out := *cfg
		out.Embedding.APIKey = ""
		if err := out.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "storage.db_path:        %s\n", cfg.Storage.DBPath)
		fmt.Fprintf(out, "embedding.provider:     %s\n", orAuto(cfg.Embedding.Provider))
		fmt.Fprintf(out, "embedding.model:        %s\n", orAuto(cfg.Embedding.Model))
		fmt.Fprintf(out, "search.mode:            %s\n", cfg.Search.Mode)
		fmt.Fprintf(out, "search.preset:          %s\n", cfg.Search.Preset)
		fmt.Fprintf(out, "search.limit:           %d\n", cfg.Search.Limit)
		fmt.Fprintf(out, "search.backend_timeout: %s\n", cfg.Search.BackendTimeout)
		fmt.Fprintf(out, "graph.max_depth:        %d\n", cfg.Graph.MaxDepth)
		fmt.Fprintf(out, "graph.max_nodes:        %d\n", cfg.Graph.MaxNodes)
		fmt.Fprintf(out, "navigation.command:     %v\n", cfg.NavigationCommand())
		fmt.Fprintf(out, "rerank.endpoint:        %s\n", cfg.Rerank.Endpoint)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func orAuto(s string) string {
	if s == "" {
		return "(auto)"
	}
	return s
}
