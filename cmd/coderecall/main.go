package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/coderecall/internal/config"
	"github.com/dshills/coderecall/internal/engine"
	"github.com/dshills/coderecall/internal/logging"
	"github.com/dshills/coderecall/internal/storage"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	buildTime = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "coderecall",
	Short: "Fused lexical, semantic and call-graph code search",
	Long: `coderecall indexes source trees and answers identifier and
natural-language queries by fusing exact, fuzzy, semantic and expanded-term
retrieval. It runs as an MCP server over stdio or as a one-shot CLI.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries MCP traffic, so logs always go to stderr
		logger = logging.New(verbose)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			if cfgFile != "" {
				return err
			}
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .coderecall/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`coderecall {{.Version}}
Build time: ` + buildTime + `
Build mode: ` + storage.BuildMode + `
SQLite driver: ` + storage.DriverName + `
`)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// openEngine builds the engine from the loaded configuration
func openEngine() (*engine.Engine, error) {
	e, err := engine.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return e, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
