package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dshills/coderecall/internal/mcp"
	"github.com/dshills/coderecall/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Run the Model Context Protocol server on stdin/stdout, exposing the
index_codebase, search_code and get_status tools.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.WithFields(logrus.Fields{
		"version": version,
		"build":   storage.BuildMode,
		"driver":  storage.DriverName,
	}).Info("coderecall starting")

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close engine")
		}
	}()

	ctx, stop := signalContext()
	defer stop()

	server := mcp.NewServer(e, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, shutting down gracefully...")
		return nil
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	logger.Info("Server stopped")
	return nil
}
