package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/dshills/coderecall/internal/engine"
	"github.com/dshills/coderecall/internal/logging"
)

const (
	// ServerName is the MCP server name
	ServerName = "coderecall"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	engine *engine.Engine
	log    logrus.FieldLogger
}

// NewServer creates an MCP server over e. The caller owns e and closes it
// after Serve returns.
func NewServer(e *engine.Engine, logger logrus.FieldLogger) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		mcp:    mcpServer,
		engine: e,
		log:    logging.OrDiscard(logger).WithField("component", "mcp"),
	}
	s.registerTools()

	return s
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin
// closes
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO runs the MCP protocol over the given streams
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.WithFields(logrus.Fields{
		"name":    ServerName,
		"version": ServerVersion,
		"graph":   s.engine.GraphEnabled(),
	}).Info("MCP server listening on stdio")

	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
