package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// serverName identifies the MCP server to clients.
	serverName = "concord-alignments"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// Server wraps the MCP protocol server with the alignment tools bound.
type Server struct {
	mcpServer *mcp.Server
}

// NewServer binds the read-only tools to a store.
func NewServer(store Store) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(mcpServer, AlignmentGetTool(), AlignmentGetHandler(store))
	mcp.AddTool(mcpServer, AlignmentListTool(), AlignmentListHandler(store))
	mcp.AddTool(mcpServer, AnalysisGetTool(), AnalysisGetHandler(store))
	mcp.AddTool(mcpServer, ConflictListTool(), ConflictListHandler(store))
	return &Server{mcpServer: mcpServer}
}

// Run serves over stdio and blocks until the context ends.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcp.StdioTransport{})
}

// RunWithTransport serves on the provided transport. Context
// cancellation is the shutdown path, not a failure.
func (s *Server) RunWithTransport(ctx context.Context, transport mcp.Transport) error {
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
