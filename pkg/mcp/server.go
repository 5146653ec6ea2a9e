// Package mcp exposes lumen-engine's planning and generation tools over the
// Model Context Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/mcp/tools"
)

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger.Named("mcp"),
	}
}

// ToolDeps are the collaborators the registered tools need.
type ToolDeps struct {
	Version   string
	Providers []string
	Copy      *tools.CopyToolDeps
}

// RegisterTools registers every lumen-engine tool. generate_copy is only
// registered when its dependencies are supplied.
func (s *Server) RegisterTools(deps ToolDeps) {
	tools.RegisterHealthTool(s.mcp, deps.Version, deps.Providers)
	tools.RegisterRoutingTools(s.mcp)
	if deps.Copy != nil {
		tools.RegisterCopyTools(s.mcp, deps.Copy)
	}
	s.logger.Debug("Registered MCP tools", zap.Bool("generate_copy", deps.Copy != nil))
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
