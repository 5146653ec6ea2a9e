package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Providers []string `json:"providers"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and configured providers.
func RegisterHealthTool(s *server.MCPServer, version string, providers []string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and configured generation providers"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	if providers == nil {
		providers = []string{}
	}
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(healthResult{Status: "ok", Version: version, Providers: providers})
	})
}
