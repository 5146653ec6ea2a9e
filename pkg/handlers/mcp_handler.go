package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/mcp"
	mcpauth "github.com/lumenbrand/lumen-engine/pkg/mcp/auth"
	"github.com/lumenbrand/lumen-engine/pkg/metrics"
	"github.com/lumenbrand/lumen-engine/pkg/middleware"
)

// MCPHandler serves the MCP streamable HTTP endpoint.
type MCPHandler struct {
	httpServer *server.StreamableHTTPServer
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewMCPHandler creates a new MCP handler.
func NewMCPHandler(mcpServer *mcp.Server, m *metrics.Metrics, logger *zap.Logger) *MCPHandler {
	return &MCPHandler{
		httpServer: mcpServer.NewStreamableHTTPServer(),
		metrics:    m,
		logger:     logger,
	}
}

// RegisterRoutes registers the MCP endpoint with organization-scoped authentication.
// Route: /api/organizations/{oid}/mcp where {oid} must match the token's organization.
func (h *MCPHandler) RegisterRoutes(mux *http.ServeMux, mcpAuthMiddleware *mcpauth.Middleware) {
	// Layers, innermost first: JSON-RPC logging, authentication, method check.
	var handler http.Handler = h.httpServer
	handler = middleware.MCPRequestLogger(h.logger, h.metrics)(handler)
	handler = mcpAuthMiddleware.RequireAuth("oid")(handler)
	handler = h.requirePOST(handler)
	mux.Handle("/api/organizations/{oid}/mcp", handler)
}

// requirePOST returns 405 Method Not Allowed for non-POST requests.
// MCP over HTTP Streaming requires POST for JSON-RPC requests.
func (h *MCPHandler) requirePOST(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
