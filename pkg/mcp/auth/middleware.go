// Package mcpauth provides MCP-specific authentication middleware.
// It wraps the core auth service with RFC 6750 Bearer token error responses.
package mcpauth

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/auth"
	"github.com/lumenbrand/lumen-engine/pkg/mcp/tools"
)

// Middleware provides MCP-specific authentication middleware.
// Unlike the general auth middleware, this returns RFC 6750 WWW-Authenticate
// headers for OAuth 2.0 Bearer token authentication errors.
type Middleware struct {
	authService auth.AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new MCP auth middleware.
func NewMiddleware(authService auth.AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth validates the JWT, requires the organization in the URL path
// (r.PathValue(pathParamName)) to match the token, and binds the session's
// tools to that organization.
func (m *Middleware) RequireAuth(pathParamName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.authService.ValidateRequest(r)
			if err != nil {
				m.logger.Debug("MCP auth failed: invalid or missing token",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				m.writeWWWAuthenticate(w, http.StatusUnauthorized, "invalid_token", "The access token is invalid or expired")
				return
			}

			if err := m.authService.RequireOrganizationID(claims); err != nil {
				m.logger.Debug("MCP auth failed: missing organization ID",
					zap.String("path", r.URL.Path))
				m.writeWWWAuthenticate(w, http.StatusUnauthorized, "invalid_token", "The access token is missing required organization scope")
				return
			}

			urlOrgID, err := uuid.Parse(r.PathValue(pathParamName))
			if err != nil {
				m.writeWWWAuthenticate(w, http.StatusBadRequest, "invalid_request", "Missing or malformed organization ID in URL")
				return
			}

			if err := m.authService.ValidateOrganizationMatch(claims, urlOrgID.String()); err != nil {
				m.logger.Warn("MCP auth failed: organization ID mismatch",
					zap.String("url_organization_id", urlOrgID.String()),
					zap.String("token_organization_id", claims.OrganizationID))
				m.writeWWWAuthenticate(w, http.StatusForbidden, "insufficient_scope", "The access token does not have access to this organization")
				return
			}

			ctx := auth.WithClaims(r.Context(), claims, token)
			ctx = tools.WithOrganizationID(ctx, urlOrgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeWWWAuthenticate writes an RFC 6750 Bearer token error response.
// See: https://datatracker.ietf.org/doc/html/rfc6750#section-3
func (m *Middleware) writeWWWAuthenticate(w http.ResponseWriter, status int, errorCode, description string) {
	headerValue := `Bearer error="` + errorCode + `", error_description="` + description + `"`
	w.Header().Set("WWW-Authenticate", headerValue)
	w.WriteHeader(status)
}
