package database

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/auth"
)

// OrganizationPathParam names the organization segment of scoped routes.
const OrganizationPathParam = "oid"

// WithTenantContext creates middleware that sets up an organization-scoped DB
// connection. It runs after auth middleware: the organization comes from the
// URL when the route has one (auth has already matched it to the token),
// otherwise from the token. The connection is released after the handler returns.
func WithTenantContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := r.PathValue(OrganizationPathParam)
			if raw == "" {
				claims, ok := auth.GetClaims(r.Context())
				if !ok || claims.OrganizationID == "" {
					logger.Error("Missing organization context in claims")
					writeError(w, http.StatusInternalServerError, "internal_error", "Missing organization context")
					return
				}
				raw = claims.OrganizationID
			}

			organizationID, err := uuid.Parse(raw)
			if err != nil {
				logger.Error("Invalid organization ID format",
					zap.String("organization_id", raw),
					zap.Error(err))
				writeError(w, http.StatusBadRequest, "invalid_organization_id", "Invalid organization ID format")
				return
			}

			scope, err := db.WithTenant(r.Context(), organizationID)
			if err != nil {
				logger.Error("Failed to acquire organization connection",
					zap.String("organization_id", organizationID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			next(w, r.WithContext(SetTenantScope(r.Context(), scope)))
		}
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
