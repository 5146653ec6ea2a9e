package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetUserIDFromContext returns the token subject, or "" when unauthenticated.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}

// GetOrganizationIDFromContext returns the organization of the caller, or
// uuid.Nil when the claims are absent or malformed.
func GetOrganizationIDFromContext(ctx context.Context) uuid.UUID {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil || claims.OrganizationID == "" {
		return uuid.Nil
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return uuid.Nil
	}
	return orgID
}

// RequireOrganizationIDFromContext is GetOrganizationIDFromContext with an
// error for the missing case.
func RequireOrganizationIDFromContext(ctx context.Context) (uuid.UUID, error) {
	orgID := GetOrganizationIDFromContext(ctx)
	if orgID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("organization ID not found in context")
	}
	return orgID, nil
}

// IsSuperAdminFromContext reports whether the caller holds the super admin role.
func IsSuperAdminFromContext(ctx context.Context) bool {
	claims, _ := GetClaims(ctx)
	return claims.IsSuperAdmin()
}
