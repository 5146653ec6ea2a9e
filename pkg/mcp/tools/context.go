// Package tools provides MCP tool implementations for lumen-engine.
package tools

import (
	"context"

	"github.com/google/uuid"
)

type organizationKey struct{}

// WithOrganizationID records the organization an MCP session acts for. The
// MCP auth middleware sets it from the URL after matching it to the token.
func WithOrganizationID(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, organizationKey{}, orgID)
}

// OrganizationIDFromContext returns the organization set by WithOrganizationID.
func OrganizationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	orgID, ok := ctx.Value(organizationKey{}).(uuid.UUID)
	return orgID, ok && orgID != uuid.Nil
}
