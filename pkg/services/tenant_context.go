package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumenbrand/lumen-engine/pkg/database"
)

// TenantContextFunc acquires an organization-scoped database connection.
// Returns the scoped context, a cleanup function (MUST be called), and any error.
// Concurrent work needs one scope per goroutine: a single connection cannot
// run overlapping queries.
type TenantContextFunc func(ctx context.Context, orgID uuid.UUID) (context.Context, func(), error)

// NewTenantContextFunc creates a TenantContextFunc that uses the given database.
func NewTenantContextFunc(db *database.DB) TenantContextFunc {
	return func(ctx context.Context, orgID uuid.UUID) (context.Context, func(), error) {
		scope, err := db.WithTenant(ctx, orgID)
		if err != nil {
			return nil, nil, err
		}
		tenantCtx := database.SetTenantScope(ctx, scope)
		return tenantCtx, func() { scope.Close() }, nil
	}
}

// sharedScope reuses whatever scope ctx already carries. Tests and callers
// that run sequentially use it in place of a real TenantContextFunc.
func sharedScope(ctx context.Context, _ uuid.UUID) (context.Context, func(), error) {
	return ctx, func() {}, nil
}
