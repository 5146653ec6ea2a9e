package database

import (
	"context"
)

type contextKey string

const (
	// TenantScopeKey is the context key for storing the organization-scoped connection.
	TenantScopeKey contextKey = "tenantScope"
)

// GetTenantScope retrieves the organization-scoped connection from context.
func GetTenantScope(ctx context.Context) (*TenantScope, bool) {
	scope, ok := ctx.Value(TenantScopeKey).(*TenantScope)
	return scope, ok
}

// SetTenantScope stores the organization-scoped connection in context.
func SetTenantScope(ctx context.Context, scope *TenantScope) context.Context {
	return context.WithValue(ctx, TenantScopeKey, scope)
}

// UnscopedContext returns a context carrying a connection with no organization
// set. Row-level security then admits only rows that are not organization
// private, such as public media. The cleanup function must be called.
func (db *DB) UnscopedContext(ctx context.Context) (context.Context, func(), error) {
	scope, err := db.WithoutTenant(ctx)
	if err != nil {
		return nil, nil, err
	}
	return SetTenantScope(ctx, scope), func() { scope.Close() }, nil
}
