// Package auth provides JWT-based authentication for lumen-engine.
// Tokens are verified against the JWKS endpoints of trusted issuers and carry
// the organization the caller acts for.
package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// RoleSuperAdmin lifts every entitlement gate for its holder.
const RoleSuperAdmin = "super_admin"

// Claims is the token payload. It embeds RegisteredClaims for the standard
// fields (sub, iss, aud, exp).
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string   `json:"oid,omitempty"`
	Email          string   `json:"email,omitempty"`
	Roles          []string `json:"roles,omitempty"`
}

// IsSuperAdmin reports whether the token holds the super admin role.
func (c *Claims) IsSuperAdmin() bool {
	return c != nil && slices.Contains(c.Roles, RoleSuperAdmin)
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// WithClaims stores claims and the raw token in ctx.
func WithClaims(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, TokenKey, token)
}

// ExtractClaimsFromContext extracts organization ID and user ID from JWT claims in context.
func ExtractClaimsFromContext(ctx context.Context) (uuid.UUID, string, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil, "", fmt.Errorf("authentication required: no claims in context")
	}

	if claims.OrganizationID == "" {
		return uuid.Nil, "", fmt.Errorf("missing organization ID in JWT claims")
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid organization ID format: %w", err)
	}

	if claims.Subject == "" {
		return uuid.Nil, "", fmt.Errorf("missing user ID in JWT claims")
	}

	return orgID, claims.Subject, nil
}
