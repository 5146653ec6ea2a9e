// Package testhelpers provides utilities for testing lumen-engine components.
package testhelpers

import (
	"encoding/base64"
	"encoding/json"
)

// TestAudience is the audience GenerateTestJWT puts on its tokens. It matches
// the default auth.audience setting.
const TestAudience = "lumen-engine"

// GenerateTestJWT creates an unsigned (alg: none) token for use when signature
// verification is disabled. orgID and roles are omitted when empty.
func GenerateTestJWT(sub, orgID string, roles ...string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	claims := map[string]any{
		"sub": sub,
		"aud": TestAudience,
	}
	if orgID != "" {
		claims["oid"] = orgID
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	payload, _ := json.Marshal(claims)

	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + "."
}

// GenerateTestJWTWithBearer returns the token with the "Bearer " prefix for
// an Authorization header.
func GenerateTestJWTWithBearer(sub, orgID string, roles ...string) string {
	return "Bearer " + GenerateTestJWT(sub, orgID, roles...)
}
