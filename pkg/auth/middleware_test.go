package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAuthService struct {
	claims      *Claims
	token       string
	validateErr error
	requireErr  error
	matchErr    error
}

func (m *mockAuthService) ValidateRequest(*http.Request) (*Claims, string, error) {
	if m.validateErr != nil {
		return nil, "", m.validateErr
	}
	return m.claims, m.token, nil
}

func (m *mockAuthService) RequireOrganizationID(*Claims) error { return m.requireErr }

func (m *mockAuthService) ValidateOrganizationMatch(*Claims, string) error { return m.matchErr }

func decodeAuthError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestMiddleware_RequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		service    *mockAuthService
		wantStatus int
		wantCode   string
	}{
		{"success", &mockAuthService{claims: &Claims{OrganizationID: "org-1"}, token: "tok"}, http.StatusOK, ""},
		{"invalid token", &mockAuthService{validateErr: ErrMissingAuthorization}, http.StatusUnauthorized, "unauthorized"},
		{"no organization", &mockAuthService{claims: &Claims{}, requireErr: ErrMissingOrganization}, http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewMiddleware(tt.service, zap.NewNop())

			var ctxClaims *Claims
			var ctxToken string
			handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
				ctxClaims, _ = GetClaims(r.Context())
				ctxToken, _ = GetToken(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Nil(t, ctxClaims, "handler must not run")
				assert.Equal(t, tt.wantCode, decodeAuthError(t, rec)["error"])
				return
			}
			require.NotNil(t, ctxClaims)
			assert.Equal(t, "org-1", ctxClaims.OrganizationID)
			assert.Equal(t, "tok", ctxToken)
		})
	}
}

func TestMiddleware_RequireAuthWithPathValidation(t *testing.T) {
	tests := []struct {
		name       string
		service    *mockAuthService
		wantStatus int
	}{
		{"match", &mockAuthService{claims: &Claims{OrganizationID: "org-1"}}, http.StatusOK},
		{"mismatch", &mockAuthService{claims: &Claims{OrganizationID: "org-1"}, matchErr: ErrOrganizationMismatch}, http.StatusForbidden},
		{"unauthenticated", &mockAuthService{validateErr: ErrInvalidAuthFormat}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewMiddleware(tt.service, zap.NewNop())

			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/organizations/{oid}/products",
				mw.RequireAuthWithPathValidation("oid")(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusOK)
				}))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/organizations/org-1/products", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Equal(t, "forbidden", decodeAuthError(t, rec)["error"])
			}
		})
	}
}

func TestMiddleware_PathValidationWithRealService(t *testing.T) {
	jwks := &mockJWKSClient{claims: &Claims{OrganizationID: "org-1"}}
	mw := NewMiddleware(NewAuthService(jwks, zap.NewNop()), zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/organizations/{oid}/knowledge",
		mw.RequireAuthWithPathValidation("oid")(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	for path, want := range map[string]int{
		"/api/organizations/org-1/knowledge": http.StatusNoContent,
		"/api/organizations/org-2/knowledge": http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, path)
	}
}
