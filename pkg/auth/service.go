package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// CookieName carries the JWT for browser clients.
const CookieName = "lumen_jwt"

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrMissingOrganization  = errors.New("missing organization ID in token")
	ErrOrganizationMismatch = errors.New("organization ID mismatch between token and URL")
)

// AuthService authenticates HTTP requests.
type AuthService interface {
	// ValidateRequest reads the JWT from the lumen_jwt cookie, else from a
	// Bearer Authorization header, and validates it.
	ValidateRequest(r *http.Request) (*Claims, string, error)

	RequireOrganizationID(claims *Claims) error

	// ValidateOrganizationMatch rejects tokens issued for another organization
	// than the one in the URL. Super admins may act for any organization.
	ValidateOrganizationMatch(claims *Claims, urlOrganizationID string) error
}

type authService struct {
	jwksClient JWKSClientInterface
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwksClient JWKSClientInterface, logger *zap.Logger) AuthService {
	return &authService{
		jwksClient: jwksClient,
		logger:     logger,
	}
}

var _ AuthService = (*authService)(nil)

func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	tokenString, source, err := s.tokenFrom(r)
	if err != nil {
		return nil, "", err
	}

	claims, err := s.jwksClient.ValidateToken(tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("token_source", source))
		return nil, "", err
	}
	return claims, tokenString, nil
}

func (s *authService) tokenFrom(r *http.Request) (token, source string, err error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, "cookie", nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		s.logger.Debug("No JWT found in request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return "", "", ErrMissingAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		s.logger.Debug("Invalid Authorization header format", zap.String("path", r.URL.Path))
		return "", "", ErrInvalidAuthFormat
	}
	return strings.TrimSpace(token), "header", nil
}

func (s *authService) RequireOrganizationID(claims *Claims) error {
	if claims.OrganizationID == "" {
		return ErrMissingOrganization
	}
	return nil
}

func (s *authService) ValidateOrganizationMatch(claims *Claims, urlOrganizationID string) error {
	if urlOrganizationID == "" || claims.OrganizationID == urlOrganizationID || claims.IsSuperAdmin() {
		return nil
	}
	s.logger.Warn("Organization ID mismatch",
		zap.String("url_organization_id", urlOrganizationID),
		zap.String("token_organization_id", claims.OrganizationID))
	return ErrOrganizationMismatch
}
