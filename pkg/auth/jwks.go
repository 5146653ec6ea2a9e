package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidAudience is returned for tokens not addressed to this service.
var ErrInvalidAudience = errors.New("token audience does not include this service")

// JWKSClientInterface validates JWTs.
type JWKSClientInterface interface {
	// ValidateToken returns the claims of a valid token. Invalid, expired and
	// foreign-issuer tokens are rejected.
	ValidateToken(tokenString string) (*Claims, error)
	Close()
}

// JWKSConfig contains configuration for the JWKS client.
type JWKSConfig struct {
	// EnableVerification false parses tokens without checking signatures.
	// Local development only.
	EnableVerification bool
	// JWKSEndpoints maps trusted issuers to their JWKS URLs.
	JWKSEndpoints map[string]string
	// Audience, when set, must appear in the token's aud claim.
	Audience string
}

// JWKSClient verifies token signatures with the public keys published by each
// trusted issuer.
type JWKSClient struct {
	keys   map[string]keyfunc.Keyfunc
	config *JWKSConfig
	cancel context.CancelFunc
}

// NewJWKSClient loads the key set of every configured issuer. Keys are
// refreshed in the background until Close is called.
func NewJWKSClient(config *JWKSConfig) (*JWKSClient, error) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &JWKSClient{
		keys:   make(map[string]keyfunc.Keyfunc),
		config: config,
		cancel: cancel,
	}

	if !config.EnableVerification {
		return client, nil
	}

	for issuer, jwksURL := range config.JWKSEndpoints {
		kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create JWKS client for %s: %w", issuer, err)
		}
		client.keys[issuer] = kf
	}

	return client, nil
}

// ValidateToken validates a JWT and returns its claims.
func (c *JWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	var claims *Claims
	var err error
	if c.config.EnableVerification {
		claims, err = c.parseVerified(tokenString)
	} else {
		claims, err = c.parseUnverifiedToken(tokenString)
	}
	if err != nil {
		return nil, err
	}

	if c.config.Audience != "" && !slices.Contains(claims.Audience, c.config.Audience) {
		return nil, ErrInvalidAudience
	}
	return claims, nil
}

func (c *JWKSClient) parseVerified(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return nil, errors.New("invalid claims type")
		}
		kf, ok := c.keys[claims.Issuer]
		if !ok {
			return nil, fmt.Errorf("unauthorized issuer: %s", claims.Issuer)
		}
		return kf.Keyfunc(token)
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

func (c *JWKSClient) parseUnverifiedToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

// Close stops the background key refresh.
func (c *JWKSClient) Close() {
	c.cancel()
}

var _ JWKSClientInterface = (*JWKSClient)(nil)
