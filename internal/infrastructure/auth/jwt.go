// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

// Package auth validates session JWTs issued by the platform's identity
// provider and extracts the calling user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

const (
	// defaultJWKSURL is the default JWKS endpoint of the identity provider.
	defaultJWKSURL = "http://localhost:4457/.well-known/jwks"
	// defaultAudience is the default JWT audience claim to require.
	defaultAudience = "meeting-agent-service"
	// jwksCacheTTL is how long fetched JWKS keys are cached.
	jwksCacheTTL = 5 * time.Minute
)

// Principal is the authenticated user extracted from a session token.
type Principal struct {
	UserID string
	Name   string
	Email  string
}

// SessionClaims are the custom claims carried by session tokens.
type SessionClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Validate implements validator.CustomClaims. The subject is checked
// separately after validation since it lives in the registered claims.
func (c *SessionClaims) Validate(_ context.Context) error {
	return nil
}

// JWTAuthConfig is the configuration for JWT authentication.
type JWTAuthConfig struct {
	// JWKSURL is the JWKS endpoint used to fetch signing keys.
	JWKSURL string
	// Audience is the required audience claim.
	Audience string
	// MockLocalPrincipal bypasses validation and authenticates every
	// request as the given user ID. Local development only.
	MockLocalPrincipal string
}

// IJWTAuth parses a bearer token into the calling principal.
type IJWTAuth interface {
	ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (*Principal, error)
}

// JWTAuth validates session tokens against the identity provider's JWKS.
type JWTAuth struct {
	config    JWTAuthConfig
	validator *validator.Validator
}

var _ IJWTAuth = (*JWTAuth)(nil)

// NewJWTAuth creates a new JWT authenticator.
func NewJWTAuth(config JWTAuthConfig) (*JWTAuth, error) {
	if config.JWKSURL == "" {
		config.JWKSURL = defaultJWKSURL
	}
	if config.Audience == "" {
		config.Audience = defaultAudience
	}

	jwksURL, err := url.Parse(config.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWKS URL: %w", err)
	}

	// The issuer is the JWKS origin; tokens carry the provider origin as iss.
	issuerURL := &url.URL{Scheme: jwksURL.Scheme, Host: jwksURL.Host}

	provider := jwks.NewCachingProvider(issuerURL, jwksCacheTTL, jwks.WithCustomJWKSURI(jwksURL))

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{config.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &SessionClaims{}
		}),
		validator.WithAllowedClockSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up JWT validator: %w", err)
	}

	return &JWTAuth{
		config:    config,
		validator: jwtValidator,
	}, nil
}

// ParsePrincipal validates the bearer token and returns the calling user.
func (a *JWTAuth) ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (*Principal, error) {
	if a.config.MockLocalPrincipal != "" {
		logger.WarnContext(ctx, "mock authentication enabled, skipping token validation",
			"principal", a.config.MockLocalPrincipal)
		return &Principal{UserID: a.config.MockLocalPrincipal}, nil
	}

	if a.validator == nil {
		return nil, errors.New("JWT validator is not set up")
	}

	parsed, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		logger.DebugContext(ctx, "token validation failed", "error", err)
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		return nil, errors.New("unexpected claims type from validator")
	}

	if claims.RegisteredClaims.Subject == "" {
		return nil, errors.New("session token has no subject")
	}

	principal := &Principal{
		UserID: claims.RegisteredClaims.Subject,
	}
	if custom, ok := claims.CustomClaims.(*SessionClaims); ok && custom != nil {
		principal.Name = custom.Name
		principal.Email = custom.Email
	}

	return principal, nil
}
