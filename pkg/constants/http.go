// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package constants

// Constants for the HTTP request headers
const (
	// AuthorizationHeader is the header name for the authorization
	AuthorizationHeader string = "authorization"

	// RequestIDHeader is the header name for the request ID
	RequestIDHeader string = "X-REQUEST-ID"

	// SignatureHeader is the header carrying the webhook HMAC signature
	SignatureHeader string = "x-signature"

	// APIKeyHeader is the header carrying the video platform API key
	APIKeyHeader string = "x-api-key"
)

// contextRequestID is the type for the request ID context key
type contextRequestID string

// RequestIDContextID is the context ID for the request ID
const RequestIDContextID contextRequestID = "X-REQUEST-ID"

// contextAuthorization is the type for the authorization context key
type contextAuthorization string

// AuthorizationContextID is the context ID for the authorization
const AuthorizationContextID contextAuthorization = "authorization"

// contextPrincipal is the type for the principal context key
type contextPrincipal string

// PrincipalContextID is the context ID for the authenticated principal
const PrincipalContextID contextPrincipal = "principal"
