// Package auth provides JWT-based authentication for the admin API.
// Tokens are signed with a shared HS256 secret by the dashboard's login
// service; this package only validates them.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
)

// Claims is the JWT claims structure for admin dashboard tokens. The subject
// is the admin user's identifier and doubles as the audit-trail actor.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"` // "admin", "operator", "viewer"
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// ActorFromContext extracts an audit-trail actor label from the claims in
// context. Prefers the email, falls back to the subject, and returns empty
// when the request is unauthenticated.
func ActorFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	if claims.Email != "" {
		return claims.Email
	}
	return claims.Subject
}
