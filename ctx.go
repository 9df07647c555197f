package auth

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the authenticated user's session in the given context
func WithContext(r context.Context, session *SessionSnapshot) context.Context {
	return context.WithValue(r, userCtxKey, session)
}

// FromContext finds the authenticated user's session from the context.
func FromContext(ctx context.Context) (*SessionSnapshot, bool) {
	raw, ok := ctx.Value(userCtxKey).(*SessionSnapshot)
	return raw, ok
}

// WithClaimsContext sets the AccessClaims in the given context
func WithClaimsContext(r context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AccessClaims from the standard context
func GetClaims(ctx context.Context) (*AccessClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*AccessClaims)
	return raw, ok
}

// HasRole reports whether the context carries a session with at least the
// given role.
func HasRole(ctx context.Context, minRole UserRole) bool {
	session, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return session.Role.IsAtLeast(minRole)
}
