package recall

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets validated session claims in the given context
func WithClaimsContext(r context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the session claims from the standard context
func GetClaims(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok
}

// GetRouterClaims extracts the session claims from the router context
func GetRouterClaims(ctx router.Context, key string) (*SessionClaims, bool) {
	if key == "" {
		key = "user" // Default key used by JWT middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*SessionClaims)
	return claims, ok
}

// LocalsUserKey is where the verification gate stores the resolved user.
const LocalsUserKey = "auth_user"

// GetRouterUser extracts the sanitized user set by the verification gate.
func GetRouterUser(ctx router.Context) (*User, bool) {
	raw := ctx.Locals(LocalsUserKey)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok
}
