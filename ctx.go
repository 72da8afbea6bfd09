package auth

import "context"

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the Identity in the given context
func WithIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the AuthClaims from the standard context
func ClaimsFromContext(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}
