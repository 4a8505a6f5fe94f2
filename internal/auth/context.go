package auth

import "context"

type claimsContextKey struct{}
type tokenContextKey struct{}

// ContextWithClaims attaches verified claims to the context.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, &claims)
}

// ClaimsFromContext extracts the authenticated claims from the context.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	if ctx == nil {
		return Claims{}, false
	}
	v, ok := ctx.Value(claimsContextKey{}).(*Claims)
	if !ok || v == nil {
		return Claims{}, false
	}
	return *v, true
}

// ContextWithToken stores the raw bearer token inside the context so the
// logout handler can revoke exactly the string that authenticated the
// request.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
