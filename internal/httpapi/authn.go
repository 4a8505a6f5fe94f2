package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"inkpress.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Paths served without an access token. Logout stays public on purpose:
// it must succeed even when the presented tokens are already invalid.
var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/auth/logout",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.auth.VerifyAccessToken(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := auth.ContextWithClaims(r.Context(), claims)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePermission enforces permission membership on the claims already
// placed in the request context by withAuth.
func requirePermission(r *http.Request, perm string) (auth.Claims, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return auth.Claims{}, auth.ErrUnauthorized
	}
	if !claims.HasPermission(perm) {
		return auth.Claims{}, auth.ErrForbidden
	}
	return claims, nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
