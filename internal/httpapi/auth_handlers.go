package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"inkpress.org/internal/auth"
	"inkpress.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	auth.TokenPair
	TokenType string `json:"token_type"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			obs.ObserveLogin("unauthorized")
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		obs.ObserveLogin("error")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.ObserveLogin("ok")
	obs.LogEvent("auth.login", map[string]any{
		"email":      strings.TrimSpace(strings.ToLower(req.Email)),
		"expires_at": pair.AccessExpiresAt,
		"request_id": RequestIDFromContext(r.Context()),
	})
	writeJSON(w, http.StatusOK, tokenResponse{TokenPair: pair, TokenType: "bearer"})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			obs.ObserveRefresh("unauthorized")
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		obs.ObserveRefresh("error")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	obs.ObserveRefresh("ok")
	writeJSON(w, http.StatusOK, tokenResponse{TokenPair: pair, TokenType: "bearer"})
}

// handleLogout revokes whatever tokens the caller presents. It answers
// 200 regardless of their validity so a repeated logout reveals nothing.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req logoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	accessToken, _ := extractBearerToken(r.Header.Get(authHeader))
	a.auth.Logout(accessToken, req.RefreshToken)
	if accessToken != "" {
		obs.ObserveRevocation()
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
