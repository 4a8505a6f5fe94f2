package auth

import (
	"sync"
	"time"
)

type refreshGrant struct {
	subjectID string
	expiresAt time.Time
}

// TokenStore owns the process-wide revocation and rotation state: a
// deny-list of revoked access tokens, the set of currently valid refresh
// tokens, and the set of refresh tokens already consumed or logged out.
// Access tokens are otherwise self-contained, so this deny-list is the
// only mutable server-side state needed for immediate logout.
//
// State is in-memory only. A process restart forgets revocation history,
// which means a revoked but unexpired access token becomes valid again
// after restart. Single-process semantics are the model here.
type TokenStore struct {
	mu             sync.Mutex
	revokedAccess  map[string]time.Time
	validRefresh   map[string]refreshGrant
	revokedRefresh map[string]time.Time
}

// NewTokenStore constructs an empty store. Create one per process and
// inject it; there is no package-level instance.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		revokedAccess:  make(map[string]time.Time),
		validRefresh:   make(map[string]refreshGrant),
		revokedRefresh: make(map[string]time.Time),
	}
}

// IsAccessTokenRevoked reports whether the exact token string was
// revoked earlier in this process lifetime.
func (s *TokenStore) IsAccessTokenRevoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revokedAccess[token]
	return ok
}

// RevokeAccessToken adds the token to the deny-list. Idempotent. The
// expiry is kept only so Sweep can drop the entry once the token could
// no longer verify anyway.
func (s *TokenStore) RevokeAccessToken(token string, expiresAt time.Time) {
	if token == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedAccess[token] = expiresAt
}

// RegisterRefreshToken marks a freshly issued refresh token as valid for
// its subject. A string already present in the revoked set stays
// revoked: registration never resurrects consumed tokens.
func (s *TokenStore) RegisterRefreshToken(token, subjectID string, expiresAt time.Time) {
	if token == "" || subjectID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, revoked := s.revokedRefresh[token]; revoked {
		return
	}
	s.validRefresh[token] = refreshGrant{subjectID: subjectID, expiresAt: expiresAt}
}

// ConsumeRefreshToken atomically transitions a valid refresh token to
// revoked and returns its subject id. Of any number of concurrent calls
// with the same string, exactly one succeeds; the rest observe
// ErrRefreshRevoked. Strings never registered here yield
// ErrRefreshUnknown, a distinct outcome so reuse after rotation can be
// told apart from garbage.
func (s *TokenStore) ConsumeRefreshToken(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, revoked := s.revokedRefresh[token]; revoked {
		return "", ErrRefreshRevoked
	}
	grant, ok := s.validRefresh[token]
	if !ok {
		return "", ErrRefreshUnknown
	}
	delete(s.validRefresh, token)
	s.revokedRefresh[token] = grant.expiresAt
	return grant.subjectID, nil
}

// Logout revokes the access token and, when a refresh token is supplied,
// retires it under the same atomicity as consumption. Idempotent: tokens
// already revoked or never registered are not an error, so a second
// logout leaks nothing about their validity. refreshExpiresAt bounds the
// retention of refresh strings that were never registered here; the
// registered grant's own expiry wins when one exists.
func (s *TokenStore) Logout(accessToken string, accessExpiresAt time.Time, refreshToken string, refreshExpiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if accessToken != "" {
		s.revokedAccess[accessToken] = accessExpiresAt
	}
	if refreshToken == "" {
		return
	}
	expiresAt := refreshExpiresAt
	if grant, ok := s.validRefresh[refreshToken]; ok {
		expiresAt = grant.expiresAt
		delete(s.validRefresh, refreshToken)
	}
	if _, revoked := s.revokedRefresh[refreshToken]; !revoked {
		s.revokedRefresh[refreshToken] = expiresAt
	}
}

// Sweep drops entries whose embedded expiry has passed: a consumed or
// revoked token can never become valid again, so its denial record is
// pure waste once the token itself would no longer verify. Entries with
// an unknown expiry (zero time) are kept. Returns the number removed.
func (s *TokenStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, expiresAt := range s.revokedAccess {
		if !expiresAt.IsZero() && now.After(expiresAt) {
			delete(s.revokedAccess, token)
			removed++
		}
	}
	for token, grant := range s.validRefresh {
		if !grant.expiresAt.IsZero() && now.After(grant.expiresAt) {
			delete(s.validRefresh, token)
			removed++
		}
	}
	for token, expiresAt := range s.revokedRefresh {
		if !expiresAt.IsZero() && now.After(expiresAt) {
			delete(s.revokedRefresh, token)
			removed++
		}
	}
	return removed
}
