package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	defaultIssuer     = "inkpress"
	defaultAccessTTL  = 7 * 24 * time.Hour
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Service is the auth orchestrator: it composes the credential
// verifier, token codec, rotation store and the external directory into
// the login / refresh / logout / verify surface.
type Service struct {
	directory Directory
	store     *TokenStore
	codec     *Codec
	now       func() time.Time

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// TokenPair represents access and refresh tokens along with their
// expirations.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if trimmed := strings.TrimSpace(issuer); trimmed != "" {
			s.issuer = trimmed
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the orchestrator. The signing secret is read
// once here and immutable afterwards; the rotation store is created and
// owned by the returned Service for the process lifetime.
func NewService(directory Directory, secret string, opts ...ServiceOption) (*Service, error) {
	if directory == nil {
		return nil, errors.New("auth: directory is required")
	}
	svc := &Service{
		directory:  directory,
		store:      NewTokenStore(),
		now:        time.Now,
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	codec, err := NewCodec(secret, svc.issuer, svc.now)
	if err != nil {
		return nil, err
	}
	svc.codec = codec
	return svc, nil
}

// Login verifies credentials against the directory and issues a fresh
// token pair. Unknown email and wrong password produce the identical
// ErrUnauthorized so callers learn nothing about account existence.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, ErrUnauthorized
	}
	account, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, fmt.Errorf("directory lookup: %w", err)
	}
	if !VerifySecret(password, account.PasswordHash) {
		return TokenPair{}, ErrUnauthorized
	}
	return s.issuePair(claimsFromAccount(account))
}

// Refresh consumes a refresh token exactly once and issues a new pair.
// Role and permissions are re-resolved from the directory rather than
// copied from old claims, so permission edits take effect on the next
// rotation instead of waiting out the full access-token lifetime. Every
// codec, store or lookup failure folds into ErrUnauthorized.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if _, err := s.codec.DecodeRefresh(refreshToken); err != nil {
		return TokenPair{}, ErrUnauthorized
	}
	subjectID, err := s.store.ConsumeRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrUnauthorized
	}
	account, err := s.directory.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrUnauthorized
		}
		return TokenPair{}, fmt.Errorf("directory lookup: %w", err)
	}
	return s.issuePair(claimsFromAccount(account))
}

// Logout revokes the access token and retires the refresh token if one
// is supplied. Always succeeds, even for garbage input: a failed logout
// would leak whether the presented tokens were still valid.
func (s *Service) Logout(accessToken, refreshToken string) {
	accessToken = strings.TrimSpace(accessToken)
	refreshToken = strings.TrimSpace(refreshToken)
	accessExpiresAt, err := s.codec.ExpiryOf(accessToken)
	if err != nil {
		// Retention bound for strings whose expiry cannot be read.
		accessExpiresAt = s.now().Add(s.accessTTL)
	}
	refreshExpiresAt, err := s.codec.ExpiryOf(refreshToken)
	if err != nil {
		refreshExpiresAt = s.now().Add(s.refreshTTL)
	}
	s.store.Logout(accessToken, accessExpiresAt, refreshToken, refreshExpiresAt)
}

// VerifyAccessToken authenticates a bearer token: revocation first (a
// cheap map lookup), then signature, kind and expiry via the codec.
// Either failure collapses to ErrUnauthorized.
func (s *Service) VerifyAccessToken(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" || s.store.IsAccessTokenRevoked(token) {
		return Claims{}, ErrUnauthorized
	}
	claims, err := s.codec.DecodeAccess(token)
	if err != nil {
		return Claims{}, ErrUnauthorized
	}
	return claims, nil
}

// SweepExpired prunes revocation records whose tokens have expired on
// their own. Meant to be driven by a background ticker in the process
// entrypoint.
func (s *Service) SweepExpired(now time.Time) int {
	return s.store.Sweep(now)
}

func (s *Service) issuePair(claims Claims) (TokenPair, error) {
	now := s.now().UTC()
	accessExpiresAt := now.Add(s.accessTTL)
	refreshExpiresAt := now.Add(s.refreshTTL)

	accessToken, err := s.codec.EncodeAccess(claims, accessExpiresAt)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := s.codec.EncodeRefresh(claims.Subject, refreshExpiresAt)
	if err != nil {
		return TokenPair{}, err
	}
	s.store.RegisterRefreshToken(refreshToken, claims.Subject, refreshExpiresAt)

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func claimsFromAccount(account *Account) Claims {
	return Claims{
		Subject:     account.ID,
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		RoleName:    account.RoleName,
		Permissions: slices.Clone(account.Permissions),
	}
}
