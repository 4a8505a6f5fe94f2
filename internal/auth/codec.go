package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"inkpress.org/internal/ids"
)

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

// Codec signs and verifies the two token shapes using HS256 and a shared
// process-wide secret. It holds no mutable state.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewCodec constructs a Codec. The secret is required; the issuer claim
// is optional and enforced on decode only when set.
func NewCodec(secret, issuer string, now func() time.Time) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		now:    now,
	}, nil
}

type accessClaims struct {
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	RoleName    string   `json:"role_name"`
	Permissions []string `json:"permissions,omitempty"`
	TokenKind   string   `json:"token_kind"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	TokenKind string `json:"token_kind"`
	jwt.RegisteredClaims
}

// EncodeAccess serializes the identity snapshot into a signed access
// token with an absolute expiry.
func (c *Codec) EncodeAccess(claims Claims, expiresAt time.Time) (string, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	now := c.now().UTC()
	payload := accessClaims{
		FirstName:   claims.FirstName,
		LastName:    claims.LastName,
		RoleName:    claims.RoleName,
		Permissions: claims.Permissions,
		TokenKind:   tokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
			ID:        ids.New(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// EncodeRefresh signs a refresh token carrying only the subject id and
// the refresh discriminator, so it can never pass where an access token
// is expected.
func (c *Codec) EncodeRefresh(subjectID string, expiresAt time.Time) (string, error) {
	if strings.TrimSpace(subjectID) == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	now := c.now().UTC()
	payload := refreshClaims{
		TokenKind: tokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
			ID:        ids.New(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// DecodeAccess verifies signature, kind and expiry, then returns the
// embedded identity snapshot. Failures are classified as signature,
// malformed or expired; signature wins when several apply.
func (c *Codec) DecodeAccess(token string) (Claims, error) {
	var payload accessClaims
	if err := c.parse(token, &payload); err != nil {
		// Kind is the first field trusted after the signature: a refresh
		// token must never authenticate a request, and a wrong-kind
		// token is malformed even when it also happens to be expired.
		if errors.Is(err, ErrTokenExpired) && payload.TokenKind != tokenKindAccess {
			return Claims{}, ErrTokenMalformed
		}
		return Claims{}, err
	}
	if payload.TokenKind != tokenKindAccess {
		return Claims{}, ErrTokenMalformed
	}
	if strings.TrimSpace(payload.Subject) == "" {
		return Claims{}, ErrTokenMalformed
	}
	return Claims{
		Subject:     payload.Subject,
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		RoleName:    payload.RoleName,
		Permissions: payload.Permissions,
	}, nil
}

// DecodeRefresh verifies a refresh token and returns its subject id.
func (c *Codec) DecodeRefresh(token string) (string, error) {
	var payload refreshClaims
	if err := c.parse(token, &payload); err != nil {
		if errors.Is(err, ErrTokenExpired) && payload.TokenKind != tokenKindRefresh {
			return "", ErrTokenMalformed
		}
		return "", err
	}
	if payload.TokenKind != tokenKindRefresh {
		return "", ErrTokenMalformed
	}
	if strings.TrimSpace(payload.Subject) == "" {
		return "", ErrTokenMalformed
	}
	return payload.Subject, nil
}

// ExpiryOf returns the embedded expiry of any token signed by this
// codec, regardless of kind and even when the token is already expired.
// The signature is still verified first.
func (c *Codec) ExpiryOf(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, ErrTokenMalformed
	}
	var payload jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &payload, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return time.Time{}, classifyTokenError(err)
	}
	if payload.ExpiresAt == nil {
		return time.Time{}, ErrTokenMalformed
	}
	return payload.ExpiresAt.Time, nil
}

func (c *Codec) parse(token string, dst jwt.Claims) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenMalformed
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, dst, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return classifyTokenError(err)
	}
	if !parsed.Valid {
		return ErrTokenMalformed
	}
	return nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
