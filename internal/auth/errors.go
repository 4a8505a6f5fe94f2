package auth

import "errors"

// Externally visible outcomes. The boundary layer maps these two to
// transport-level rejections; everything finer-grained below stays
// inside this package.
var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
)

// Codec outcomes. All three fold into ErrUnauthorized at the service
// boundary, but callers inside the package need to tell them apart.
var (
	ErrTokenSignature = errors.New("auth: invalid token signature")
	ErrTokenMalformed = errors.New("auth: malformed token")
	ErrTokenExpired   = errors.New("auth: token expired")
)

// Rotation outcomes. "Revoked" means the exact string was consumed or
// logged out before; "unknown" means it was never registered here.
var (
	ErrRefreshRevoked = errors.New("auth: refresh token revoked")
	ErrRefreshUnknown = errors.New("auth: unknown refresh token")
)

// ErrCrossDepartment is the guard's denial reason for department scoping.
var ErrCrossDepartment = errors.New("auth: cross-department access is not allowed")

// ErrNotFound is returned by Directory implementations for absent accounts.
var ErrNotFound = errors.New("auth: not found")

// ErrInvalidInput marks caller mistakes that are not auth failures.
var ErrInvalidInput = errors.New("auth: invalid input")
