package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	hashMemory      uint32 = 64 * 1024
	hashIterations  uint32 = 2
	hashParallelism uint8  = 1
	hashKeyLength   uint32 = 32
	hashSaltLength         = 16
)

// HashSecret produces a salted argon2id digest in PHC string format.
// Each call draws a fresh salt, so two digests of the same secret never
// match byte-for-byte. Used for account passwords and one-time codes.
func HashSecret(secret string) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: secret is empty", ErrInvalidInput)
	}
	salt := make([]byte, hashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	sum := argon2.IDKey([]byte(secret), salt, hashIterations, hashMemory, hashParallelism, hashKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hashMemory,
		hashIterations,
		hashParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// VerifySecret recomputes the digest with the parameters encoded in it
// and compares in constant time. A malformed digest yields false, never
// an error: a login attempt against a corrupt record must look exactly
// like a wrong password.
func VerifySecret(secret, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return false
	}
	version, err := parseHashParam(parts[2], "v=")
	if err != nil || int(version) != argon2.Version {
		return false
	}
	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return false
	}
	// argon2.IDKey panics on zero rounds or zero parallelism, and an
	// attacker-sized memory parameter would make verification allocate
	// arbitrarily. Out-of-range parameters are just another malformed
	// digest.
	memory, err := parseHashParam(params[0], "m=")
	if err != nil || memory == 0 || memory > 1<<21 {
		return false
	}
	iterations, err := parseHashParam(params[1], "t=")
	if err != nil || iterations == 0 {
		return false
	}
	parallelism, err := parseHashParam(params[2], "p=")
	if err != nil || parallelism == 0 || parallelism > 255 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}
	actual := argon2.IDKey([]byte(secret), salt, iterations, memory, uint8(parallelism), uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func parseHashParam(value, prefix string) (uint32, error) {
	raw, ok := strings.CutPrefix(value, prefix)
	if !ok {
		return 0, fmt.Errorf("missing %q prefix", prefix)
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
