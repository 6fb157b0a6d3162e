package auth

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/tw-smith/authserver/pkg/errx"
)

// fingerprintBytes is the entropy of the raw fingerprint value (256 bits).
const fingerprintBytes = 32

// Fingerprint binds a session token to the browser that obtained it.
// The raw value travels only in an HttpOnly cookie; the session token
// carries just the hash. A stolen bearer token cannot be replayed from a
// client that does not also hold the cookie.
type Fingerprint struct {
	// Raw is the URL-safe random value delivered as the cookie.
	Raw string

	// Hash is the password-style hash of Raw, embedded in the session
	// token's fgp claim.
	Hash string
}

// GenerateFingerprint produces a fresh random fingerprint pair.
func GenerateFingerprint(hasher PasswordHasher) (*Fingerprint, error) {
	raw := make([]byte, fingerprintBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, errx.Wrap(err, "failed to generate fingerprint", errx.TypeInternal)
	}

	value := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := hasher.Hash(value)
	if err != nil {
		return nil, errx.Wrap(err, "failed to hash fingerprint", errx.TypeInternal)
	}

	return &Fingerprint{Raw: value, Hash: hash}, nil
}

// MatchFingerprint reports whether a presented cookie value matches the
// hash carried in a session token.
func MatchFingerprint(hasher PasswordHasher, hash, raw string) bool {
	if hash == "" || raw == "" {
		return false
	}
	return hasher.Verify(hash, raw)
}
