package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tw-smith/authserver/pkg/errx"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// PasswordHasher hashes and verifies user passwords. Hashing is memory-hard
// and CPU-intensive; callers on latency-sensitive paths should not hold
// other requests behind it.
type PasswordHasher interface {
	// Hash produces a salted, self-describing hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the stored hash. A
	// malformed or legacy hash is a mismatch, never an error.
	Verify(encodedHash, password string) bool
}

// Argon2Hasher implements PasswordHasher using argon2id in PHC string
// format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
type Argon2Hasher struct{}

// NewArgon2Hasher creates a new Argon2Hasher.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{}
}

// Hash produces an argon2id hash of the password.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errx.Validation("password cannot be empty")
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errx.Wrap(err, "failed to generate salt", errx.TypeInternal)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// Verify recomputes the hash with the parameters embedded in encodedHash
// and compares in constant time. Any parse failure is treated as a
// mismatch so corrupt or legacy hashes can never authenticate.
func (h *Argon2Hasher) Verify(encodedHash, password string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if threads == 0 || threads > 255 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	if len(expected) == 0 || len(expected) > 1<<10 {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(len(expected)))

	return subtle.ConstantTimeCompare(computed, expected) == 1
}
