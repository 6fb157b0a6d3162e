package auth_test

import (
	"strings"
	"testing"

	"github.com/tw-smith/authserver/pkg/auth"
)

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	hasher := auth.NewArgon2Hasher()

	hash, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if !hasher.Verify(hash, "correct horse battery staple") {
		t.Fatal("expected matching password to verify")
	}
	if hasher.Verify(hash, "wrong password") {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestArgon2Hasher_PHCFormat(t *testing.T) {
	hasher := auth.NewArgon2Hasher()

	hash, err := hasher.Hash("password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Fatalf("unexpected hash prefix: %s", hash)
	}
	if parts := strings.Split(hash, "$"); len(parts) != 6 {
		t.Fatalf("expected 6 dollar-separated parts, got %d", len(parts))
	}
}

func TestArgon2Hasher_UniqueSalts(t *testing.T) {
	hasher := auth.NewArgon2Hasher()

	h1, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	h2, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if h1 == h2 {
		t.Fatal("expected different salts to produce different hashes")
	}
	if !hasher.Verify(h1, "same password") || !hasher.Verify(h2, "same password") {
		t.Fatal("expected both hashes to verify")
	}
}

func TestArgon2Hasher_EmptyPassword(t *testing.T) {
	hasher := auth.NewArgon2Hasher()

	if _, err := hasher.Hash(""); err == nil {
		t.Fatal("expected error hashing empty password")
	}
}

func TestArgon2Hasher_MalformedHashNeverVerifies(t *testing.T) {
	hasher := auth.NewArgon2Hasher()

	malformed := []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536,t=1,p=4$salt",              // missing hash part
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",       // wrong variant
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",        // bad salt encoding
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!",        // bad hash encoding
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",               // bad params
		"$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA",     // zero parallelism
		"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA$x$y", // too many parts
	}

	for _, h := range malformed {
		if hasher.Verify(h, "password") {
			t.Errorf("malformed hash verified: %q", h)
		}
	}
}
