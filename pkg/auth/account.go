package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/tw-smith/authserver/pkg/kernel"
)

// Account is the subject of every credential operation. Its state gates
// which tokens may be issued: an unverified or password-locked account
// never receives a session token.
type Account struct {
	// ID is the store-assigned primary key. Never exposed externally.
	ID int64

	// PublicID is the random, immutable, externally-exposed identifier.
	// Tokens carry it as the sub claim instead of the internal ID or
	// username.
	PublicID kernel.PublicID

	Email    string
	Username string

	// PasswordHash is the PHC-encoded Argon2id hash. Mutated only by
	// password change and completed reset.
	PasswordHash string

	Verified       bool
	PasswordLocked bool

	// CreatedAt is epoch seconds, immutable. Mixed into the password
	// reset secret derivation as additional entropy.
	CreatedAt int64

	Service kernel.Service
}

// NewAccount creates an unverified, unlocked account for a service tenant.
func NewAccount(service kernel.Service, email, username, passwordHash string) *Account {
	return &Account{
		PublicID:       kernel.NewPublicID(uuid.NewString()),
		Email:          email,
		Username:       username,
		PasswordHash:   passwordHash,
		Verified:       false,
		PasswordLocked: false,
		CreatedAt:      time.Now().Unix(),
		Service:        service,
	}
}

// MarkVerified flips the account to verified. Verifying twice is harmless.
func (a *Account) MarkVerified() {
	a.Verified = true
}

// Lock blocks session token issuance until a password reset completes.
func (a *Account) Lock() {
	a.PasswordLocked = true
}

// SetPassword replaces the stored hash. All previously issued reset tokens
// become invalid because the reset secret is derived from the hash.
func (a *Account) SetPassword(passwordHash string) {
	a.PasswordHash = passwordHash
}

// CompleteReset replaces the stored hash and clears the reset lock.
func (a *Account) CompleteReset(passwordHash string) {
	a.PasswordHash = passwordHash
	a.PasswordLocked = false
}

// CanLogin reports whether the account state permits session issuance.
func (a *Account) CanLogin() bool {
	return a.Verified && !a.PasswordLocked
}
