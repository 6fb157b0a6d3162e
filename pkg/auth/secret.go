package auth

import "fmt"

// SecretDeriver computes the signing secret for a given token purpose.
//
// Session and verification tokens use the static deployment secret. Reset
// tokens use a secret derived from mutable account state, so every issued
// reset token self-invalidates the moment the password changes.
type SecretDeriver struct {
	sessionSecret []byte
}

// NewSecretDeriver creates a deriver around the deployment secret.
func NewSecretDeriver(secretKey string) *SecretDeriver {
	return &SecretDeriver{sessionSecret: []byte(secretKey)}
}

// SessionSecret returns the static secret for session and verification
// tokens.
func (d *SecretDeriver) SessionSecret() []byte {
	return d.sessionSecret
}

// ResetSecret returns the one-time secret for password reset tokens:
// the current password hash concatenated with the account creation time.
// Both a completed reset and an unrelated password change rotate it.
func (d *SecretDeriver) ResetSecret(account *Account) []byte {
	return []byte(fmt.Sprintf("%s_%d", account.PasswordHash, account.CreatedAt))
}
