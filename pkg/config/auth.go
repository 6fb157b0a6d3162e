package config

import (
	"fmt"
	"time"
)

// AuthConfig configures the credential engine: token signing, TTLs and the
// per-tenant email templates and link targets.
type AuthConfig struct {
	// SecretKey signs session and verification tokens. Reset tokens use a
	// per-account derived secret instead.
	SecretKey string

	// Algorithm is the pinned JWT signing algorithm. Tokens presenting any
	// other algorithm are rejected on decode.
	Algorithm string

	// TokenTTL bounds the lifetime of session, verification and reset tokens.
	TokenTTL time.Duration

	// FingerprintCookie is the name of the session-binding cookie.
	FingerprintCookie string

	Tenants map[string]TenantConfig
}

// TenantConfig holds the per-service notification copy and link targets.
type TenantConfig struct {
	BaseURL                   string
	VerificationTemplate      string
	PasswordResetTemplate     string
	ResetConfirmationTemplate string
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		SecretKey:         getEnv("SECRET_KEY", ""),
		Algorithm:         getEnv("JWT_ALGORITHM", "HS256"),
		TokenTTL:          getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		FingerprintCookie: getEnv("FINGERPRINT_COOKIE", "__Secure-fgp"),
		Tenants: map[string]TenantConfig{
			"tourtracker": {
				BaseURL:                   getEnv("TOURTRACKER_BASE_URL", "https://tourtracker.tw-smith.me"),
				VerificationTemplate:      getEnv("TOURTRACKER_VERIFICATION_TEMPLATE", "tourtracker_verification"),
				PasswordResetTemplate:     getEnv("TOURTRACKER_PASSWORD_RESET_TEMPLATE", "tourtracker_password_reset"),
				ResetConfirmationTemplate: getEnv("TOURTRACKER_RESET_CONFIRMATION_TEMPLATE", "tourtracker_reset_confirmation"),
			},
			"arcade": {
				BaseURL:                   getEnv("ARCADE_BASE_URL", "https://arcade.tw-smith.me"),
				VerificationTemplate:      getEnv("ARCADE_VERIFICATION_TEMPLATE", "arcade_verification"),
				PasswordResetTemplate:     getEnv("ARCADE_PASSWORD_RESET_TEMPLATE", "arcade_password_reset"),
				ResetConfirmationTemplate: getEnv("ARCADE_RESET_CONFIRMATION_TEMPLATE", "arcade_reset_confirmation"),
			},
		},
	}
}

// Validate enforces the startup invariants of the credential engine.
func (c AuthConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("config: SECRET_KEY is required")
	}
	if len(c.SecretKey) < 32 {
		return fmt.Errorf("config: SECRET_KEY must be at least 32 bytes")
	}
	if c.Algorithm != "HS256" {
		return fmt.Errorf("config: unsupported JWT algorithm %q (only HS256 is supported)", c.Algorithm)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: ACCESS_TOKEN_TTL must be positive")
	}
	if len(c.Tenants) == 0 {
		return fmt.Errorf("config: at least one tenant must be configured")
	}
	return nil
}
