package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tw-smith/authserver/pkg/errx"
	"github.com/tw-smith/authserver/pkg/kernel"
)

// TokenPurpose labels what a token is for. A token minted for one purpose
// never validates for another: each purpose pairs with its own signing
// secret and the purpose claim is checked on decode.
type TokenPurpose string

const (
	// PurposeSession authorises API access after login.
	PurposeSession TokenPurpose = "session"

	// PurposeVerify proves control of the signup email address.
	PurposeVerify TokenPurpose = "verify"

	// PurposeReset authorises a single password reset.
	PurposeReset TokenPurpose = "reset"
)

// Claims is the decoded payload of an issued token.
type Claims struct {
	// Subject is the account's public identifier.
	Subject kernel.PublicID

	// Service is the tenant the token was issued for.
	Service kernel.Service

	// Purpose is the token purpose claim.
	Purpose TokenPurpose

	// FingerprintHash is set on session tokens only. It is the hash of
	// the browser fingerprint cookie issued alongside the token.
	FingerprintHash string
}

// TokenCodec signs and verifies purpose-scoped JWTs. The signing algorithm
// is pinned at construction and enforced on both encode and decode.
type TokenCodec struct {
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewTokenCodec creates a codec for the given algorithm and token lifetime.
// Only HMAC algorithms are accepted.
func NewTokenCodec(algorithm string, ttl time.Duration) (*TokenCodec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, errx.Validation("unsupported signing algorithm: " + algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errx.Validation("signing algorithm must be HMAC-based: " + algorithm)
	}
	if ttl <= 0 {
		return nil, errx.Validation("token ttl must be positive")
	}

	return &TokenCodec{method: method, ttl: ttl}, nil
}

// TTL returns the lifetime applied to issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Encode signs the claims with the given secret. Expiry is always set by
// the codec; callers cannot mint longer-lived tokens.
func (c *TokenCodec) Encode(claims Claims, secret []byte) (string, error) {
	now := time.Now()

	payload := jwt.MapClaims{
		"sub":     claims.Subject.String(),
		"service": claims.Service.String(),
		"purpose": string(claims.Purpose),
		"iat":     now.Unix(),
		"exp":     now.Add(c.ttl).Unix(),
	}
	if claims.FingerprintHash != "" {
		payload["fgp_hash"] = claims.FingerprintHash
	}

	token := jwt.NewWithClaims(c.method, payload)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errx.Wrap(err, "failed to sign token", errx.TypeInternal)
	}

	return signed, nil
}

// Decode verifies signature, expiry and purpose, and returns the claims.
// An expired token maps to ErrTokenExpired; every other failure maps to
// ErrTokenInvalid so callers cannot distinguish forgery from corruption.
func (c *TokenCodec) Decode(tokenString string, secret []byte, expected TokenPurpose) (*Claims, error) {
	parsed, err := jwt.Parse(
		tokenString,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != c.method.Alg() {
				return nil, errors.New("unexpected signing method: " + t.Method.Alg())
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired()
		}
		return nil, ErrTokenInvalid()
	}

	payload, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid()
	}

	sub, _ := payload["sub"].(string)
	service, _ := payload["service"].(string)
	purpose, _ := payload["purpose"].(string)
	fgp, _ := payload["fgp_hash"].(string)

	if sub == "" || service == "" {
		return nil, ErrTokenInvalid()
	}
	if TokenPurpose(purpose) != expected {
		return nil, ErrTokenInvalid()
	}

	return &Claims{
		Subject:         kernel.NewPublicID(sub),
		Service:         kernel.Service(service),
		Purpose:         expected,
		FingerprintHash: fgp,
	}, nil
}
