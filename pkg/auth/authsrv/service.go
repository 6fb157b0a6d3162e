// Package authsrv implements the credential and account lifecycle
// operations behind the HTTP surface: signup, email verification, login,
// password change and password reset.
package authsrv

import (
	"context"

	"github.com/tw-smith/authserver/pkg/asyncx"
	"github.com/tw-smith/authserver/pkg/auth"
	"github.com/tw-smith/authserver/pkg/kernel"
	"github.com/tw-smith/authserver/pkg/logx"
)

// AuthService orchestrates accounts, credentials and tokens for all
// tenants. All methods are safe for concurrent use.
type AuthService struct {
	store      auth.AccountStore
	hasher     auth.PasswordHasher
	codec      *auth.TokenCodec
	secrets    *auth.SecretDeriver
	dispatcher auth.EmailDispatcher
	tenants    auth.TenantRegistry
}

// NewAuthService wires the service from its collaborators.
func NewAuthService(
	store auth.AccountStore,
	hasher auth.PasswordHasher,
	codec *auth.TokenCodec,
	secrets *auth.SecretDeriver,
	dispatcher auth.EmailDispatcher,
	tenants auth.TenantRegistry,
) *AuthService {
	return &AuthService{
		store:      store,
		hasher:     hasher,
		codec:      codec,
		secrets:    secrets,
		dispatcher: dispatcher,
		tenants:    tenants,
	}
}

// LoginResult is the outcome of a successful login: the bearer token and
// the fingerprint whose raw value must travel back as a cookie.
type LoginResult struct {
	Token       string
	Fingerprint *auth.Fingerprint
	Account     *auth.Account
}

// Signup registers a new unverified account and dispatches the
// verification email. The email leaves asynchronously; a delivery failure
// is logged but never fails the signup.
func (s *AuthService) Signup(ctx context.Context, service kernel.Service, email, username, password string) (*auth.Account, error) {
	if _, err := s.tenants.Lookup(service); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account := auth.NewAccount(service, email, username, hash)

	if err := s.store.Insert(ctx, account); err != nil {
		return nil, err
	}

	token, err := s.codec.Encode(auth.Claims{
		Subject: account.PublicID,
		Service: account.Service,
		Purpose: auth.PurposeVerify,
	}, s.secrets.SessionSecret())
	if err != nil {
		return nil, err
	}

	s.dispatch(account, "verification", func(ctx context.Context) error {
		return s.dispatcher.DispatchVerification(ctx, account, token)
	})

	logx.WithFields(logx.Fields{
		"service":   account.Service.String(),
		"public_id": account.PublicID.String(),
	}).Info("account created")

	return account, nil
}

// VerifyEmail validates a verification token and marks the account
// verified. Verifying an already-verified account succeeds.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*auth.Account, error) {
	claims, err := s.codec.Decode(token, s.secrets.SessionSecret(), auth.PurposeVerify)
	if err != nil {
		return nil, err
	}

	account, err := s.store.FindByPublicID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if account == nil || account.Service != claims.Service {
		return nil, auth.ErrVerificationFailed()
	}

	if !account.Verified {
		account.MarkVerified()
		if err := s.store.Update(ctx, account); err != nil {
			return nil, err
		}
	}

	logx.WithFields(logx.Fields{
		"service":   account.Service.String(),
		"public_id": account.PublicID.String(),
	}).Info("account verified")

	return account, nil
}

// Login checks credentials and account state and issues a session token
// bound to a fresh browser fingerprint. Unknown usernames and wrong
// passwords produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, service kernel.Service, username, password string) (*LoginResult, error) {
	if _, err := s.tenants.Lookup(service); err != nil {
		return nil, err
	}

	account, err := s.store.FindByUsername(ctx, service, username)
	if err != nil {
		return nil, err
	}
	if account == nil || !s.hasher.Verify(account.PasswordHash, password) {
		return nil, auth.ErrInvalidCredentials()
	}

	if !account.Verified {
		return nil, auth.ErrNotVerified()
	}
	if account.PasswordLocked {
		return nil, auth.ErrAccountLocked()
	}

	fingerprint, err := auth.GenerateFingerprint(s.hasher)
	if err != nil {
		return nil, err
	}

	token, err := s.codec.Encode(auth.Claims{
		Subject:         account.PublicID,
		Service:         account.Service,
		Purpose:         auth.PurposeSession,
		FingerprintHash: fingerprint.Hash,
	}, s.secrets.SessionSecret())
	if err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"service":   account.Service.String(),
		"public_id": account.PublicID.String(),
	}).Info("session issued")

	return &LoginResult{Token: token, Fingerprint: fingerprint, Account: account}, nil
}

// ChangePassword replaces the password after re-checking the current one.
// Unknown usernames and wrong passwords produce the same error, and the
// account state is not consulted: an unverified or locked account may
// still change its password. Outstanding reset tokens stop validating
// because the reset secret derives from the stored hash.
func (s *AuthService) ChangePassword(ctx context.Context, service kernel.Service, username, oldPassword, newPassword string) error {
	if _, err := s.tenants.Lookup(service); err != nil {
		return err
	}

	account, err := s.store.FindByUsername(ctx, service, username)
	if err != nil {
		return err
	}
	if account == nil || !s.hasher.Verify(account.PasswordHash, oldPassword) {
		return auth.ErrInvalidCredentials()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	account.SetPassword(hash)
	if err := s.store.Update(ctx, account); err != nil {
		return err
	}

	logx.WithFields(logx.Fields{
		"service":   account.Service.String(),
		"public_id": account.PublicID.String(),
	}).Info("password changed")

	return nil
}

// RequestPasswordReset locks the account and dispatches the reset email.
// An unknown email still acknowledges success so the endpoint cannot be
// used to probe which addresses are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, service kernel.Service, email string) error {
	if _, err := s.tenants.Lookup(service); err != nil {
		return err
	}

	account, err := s.store.FindByEmail(ctx, service, email)
	if err != nil {
		return err
	}
	if account == nil {
		logx.WithField("service", service.String()).Info("password reset requested for unknown email")
		return nil
	}

	account.Lock()
	if err := s.store.Update(ctx, account); err != nil {
		return err
	}

	token, err := s.codec.Encode(auth.Claims{
		Subject: account.PublicID,
		Service: account.Service,
		Purpose: auth.PurposeReset,
	}, s.secrets.ResetSecret(account))
	if err != nil {
		return err
	}

	s.dispatch(account, "password reset", func(ctx context.Context) error {
		return s.dispatcher.DispatchPasswordReset(ctx, account, token)
	})

	logx.WithFields(logx.Fields{
		"service":   account.Service.String(),
		"public_id": account.PublicID.String(),
	}).Info("password reset requested")

	return nil
}

// PerformPasswordReset consumes a reset token and sets the new password.
// The token is verified against a secret recomputed from the account's
// current state, so it stops validating the moment the hash changes.
func (s *AuthService) PerformPasswordReset(ctx context.Context, service kernel.Service, username, token, newPassword string) error {
	if _, err := s.tenants.Lookup(service); err != nil {
		return err
	}

	account, err := s.store.FindByUsername(ctx, service, username)
	if err != nil {
		return err
	}
	if account == nil {
		return auth.ErrAccountNotFound()
	}

	claims, err := s.codec.Decode(token, s.secrets.ResetSecret(account), auth.PurposeReset)
	if err != nil {
		return err
	}
	if claims.Subject != account.PublicID || claims.Service != account.Service {
		return auth.ErrVerificationFailed()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	account.CompleteReset(hash)
	if err := s.store.Update(ctx, account); err != nil {
		return err
	}

	s.dispatch(account, "reset confirmation", func(ctx context.Context) error {
		return s.dispatcher.DispatchResetConfirmation(ctx, account)
	})

	logx.WithFields(logx.Fields{
		"service":   account.Service.String(),
		"public_id": account.PublicID.String(),
	}).Info("password reset completed")

	return nil
}

// Authenticate validates a session token and its fingerprint cookie and
// resolves the account behind them. Middleware calls this on every
// protected request.
func (s *AuthService) Authenticate(ctx context.Context, token, rawFingerprint string) (*kernel.AuthContext, error) {
	claims, err := s.codec.Decode(token, s.secrets.SessionSecret(), auth.PurposeSession)
	if err != nil {
		return nil, err
	}

	if !auth.MatchFingerprint(s.hasher, claims.FingerprintHash, rawFingerprint) {
		return nil, auth.ErrFingerprintMismatch()
	}

	account, err := s.store.FindByPublicID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if account == nil || account.Service != claims.Service {
		return nil, auth.ErrInvalidCredentials()
	}
	if !account.CanLogin() {
		return nil, auth.ErrInvalidCredentials()
	}

	return &kernel.AuthContext{
		PublicID: account.PublicID,
		Service:  account.Service,
		Username: account.Username,
	}, nil
}

// dispatch fires an email send without holding the request open. The
// enqueue runs against a fresh context so request cancellation cannot
// drop the email.
func (s *AuthService) dispatch(account *auth.Account, kind string, send func(context.Context) error) {
	asyncx.Do(func() {
		if err := send(context.Background()); err != nil {
			logx.WithError(err).WithFields(logx.Fields{
				"service":   account.Service.String(),
				"public_id": account.PublicID.String(),
				"kind":      kind,
			}).Error("failed to dispatch account email")
		}
	})
}
