package authsrv_test

import (
	"context"
	"testing"
	"time"

	"github.com/tw-smith/authserver/pkg/auth"
	"github.com/tw-smith/authserver/pkg/auth/authinfra"
	"github.com/tw-smith/authserver/pkg/auth/authsrv"
	"github.com/tw-smith/authserver/pkg/errx"
	"github.com/tw-smith/authserver/pkg/kernel"
)

// fakeHasher keeps orchestration tests fast; the real argon2 hasher is
// covered by its own tests.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "h:" + password, nil }
func (fakeHasher) Verify(hash, password string) bool    { return hash == "h:"+password }

type dispatched struct {
	kind    string
	account *auth.Account
	token   string
}

// chanDispatcher reports each dispatch on a channel so tests can observe
// the fire-and-forget email sends.
type chanDispatcher struct {
	ch chan dispatched
}

func newChanDispatcher() *chanDispatcher {
	return &chanDispatcher{ch: make(chan dispatched, 16)}
}

func (d *chanDispatcher) DispatchVerification(_ context.Context, account *auth.Account, token string) error {
	d.ch <- dispatched{kind: "verification", account: account, token: token}
	return nil
}

func (d *chanDispatcher) DispatchPasswordReset(_ context.Context, account *auth.Account, token string) error {
	d.ch <- dispatched{kind: "reset", account: account, token: token}
	return nil
}

func (d *chanDispatcher) DispatchResetConfirmation(_ context.Context, account *auth.Account) error {
	d.ch <- dispatched{kind: "confirmation", account: account}
	return nil
}

func (d *chanDispatcher) wait(t *testing.T, kind string) dispatched {
	t.Helper()
	select {
	case got := <-d.ch:
		if got.kind != kind {
			t.Fatalf("dispatched %q email, want %q", got.kind, kind)
		}
		return got
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q email", kind)
		return dispatched{}
	}
}

func (d *chanDispatcher) expectNone(t *testing.T) {
	t.Helper()
	select {
	case got := <-d.ch:
		t.Fatalf("unexpected %q email dispatched", got.kind)
	case <-time.After(100 * time.Millisecond):
	}
}

type fixture struct {
	svc        *authsrv.AuthService
	store      *authinfra.MemoryAccountStore
	dispatcher *chanDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec, err := auth.NewTokenCodec("HS256", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenCodec returned error: %v", err)
	}

	tenants := auth.TenantRegistry{
		kernel.ServiceTourTracker: {
			Service:                   kernel.ServiceTourTracker,
			BaseURL:                   "https://tourtracker.example.com",
			VerificationTemplate:      "tt_verification",
			PasswordResetTemplate:     "tt_password_reset",
			ResetConfirmationTemplate: "tt_reset_confirmation",
		},
		kernel.ServiceArcade: {
			Service:                   kernel.ServiceArcade,
			BaseURL:                   "https://arcade.example.com",
			VerificationTemplate:      "ar_verification",
			PasswordResetTemplate:     "ar_password_reset",
			ResetConfirmationTemplate: "ar_reset_confirmation",
		},
	}

	store := authinfra.NewMemoryAccountStore()
	dispatcher := newChanDispatcher()
	secrets := auth.NewSecretDeriver("unit-test-secret-key-thirty-two!!")

	return &fixture{
		svc:        authsrv.NewAuthService(store, fakeHasher{}, codec, secrets, dispatcher, tenants),
		store:      store,
		dispatcher: dispatcher,
	}
}

// signupVerified registers an account and walks it through email
// verification.
func (f *fixture) signupVerified(t *testing.T, service kernel.Service, email, username, password string) *auth.Account {
	t.Helper()

	ctx := context.Background()
	if _, err := f.svc.Signup(ctx, service, email, username, password); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	got := f.dispatcher.wait(t, "verification")
	account, err := f.svc.VerifyEmail(ctx, got.token)
	if err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	return account
}

func TestSignup_DispatchesVerificationEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.svc.Signup(ctx, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw")
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if account.Verified {
		t.Fatal("new account must start unverified")
	}

	got := f.dispatcher.wait(t, "verification")
	if got.account.PublicID != account.PublicID {
		t.Fatal("verification email sent for the wrong account")
	}
	if got.token == "" {
		t.Fatal("verification email must carry a token")
	}
}

func TestSignup_UnknownService(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Signup(context.Background(), kernel.NewService("nonesuch"), "bob@example.com", "bob", "pw")
	if !errx.IsCode(err, auth.CodeUnknownService) {
		t.Fatalf("expected unknown service error, got %v", err)
	}
}

func TestSignup_DuplicateWithinTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Signup(ctx, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	_, err := f.svc.Signup(ctx, kernel.ServiceTourTracker, "bob@example.com", "other", "pw")
	if !errx.IsCode(err, auth.CodeConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	_, err = f.svc.Signup(ctx, kernel.ServiceTourTracker, "other@example.com", "bob", "pw")
	if !errx.IsCode(err, auth.CodeConflict) {
		t.Fatalf("expected conflict for duplicate username, got %v", err)
	}
}

func TestSignup_SameIdentityAcrossTenants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Signup(ctx, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if _, err := f.svc.Signup(ctx, kernel.ServiceArcade, "bob@example.com", "bob", "pw"); err != nil {
		t.Fatalf("expected same identity to register under another tenant, got %v", err)
	}
}

func TestVerifyEmail_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Signup(ctx, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	got := f.dispatcher.wait(t, "verification")

	for i := 0; i < 2; i++ {
		account, err := f.svc.VerifyEmail(ctx, got.token)
		if err != nil {
			t.Fatalf("VerifyEmail attempt %d returned error: %v", i+1, err)
		}
		if !account.Verified {
			t.Fatal("expected account to be verified")
		}
	}
}

func TestVerifyEmail_GarbageToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.VerifyEmail(context.Background(), "garbage")
	if !errx.IsCode(err, auth.CodeTokenInvalid) {
		t.Fatalf("expected token invalid error, got %v", err)
	}
}

func TestVerifyEmail_SessionTokenRejected(t *testing.T) {
	f := newFixture(t)
	f.signupVerified(t, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw")

	result, err := f.svc.Login(context.Background(), kernel.ServiceTourTracker, "bob", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	_, err = f.svc.VerifyEmail(context.Background(), result.Token)
	if !errx.IsCode(err, auth.CodeTokenInvalid) {
		t.Fatalf("expected session token to be rejected for verification, got %v", err)
	}
}

func TestLogin_BeforeVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Signup(ctx, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	_, err := f.svc.Login(ctx, kernel.ServiceTourTracker, "bob", "pw")
	if !errx.IsCode(err, auth.CodeNotVerified) {
		t.Fatalf("expected not verified error, got %v", err)
	}
}

func TestLogin_IndistinguishableFailures(t *testing.T) {
	f := newFixture(t)
	f.signupVerified(t, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw")
	ctx := context.Background()

	_, unknownErr := f.svc.Login(ctx, kernel.ServiceTourTracker, "nonesuch", "pw")
	_, wrongPwErr := f.svc.Login(ctx, kernel.ServiceTourTracker, "bob", "wrong")

	if !errx.IsCode(unknownErr, auth.CodeInvalidCredentials) {
		t.Fatalf("unknown user error = %v", unknownErr)
	}
	if !errx.IsCode(wrongPwErr, auth.CodeInvalidCredentials) {
		t.Fatalf("wrong password error = %v", wrongPwErr)
	}
	if unknownErr.Error() != wrongPwErr.Error() {
		t.Fatal("unknown-user and wrong-password failures must be indistinguishable")
	}
}

func TestLogin_ScopedToTenant(t *testing.T) {
	f := newFixture(t)
	f.signupVerified(t, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw")

	_, err := f.svc.Login(context.Background(), kernel.ServiceArcade, "bob", "pw")
	if !errx.IsCode(err, auth.CodeInvalidCredentials) {
		t.Fatalf("expected credentials from another tenant to fail, got %v", err)
	}
}

func TestLogin_IssuesSessionBoundToFingerprint(t *testing.T) {
	f := newFixture(t)
	f.signupVerified(t, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw")
	ctx := context.Background()

	result, err := f.svc.Login(ctx, kernel.ServiceTourTracker, "bob", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Token == "" || result.Fingerprint.Raw == "" {
		t.Fatal("expected both session token and fingerprint")
	}

	authCtx, err := f.svc.Authenticate(ctx, result.Token, result.Fingerprint.Raw)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if authCtx.Username != "bob" || authCtx.Service != kernel.ServiceTourTracker {
		t.Fatalf("unexpected auth context: %+v", authCtx)
	}

	_, err = f.svc.Authenticate(ctx, result.Token, "stolen-or-missing-cookie")
	if !errx.IsCode(err, auth.CodeFingerprintMismatch) {
		t.Fatalf("expected fingerprint mismatch, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.signupVerified(t, kernel.ServiceTourTracker, "bob@example.com", "bob", "old-pw")
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, kernel.ServiceTourTracker, "bob", "wrong", "new-pw")
	if !errx.IsCode(err, auth.CodeInvalidCredentials) {
		t.Fatalf("expected invalid credentials for wrong old password, got %v", err)
	}

	if err := f.svc.ChangePassword(ctx, kernel.ServiceTourTracker, "bob", "old-pw", "new-pw"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if _, err := f.svc.Login(ctx, kernel.ServiceTourTracker, "bob", "old-pw"); err == nil {
		t.Fatal("expected old password to stop working")
	}
	if _, err := f.svc.Login(ctx, kernel.ServiceTourTracker, "bob", "new-pw"); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}
}

func TestChangePassword_IndistinguishableFailures(t *testing.T) {
	f := newFixture(t)
	f.signupVerified(t, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw")
	ctx := context.Background()

	unknownErr := f.svc.ChangePassword(ctx, kernel.ServiceTourTracker, "nonesuch", "pw", "new-pw")
	wrongPwErr := f.svc.ChangePassword(ctx, kernel.ServiceTourTracker, "bob", "wrong", "new-pw")

	if !errx.IsCode(unknownErr, auth.CodeInvalidCredentials) {
		t.Fatalf("unknown username error = %v", unknownErr)
	}
	if !errx.IsCode(wrongPwErr, auth.CodeInvalidCredentials) {
		t.Fatalf("wrong password error = %v", wrongPwErr)
	}
	if unknownErr.Error() != wrongPwErr.Error() {
		t.Fatal("unknown-username and wrong-password failures must be indistinguishable")
	}
}

func TestChangePassword_IgnoresAccountState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Unverified accounts cannot log in but may still change their password.
	if _, err := f.svc.Signup(ctx, kernel.ServiceTourTracker, "bob@example.com", "bob", "old-pw"); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	got := f.dispatcher.wait(t, "verification")

	if err := f.svc.ChangePassword(ctx, kernel.ServiceTourTracker, "bob", "old-pw", "new-pw"); err != nil {
		t.Fatalf("ChangePassword for unverified account returned error: %v", err)
	}

	if _, err := f.svc.VerifyEmail(ctx, got.token); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	if _, err := f.svc.Login(ctx, kernel.ServiceTourTracker, "bob", "new-pw"); err != nil {
		t.Fatalf("expected new password to work after verification, got %v", err)
	}
}

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), kernel.ServiceTourTracker, "nonesuch@example.com")
	if err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	f.dispatcher.expectNone(t)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	f.signupVerified(t, kernel.ServiceTourTracker, "bob@example.com", "bob", "old-pw")
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, kernel.ServiceTourTracker, "bob@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset returned error: %v", err)
	}
	got := f.dispatcher.wait(t, "reset")

	// The request locks the account.
	if _, err := f.svc.Login(ctx, kernel.ServiceTourTracker, "bob", "old-pw"); !errx.IsCode(err, auth.CodeAccountLocked) {
		t.Fatalf("expected locked account, got %v", err)
	}

	if err := f.svc.PerformPasswordReset(ctx, kernel.ServiceTourTracker, "bob", got.token, "new-pw"); err != nil {
		t.Fatalf("PerformPasswordReset returned error: %v", err)
	}
	f.dispatcher.wait(t, "confirmation")

	if _, err := f.svc.Login(ctx, kernel.ServiceTourTracker, "bob", "new-pw"); err != nil {
		t.Fatalf("expected login with new password, got %v", err)
	}

	// The consumed token verifies against state that no longer exists.
	err := f.svc.PerformPasswordReset(ctx, kernel.ServiceTourTracker, "bob", got.token, "again")
	if err == nil {
		t.Fatal("expected consumed reset token to be rejected")
	}
}

func TestPerformPasswordReset_TokenInvalidatedByPasswordChange(t *testing.T) {
	f := newFixture(t)
	f.signupVerified(t, kernel.ServiceTourTracker, "bob@example.com", "bob", "old-pw")
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, kernel.ServiceTourTracker, "bob@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset returned error: %v", err)
	}
	got := f.dispatcher.wait(t, "reset")

	// A password change rotates the reset secret under the pending token.
	if err := f.svc.ChangePassword(ctx, kernel.ServiceTourTracker, "bob", "old-pw", "changed-pw"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	err := f.svc.PerformPasswordReset(ctx, kernel.ServiceTourTracker, "bob", got.token, "new-pw")
	if err == nil {
		t.Fatal("expected stale reset token to be rejected")
	}
}

func TestPerformPasswordReset_UnknownUsername(t *testing.T) {
	f := newFixture(t)

	err := f.svc.PerformPasswordReset(context.Background(), kernel.ServiceTourTracker, "nonesuch", "token", "pw")
	if !errx.IsCode(err, auth.CodeAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestAuthenticate_LockedAccountRejected(t *testing.T) {
	f := newFixture(t)
	f.signupVerified(t, kernel.ServiceTourTracker, "bob@example.com", "bob", "pw")
	ctx := context.Background()

	result, err := f.svc.Login(ctx, kernel.ServiceTourTracker, "bob", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := f.svc.RequestPasswordReset(ctx, kernel.ServiceTourTracker, "bob@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset returned error: %v", err)
	}
	f.dispatcher.wait(t, "reset")

	// Sessions issued before the lock stop authenticating.
	if _, err := f.svc.Authenticate(ctx, result.Token, result.Fingerprint.Raw); err == nil {
		t.Fatal("expected locked account session to be rejected")
	}
}
