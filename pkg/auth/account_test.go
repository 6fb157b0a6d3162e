package auth_test

import (
	"testing"

	"github.com/tw-smith/authserver/pkg/auth"
	"github.com/tw-smith/authserver/pkg/kernel"
)

func TestNewAccount(t *testing.T) {
	a := auth.NewAccount(kernel.ServiceTourTracker, "bob@example.com", "bob", "hash")

	if a.PublicID.IsEmpty() {
		t.Fatal("expected public id to be generated")
	}
	if a.Verified {
		t.Fatal("new account must start unverified")
	}
	if a.PasswordLocked {
		t.Fatal("new account must start unlocked")
	}
	if a.CreatedAt == 0 {
		t.Fatal("expected creation time to be set")
	}
	if a.Service != kernel.ServiceTourTracker {
		t.Fatalf("service = %q", a.Service)
	}
}

func TestNewAccount_DistinctPublicIDs(t *testing.T) {
	a := auth.NewAccount(kernel.ServiceArcade, "a@example.com", "a", "hash")
	b := auth.NewAccount(kernel.ServiceArcade, "b@example.com", "b", "hash")

	if a.PublicID == b.PublicID {
		t.Fatal("expected distinct public ids")
	}
}

func TestAccount_CanLogin(t *testing.T) {
	a := auth.NewAccount(kernel.ServiceArcade, "bob@example.com", "bob", "hash")

	if a.CanLogin() {
		t.Fatal("unverified account must not log in")
	}

	a.MarkVerified()
	if !a.CanLogin() {
		t.Fatal("verified unlocked account must log in")
	}

	a.Lock()
	if a.CanLogin() {
		t.Fatal("locked account must not log in")
	}

	a.CompleteReset("new-hash")
	if !a.CanLogin() {
		t.Fatal("completed reset must unlock the account")
	}
	if a.PasswordHash != "new-hash" {
		t.Fatalf("password hash = %q", a.PasswordHash)
	}
}

func TestAccount_MarkVerifiedIsIdempotent(t *testing.T) {
	a := auth.NewAccount(kernel.ServiceArcade, "bob@example.com", "bob", "hash")

	a.MarkVerified()
	a.MarkVerified()
	if !a.Verified {
		t.Fatal("expected account to stay verified")
	}
}
