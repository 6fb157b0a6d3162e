package authinfra_test

import (
	"context"
	"testing"

	"github.com/tw-smith/authserver/pkg/auth"
	"github.com/tw-smith/authserver/pkg/auth/authinfra"
	"github.com/tw-smith/authserver/pkg/errx"
	"github.com/tw-smith/authserver/pkg/kernel"
)

func TestMemoryAccountStore_InsertAndFind(t *testing.T) {
	store := authinfra.NewMemoryAccountStore()
	ctx := context.Background()

	account := auth.NewAccount(kernel.ServiceTourTracker, "bob@example.com", "bob", "hash")
	if err := store.Insert(ctx, account); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if account.ID == 0 {
		t.Fatal("expected store to assign an id")
	}

	byPublicID, err := store.FindByPublicID(ctx, account.PublicID)
	if err != nil {
		t.Fatalf("FindByPublicID returned error: %v", err)
	}
	if byPublicID == nil || byPublicID.Username != "bob" {
		t.Fatalf("FindByPublicID = %+v", byPublicID)
	}

	byUsername, err := store.FindByUsername(ctx, kernel.ServiceTourTracker, "bob")
	if err != nil {
		t.Fatalf("FindByUsername returned error: %v", err)
	}
	if byUsername == nil || byUsername.ID != account.ID {
		t.Fatalf("FindByUsername = %+v", byUsername)
	}

	byEmail, err := store.FindByEmail(ctx, kernel.ServiceTourTracker, "bob@example.com")
	if err != nil {
		t.Fatalf("FindByEmail returned error: %v", err)
	}
	if byEmail == nil || byEmail.ID != account.ID {
		t.Fatalf("FindByEmail = %+v", byEmail)
	}
}

func TestMemoryAccountStore_MissingLookupsReturnNil(t *testing.T) {
	store := authinfra.NewMemoryAccountStore()
	ctx := context.Background()

	if a, err := store.FindByPublicID(ctx, kernel.NewPublicID("nonesuch")); err != nil || a != nil {
		t.Fatalf("FindByPublicID = %+v, %v", a, err)
	}
	if a, err := store.FindByUsername(ctx, kernel.ServiceArcade, "nonesuch"); err != nil || a != nil {
		t.Fatalf("FindByUsername = %+v, %v", a, err)
	}
	if a, err := store.FindByEmail(ctx, kernel.ServiceArcade, "nonesuch@example.com"); err != nil || a != nil {
		t.Fatalf("FindByEmail = %+v, %v", a, err)
	}
}

func TestMemoryAccountStore_UniquenessPerTenant(t *testing.T) {
	store := authinfra.NewMemoryAccountStore()
	ctx := context.Background()

	if err := store.Insert(ctx, auth.NewAccount(kernel.ServiceTourTracker, "bob@example.com", "bob", "hash")); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	err := store.Insert(ctx, auth.NewAccount(kernel.ServiceTourTracker, "bob@example.com", "other", "hash"))
	if !errx.IsCode(err, auth.CodeConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	err = store.Insert(ctx, auth.NewAccount(kernel.ServiceTourTracker, "other@example.com", "bob", "hash"))
	if !errx.IsCode(err, auth.CodeConflict) {
		t.Fatalf("expected conflict for duplicate username, got %v", err)
	}

	// Another tenant may reuse the identity.
	if err := store.Insert(ctx, auth.NewAccount(kernel.ServiceArcade, "bob@example.com", "bob", "hash")); err != nil {
		t.Fatalf("expected cross-tenant insert to succeed, got %v", err)
	}
}

func TestMemoryAccountStore_Update(t *testing.T) {
	store := authinfra.NewMemoryAccountStore()
	ctx := context.Background()

	account := auth.NewAccount(kernel.ServiceTourTracker, "bob@example.com", "bob", "hash")
	if err := store.Insert(ctx, account); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	account.MarkVerified()
	if err := store.Update(ctx, account); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	stored, err := store.FindByPublicID(ctx, account.PublicID)
	if err != nil {
		t.Fatalf("FindByPublicID returned error: %v", err)
	}
	if !stored.Verified {
		t.Fatal("expected update to persist")
	}
}

func TestMemoryAccountStore_UpdateUnknownAccount(t *testing.T) {
	store := authinfra.NewMemoryAccountStore()

	account := auth.NewAccount(kernel.ServiceTourTracker, "bob@example.com", "bob", "hash")
	account.ID = 42

	err := store.Update(context.Background(), account)
	if !errx.IsCode(err, auth.CodeAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestMemoryAccountStore_ReturnsCopies(t *testing.T) {
	store := authinfra.NewMemoryAccountStore()
	ctx := context.Background()

	account := auth.NewAccount(kernel.ServiceTourTracker, "bob@example.com", "bob", "hash")
	if err := store.Insert(ctx, account); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	first, _ := store.FindByPublicID(ctx, account.PublicID)
	first.Username = "mutated"

	second, _ := store.FindByPublicID(ctx, account.PublicID)
	if second.Username != "bob" {
		t.Fatal("expected the store to return defensive copies")
	}
}
