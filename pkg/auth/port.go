package auth

import (
	"context"

	"github.com/tw-smith/authserver/pkg/kernel"
)

// AccountStore persists accounts. Every lookup except FindByPublicID is
// scoped to a service tenant; the same email or username may exist under
// different tenants without conflict.
type AccountStore interface {
	// FindByPublicID returns the account with the given public identifier,
	// or nil when absent.
	FindByPublicID(ctx context.Context, publicID kernel.PublicID) (*Account, error)

	// FindByUsername returns the tenant's account with the given username,
	// or nil when absent.
	FindByUsername(ctx context.Context, service kernel.Service, username string) (*Account, error)

	// FindByEmail returns the tenant's account with the given email, or
	// nil when absent.
	FindByEmail(ctx context.Context, service kernel.Service, email string) (*Account, error)

	// Insert persists a new account and fills in the store-assigned ID.
	// A duplicate email or username within the tenant fails with the
	// conflict error; the uniqueness check and insert are atomic.
	Insert(ctx context.Context, account *Account) error

	// Update persists mutated account state by internal ID.
	Update(ctx context.Context, account *Account) error
}

// EmailDispatcher hands account emails off for delivery. Implementations
// must not block on the actual send; failures are delivery-side concerns
// and never abort the operation that triggered the email.
type EmailDispatcher interface {
	// DispatchVerification sends the address verification email carrying
	// the verify token.
	DispatchVerification(ctx context.Context, account *Account, token string) error

	// DispatchPasswordReset sends the reset email carrying the reset token.
	DispatchPasswordReset(ctx context.Context, account *Account, token string) error

	// DispatchResetConfirmation notifies the account that its password
	// was reset.
	DispatchResetConfirmation(ctx context.Context, account *Account) error
}
