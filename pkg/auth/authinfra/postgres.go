// Package authinfra provides the persistence adapters behind the account
// store port: a Postgres implementation for production and an in-memory
// implementation for tests and local development.
package authinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/tw-smith/authserver/pkg/auth"
	"github.com/tw-smith/authserver/pkg/errx"
	"github.com/tw-smith/authserver/pkg/kernel"
)

// uniqueViolation is the Postgres error code for unique constraint hits.
const uniqueViolation = "23505"

// PostgresAccountStore implements auth.AccountStore on Postgres.
type PostgresAccountStore struct {
	db *sqlx.DB
}

// NewPostgresAccountStore creates a store over an open connection pool.
func NewPostgresAccountStore(db *sqlx.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

// accountRow is the persistence shape of an account.
type accountRow struct {
	ID             int64  `db:"id"`
	PublicID       string `db:"public_id"`
	Email          string `db:"email"`
	Username       string `db:"username"`
	PasswordHash   string `db:"password_hash"`
	Verified       bool   `db:"verified"`
	PasswordLocked bool   `db:"password_locked"`
	CreatedAt      int64  `db:"created_at"`
	Service        string `db:"service"`
}

func (r *accountRow) toAccount() *auth.Account {
	return &auth.Account{
		ID:             r.ID,
		PublicID:       kernel.NewPublicID(r.PublicID),
		Email:          r.Email,
		Username:       r.Username,
		PasswordHash:   r.PasswordHash,
		Verified:       r.Verified,
		PasswordLocked: r.PasswordLocked,
		CreatedAt:      r.CreatedAt,
		Service:        kernel.NewService(r.Service),
	}
}

const accountColumns = `id, public_id, email, username, password_hash, verified, password_locked, created_at, service`

// FindByPublicID returns the account with the given public identifier.
func (s *PostgresAccountStore) FindByPublicID(ctx context.Context, publicID kernel.PublicID) (*auth.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE public_id = $1`
	return s.findOne(ctx, query, publicID.String())
}

// FindByUsername returns the tenant's account with the given username.
func (s *PostgresAccountStore) FindByUsername(ctx context.Context, service kernel.Service, username string) (*auth.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE service = $1 AND username = $2`
	return s.findOne(ctx, query, service.String(), username)
}

// FindByEmail returns the tenant's account with the given email.
func (s *PostgresAccountStore) FindByEmail(ctx context.Context, service kernel.Service, email string) (*auth.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE service = $1 AND email = $2`
	return s.findOne(ctx, query, service.String(), email)
}

func (s *PostgresAccountStore) findOne(ctx context.Context, query string, args ...interface{}) (*auth.Account, error) {
	var row accountRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to query account", errx.TypeInternal)
	}
	return row.toAccount(), nil
}

// Insert persists a new account. The table's unique indexes make the
// duplicate check atomic with the insert.
func (s *PostgresAccountStore) Insert(ctx context.Context, account *auth.Account) error {
	query := `
		INSERT INTO accounts (public_id, email, username, password_hash, verified, password_locked, created_at, service)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := s.db.QueryRowxContext(ctx, query,
		account.PublicID.String(),
		account.Email,
		account.Username,
		account.PasswordHash,
		account.Verified,
		account.PasswordLocked,
		account.CreatedAt,
		account.Service.String(),
	).Scan(&account.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return auth.ErrConflict()
		}
		return errx.Wrap(err, "failed to insert account", errx.TypeInternal)
	}

	return nil
}

// Update persists mutated account state.
func (s *PostgresAccountStore) Update(ctx context.Context, account *auth.Account) error {
	query := `
		UPDATE accounts
		SET email = $1, username = $2, password_hash = $3, verified = $4, password_locked = $5
		WHERE id = $6`

	result, err := s.db.ExecContext(ctx, query,
		account.Email,
		account.Username,
		account.PasswordHash,
		account.Verified,
		account.PasswordLocked,
		account.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return auth.ErrConflict()
		}
		return errx.Wrap(err, "failed to update account", errx.TypeInternal)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to read update result", errx.TypeInternal)
	}
	if affected == 0 {
		return auth.ErrAccountNotFound()
	}

	return nil
}
