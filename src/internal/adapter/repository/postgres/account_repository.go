package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/api-sage/pin-ledger/src/internal/logger"
)

type AccountRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("account repository create", logger.Fields{
		"username": account.Username,
		"email":    account.Email,
	})

	const query = `
INSERT INTO accounts (
	username,
	email,
	password_hash,
	pin_hash
) VALUES ($1, $2, $3, $4)
RETURNING username, email, password_hash, pin_hash, balance, created_at, updated_at`

	created, err := scanAccount(r.db.QueryRowContext(
		ctx,
		query,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.PinHash,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, fmt.Errorf("create account: %w", domain.ErrConflict)
		}
		logger.Error("account repository create failed", err, logger.Fields{"username": account.Username})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	return created, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	const query = `
SELECT username, email, password_hash, pin_hash, balance, created_at, updated_at
FROM accounts
WHERE username = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrRecordNotFound
		}
		return domain.Account{}, fmt.Errorf("get account by username: %w", err)
	}

	return account, nil
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.PinHash,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}
