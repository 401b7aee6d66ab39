package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/api-sage/pin-ledger/src/internal/logger"
	"github.com/shopspring/decimal"
)

// LedgerStore maps each unit of work onto one database transaction. Account
// rows are locked with SELECT ... FOR UPDATE in username order.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("ledger store begin tx failed", err, nil)
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(ctx, &ledgerTx{tx: sqlTx, locked: make(map[string]bool)}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		logger.Error("ledger store commit tx failed", err, nil)
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx     *sql.Tx
	locked map[string]bool
}

func (t *ledgerTx) LockAccounts(ctx context.Context, usernames ...string) (map[string]domain.Account, error) {
	if len(t.locked) > 0 {
		return nil, errors.New("lock accounts: locks already held in this transaction")
	}

	const query = `
SELECT username, email, password_hash, pin_hash, balance, created_at, updated_at
FROM accounts
WHERE username = $1
FOR UPDATE`

	ordered := uniqueSorted(usernames)
	out := make(map[string]domain.Account, len(ordered))
	for _, username := range ordered {
		account, err := scanAccount(t.tx.QueryRowContext(ctx, query, username))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("lock account %q: %w", username, domain.ErrRecordNotFound)
			}
			return nil, fmt.Errorf("lock account %q: %w", username, err)
		}
		t.locked[username] = true
		out[username] = account
	}
	return out, nil
}

func (t *ledgerTx) AdjustBalance(ctx context.Context, username string, delta decimal.Decimal) (decimal.Decimal, error) {
	if !t.locked[username] {
		return decimal.Zero, fmt.Errorf("adjust balance: account %q is not locked", username)
	}

	const query = `
UPDATE accounts
SET balance = balance + $2::numeric,
    updated_at = NOW()
WHERE username = $1
  AND balance + $2::numeric >= 0
RETURNING balance`

	var balance decimal.Decimal
	if err := t.tx.QueryRowContext(ctx, query, username, delta).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isCheckViolation(err) {
			return decimal.Zero, domain.ErrInsufficientBalance
		}
		return decimal.Zero, fmt.Errorf("adjust balance: %w", err)
	}
	return balance, nil
}

func (t *ledgerTx) Append(ctx context.Context, record domain.Transaction) (int64, error) {
	if !t.locked[record.Username] {
		return 0, fmt.Errorf("append transaction: account %q is not locked", record.Username)
	}

	const query = `
INSERT INTO transactions (
	reference,
	username,
	type,
	amount,
	balance,
	counterparty,
	note,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

	var counterparty sql.NullString
	if record.Counterparty != "" {
		counterparty = sql.NullString{String: record.Counterparty, Valid: true}
	}

	var id int64
	if err := t.tx.QueryRowContext(
		ctx,
		query,
		record.Reference,
		record.Username,
		string(record.Type),
		record.Amount,
		record.Balance,
		counterparty,
		record.Note,
		record.CreatedAt,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("append transaction: %w", err)
	}
	return id, nil
}

func (t *ledgerTx) AppendBatch(ctx context.Context, records []domain.Transaction) ([]int64, error) {
	ids := make([]int64, 0, len(records))
	for _, record := range records {
		id, err := t.Append(ctx, record)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func uniqueSorted(usernames []string) []string {
	seen := make(map[string]bool, len(usernames))
	out := make([]string, 0, len(usernames))
	for _, username := range usernames {
		if seen[username] {
			continue
		}
		seen[username] = true
		out = append(out, username)
	}
	sort.Strings(out)
	return out
}

var (
	_ domain.AccountRepository     = (*AccountRepository)(nil)
	_ domain.TransactionRepository = (*TransactionRepository)(nil)
	_ domain.LedgerStore           = (*LedgerStore)(nil)
)
