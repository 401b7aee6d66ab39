package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Store is the embedded ledger backend. Balances are stored as decimal text
// and timestamps as Unix nanoseconds. Every ledger unit runs in an IMMEDIATE
// transaction, so writers are serialized by the database write lock.
type Store struct {
	pool *sqlitex.Pool
	path string
}

const accountColumns = `username, email, password_hash, pin_hash, balance, created_at, updated_at`

func (s *Store) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return domain.Account{}, err
	}
	defer s.pool.Put(conn)

	now := time.Now().UTC()
	account.Balance = decimal.Zero
	account.CreatedAt = now
	account.UpdatedAt = now

	err = sqlitex.Execute(conn, `
INSERT INTO accounts (`+accountColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			account.Username,
			account.Email,
			account.PasswordHash,
			account.PinHash,
			account.Balance.String(),
			now.UnixNano(),
			now.UnixNano(),
		},
	})
	if err != nil {
		if isConstraintViolation(err) {
			return domain.Account{}, fmt.Errorf("create account: %w", domain.ErrConflict)
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	return account, nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return domain.Account{}, err
	}
	defer s.pool.Put(conn)

	return getAccount(conn, username)
}

func (s *Store) ListByUsername(ctx context.Context, username string) ([]domain.Transaction, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	records := make([]domain.Transaction, 0)
	err = sqlitex.Execute(conn, `
SELECT id, reference, username, type, amount, balance, counterparty, note, created_at
FROM transactions
WHERE username = ?
ORDER BY created_at DESC, id DESC`, &sqlitex.ExecOptions{
		Args: []any{username},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			record, err := scanTransaction(stmt)
			if err != nil {
				return err
			}
			records = append(records, record)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return records, nil
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) (err error) {
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer endTransaction(&err)

	tx := &ledgerTx{
		conn:     conn,
		locked:   make(map[string]bool),
		balances: make(map[string]decimal.Decimal),
	}
	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

type ledgerTx struct {
	conn     *sqlite.Conn
	locked   map[string]bool
	balances map[string]decimal.Decimal
}

// LockAccounts reads the rows inside the IMMEDIATE transaction. The write
// lock is already held, so no other unit can change them until commit.
func (t *ledgerTx) LockAccounts(_ context.Context, usernames ...string) (map[string]domain.Account, error) {
	if len(t.locked) > 0 {
		return nil, errors.New("lock accounts: locks already held in this transaction")
	}

	ordered := uniqueSorted(usernames)
	out := make(map[string]domain.Account, len(ordered))
	for _, username := range ordered {
		account, err := getAccount(t.conn, username)
		if err != nil {
			return nil, fmt.Errorf("lock account %q: %w", username, err)
		}
		t.locked[username] = true
		t.balances[username] = account.Balance
		out[username] = account
	}
	return out, nil
}

func (t *ledgerTx) AdjustBalance(_ context.Context, username string, delta decimal.Decimal) (decimal.Decimal, error) {
	if !t.locked[username] {
		return decimal.Zero, fmt.Errorf("adjust balance: account %q is not locked", username)
	}

	next := t.balances[username].Add(delta)
	if next.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientBalance
	}

	err := sqlitex.Execute(t.conn, `
UPDATE accounts
SET balance = ?, updated_at = ?
WHERE username = ?`, &sqlitex.ExecOptions{
		Args: []any{next.String(), time.Now().UTC().UnixNano(), username},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("adjust balance: %w", err)
	}
	if t.conn.Changes() != 1 {
		return decimal.Zero, fmt.Errorf("adjust balance %q: %w", username, domain.ErrRecordNotFound)
	}

	t.balances[username] = next
	return next, nil
}

func (t *ledgerTx) Append(_ context.Context, record domain.Transaction) (int64, error) {
	if !t.locked[record.Username] {
		return 0, fmt.Errorf("append transaction: account %q is not locked", record.Username)
	}

	var counterparty any
	if record.Counterparty != "" {
		counterparty = record.Counterparty
	}

	err := sqlitex.Execute(t.conn, `
INSERT INTO transactions (reference, username, type, amount, balance, counterparty, note, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			record.Reference,
			record.Username,
			string(record.Type),
			record.Amount.String(),
			record.Balance.String(),
			counterparty,
			record.Note,
			record.CreatedAt.UnixNano(),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("append transaction: %w", err)
	}
	return t.conn.LastInsertRowID(), nil
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

func getAccount(conn *sqlite.Conn, username string) (domain.Account, error) {
	var account domain.Account
	found := false
	err := sqlitex.Execute(conn, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, &sqlitex.ExecOptions{
		Args: []any{username},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			balance, err := decimal.NewFromString(stmt.ColumnText(4))
			if err != nil {
				return fmt.Errorf("parse balance: %w", err)
			}
			account = domain.Account{
				Username:     stmt.ColumnText(0),
				Email:        stmt.ColumnText(1),
				PasswordHash: stmt.ColumnText(2),
				PinHash:      stmt.ColumnText(3),
				Balance:      balance,
				CreatedAt:    time.Unix(0, stmt.ColumnInt64(5)).UTC(),
				UpdatedAt:    time.Unix(0, stmt.ColumnInt64(6)).UTC(),
			}
			found = true
			return nil
		},
	})
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account by username: %w", err)
	}
	if !found {
		return domain.Account{}, domain.ErrRecordNotFound
	}
	return account, nil
}

func scanTransaction(stmt *sqlite.Stmt) (domain.Transaction, error) {
	amount, err := decimal.NewFromString(stmt.ColumnText(4))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	balance, err := decimal.NewFromString(stmt.ColumnText(5))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse balance: %w", err)
	}

	record := domain.Transaction{
		ID:        stmt.ColumnInt64(0),
		Reference: stmt.ColumnText(1),
		Username:  stmt.ColumnText(2),
		Type:      domain.TransactionType(stmt.ColumnText(3)),
		Amount:    amount,
		Balance:   balance,
		Note:      stmt.ColumnText(7),
		CreatedAt: time.Unix(0, stmt.ColumnInt64(8)).UTC(),
	}
	if !stmt.ColumnIsNull(6) {
		record.Counterparty = stmt.ColumnText(6)
	}
	return record, nil
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
	_ domain.AccountRepository     = (*Store)(nil)
	_ domain.TransactionRepository = (*Store)(nil)
	_ domain.LedgerStore           = (*Store)(nil)
)
