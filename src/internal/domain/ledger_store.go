package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerStore runs fn inside a single atomic unit spanning account balances
// and the transaction log. If fn returns an error nothing fn did is visible.
type LedgerStore interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerTx is the handle passed to LedgerStore.WithinTransaction.
//
// LockAccounts must be called once, before any other method, with every
// account the unit will mutate. Implementations acquire the locks in
// ascending username order and return ErrRecordNotFound if an account is
// missing. AdjustBalance and the append methods only accept locked accounts.
type LedgerTx interface {
	LockAccounts(ctx context.Context, usernames ...string) (map[string]Account, error)
	AdjustBalance(ctx context.Context, username string, delta decimal.Decimal) (decimal.Decimal, error)
	Append(ctx context.Context, record Transaction) (int64, error)
	AppendBatch(ctx context.Context, records []Transaction) ([]int64, error)
}
