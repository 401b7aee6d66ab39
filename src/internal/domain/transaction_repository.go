package domain

import "context"

type TransactionRepository interface {
	// ListByUsername returns the account's records, most recent first.
	ListByUsername(ctx context.Context, username string) ([]Transaction, error)
}
