package service_interfaces

import (
	"context"

	"github.com/shopspring/decimal"
)

type LedgerService interface {
	Deposit(ctx context.Context, username string, amount decimal.Decimal, pin string, note string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, username string, amount decimal.Decimal, pin string, note string) (decimal.Decimal, error)
	Transfer(ctx context.Context, sender string, recipientHandle string, amount decimal.Decimal, pin string, note string) (decimal.Decimal, error)
}
