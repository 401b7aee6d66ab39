package service_interfaces

import (
	"context"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/api-sage/pin-ledger/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

type QueryService interface {
	RecipientExists(ctx context.Context, handle string) (domain.RecipientLookup, error)
	History(ctx context.Context, username string) ([]domain.Transaction, error)
	CurrentBalance(ctx context.Context, username string) (decimal.Decimal, error)
}

var (
	_ UserService   = (*services.UserService)(nil)
	_ LedgerService = (*services.LedgerService)(nil)
	_ QueryService  = (*services.QueryService)(nil)
)
