package services

import (
	"context"
	"errors"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/api-sage/pin-ledger/src/internal/logger"
	"github.com/shopspring/decimal"
)

// QueryService answers read-only questions. Nothing here takes account locks.
type QueryService struct {
	accountRepo     domain.AccountRepository
	transactionRepo domain.TransactionRepository
}

func NewQueryService(accountRepo domain.AccountRepository, transactionRepo domain.TransactionRepository) *QueryService {
	return &QueryService{accountRepo: accountRepo, transactionRepo: transactionRepo}
}

func (s *QueryService) RecipientExists(ctx context.Context, handle string) (domain.RecipientLookup, error) {
	name := domain.NormalizeHandle(handle)
	if name == "" {
		return domain.RecipientLookup{}, nil
	}

	account, err := s.accountRepo.GetByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.RecipientLookup{}, nil
		}
		logger.Error("query service recipient lookup failed", err, logger.Fields{"handle": name})
		return domain.RecipientLookup{}, classify(err)
	}
	return domain.RecipientLookup{Exists: true, CanonicalName: account.Username}, nil
}

func (s *QueryService) History(ctx context.Context, username string) ([]domain.Transaction, error) {
	username = domain.NormalizeHandle(username)
	records, err := s.transactionRepo.ListByUsername(ctx, username)
	if err != nil {
		logger.Error("query service history failed", err, logger.Fields{"username": username})
		return nil, classify(err)
	}
	return records, nil
}

func (s *QueryService) CurrentBalance(ctx context.Context, username string) (decimal.Decimal, error) {
	username = domain.NormalizeHandle(username)
	account, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			logger.Error("query service balance failed", err, logger.Fields{"username": username})
		}
		return decimal.Zero, classify(err)
	}
	return account.Balance, nil
}
