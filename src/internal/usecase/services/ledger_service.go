package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/api-sage/pin-ledger/src/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxNoteLength    = 140
	publishTimeout   = 5 * time.Second
	defaultTxTimeout = 5 * time.Second
)

type LedgerService struct {
	accountRepo domain.AccountRepository
	store       domain.LedgerStore
	hasher      *Hasher
	publisher   domain.EventPublisher
	txTimeout   time.Duration
	now         func() time.Time
}

// NewLedgerService wires the engine. publisher may be nil.
func NewLedgerService(
	accountRepo domain.AccountRepository,
	store domain.LedgerStore,
	hasher *Hasher,
	publisher domain.EventPublisher,
	txTimeout time.Duration,
) *LedgerService {
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	return &LedgerService{
		accountRepo: accountRepo,
		store:       store,
		hasher:      hasher,
		publisher:   publisher,
		txTimeout:   txTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source. Used by tests.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

func (s *LedgerService) Deposit(ctx context.Context, username string, amount decimal.Decimal, pin string, note string) (decimal.Decimal, error) {
	username = domain.NormalizeHandle(username)
	if err := validateMovement(amount, note); err != nil {
		logger.Info("ledger service deposit rejected", logger.Fields{"username": username, "reason": err.Error()})
		return decimal.Zero, err
	}
	logger.Info("ledger service deposit request", logger.Fields{
		"username": username,
		"amount":   amount.String(),
	})
	if err := s.authorize(ctx, username, pin); err != nil {
		return decimal.Zero, err
	}

	var record domain.Transaction
	err := s.run(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		accounts, err := tx.LockAccounts(ctx, username)
		if err != nil {
			return err
		}
		if err := domain.CheckCredit(accounts[username].Balance, amount); err != nil {
			return err
		}
		balance, err := tx.AdjustBalance(ctx, username, amount)
		if err != nil {
			return err
		}
		record = domain.Transaction{
			Reference: uuid.NewString(),
			Username:  username,
			Type:      domain.TransactionTypeDeposit,
			Amount:    amount,
			Balance:   balance,
			Note:      note,
			CreatedAt: s.now(),
		}
		record.ID, err = tx.Append(ctx, record)
		return err
	})
	if err != nil {
		logger.Error("ledger service deposit failed", err, logger.Fields{"username": username})
		return decimal.Zero, classify(err)
	}

	logger.Info("ledger service deposit success", logger.Fields{
		"username":  username,
		"reference": record.Reference,
		"balance":   record.Balance.String(),
	})
	s.publish(ctx, record)
	return record.Balance, nil
}

func (s *LedgerService) Withdraw(ctx context.Context, username string, amount decimal.Decimal, pin string, note string) (decimal.Decimal, error) {
	username = domain.NormalizeHandle(username)
	if err := validateMovement(amount, note); err != nil {
		logger.Info("ledger service withdraw rejected", logger.Fields{"username": username, "reason": err.Error()})
		return decimal.Zero, err
	}
	logger.Info("ledger service withdraw request", logger.Fields{
		"username": username,
		"amount":   amount.String(),
	})
	if err := s.authorize(ctx, username, pin); err != nil {
		return decimal.Zero, err
	}

	var record domain.Transaction
	err := s.run(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		accounts, err := tx.LockAccounts(ctx, username)
		if err != nil {
			return err
		}
		if accounts[username].Balance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}
		balance, err := tx.AdjustBalance(ctx, username, amount.Neg())
		if err != nil {
			return err
		}
		record = domain.Transaction{
			Reference: uuid.NewString(),
			Username:  username,
			Type:      domain.TransactionTypeWithdraw,
			Amount:    amount.Neg(),
			Balance:   balance,
			Note:      note,
			CreatedAt: s.now(),
		}
		record.ID, err = tx.Append(ctx, record)
		return err
	})
	if err != nil {
		logger.Error("ledger service withdraw failed", err, logger.Fields{"username": username})
		return decimal.Zero, classify(err)
	}

	logger.Info("ledger service withdraw success", logger.Fields{
		"username":  username,
		"reference": record.Reference,
		"balance":   record.Balance.String(),
	})
	s.publish(ctx, record)
	return record.Balance, nil
}

// Transfer moves amount from sender to the account named by recipientHandle
// and returns the sender's new balance. Both balance changes and both
// records commit together or not at all.
func (s *LedgerService) Transfer(ctx context.Context, sender string, recipientHandle string, amount decimal.Decimal, pin string, note string) (decimal.Decimal, error) {
	sender = domain.NormalizeHandle(sender)
	recipient := domain.NormalizeHandle(recipientHandle)
	if err := validateMovement(amount, note); err != nil {
		logger.Info("ledger service transfer rejected", logger.Fields{"sender": sender, "reason": err.Error()})
		return decimal.Zero, err
	}
	logger.Info("ledger service transfer request", logger.Fields{
		"sender":    sender,
		"recipient": recipient,
		"amount":    amount.String(),
	})
	if recipient == "" {
		return decimal.Zero, domain.ErrRecipientNotFound
	}
	if recipient == sender {
		return decimal.Zero, domain.ErrSelfTransfer
	}
	if _, err := s.accountRepo.GetByUsername(ctx, recipient); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return decimal.Zero, domain.ErrRecipientNotFound
		}
		logger.Error("ledger service transfer recipient lookup failed", err, logger.Fields{"recipient": recipient})
		return decimal.Zero, classify(err)
	}
	if err := s.authorize(ctx, sender, pin); err != nil {
		return decimal.Zero, err
	}

	var sent, received domain.Transaction
	err := s.run(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		accounts, err := tx.LockAccounts(ctx, sender, recipient)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.ErrRecipientNotFound
			}
			return err
		}
		if accounts[sender].Balance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}
		if err := domain.CheckCredit(accounts[recipient].Balance, amount); err != nil {
			return err
		}

		senderBalance, err := tx.AdjustBalance(ctx, sender, amount.Neg())
		if err != nil {
			return err
		}
		recipientBalance, err := tx.AdjustBalance(ctx, recipient, amount)
		if err != nil {
			return err
		}

		reference := uuid.NewString()
		at := s.now()
		sent = domain.Transaction{
			Reference:    reference,
			Username:     sender,
			Type:         domain.TransactionTypeTransferSent,
			Amount:       amount.Neg(),
			Balance:      senderBalance,
			Counterparty: recipient,
			Note:         note,
			CreatedAt:    at,
		}
		received = domain.Transaction{
			Reference:    reference,
			Username:     recipient,
			Type:         domain.TransactionTypeTransferReceived,
			Amount:       amount,
			Balance:      recipientBalance,
			Counterparty: sender,
			Note:         note,
			CreatedAt:    at,
		}
		ids, err := tx.AppendBatch(ctx, []domain.Transaction{sent, received})
		if err != nil {
			return err
		}
		sent.ID, received.ID = ids[0], ids[1]
		return nil
	})
	if err != nil {
		logger.Error("ledger service transfer failed", err, logger.Fields{
			"sender":    sender,
			"recipient": recipient,
		})
		return decimal.Zero, classify(err)
	}

	logger.Info("ledger service transfer success", logger.Fields{
		"sender":    sender,
		"recipient": recipient,
		"reference": sent.Reference,
		"balance":   sent.Balance.String(),
	})
	s.publish(ctx, sent)
	s.publish(ctx, received)
	return sent.Balance, nil
}

func (s *LedgerService) authorize(ctx context.Context, username string, pin string) error {
	account, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			s.hasher.Burn(pin)
			logger.Info("ledger service authorize unknown user", logger.Fields{"username": username})
			return domain.ErrUnauthorized
		}
		logger.Error("ledger service authorize lookup failed", err, logger.Fields{"username": username})
		return classify(err)
	}

	ok, err := s.hasher.Verify(account.PinHash, pin)
	if err != nil {
		logger.Error("ledger service authorize compare failed", err, logger.Fields{"username": username})
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if !ok {
		logger.Info("ledger service authorize pin mismatch", logger.Fields{"username": username})
		return domain.ErrUnauthorized
	}
	return nil
}

func (s *LedgerService) run(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()
	return s.store.WithinTransaction(ctx, fn)
}

func (s *LedgerService) publish(ctx context.Context, record domain.Transaction) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, domain.NewTransactionCompleted(record)); err != nil {
		logger.Error("ledger service publish event failed", err, logger.Fields{
			"reference": record.Reference,
			"username":  record.Username,
		})
	}
}

func validateMovement(amount decimal.Decimal, note string) error {
	if err := domain.CheckAmount(amount); err != nil {
		return err
	}
	if utf8.RuneCountInString(note) > maxNoteLength {
		return fmt.Errorf("%w: note must be at most %d characters", domain.ErrInvalidInput, maxNoteLength)
	}
	return nil
}
