package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// Store keeps accounts and transactions in process memory. It implements
// domain.AccountRepository, domain.TransactionRepository and
// domain.LedgerStore, and is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	transactions []domain.Transaction
	nextID       int64

	locksMu sync.Mutex
	locks   map[string]accountLock
}

// accountLock is a one-slot semaphore so that acquisition can honour ctx.
type accountLock chan struct{}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]domain.Account),
		locks:    make(map[string]accountLock),
	}
}

func (s *Store) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.Username]; exists {
		return domain.Account{}, domain.ErrConflict
	}
	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return domain.Account{}, domain.ErrConflict
		}
	}

	now := time.Now().UTC()
	account.Balance = decimal.Zero
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.Username] = account

	return account, nil
}

func (s *Store) GetByUsername(_ context.Context, username string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[username]
	if !ok {
		return domain.Account{}, domain.ErrRecordNotFound
	}
	return account, nil
}

func (s *Store) ListByUsername(_ context.Context, username string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, record := range s.transactions {
		if record.Username == username {
			out = append(out, record)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &ledgerTx{
		store:    s,
		locked:   make(map[string]bool),
		balances: make(map[string]decimal.Decimal),
		dirty:    make(map[string]bool),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}

	s.commit(tx)
	return nil
}

func (s *Store) accountLock(username string) accountLock {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[username]
	if !ok {
		lock = make(accountLock, 1)
		s.locks[username] = lock
	}
	return lock
}

func (s *Store) reserveIDs(n int) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, n)
	for i := range ids {
		s.nextID++
		ids[i] = s.nextID
	}
	return ids
}

func (s *Store) commit(tx *ledgerTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for username := range tx.dirty {
		account := s.accounts[username]
		account.Balance = tx.balances[username]
		account.UpdatedAt = now
		s.accounts[username] = account
	}
	s.transactions = append(s.transactions, tx.pending...)
}

type ledgerTx struct {
	store    *Store
	held     []accountLock
	locked   map[string]bool
	balances map[string]decimal.Decimal
	dirty    map[string]bool
	pending  []domain.Transaction
}

func (t *ledgerTx) LockAccounts(ctx context.Context, usernames ...string) (map[string]domain.Account, error) {
	if len(t.held) > 0 {
		return nil, fmt.Errorf("lock accounts: locks already held in this transaction")
	}

	ordered := uniqueSorted(usernames)
	for _, username := range ordered {
		lock := t.store.accountLock(username)
		select {
		case lock <- struct{}{}:
			t.held = append(t.held, lock)
		case <-ctx.Done():
			return nil, fmt.Errorf("lock account %q: %w", username, ctx.Err())
		}
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	out := make(map[string]domain.Account, len(ordered))
	for _, username := range ordered {
		account, ok := t.store.accounts[username]
		if !ok {
			return nil, fmt.Errorf("lock account %q: %w", username, domain.ErrRecordNotFound)
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

	t.balances[username] = next
	t.dirty[username] = true
	return next, nil
}

func (t *ledgerTx) Append(ctx context.Context, record domain.Transaction) (int64, error) {
	ids, err := t.AppendBatch(ctx, []domain.Transaction{record})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

func (t *ledgerTx) AppendBatch(_ context.Context, records []domain.Transaction) ([]int64, error) {
	for _, record := range records {
		if !t.locked[record.Username] {
			return nil, fmt.Errorf("append transaction: account %q is not locked", record.Username)
		}
	}

	ids := t.store.reserveIDs(len(records))
	for i, record := range records {
		record.ID = ids[i]
		t.pending = append(t.pending, record)
	}
	return ids, nil
}

func (t *ledgerTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		<-t.held[i]
	}
	t.held = nil
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

var (
	_ domain.AccountRepository     = (*Store)(nil)
	_ domain.TransactionRepository = (*Store)(nil)
	_ domain.LedgerStore           = (*Store)(nil)
)
