package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func TestLedgerServiceScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "alice", "1234")
	f.signup(t, "bob", "5678")

	balance, err := f.ledger.Deposit(ctx, "alice", dec(t, "100"), "1234", "")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !balance.Equal(dec(t, "100")) {
		t.Fatalf("expected 100, got %s", balance)
	}

	balance, err = f.ledger.Transfer(ctx, "alice", "bob", dec(t, "30"), "1234", "rent")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !balance.Equal(dec(t, "70")) {
		t.Fatalf("expected 70, got %s", balance)
	}

	balance, err = f.ledger.Withdraw(ctx, "bob", dec(t, "10"), "5678", "")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !balance.Equal(dec(t, "20")) {
		t.Fatalf("expected 20, got %s", balance)
	}

	aliceHistory, err := f.queries.History(ctx, "alice")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(aliceHistory) != 2 {
		t.Fatalf("expected 2 records for alice, got %d", len(aliceHistory))
	}
	if aliceHistory[0].Type != domain.TransactionTypeTransferSent || !aliceHistory[0].Amount.Equal(dec(t, "-30")) {
		t.Fatalf("expected transfer sent -30 first, got %s %s", aliceHistory[0].Type, aliceHistory[0].Amount)
	}
	if aliceHistory[0].Counterparty != "bob" || aliceHistory[0].Note != "rent" {
		t.Fatalf("expected counterparty bob and note, got %q %q", aliceHistory[0].Counterparty, aliceHistory[0].Note)
	}
	if aliceHistory[1].Type != domain.TransactionTypeDeposit || !aliceHistory[1].Balance.Equal(dec(t, "100")) {
		t.Fatalf("expected deposit with balance 100 last, got %s %s", aliceHistory[1].Type, aliceHistory[1].Balance)
	}

	bobHistory, err := f.queries.History(ctx, "bob")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(bobHistory) != 2 {
		t.Fatalf("expected 2 records for bob, got %d", len(bobHistory))
	}
	if bobHistory[0].Type != domain.TransactionTypeWithdraw || !bobHistory[0].Balance.Equal(dec(t, "20")) {
		t.Fatalf("expected withdraw first, got %s %s", bobHistory[0].Type, bobHistory[0].Balance)
	}
	if bobHistory[1].Type != domain.TransactionTypeTransferReceived || bobHistory[1].Reference != aliceHistory[0].Reference {
		t.Fatalf("expected transfer received sharing the sender's reference, got %s %q", bobHistory[1].Type, bobHistory[1].Reference)
	}
	if !bobHistory[1].CreatedAt.Equal(aliceHistory[0].CreatedAt) {
		t.Fatal("expected both transfer records to share a timestamp")
	}

	if len(f.publisher.Events()) != 4 {
		t.Fatalf("expected 4 published events, got %d", len(f.publisher.Events()))
	}
}

func TestLedgerServiceRejectsWithoutChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "alice", "1234")
	f.signup(t, "bob", "5678")
	if _, err := f.ledger.Deposit(ctx, "alice", dec(t, "50"), "1234", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{"wrong pin", func() error {
			_, err := f.ledger.Withdraw(ctx, "alice", dec(t, "10"), "0000", "")
			return err
		}, domain.ErrUnauthorized},
		{"unknown user", func() error {
			_, err := f.ledger.Deposit(ctx, "mallory", dec(t, "10"), "1234", "")
			return err
		}, domain.ErrUnauthorized},
		{"zero amount", func() error {
			_, err := f.ledger.Deposit(ctx, "alice", decimal.Zero, "1234", "")
			return err
		}, domain.ErrInvalidAmount},
		{"negative amount", func() error {
			_, err := f.ledger.Withdraw(ctx, "alice", dec(t, "-5"), "1234", "")
			return err
		}, domain.ErrInvalidAmount},
		{"too many decimals", func() error {
			_, err := f.ledger.Deposit(ctx, "alice", dec(t, "1.005"), "1234", "")
			return err
		}, domain.ErrInvalidAmount},
		{"exponent overflow", func() error {
			_, err := f.ledger.Deposit(ctx, "alice", dec(t, "1e3000000"), "1234", "")
			return err
		}, domain.ErrInvalidAmount},
		{"huge exponent", func() error {
			_, err := f.ledger.Deposit(ctx, "alice", dec(t, "1e300000000"), "1234", "")
			return err
		}, domain.ErrInvalidAmount},
		{"sub-cent exponent", func() error {
			_, err := f.ledger.Withdraw(ctx, "alice", dec(t, "1e-5"), "1234", "")
			return err
		}, domain.ErrInvalidAmount},
		{"above maximum", func() error {
			_, err := f.ledger.Deposit(ctx, "alice", dec(t, "1000000000000000000"), "1234", "")
			return err
		}, domain.ErrInvalidAmount},
		{"overdraw", func() error {
			_, err := f.ledger.Withdraw(ctx, "alice", dec(t, "50.01"), "1234", "")
			return err
		}, domain.ErrInsufficientBalance},
		{"transfer overdraw", func() error {
			_, err := f.ledger.Transfer(ctx, "alice", "bob", dec(t, "60"), "1234", "")
			return err
		}, domain.ErrInsufficientBalance},
		{"self transfer", func() error {
			_, err := f.ledger.Transfer(ctx, "alice", " ALICE ", dec(t, "1"), "1234", "")
			return err
		}, domain.ErrSelfTransfer},
		{"missing recipient", func() error {
			_, err := f.ledger.Transfer(ctx, "alice", "carol", dec(t, "1"), "1234", "")
			return err
		}, domain.ErrRecipientNotFound},
		{"transfer wrong pin", func() error {
			_, err := f.ledger.Transfer(ctx, "alice", "bob", dec(t, "1"), "5678", "")
			return err
		}, domain.ErrUnauthorized},
		{"long note", func() error {
			note := make([]byte, 141)
			for i := range note {
				note[i] = 'x'
			}
			_, err := f.ledger.Deposit(ctx, "alice", dec(t, "1"), "1234", string(note))
			return err
		}, domain.ErrInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got := f.balance(t, "alice"); !got.Equal(dec(t, "50")) {
				t.Fatalf("expected alice balance unchanged at 50, got %s", got)
			}
			if got := f.balance(t, "bob"); !got.IsZero() {
				t.Fatalf("expected bob balance unchanged at 0, got %s", got)
			}
			history, _ := f.queries.History(ctx, "alice")
			if len(history) != 1 {
				t.Fatalf("expected history unchanged, got %d records", len(history))
			}
		})
	}
}

func TestLedgerServiceWithdrawExactBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "alice", "1234")
	if _, err := f.ledger.Deposit(ctx, "alice", dec(t, "12.50"), "1234", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	balance, err := f.ledger.Withdraw(ctx, "alice", dec(t, "12.5"), "1234", "")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", balance)
	}
}

func TestLedgerServiceReconciliation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "alice", "1234")
	f.signup(t, "bob", "5678")

	steps := []func() error{
		func() error { _, err := f.ledger.Deposit(ctx, "alice", dec(t, "80.25"), "1234", ""); return err },
		func() error { _, err := f.ledger.Transfer(ctx, "alice", "bob", dec(t, "20.10"), "1234", ""); return err },
		func() error { _, err := f.ledger.Withdraw(ctx, "bob", dec(t, "5.05"), "5678", ""); return err },
		func() error { _, err := f.ledger.Transfer(ctx, "bob", "alice", dec(t, "1"), "5678", ""); return err },
		func() error { _, err := f.ledger.Withdraw(ctx, "alice", dec(t, "0.01"), "1234", ""); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	for _, username := range []string{"alice", "bob"} {
		history, err := f.queries.History(ctx, username)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		sum := decimal.Zero
		for _, record := range history {
			sum = sum.Add(record.Amount)
		}
		if got := f.balance(t, username); !got.Equal(sum) {
			t.Fatalf("%s: balance %s does not reconcile with log sum %s", username, got, sum)
		}
		if len(history) > 0 && !history[0].Balance.Equal(sum) {
			t.Fatalf("%s: most recent balance snapshot %s differs from %s", username, history[0].Balance, sum)
		}
	}
}

func TestLedgerServiceConcurrentWithdrawals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "alice", "1234")
	if _, err := f.ledger.Deposit(ctx, "alice", dec(t, "100"), "1234", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	amount := dec(t, "15")
	var succeeded, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := f.ledger.Withdraw(ctx, "alice", amount, "1234", "")
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientBalance):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if succeeded.Load() != 6 || rejected.Load() != 14 {
		t.Fatalf("expected 6 successes and 14 rejections, got %d and %d", succeeded.Load(), rejected.Load())
	}
	if got := f.balance(t, "alice"); !got.Equal(dec(t, "10")) {
		t.Fatalf("expected 10 remaining, got %s", got)
	}
}

func TestLedgerServiceOpposingTransfersDoNotDeadlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "alice", "1234")
	f.signup(t, "bob", "5678")
	if _, err := f.ledger.Deposit(ctx, "alice", dec(t, "100"), "1234", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.ledger.Deposit(ctx, "bob", dec(t, "100"), "5678", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	one, two := dec(t, "1"), dec(t, "2")
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := f.ledger.Transfer(ctx, "alice", "bob", one, "1234", "")
			return err
		})
		g.Go(func() error {
			_, err := f.ledger.Transfer(ctx, "bob", "alice", two, "5678", "")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alice := f.balance(t, "alice")
	bob := f.balance(t, "bob")
	if !alice.Equal(dec(t, "110")) || !bob.Equal(dec(t, "90")) {
		t.Fatalf("expected 110/90, got %s/%s", alice, bob)
	}
}

// failingStore fails the credit leg of a transfer after the debit leg has run.
type failingStore struct {
	inner  *memory.Store
	victim string
}

func (s failingStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	return s.inner.WithinTransaction(ctx, func(ctx context.Context, tx domain.LedgerTx) error {
		return fn(ctx, failingTx{LedgerTx: tx, victim: s.victim})
	})
}

type failingTx struct {
	domain.LedgerTx
	victim string
}

func (t failingTx) AdjustBalance(ctx context.Context, username string, delta decimal.Decimal) (decimal.Decimal, error) {
	if username == t.victim && delta.IsPositive() {
		return decimal.Zero, errors.New("disk full")
	}
	return t.LedgerTx.AdjustBalance(ctx, username, delta)
}

func TestLedgerServiceTransferIsAtomic(t *testing.T) {
	store := memory.NewStore()
	f := newFixtureWithStore(t, store, failingStore{inner: store, victim: "bob"})
	ctx := context.Background()
	f.signup(t, "alice", "1234")
	f.signup(t, "bob", "5678")
	if _, err := f.ledger.Deposit(ctx, "alice", dec(t, "40"), "1234", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, err := f.ledger.Transfer(ctx, "alice", "bob", dec(t, "25"), "1234", "")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	if got := f.balance(t, "alice"); !got.Equal(dec(t, "40")) {
		t.Fatalf("expected sender balance unchanged at 40, got %s", got)
	}
	if got := f.balance(t, "bob"); !got.IsZero() {
		t.Fatalf("expected recipient balance unchanged at 0, got %s", got)
	}
	history, _ := f.queries.History(ctx, "alice")
	if len(history) != 1 {
		t.Fatalf("expected only the deposit record, got %d", len(history))
	}
	history, _ = f.queries.History(ctx, "bob")
	if len(history) != 0 {
		t.Fatalf("expected no records for bob, got %d", len(history))
	}
	if len(f.publisher.Events()) != 1 {
		t.Fatalf("expected only the deposit event, got %d", len(f.publisher.Events()))
	}
}

func TestLedgerServicePublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	f.signup(t, "alice", "1234")

	balance, err := f.ledger.Deposit(context.Background(), "alice", dec(t, "5"), "1234", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !balance.Equal(dec(t, "5")) {
		t.Fatalf("expected 5, got %s", balance)
	}
}

func TestLedgerServiceUsesClock(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.WithClock(func() time.Time { return fixed })
	f.signup(t, "alice", "1234")

	if _, err := f.ledger.Deposit(context.Background(), "alice", dec(t, "5"), "1234", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	history, _ := f.queries.History(context.Background(), "alice")
	if len(history) != 1 || !history[0].CreatedAt.Equal(fixed) {
		t.Fatalf("expected record stamped %s, got %+v", fixed, history)
	}
	events := f.publisher.Events()
	if len(events) != 1 || events[0].Reference != history[0].Reference || events[0].TransactionID != history[0].ID {
		t.Fatalf("expected event mirroring the record, got %+v", events)
	}
}

func TestLedgerServiceDocumentedScenarios(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "sender", "1234")
	f.signup(t, "recipient", "5678")

	if _, err := f.ledger.Deposit(ctx, "sender", dec(t, "100"), "1234", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.ledger.Deposit(ctx, "recipient", dec(t, "50"), "5678", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := f.ledger.Withdraw(ctx, "sender", dec(t, "150"), "1234", ""); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := f.balance(t, "sender"); !got.Equal(dec(t, "100")) {
		t.Fatalf("expected 100 after rejected withdraw, got %s", got)
	}

	balance, err := f.ledger.Transfer(ctx, "sender", "recipient", dec(t, "30"), "1234", "")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !balance.Equal(dec(t, "70")) {
		t.Fatalf("expected sender balance 70, got %s", balance)
	}
	if got := f.balance(t, "recipient"); !got.Equal(dec(t, "80")) {
		t.Fatalf("expected recipient balance 80, got %s", got)
	}

	sent, _ := f.queries.History(ctx, "sender")
	received, _ := f.queries.History(ctx, "recipient")
	if !sent[0].Amount.Equal(dec(t, "-30")) || !sent[0].Balance.Equal(dec(t, "70")) {
		t.Fatalf("unexpected sent record %+v", sent[0])
	}
	if !received[0].Amount.Equal(dec(t, "30")) || !received[0].Balance.Equal(dec(t, "80")) {
		t.Fatalf("unexpected received record %+v", received[0])
	}
}

func TestLedgerServiceRejectsCreditAboveMaximum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "alice", "1234")
	f.signup(t, "bob", "5678")
	if _, err := f.ledger.Deposit(ctx, "alice", dec(t, "10"), "1234", ""); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := f.ledger.Deposit(ctx, "bob", domain.MaxBalance, "5678", ""); err != nil {
		t.Fatalf("deposit max: %v", err)
	}

	if _, err := f.ledger.Deposit(ctx, "bob", dec(t, "0.01"), "5678", ""); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount on deposit, got %v", err)
	}
	if _, err := f.ledger.Transfer(ctx, "alice", "bob", dec(t, "1"), "1234", ""); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount on transfer, got %v", err)
	}
	if got := f.balance(t, "alice"); !got.Equal(dec(t, "10")) {
		t.Fatalf("expected alice unchanged at 10, got %s", got)
	}
	if got := f.balance(t, "bob"); !got.Equal(domain.MaxBalance) {
		t.Fatalf("expected bob unchanged at max, got %s", got)
	}
}
