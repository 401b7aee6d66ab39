package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

func TestEncodeMessage(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	event := domain.NewTransactionCompleted(domain.Transaction{
		ID:           7,
		Reference:    "8a4b2c4e-0000-4000-8000-000000000000",
		Username:     "alice",
		Type:         domain.TransactionTypeTransferSent,
		Amount:       decimal.RequireFromString("-30"),
		Balance:      decimal.RequireFromString("70"),
		Counterparty: "bob",
		CreatedAt:    at,
	})

	msg, err := encodeMessage(event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(msg.Key) != "alice" {
		t.Fatalf("expected key alice, got %q", msg.Key)
	}
	if !msg.Time.Equal(at) {
		t.Fatalf("expected time %s, got %s", at, msg.Time)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != "TransferSent" {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}

	var decoded map[string]any
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["amount"] != "-30" || decoded["balance"] != "70" || decoded["counterparty"] != "bob" {
		t.Fatalf("unexpected payload %v", decoded)
	}
	if decoded["transactionId"] != float64(7) {
		t.Fatalf("expected transactionId 7, got %v", decoded["transactionId"])
	}
}
