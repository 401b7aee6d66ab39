package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionCompleted struct {
	TransactionID int64           `json:"transactionId"`
	Reference     string          `json:"reference"`
	Type          TransactionType `json:"type"`
	Username      string          `json:"username"`
	Counterparty  string          `json:"counterparty,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

func NewTransactionCompleted(record Transaction) TransactionCompleted {
	return TransactionCompleted{
		TransactionID: record.ID,
		Reference:     record.Reference,
		Type:          record.Type,
		Username:      record.Username,
		Counterparty:  record.Counterparty,
		Amount:        record.Amount,
		Balance:       record.Balance,
		OccurredAt:    record.CreatedAt,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event TransactionCompleted) error
}
