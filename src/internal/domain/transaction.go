package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit          TransactionType = "Deposit"
	TransactionTypeWithdraw         TransactionType = "Withdraw"
	TransactionTypeTransferSent     TransactionType = "TransferSent"
	TransactionTypeTransferReceived TransactionType = "TransferReceived"
)

// Transaction is an immutable audit record. Amount is signed (negative for
// outflow) and Balance is the owner's balance immediately after the record.
type Transaction struct {
	ID           int64
	Reference    string
	Username     string
	Type         TransactionType
	Amount       decimal.Decimal
	Balance      decimal.Decimal
	Counterparty string
	Note         string
	CreatedAt    time.Time
}
