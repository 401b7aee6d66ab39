package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// AmountRequest is the body of deposit and withdraw.
type AmountRequest struct {
	Amount string `json:"amount"`
	Pin    string `json:"pin"`
	Note   string `json:"note,omitempty"`
}

func (r AmountRequest) Validate() error {
	var errs []string

	if _, err := ParseAmount(r.Amount); err != nil {
		errs = append(errs, err.Error())
	}
	if strings.TrimSpace(r.Pin) == "" {
		errs = append(errs, "pin is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type TransferRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Pin       string `json:"pin"`
	Note      string `json:"note,omitempty"`
}

func (r TransferRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Recipient) == "" {
		errs = append(errs, "recipient is required")
	}
	if _, err := ParseAmount(r.Amount); err != nil {
		errs = append(errs, err.Error())
	}
	if strings.TrimSpace(r.Pin) == "" {
		errs = append(errs, "pin is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// maxAmountLength fits the largest NUMERIC(20,2) value with a sign.
const maxAmountLength = 24

// ParseAmount parses a plain decimal amount string. Exponent notation is
// rejected. Range and scale checks belong to the ledger.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, errors.New("amount is required")
	}
	if len(raw) > maxAmountLength {
		return decimal.Zero, fmt.Errorf("amount must be at most %d characters", maxAmountLength)
	}
	if strings.ContainsAny(raw, "eE") {
		return decimal.Zero, fmt.Errorf("amount %q must be a plain decimal number", raw)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a valid number", raw)
	}
	return amount, nil
}

func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

type BalanceChangeResponse struct {
	Balance string `json:"balance"`
}

type TransactionResponse struct {
	ID           int64     `json:"id"`
	Reference    string    `json:"reference"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	Balance      string    `json:"balance"`
	Counterparty string    `json:"counterparty,omitempty"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewTransactionResponses(records []domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(records))
	for _, record := range records {
		out = append(out, TransactionResponse{
			ID:           record.ID,
			Reference:    record.Reference,
			Type:         string(record.Type),
			Amount:       FormatAmount(record.Amount),
			Balance:      FormatAmount(record.Balance),
			Counterparty: record.Counterparty,
			Note:         record.Note,
			CreatedAt:    record.CreatedAt,
		})
	}
	return out
}
