package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	Username     string
	Email        string
	PasswordHash string
	PinHash      string
	Balance      decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeHandle returns the canonical form of a username or email.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
