package models

import (
	"errors"
	"strings"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/domain"
)

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Pin      string `json:"pin"`
}

func (r SignupRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Username) == "" {
		errs = append(errs, "username is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		errs = append(errs, "email is required")
	}
	if r.Password == "" {
		errs = append(errs, "password is required")
	}
	if strings.TrimSpace(r.Pin) == "" {
		errs = append(errs, "pin is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Pin      string `json:"pin"`
}

func (r LoginRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Username) == "" {
		errs = append(errs, "username is required")
	}
	if r.Password == "" {
		errs = append(errs, "password is required")
	}
	if strings.TrimSpace(r.Pin) == "" {
		errs = append(errs, "pin is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type AccountResponse struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewAccountResponse(account domain.Account) AccountResponse {
	return AccountResponse{
		Username:  account.Username,
		Email:     account.Email,
		Balance:   FormatAmount(account.Balance),
		CreatedAt: account.CreatedAt,
	}
}

type BalanceResponse struct {
	Username string `json:"username"`
	Balance  string `json:"balance"`
}

type RecipientResponse struct {
	Exists        bool   `json:"exists"`
	CanonicalName string `json:"canonicalName,omitempty"`
}
