package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/api-sage/pin-ledger/src/internal/logger"
)

const (
	minPasswordLength = 8
	// bcrypt only accepts secrets up to 72 bytes.
	maxSecretBytes = 72
)

type UserService struct {
	accountRepo domain.AccountRepository
	hasher      *Hasher
}

func NewUserService(accountRepo domain.AccountRepository, hasher *Hasher) *UserService {
	return &UserService{accountRepo: accountRepo, hasher: hasher}
}

func (s *UserService) Signup(ctx context.Context, username string, email string, password string, pin string) (domain.Account, error) {
	username = domain.NormalizeHandle(username)
	email = domain.NormalizeHandle(email)

	logger.Info("user service signup request", logger.Fields{
		"username": username,
		"email":    email,
	})

	if err := validateSignup(username, email, password, pin); err != nil {
		logger.Error("user service signup validation failed", err, logger.Fields{"username": username})
		return domain.Account{}, err
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		logger.Error("user service signup hash password failed", err, nil)
		return domain.Account{}, classify(err)
	}
	pinHash, err := s.hasher.Hash(pin)
	if err != nil {
		logger.Error("user service signup hash pin failed", err, nil)
		return domain.Account{}, classify(err)
	}

	created, err := s.accountRepo.Create(ctx, domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		PinHash:      pinHash,
	})
	if err != nil {
		logger.Error("user service signup repository failed", err, logger.Fields{"username": username})
		return domain.Account{}, classify(err)
	}

	logger.Info("user service signup success", logger.Fields{"username": created.Username})
	return created, nil
}

// Authenticate checks both the login credential and the PIN.
func (s *UserService) Authenticate(ctx context.Context, username string, password string, pin string) (domain.Account, error) {
	account, err := s.VerifyCredential(ctx, username, password)
	if err != nil {
		return domain.Account{}, err
	}

	ok, err := s.hasher.Verify(account.PinHash, pin)
	if err != nil {
		logger.Error("user service authenticate pin compare failed", err, logger.Fields{"username": account.Username})
		return domain.Account{}, err
	}
	if !ok {
		logger.Info("user service authenticate pin mismatch", logger.Fields{"username": account.Username})
		return domain.Account{}, domain.ErrUnauthorized
	}

	logger.Info("user service authenticate success", logger.Fields{"username": account.Username})
	return account, nil
}

// VerifyCredential checks the login password only.
func (s *UserService) VerifyCredential(ctx context.Context, username string, password string) (domain.Account, error) {
	username = domain.NormalizeHandle(username)

	account, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			s.hasher.Burn(password)
			logger.Info("user service verify credential unknown user", logger.Fields{"username": username})
			return domain.Account{}, domain.ErrUnauthorized
		}
		logger.Error("user service verify credential lookup failed", err, logger.Fields{"username": username})
		return domain.Account{}, classify(err)
	}

	ok, err := s.hasher.Verify(account.PasswordHash, password)
	if err != nil {
		logger.Error("user service verify credential compare failed", err, logger.Fields{"username": username})
		return domain.Account{}, err
	}
	if !ok {
		logger.Info("user service verify credential mismatch", logger.Fields{"username": username})
		return domain.Account{}, domain.ErrUnauthorized
	}

	return account, nil
}

func validateSignup(username, email, password, pin string) error {
	var errs []string

	if username == "" {
		errs = append(errs, "username is required")
	} else if utf8.RuneCountInString(username) > 150 || strings.ContainsAny(username, " \t\r\n/") {
		errs = append(errs, "username must be at most 150 characters without spaces or slashes")
	}
	if email == "" {
		errs = append(errs, "email is required")
	} else if !strings.Contains(email, "@") || utf8.RuneCountInString(email) > 150 {
		errs = append(errs, "email is invalid")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	} else if len(password) > maxSecretBytes {
		errs = append(errs, fmt.Sprintf("password must be at most %d bytes", maxSecretBytes))
	}
	if !isValidPin(pin) {
		errs = append(errs, "pin must be 4 to 6 digits")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}
	return nil
}

func isValidPin(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, ch := range pin {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
