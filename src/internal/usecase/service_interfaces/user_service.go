package service_interfaces

import (
	"context"

	"github.com/api-sage/pin-ledger/src/internal/domain"
)

type UserService interface {
	Signup(ctx context.Context, username string, email string, password string, pin string) (domain.Account, error)
	Authenticate(ctx context.Context, username string, password string, pin string) (domain.Account, error)
	VerifyCredential(ctx context.Context, username string, password string) (domain.Account, error)
}
