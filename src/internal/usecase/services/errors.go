package services

import (
	"errors"
	"fmt"

	"github.com/api-sage/pin-ledger/src/internal/domain"
)

var knownErrors = []error{
	domain.ErrRecordNotFound,
	domain.ErrInvalidAmount,
	domain.ErrInvalidInput,
	domain.ErrUnauthorized,
	domain.ErrInsufficientBalance,
	domain.ErrRecipientNotFound,
	domain.ErrSelfTransfer,
	domain.ErrConflict,
	domain.ErrStoreUnavailable,
}

// classify passes domain errors through unchanged and reports anything else
// as the store being unavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
