package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/api-sage/pin-ledger/src/internal/domain"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", "invalid amount"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_FAILED", "validation failed"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials or pin"},
	{domain.ErrRecipientNotFound, http.StatusNotFound, "RECIPIENT_NOT_FOUND", "recipient not found"},
	{domain.ErrRecordNotFound, http.StatusNotFound, "NOT_FOUND", "account not found"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT", "username or email already exists"},
	{domain.ErrSelfTransfer, http.StatusConflict, "SELF_TRANSFER", "cannot transfer to the same account"},
	{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "insufficient balance"},
}

// statusForError maps a service error to an HTTP status, a stable code and a
// client-safe message. Unknown errors never leak their text.
func statusForError(err error) (int, string, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code, m.message
		}
	}
	return http.StatusInternalServerError, "STORE_UNAVAILABLE", "unable to process request right now"
}

// errorDetails returns the validation detail for input errors only.
func errorDetails(err error) []string {
	if errors.Is(err, domain.ErrInvalidAmount) || errors.Is(err, domain.ErrInvalidInput) {
		return []string{err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeBody reads a JSON body of at most maxBodyBytes into dst. On failure it
// returns the status and code to answer with.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) (int, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err
		}
		return http.StatusBadRequest, "INVALID_BODY", err
	}
	return 0, "", nil
}
