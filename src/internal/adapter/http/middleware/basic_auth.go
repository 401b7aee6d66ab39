package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/api-sage/pin-ledger/src/internal/logger"
)

type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, username string, password string) (domain.Account, error)
}

type principalKey struct{}

// BasicAuth authenticates the caller with their username and login
// password. The canonical username is stored on the request context.
func BasicAuth(verifier CredentialVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				logger.Error("basic auth middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "server auth configuration is missing", http.StatusInternalServerError)
				return
			}

			username, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, r, "missing")
				return
			}

			account, err := verifier.VerifyCredential(r.Context(), username, password)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthorized) {
					unauthorized(w, r, "invalid")
					return
				}
				logger.Error("basic auth middleware verify failed", err, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "unable to verify credentials", http.StatusInternalServerError)
				return
			}

			logger.Info("basic auth middleware authorized request", logger.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"username": account.Username,
			})
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), account.Username)))
		})
	}
}

func WithPrincipal(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, principalKey{}, username)
}

func PrincipalFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(principalKey{}).(string)
	return username, ok && username != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	logger.Info("basic auth middleware unauthorized request", logger.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"credentials": reason,
	})
	w.Header().Set("WWW-Authenticate", `Basic realm="pin-ledger"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
