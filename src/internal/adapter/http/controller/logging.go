package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/pin-ledger/src/internal/logger"
)

// requestFields identifies the call in every log line. The principal is only
// present behind the auth middleware.
func requestFields(r *http.Request) logger.Fields {
	fields := logger.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
		fields["principal"] = principal
	}
	if id := r.Header.Get("X-Request-ID"); id != "" {
		fields["requestId"] = id
	}
	return fields
}

// logRequest is called once on entry with a nil payload and again after the
// body decodes.
func logRequest(r *http.Request, payload any) {
	fields := requestFields(r)
	if r.URL.RawQuery != "" {
		fields["query"] = r.URL.RawQuery
	}
	if payload != nil {
		fields["payload"] = logger.SanitizePayload(payload)
	}
	logger.Info("http request", fields)
}

func logResponse(r *http.Request, status int, payload any, start time.Time) {
	fields := requestFields(r)
	fields["status"] = status
	fields["durationMs"] = time.Since(start).Milliseconds()
	fields["response"] = logger.SanitizePayload(payload)

	if status >= http.StatusInternalServerError {
		logger.Error("http response", nil, fields)
		return
	}
	logger.Info("http response", fields)
}

func logError(r *http.Request, err error, extra logger.Fields) {
	fields := requestFields(r)
	for k, v := range extra {
		fields[k] = v
	}
	logger.Error("http handler error", err, fields)
}
