package router

import (
	"encoding/json"
	"net/http"

	"github.com/api-sage/pin-ledger/src/internal/commons"
)

type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type healthResponse struct {
	Status string `json:"status"`
}

func New(
	userController RouteRegistrar,
	ledgerController RouteRegistrar,
	queryController RouteRegistrar,
	authMiddleware func(http.Handler) http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()
	registerSwaggerRoutes(mux)
	mux.HandleFunc("GET /health", health)

	for _, registrar := range []RouteRegistrar{userController, ledgerController, queryController} {
		if registrar != nil {
			registrar.RegisterRoutes(mux, authMiddleware)
		}
	}

	return mux
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(commons.SuccessResponse("ok", healthResponse{Status: "up"}))
}
