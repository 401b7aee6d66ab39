package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/pin-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/pin-ledger/src/internal/commons"
	"github.com/api-sage/pin-ledger/src/internal/logger"
	"github.com/api-sage/pin-ledger/src/internal/usecase/service_interfaces"
)

type QueryController struct {
	service service_interfaces.QueryService
}

func NewQueryController(service service_interfaces.QueryService) *QueryController {
	return &QueryController{service: service}
}

func (c *QueryController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(h http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(h)
		}
		return h
	}
	mux.Handle("GET /balance", wrap(c.balance))
	mux.Handle("GET /transactions", wrap(c.transactions))
	mux.Handle("GET /recipients/{username}", wrap(c.recipient))
}

func (c *QueryController) balance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	username, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response := commons.ErrorResponse[models.BalanceResponse]("UNAUTHORIZED", "authentication required")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return
	}

	balance, err := c.service.CurrentBalance(r.Context(), username)
	if err != nil {
		status, code, message := statusForError(err)
		logError(r, err, logger.Fields{"code": code})
		response := commons.ErrorResponse[models.BalanceResponse](code, message)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("balance retrieved", models.BalanceResponse{
		Username: username,
		Balance:  models.FormatAmount(balance),
	})
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *QueryController) transactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	username, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response := commons.ErrorResponse[[]models.TransactionResponse]("UNAUTHORIZED", "authentication required")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return
	}

	records, err := c.service.History(r.Context(), username)
	if err != nil {
		status, code, message := statusForError(err)
		logError(r, err, logger.Fields{"code": code})
		response := commons.ErrorResponse[[]models.TransactionResponse](code, message)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("transactions retrieved", models.NewTransactionResponses(records))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *QueryController) recipient(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	lookup, err := c.service.RecipientExists(r.Context(), r.PathValue("username"))
	if err != nil {
		status, code, message := statusForError(err)
		logError(r, err, logger.Fields{"code": code})
		response := commons.ErrorResponse[models.RecipientResponse](code, message)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("recipient lookup complete", models.RecipientResponse{
		Exists:        lookup.Exists,
		CanonicalName: lookup.CanonicalName,
	})
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
