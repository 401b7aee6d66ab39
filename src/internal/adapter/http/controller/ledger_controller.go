package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/pin-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/pin-ledger/src/internal/commons"
	"github.com/api-sage/pin-ledger/src/internal/logger"
	"github.com/api-sage/pin-ledger/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

type LedgerController struct {
	service service_interfaces.LedgerService
}

func NewLedgerController(service service_interfaces.LedgerService) *LedgerController {
	return &LedgerController{service: service}
}

func (c *LedgerController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"/deposit":  c.deposit,
		"/withdraw": c.withdraw,
		"/transfer": c.transfer,
	}
	for path, handler := range routes {
		var h http.Handler = handler
		if authMiddleware != nil {
			h = authMiddleware(h)
		}
		mux.Handle(path, h)
	}
}

type movementFunc func(ctx context.Context, username string, amount decimal.Decimal, pin string, note string) (decimal.Decimal, error)

func (c *LedgerController) deposit(w http.ResponseWriter, r *http.Request) {
	c.movement(w, r, "deposit successful", c.service.Deposit)
}

func (c *LedgerController) withdraw(w http.ResponseWriter, r *http.Request) {
	c.movement(w, r, "withdrawal successful", c.service.Withdraw)
}

func (c *LedgerController) movement(w http.ResponseWriter, r *http.Request, success string, apply movementFunc) {
	start := time.Now()
	logRequest(r, nil)

	username, ok := c.principal(w, r, start)
	if !ok {
		return
	}

	var req models.AmountRequest
	if status, code, err := decodeBody(w, r, &req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.BalanceChangeResponse](code, "invalid request body", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.BalanceChangeResponse]("VALIDATION_FAILED", "validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	amount, _ := models.ParseAmount(req.Amount)
	balance, err := apply(r.Context(), username, amount, req.Pin, req.Note)
	if err != nil {
		c.fail(w, r, err, start)
		return
	}

	response := commons.SuccessResponse(success, models.BalanceChangeResponse{Balance: models.FormatAmount(balance)})
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *LedgerController) transfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	username, ok := c.principal(w, r, start)
	if !ok {
		return
	}

	var req models.TransferRequest
	if status, code, err := decodeBody(w, r, &req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.BalanceChangeResponse](code, "invalid request body", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.BalanceChangeResponse]("VALIDATION_FAILED", "validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	amount, _ := models.ParseAmount(req.Amount)
	balance, err := c.service.Transfer(r.Context(), username, req.Recipient, amount, req.Pin, req.Note)
	if err != nil {
		c.fail(w, r, err, start)
		return
	}

	response := commons.SuccessResponse("transfer successful", models.BalanceChangeResponse{Balance: models.FormatAmount(balance)})
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

// principal enforces POST and returns the authenticated username.
func (c *LedgerController) principal(w http.ResponseWriter, r *http.Request, start time.Time) (string, bool) {
	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.BalanceChangeResponse]("METHOD_NOT_ALLOWED", "method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return "", false
	}

	username, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response := commons.ErrorResponse[models.BalanceChangeResponse]("UNAUTHORIZED", "authentication required")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return "", false
	}
	return username, true
}

func (c *LedgerController) fail(w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	status, code, message := statusForError(err)
	logError(r, err, logger.Fields{"code": code})
	response := commons.ErrorResponse[models.BalanceChangeResponse](code, message, errorDetails(err)...)
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}
