package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/pin-ledger/src/internal/commons"
	"github.com/api-sage/pin-ledger/src/internal/logger"
	"github.com/api-sage/pin-ledger/src/internal/usecase/service_interfaces"
)

type UserController struct {
	service service_interfaces.UserService
}

func NewUserController(service service_interfaces.UserService) *UserController {
	return &UserController{service: service}
}

// RegisterRoutes mounts signup and login. Both are public, so authMiddleware
// is not applied.
func (c *UserController) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.Handle("/signup", http.HandlerFunc(c.signup))
	mux.Handle("/login", http.HandlerFunc(c.login))
}

func (c *UserController) signup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.AccountResponse]("METHOD_NOT_ALLOWED", "method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.SignupRequest
	if status, code, err := decodeBody(w, r, &req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.AccountResponse](code, "invalid request body", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.AccountResponse]("VALIDATION_FAILED", "validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	account, err := c.service.Signup(r.Context(), req.Username, req.Email, req.Password, req.Pin)
	if err != nil {
		status, code, message := statusForError(err)
		logError(r, err, logger.Fields{"code": code})
		response := commons.ErrorResponse[models.AccountResponse](code, message, errorDetails(err)...)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("account created", models.NewAccountResponse(account))
	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *UserController) login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.AccountResponse]("METHOD_NOT_ALLOWED", "method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.LoginRequest
	if status, code, err := decodeBody(w, r, &req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.AccountResponse](code, "invalid request body", err.Error())
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.AccountResponse]("VALIDATION_FAILED", "validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	account, err := c.service.Authenticate(r.Context(), req.Username, req.Password, req.Pin)
	if err != nil {
		status, code, message := statusForError(err)
		logError(r, err, logger.Fields{"code": code})
		response := commons.ErrorResponse[models.AccountResponse](code, message)
		writeJSON(w, status, response)
		logResponse(r, status, response, start)
		return
	}

	response := commons.SuccessResponse("login successful", models.NewAccountResponse(account))
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
