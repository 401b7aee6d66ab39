package router_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/api-sage/pin-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/pin-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/pin-ledger/src/internal/adapter/http/router"
	"github.com/api-sage/pin-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/pin-ledger/src/internal/logger"
	"github.com/api-sage/pin-ledger/src/internal/usecase/services"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	logger.Configure(io.Discard, "error")
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

type testServer struct {
	handler http.Handler
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	store := memory.NewStore()
	hasher := services.NewHasher(bcrypt.MinCost)
	users := services.NewUserService(store, hasher)
	ledger := services.NewLedgerService(store, store, hasher, nil, 0)
	queries := services.NewQueryService(store, store)

	mux := router.New(
		controller.NewUserController(users),
		controller.NewLedgerController(ledger),
		controller.NewQueryController(queries),
		middleware.BasicAuth(users),
	)
	return testServer{handler: mux}
}

func (s testServer) do(t *testing.T, method, path, user string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":password123")))
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var env envelope
	if rr.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rr.Code, env
}

func (s testServer) signup(t *testing.T, username, pin string) {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
		"pin":      pin,
	})
	if status != http.StatusCreated || !env.Success {
		t.Fatalf("signup %s: status %d %+v", username, status, env)
	}
}

func dataField(t *testing.T, env envelope, key string) any {
	t.Helper()
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return data[key]
}

func TestLedgerFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "alice", "1234")
	s.signup(t, "bob", "5678")

	status, env := s.do(t, http.MethodPost, "/deposit", "alice", map[string]string{"amount": "100", "pin": "1234"})
	if status != http.StatusOK || dataField(t, env, "balance") != "100.00" {
		t.Fatalf("deposit: status %d %+v", status, env)
	}

	status, env = s.do(t, http.MethodPost, "/transfer", "alice", map[string]string{
		"recipient": "BOB",
		"amount":    "30",
		"pin":       "1234",
		"note":      "dinner",
	})
	if status != http.StatusOK || dataField(t, env, "balance") != "70.00" {
		t.Fatalf("transfer: status %d %+v", status, env)
	}

	status, env = s.do(t, http.MethodGet, "/balance", "bob", nil)
	if status != http.StatusOK || dataField(t, env, "balance") != "30.00" {
		t.Fatalf("balance: status %d %+v", status, env)
	}

	status, env = s.do(t, http.MethodGet, "/transactions", "alice", nil)
	if status != http.StatusOK {
		t.Fatalf("transactions: status %d", status)
	}
	var records []map[string]any
	if err := json.Unmarshal(env.Data, &records); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(records) != 2 || records[0]["type"] != "TransferSent" || records[0]["amount"] != "-30.00" || records[0]["counterparty"] != "bob" {
		t.Fatalf("unexpected transactions %+v", records)
	}

	status, env = s.do(t, http.MethodGet, "/recipients/Bob", "alice", nil)
	if status != http.StatusOK || dataField(t, env, "exists") != true || dataField(t, env, "canonicalName") != "bob" {
		t.Fatalf("recipient: status %d %+v", status, env)
	}
}

func TestErrorMappingOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "alice", "1234")
	s.signup(t, "bob", "5678")

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
		code   string
	}{
		{"insufficient funds", http.MethodPost, "/withdraw", "alice", map[string]string{"amount": "1", "pin": "1234"}, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"wrong pin", http.MethodPost, "/deposit", "alice", map[string]string{"amount": "1", "pin": "9999"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad scale", http.MethodPost, "/deposit", "alice", map[string]string{"amount": "1.234", "pin": "1234"}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"non numeric", http.MethodPost, "/deposit", "alice", map[string]string{"amount": "ten", "pin": "1234"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"exponent amount", http.MethodPost, "/deposit", "alice", map[string]string{"amount": "1e300000000", "pin": "1234"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"amount above maximum", http.MethodPost, "/deposit", "alice", map[string]string{"amount": "1000000000000000000", "pin": "1234"}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"password over bcrypt limit", http.MethodPost, "/signup", "", map[string]string{"username": "dave", "email": "dave@example.com", "password": strings.Repeat("p", 80), "pin": "1234"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"self transfer", http.MethodPost, "/transfer", "alice", map[string]string{"recipient": "alice", "amount": "1", "pin": "1234"}, http.StatusConflict, "SELF_TRANSFER"},
		{"unknown recipient", http.MethodPost, "/transfer", "alice", map[string]string{"recipient": "carol", "amount": "1", "pin": "1234"}, http.StatusNotFound, "RECIPIENT_NOT_FOUND"},
		{"duplicate signup", http.MethodPost, "/signup", "", map[string]string{"username": "alice", "email": "x@example.com", "password": "password123", "pin": "1234"}, http.StatusConflict, "CONFLICT"},
		{"wrong method", http.MethodGet, "/deposit", "alice", nil, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(t, tc.method, tc.path, tc.user, tc.body)
			if status != tc.status || env.Code != tc.code || env.Success {
				t.Fatalf("expected %d %s, got %d %+v", tc.status, tc.code, status, env)
			}
		})
	}
}

func TestProtectedRoutesRequireCredentials(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/balance", "/transactions", "/recipients/bob"} {
		status, _ := s.do(t, http.MethodGet, path, "", nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, status)
		}
	}
	status, _ := s.do(t, http.MethodPost, "/deposit", "ghost", map[string]string{"amount": "1", "pin": "1234"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", status)
	}
}

func TestHealthAndSwagger(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK || dataField(t, env, "status") != "up" {
		t.Fatalf("health: status %d %+v", status, env)
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/openapi.json", nil))
	if rr.Code != http.StatusOK || !json.Valid(rr.Body.Bytes()) {
		t.Fatalf("expected valid openapi document, got %d", rr.Code)
	}
}
