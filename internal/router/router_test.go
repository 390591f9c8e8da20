package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/models"
	"hatchery_backend/internal/repositories/memory"
	"hatchery_backend/internal/services"
	"hatchery_backend/pkg/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)
	utils.ConfigureJWT("router-test-secret", time.Hour)
	os.Exit(m.Run())
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func memoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Auth:     store,
		Feed:     store,
		Batch:    store,
		Sales:    store,
		Health:   store,
		Expense:  store,
		Tank:     store,
		Customer: store,
		Worker:   store,
		Tx:       store,
	}
}

// newTestServer builds the full engine on an in-memory store and logs in the first (Admin) user.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	m := metrics.New()
	svc := NewServices(memoryRepositories(memory.NewStore()), decimal.NewFromInt(50), m)
	s := &testServer{t: t, engine: New(svc, m, Options{})}
	s.token = s.register("owner", "correct-horse")
	return s
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// register bootstraps the first user through the public route; later users are
// created by the logged-in admin. It returns the new user's access token.
func (s *testServer) register(username, password string) string {
	s.t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	path, token := "/api/v1/auth/register", ""
	if s.token != "" {
		path, token = "/api/v1/auth/users", s.token
	}
	if w := s.do(http.MethodPost, path, token, body); w.Code != http.StatusCreated {
		s.t.Fatalf("register %s: expected 201 got %d: %s", username, w.Code, w.Body.String())
	}
	w := s.do(http.MethodPost, "/api/v1/auth/login", "", body)
	if w.Code != http.StatusOK {
		s.t.Fatalf("login %s: expected 200 got %d: %s", username, w.Code, w.Body.String())
	}
	var resp services.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		s.t.Fatalf("decode login: %v", err)
	}
	return resp.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d got %d: %s", status, w.Code, w.Body.String())
	}
	var body apiError
	decode(t, w, &body)
	if code != "" && body.Error.Code != code {
		t.Fatalf("expected error code %s got %s", code, body.Error.Code)
	}
}

func TestPingAndRequestID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/ping", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected the inbound request id to be echoed, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/ping", "", "")

	w := s.do(http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"hatchery_http_requests_total", `route="/ping"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in metrics output", want)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	expectError(t, s.do(http.MethodGet, "/api/v1/auth/me", "", ""), http.StatusUnauthorized, utils.ErrCodeUnauthorized)
	expectError(t, s.do(http.MethodGet, "/api/v1/auth/me", "not-a-jwt", ""), http.StatusUnauthorized, utils.ErrCodeUnauthorized)

	w := s.do(http.MethodGet, "/api/v1/auth/me", s.token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	var me models.User
	decode(t, w, &me)
	if me.Username != "owner" || me.Role != models.RoleAdmin {
		t.Fatalf("unexpected profile %+v", me)
	}

	expectError(t, s.do(http.MethodPost, "/api/v1/auth/login", "", `{"username":"owner","password":"wrong-horse"}`),
		http.StatusUnauthorized, utils.ErrCodeUnauthorized)
	expectError(t, s.do(http.MethodPost, "/api/v1/auth/users", s.token, `{"username":"owner","password":"correct-horse"}`),
		http.StatusConflict, utils.ErrCodeConflict)
	expectError(t, s.do(http.MethodPost, "/api/v1/auth/users", s.token, `{"username":"x","password":"short"}`),
		http.StatusBadRequest, utils.ErrCodeValidationFailed)

	if w := s.do(http.MethodPost, "/api/v1/auth/logout", s.token, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestRegistrationClosesAfterFirstUser(t *testing.T) {
	s := newTestServer(t)

	expectError(t, s.do(http.MethodPost, "/api/v1/auth/register", "", `{"username":"intruder","password":"correct-horse"}`),
		http.StatusForbidden, utils.ErrCodeForbidden)
	expectError(t, s.do(http.MethodPost, "/api/v1/auth/users", "", `{"username":"intruder","password":"correct-horse"}`),
		http.StatusUnauthorized, utils.ErrCodeUnauthorized)

	w := s.do(http.MethodPost, "/api/v1/auth/users", s.token, `{"username":"ada","password":"correct-horse","role":"Manager"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var manager models.User
	decode(t, w, &manager)
	if manager.Role != models.RoleManager {
		t.Fatalf("expected Manager got %s", manager.Role)
	}

	staff := s.register("hand", "correct-horse")
	expectError(t, s.do(http.MethodPost, "/api/v1/auth/users", staff, `{"username":"friend","password":"correct-horse"}`),
		http.StatusForbidden, utils.ErrCodeForbidden)
}

func TestRoleGate(t *testing.T) {
	s := newTestServer(t)
	staff := s.register("hand", "correct-horse")

	if w := s.do(http.MethodGet, "/api/v1/workers", staff, ""); w.Code != http.StatusOK {
		t.Fatalf("staff may list workers, got %d", w.Code)
	}
	expectError(t, s.do(http.MethodPost, "/api/v1/workers", staff, `{"full_name":"Emeka","salary_ngn":80000}`),
		http.StatusForbidden, utils.ErrCodeForbidden)
	expectError(t, s.do(http.MethodPut, "/api/v1/batches/1", staff, `{"current_stage":"Juvenile"}`),
		http.StatusForbidden, utils.ErrCodeForbidden)
	expectError(t, s.do(http.MethodPut, "/api/v1/feed/inventory/1", staff, `{"name":"x"}`),
		http.StatusForbidden, utils.ErrCodeForbidden)

	if w := s.do(http.MethodPost, "/api/v1/workers", s.token, `{"full_name":"Emeka","salary_ngn":80000}`); w.Code != http.StatusCreated {
		t.Fatalf("admin may create workers, got %d: %s", w.Code, w.Body.String())
	}
}

func TestFeedEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/feed/purchases", s.token,
		`{"feed_name":"Coppens 2mm","category":"Pellets","bag_size_kg":"15","num_bags":"10","cost_per_bag":15000,"purchase_date":"2024-03-01"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var purchase services.FeedPurchaseResult
	decode(t, w, &purchase)
	if !purchase.Inventory.UnitCostNGN.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected unit cost 1000 got %s", purchase.Inventory.UnitCostNGN)
	}

	expectError(t, s.do(http.MethodPost, "/api/v1/feed/usage", s.token, `{"inventory_id":`+itoa(purchase.Inventory.ID)+`,"quantity_kg":500}`),
		http.StatusConflict, utils.ErrCodeInsufficientStock)
	expectError(t, s.do(http.MethodPost, "/api/v1/feed/usage", s.token, `{"inventory_id":999,"quantity_kg":1}`),
		http.StatusNotFound, utils.ErrCodeNotFound)
	expectError(t, s.do(http.MethodPost, "/api/v1/feed/purchases", s.token, `{"feed_name":"x","bag_size_kg":0,"num_bags":1,"cost_per_bag":1}`),
		http.StatusBadRequest, utils.ErrCodeValidationFailed)
	expectError(t, s.do(http.MethodPost, "/api/v1/feed/purchases", s.token, `{"feed_name":"x","bag_size_kg":15,"num_bags":"ten","cost_per_bag":1}`),
		http.StatusBadRequest, utils.ErrCodeValidationFailed)
	expectError(t, s.do(http.MethodPost, "/api/v1/feed/purchases", s.token, `{"feed_name":`),
		http.StatusBadRequest, utils.ErrCodeValidationFailed)
	expectError(t, s.do(http.MethodGet, "/api/v1/feed/inventory/abc", s.token, ""),
		http.StatusBadRequest, utils.ErrCodeBadRequest)

	w = s.do(http.MethodPost, "/api/v1/feed/usage", s.token, `{"inventory_id":`+itoa(purchase.Inventory.ID)+`,"quantity_kg":"100.5"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/v1/feed/inventory", s.token, "")
	var items []models.FeedInventory
	decode(t, w, &items)
	if len(items) != 1 || !items[0].CurrentStockKg.Equal(decimal.RequireFromString("49.5")) || !items[0].LowStock {
		t.Fatalf("unexpected inventory %+v", items)
	}
}

func TestBatchAndSalesEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/tanks", s.token, `{"name":"Tank A"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var tank models.Tank
	decode(t, w, &tank)
	expectError(t, s.do(http.MethodPost, "/api/v1/tanks", s.token, `{"name":"Tank A"}`), http.StatusConflict, utils.ErrCodeConflict)

	w = s.do(http.MethodPost, "/api/v1/batches", s.token, `{"start_date":"2024-03-01","initial_count":"5000","tank_id":`+itoa(tank.ID)+`}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var batch models.Batch
	decode(t, w, &batch)

	w = s.do(http.MethodPost, "/api/v1/customers", s.token, `{"name":"Bola"}`)
	var customer models.Customer
	decode(t, w, &customer)

	sale := func(qty string) *httptest.ResponseRecorder {
		return s.do(http.MethodPost, "/api/v1/sales", s.token,
			`{"customer_id":`+itoa(customer.ID)+`,"batch_id":`+itoa(batch.ID)+`,"quantity":`+qty+`,"total_amount":"480000","sale_date":"2024-05-01"}`)
	}
	if w := sale(`"1200"`); w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	expectError(t, sale("4000"), http.StatusConflict, utils.ErrCodeInsufficientPopulation)

	w = s.do(http.MethodGet, "/api/v1/batches/"+itoa(batch.ID), s.token, "")
	var current models.Batch
	decode(t, w, &current)
	if current.CurrentCount != 3800 {
		t.Fatalf("expected current count 3800 got %d", current.CurrentCount)
	}
	expectError(t, s.do(http.MethodGet, "/api/v1/batches/999", s.token, ""), http.StatusNotFound, utils.ErrCodeNotFound)

	w = s.do(http.MethodGet, "/api/v1/sales?start_date=2024-05-01&end_date=2024-05-31&batch_id="+itoa(batch.ID), s.token, "")
	var sales []models.Sale
	decode(t, w, &sales)
	if len(sales) != 1 {
		t.Fatalf("expected 1 sale got %d", len(sales))
	}
	expectError(t, s.do(http.MethodGet, "/api/v1/sales?start_date=May", s.token, ""), http.StatusBadRequest, utils.ErrCodeValidationFailed)
	expectError(t, s.do(http.MethodGet, "/api/v1/sales?batch_id=x", s.token, ""), http.StatusBadRequest, utils.ErrCodeValidationFailed)

	w = s.do(http.MethodPut, "/api/v1/batches/"+itoa(batch.ID), s.token, `{"status":"Sold"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	expectError(t, s.do(http.MethodPut, "/api/v1/batches/"+itoa(batch.ID), s.token, `{"status":"Active"}`),
		http.StatusBadRequest, utils.ErrCodeValidationFailed)
}

func TestReportEndpoints(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(http.MethodPost, "/api/v1/expenses", s.token, `{"amount_ngn":25000,"category":"Utilities","description":"Diesel"}`); w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}

	w := s.do(http.MethodGet, "/api/v1/reports/financial-summary", s.token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var summary models.FinancialSummary
	decode(t, w, &summary)
	if !summary.NetProfitNGN.Equal(decimal.NewFromInt(-25000)) {
		t.Fatalf("expected net profit -25000 got %s", summary.NetProfitNGN)
	}

	if w := s.do(http.MethodGet, "/api/v1/reports/production", s.token, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	expectError(t, s.do(http.MethodGet, "/api/v1/reports/sales?start_date=2024-06-01&end_date=2024-05-01", s.token, ""),
		http.StatusBadRequest, utils.ErrCodeValidationFailed)

	w = s.do(http.MethodGet, "/api/v1/expenses/categories", s.token, "")
	var categories []models.ExpenseCategory
	decode(t, w, &categories)
	if len(categories) != 1 || categories[0].Name != "Utilities" {
		t.Fatalf("unexpected categories %+v", categories)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/health-logs", s.token, `{"log_date":"2024-04-10","issue_type":"Fin rot","severity":"High","mortality_count":12}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var healthLog models.HealthLog
	decode(t, w, &healthLog)
	if healthLog.LoggedBy != "owner" {
		t.Fatalf("expected logged_by from the token, got %s", healthLog.LoggedBy)
	}

	w = s.do(http.MethodPost, "/api/v1/health-logs/"+itoa(healthLog.ID)+"/treatments", s.token, `{"medication_name":"Salt bath","cost_ngn":"3500"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	expectError(t, s.do(http.MethodPost, "/api/v1/health-logs/999/treatments", s.token, `{"medication_name":"Salt bath"}`),
		http.StatusNotFound, utils.ErrCodeNotFound)
	expectError(t, s.do(http.MethodGet, "/api/v1/health-logs?severity=Bad", s.token, ""),
		http.StatusBadRequest, utils.ErrCodeValidationFailed)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
