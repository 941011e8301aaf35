package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/config"
	"github.com/terra-clan/procure-sim/internal/market"
	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/sim"
	"github.com/terra-clan/procure-sim/internal/storage"
)

const (
	adminKey  = "sk_test_admin_0000000000"
	readerKey = "sk_test_reader_000000000"
	deadKey   = "sk_test_inactive_0000000"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateTask(ctx, &models.TrainingTask{
		ID:            "task-1",
		Title:         "Retail Basics",
		InitialBudget: decimal.NewFromInt(10000),
		DurationDays:  5,
		Status:        models.TaskActive,
	}); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	if err := store.UpsertSupplier(ctx, &models.Supplier{
		ID: "sup-1", Name: "Acme Wholesale", Category: "electronics", Rating: 4.2, Active: true,
	}); err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	if err := store.UpsertProduct(ctx, &models.Product{
		ID: "prod-1", Name: "Widget", Category: "electronics",
		BasePrice: decimal.NewFromInt(100), UnitCost: decimal.NewFromInt(50),
		SafetyStock: 10, Active: true,
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	store.AddClient(&models.ApiClient{
		ID: 1, Name: "test-admin", ApiKey: adminKey, IsActive: true,
		Permissions: []string{"*"},
	})
	store.AddClient(&models.ApiClient{
		ID: 2, Name: "test-reader", ApiKey: readerKey, IsActive: true,
		Permissions: []string{"catalog:read", "sim:read", "market:read"},
	})
	store.AddClient(&models.ApiClient{
		ID: 3, Name: "test-retired", ApiKey: deadKey, IsActive: false,
		Permissions: []string{"*"},
	})

	engine := sim.NewEngine(store)
	simulator := market.NewSeededSimulator(store, nil, 1)
	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0}, engine, simulator, nil, store)
	return srv, store
}

func doRequest(t *testing.T, srv *Server, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the "data" field of the response envelope into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *apiError       `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatalf("response not successful: %+v (body: %s)", envelope.Error, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Success bool      `json:"success"`
		Error   *apiError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rec.Body.String())
	}
	if envelope.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return envelope.Error.Code
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var data map[string]string
	decodeData(t, rec, &data)
	if data["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", data["status"])
	}
}

func TestAuthentication(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		key  string
		want int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"unknown key", "sk_test_bogus_0000000000", http.StatusUnauthorized},
		{"inactive key", deadKey, http.StatusUnauthorized},
		{"valid key", adminKey, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodGet, "/api/v1/tasks", tc.key, nil)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestAuthenticationViaXAPIKeyHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("X-API-Key", adminKey)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestPermissionEnforcement(t *testing.T) {
	srv, _ := newTestServer(t)

	// Reader may read the catalog but not start simulations or write it.
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/tasks", readerKey, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("catalog read: status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/start", readerKey,
		map[string]string{"user_id": "alice"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("sim write: status = %d, want 403", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tasks", readerKey,
		map[string]interface{}{"title": "Nope", "initial_budget": "100", "duration_days": 5})
	if rec.Code != http.StatusForbidden {
		t.Errorf("catalog write: status = %d, want 403", rec.Code)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	body := map[string]string{"user_id": "alice"}

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/start", adminKey, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var progress models.StudentProgress
	decodeData(t, rec, &progress)
	if progress.CurrentDay != 1 {
		t.Errorf("day = %d, want 1", progress.CurrentDay)
	}
	if !progress.CurrentBalance.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("balance = %s, want 10000", progress.CurrentBalance)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/orders/purchase", adminKey,
		map[string]interface{}{
			"user_id":     "alice",
			"supplier_id": "sup-1",
			"items":       []map[string]interface{}{{"product_id": "prod-1", "quantity": 10}},
		})
	if rec.Code != http.StatusCreated {
		t.Fatalf("purchase: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var order models.Order
	decodeData(t, rec, &order)
	if order.Type != models.OrderPurchase {
		t.Errorf("order type = %q, want purchase", order.Type)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("total = %s, want 500", order.TotalAmount)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/advance", adminKey, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("advance: status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/tasks/task-1/progress?user_id=alice", adminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	decodeData(t, rec, &progress)
	if progress.CurrentDay != 2 {
		t.Errorf("day after advance = %d, want 2", progress.CurrentDay)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/tasks/task-1/inventory?user_id=alice", adminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("inventory: status = %d", rec.Code)
	}
	var inv struct {
		Total int `json:"total"`
	}
	decodeData(t, rec, &inv)
	if inv.Total != 1 {
		t.Errorf("inventory total = %d, want 1", inv.Total)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/complete", adminKey, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var eval models.EvaluationRecord
	decodeData(t, rec, &eval)
	if eval.Grade == "" {
		t.Error("evaluation missing grade")
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/tasks/task-1/evaluation?user_id=alice", adminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("evaluation: status = %d", rec.Code)
	}
}

func TestSimErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	body := map[string]string{"user_id": "alice"}

	cases := []struct {
		name     string
		method   string
		path     string
		body     interface{}
		want     int
		wantCode string
	}{
		{"unknown task", http.MethodPost, "/api/v1/tasks/task-missing/start", body,
			http.StatusNotFound, "not_found"},
		{"advance before start", http.MethodPost, "/api/v1/tasks/task-1/advance", body,
			http.StatusConflict, "not_started"},
		{"missing user_id", http.MethodPost, "/api/v1/tasks/task-1/start", map[string]string{},
			http.StatusBadRequest, "validation_error"},
		{"progress without user_id", http.MethodGet, "/api/v1/tasks/task-1/progress", nil,
			http.StatusBadRequest, "validation_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, srv, tc.method, tc.path, adminKey, tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tc.want, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tc.wantCode {
				t.Errorf("error code = %q, want %q", code, tc.wantCode)
			}
		})
	}
}

func TestPurchaseBeyondBudgetReturns422(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/start", adminKey,
		map[string]string{"user_id": "alice"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/orders/purchase", adminKey,
		map[string]interface{}{
			"user_id":     "alice",
			"supplier_id": "sup-1",
			"items":       []map[string]interface{}{{"product_id": "prod-1", "quantity": 1000}},
		})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body: %s)", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "insufficient_funds" {
		t.Errorf("error code = %q, want insufficient_funds", code)
	}
}

func TestCreateTaskDefaultsCreatedBy(t *testing.T) {
	srv, store := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/tasks", adminKey, map[string]interface{}{
		"title":          "Advanced Procurement",
		"initial_budget": "25000",
		"duration_days":  14,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	var task models.TrainingTask
	decodeData(t, rec, &task)
	if task.ID == "" {
		t.Error("task id not generated")
	}
	if task.CreatedBy != "test-admin" {
		t.Errorf("created_by = %q, want test-admin", task.CreatedBy)
	}

	stored, err := store.GetTask(context.Background(), task.ID)
	if err != nil || stored == nil {
		t.Fatalf("task not persisted: %v", err)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{"initial_budget": "100", "duration_days": 5}},
		{"zero budget", map[string]interface{}{"title": "Broke", "initial_budget": "0", "duration_days": 5}},
		{"zero duration", map[string]interface{}{"title": "Instant", "initial_budget": "100", "duration_days": 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/v1/tasks", adminKey, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body: %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestNegotiateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/negotiate", adminKey, map[string]interface{}{
		"supplier_id":     "sup-1",
		"product_id":      "prod-1",
		"requested_price": "95",
		"quantity":        10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	var result sim.NegotiationResult
	decodeData(t, rec, &result)
	if !result.Accepted {
		t.Errorf("5%% discount at list price 100 should be accepted: %+v", result)
	}
	if !result.FinalPrice.Equal(decimal.NewFromInt(95)) {
		t.Errorf("final price = %s, want 95", result.FinalPrice)
	}
}

func TestReorderQuantityEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet,
		"/api/v1/products/prod-1/reorder?average_demand=10&ordering_cost=100&holding_cost=2", adminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	var data struct {
		ReorderQuantity int `json:"reorder_quantity"`
	}
	decodeData(t, rec, &data)
	if data.ReorderQuantity != 605 {
		t.Errorf("reorder quantity = %d, want 605", data.ReorderQuantity)
	}

	rec = doRequest(t, srv, http.MethodGet,
		"/api/v1/products/prod-1/reorder?average_demand=10&ordering_cost=100", adminKey, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing holding_cost: status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet,
		"/api/v1/products/prod-missing/reorder?average_demand=10&ordering_cost=100&holding_cost=2", adminKey, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown product: status = %d, want 404", rec.Code)
	}
}

func TestMarketEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/market/electronics", adminKey, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("untracked category: status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/market/trends", adminKey,
		map[string]interface{}{"categories": []string{"electronics"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("trends: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var report models.TrendReport
	decodeData(t, rec, &report)
	if len(report.Trends) != 1 {
		t.Errorf("got %d trends, want 1", len(report.Trends))
	}

	// The trends call ticked electronics, so a snapshot now exists.
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/market/electronics", adminKey, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("tracked category: status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/market/price", adminKey, map[string]interface{}{
		"product_id":    "prod-1",
		"base_cost":     "50",
		"target_margin": 0.4,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("price: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var quote models.PriceQuote
	decodeData(t, rec, &quote)
	if !quote.MinPrice.Equal(decimal.NewFromInt(55)) {
		t.Errorf("min price = %s, want 55", quote.MinPrice)
	}
}

func TestCancelOrderOverHTTP(t *testing.T) {
	srv, store := newTestServer(t)
	body := map[string]string{"user_id": "alice"}

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/start", adminKey, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: status = %d", rec.Code)
	}

	// Immediate fulfillment means API-created orders are never pending, so
	// plant one directly to exercise the cancel path.
	pending := &models.Order{
		ID: "ord-pending", OrderNumber: "PO-TEST-1", UserID: "alice", TaskID: "task-1",
		SupplierID: "sup-1", Type: models.OrderPurchase,
		TotalAmount: decimal.NewFromInt(500), Status: models.OrderPending,
		Items: []models.OrderItem{{ProductID: "prod-1", Quantity: 10, UnitPrice: decimal.NewFromInt(50)}},
	}
	if err := store.CreateOrder(context.Background(), pending); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/orders/ord-pending/cancel", adminKey, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var order models.Order
	decodeData(t, rec, &order)
	if order.Status != models.OrderCancelled {
		t.Errorf("status = %q, want cancelled", order.Status)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/tasks/task-1/orders/ord-pending/cancel", adminKey, body)
	if rec.Code != http.StatusConflict {
		t.Errorf("double cancel: status = %d, want 409", rec.Code)
	}
}
