package brokerapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/broker"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/brokerapi"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/marketdata"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// newTestEnv creates a test Service against an in-memory replay provider
// and a chi router wired the way cmd/broker-server does it.
func newTestEnv(t *testing.T) (*brokerapi.Service, chi.Router) {
	t.Helper()
	data := map[string]marketdata.SeriesConfig{
		"AAPL": {Series: []decimal.Decimal{d(190), d(190.5), d(191)}, SpreadBps: d(3)},
	}
	provider := marketdata.NewReplay(data, d(5), nil)
	b := broker.New(broker.DefaultConfig(), provider, nil, nil)
	svc := brokerapi.NewService(b, provider)

	r := chi.NewRouter()
	r.Get("/actuator/health", brokerapi.Health)
	r.Get("/quotes", svc.GetQuote)
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", svc.CreateAccount)
		r.Get("/{accountID}", svc.GetAccount)
		r.Get("/{accountID}/positions", svc.GetPositions)
		r.Post("/{accountID}/orders", svc.PlaceOrder)
		r.Get("/{accountID}/orders", svc.GetOrders)
		r.Get("/{accountID}/fills", svc.GetFills)
	})
	return svc, r
}

func createAccount(t *testing.T, router chi.Router, initialCapital float64) string {
	t.Helper()
	body, _ := json.Marshal(brokerapi.CreateAccountRequest{InitialCapital: d(initialCapital)})
	req := httptest.NewRequest(http.MethodPost, "/accounts/", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp brokerapi.CreateAccountResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.ID
}

func TestHealth(t *testing.T) {
	_, router := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/actuator/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "UP" {
		t.Errorf("expected status=UP, got %v", body)
	}
}

func TestCreateAccount_Valid(t *testing.T) {
	_, router := newTestEnv(t)
	id := createAccount(t, router, 10000)
	if id == "" {
		t.Error("expected a non-empty account id")
	}
}

func TestCreateAccount_NonPositiveCapitalRejected(t *testing.T) {
	_, router := newTestEnv(t)
	body, _ := json.Marshal(brokerapi.CreateAccountRequest{InitialCapital: decimal.Zero})
	req := httptest.NewRequest(http.MethodPost, "/accounts/", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-positive initial capital, got %d", w.Code)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	_, router := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/accounts/ACC-does-not-exist", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown account, got %d", w.Code)
	}
}

func TestGetAccount_Found(t *testing.T) {
	_, router := newTestEnv(t)
	id := createAccount(t, router, 10000)

	req := httptest.NewRequest(http.MethodGet, "/accounts/"+id, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlaceOrder_FilledReturns201(t *testing.T) {
	_, router := newTestEnv(t)
	id := createAccount(t, router, 100000)

	body, _ := json.Marshal(brokerapi.OrderRequestBody{
		Type: "MARKET", Side: "BUY", Symbol: "AAPL", Quantity: d(5),
	})
	req := httptest.NewRequest(http.MethodPost, "/accounts/"+id+"/orders", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for a filled order, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlaceOrder_RejectedReturns400(t *testing.T) {
	_, router := newTestEnv(t)
	id := createAccount(t, router, 100000)

	body, _ := json.Marshal(brokerapi.OrderRequestBody{
		Type: "MARKET", Side: "BUY", Symbol: "ZZZZ", Quantity: d(5),
	})
	req := httptest.NewRequest(http.MethodPost, "/accounts/"+id+"/orders", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a rejected order, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["reason"] == nil || resp["reason"] == "" {
		t.Error("expected the order body to include a reason")
	}
}

func TestPlaceOrder_UnknownAccountReturns404(t *testing.T) {
	_, router := newTestEnv(t)

	body, _ := json.Marshal(brokerapi.OrderRequestBody{
		Type: "MARKET", Side: "BUY", Symbol: "AAPL", Quantity: d(5),
	})
	req := httptest.NewRequest(http.MethodPost, "/accounts/ACC-nope/orders", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown account, got %d", w.Code)
	}
}

func TestGetQuote_MonotoneBidMidAsk(t *testing.T) {
	_, router := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/quotes?symbol=AAPL", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var q brokerapi.QuoteResponse
	json.Unmarshal(w.Body.Bytes(), &q)
	if q.Symbol != "AAPL" {
		t.Errorf("expected symbol=AAPL, got %s", q.Symbol)
	}
	if q.Bid.GreaterThan(q.Mid) || q.Mid.GreaterThan(q.Ask) {
		t.Errorf("expected bid <= mid <= ask, got bid=%s mid=%s ask=%s", q.Bid, q.Mid, q.Ask)
	}
}

func TestGetQuote_MissingSymbolIsBadRequest(t *testing.T) {
	_, router := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/quotes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a missing symbol, got %d", w.Code)
	}
}

func TestGetPositionsAndOrders_EmptyAccount(t *testing.T) {
	_, router := newTestEnv(t)
	id := createAccount(t, router, 10000)

	req := httptest.NewRequest(http.MethodGet, "/accounts/"+id+"/positions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var positions []interface{}
	json.Unmarshal(w.Body.Bytes(), &positions)
	if len(positions) != 0 {
		t.Errorf("expected no positions for a fresh account, got %d", len(positions))
	}
}
