// Package brokerapi provides the HTTP handlers for the broker façade
// (§6): account creation/projection, order placement, and read-side
// listings. All order business-rule failures come back as REJECTED orders
// from the core, never as errors; this layer answers them with 400. Its
// error mapping is: 404 for an unknown account or unknown quote symbol,
// 400 for undecodable bodies, non-positive initial capital or a missing
// quote symbol, 503 for other quote provider failures, and 500 otherwise.
package brokerapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/broker"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/marketdata"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// Service wires the broker core and market-data provider to HTTP handlers.
type Service struct {
	broker   *broker.Broker
	provider marketdata.Provider
}

// NewService constructs a Service.
func NewService(b *broker.Broker, provider marketdata.Provider) *Service {
	return &Service{broker: b, provider: provider}
}

// --- Request/response types ---

// CreateAccountRequest is the JSON body for POST /accounts.
type CreateAccountRequest struct {
	InitialCapital decimal.Decimal `json:"initialCapital"`
}

// CreateAccountResponse is the JSON body returned from POST /accounts.
type CreateAccountResponse struct {
	ID string `json:"id"`
}

// OrderRequestBody is the JSON body for POST /accounts/{accountID}/orders.
type OrderRequestBody struct {
	Type       string           `json:"type"`
	Side       string           `json:"side"`
	TIF        string           `json:"tif,omitempty"`
	Symbol     string           `json:"symbol"`
	Quantity   decimal.Decimal  `json:"quantity"`
	LimitPrice *decimal.Decimal `json:"limitPrice,omitempty"`
	StopPrice  *decimal.Decimal `json:"stopPrice,omitempty"`
}

// QuoteResponse is the JSON body returned from GET /quotes.
type QuoteResponse struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Mid    decimal.Decimal `json:"mid"`
}

// --- Handlers ---

// CreateAccount handles POST /accounts.
func (s *Service) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	acct, err := s.broker.CreateAccount(r.Context(), req.InitialCapital)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(CreateAccountResponse{ID: acct.ID})
}

// GetAccount handles GET /accounts/{accountID}.
func (s *Service) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	summary, err := s.broker.GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, broker.ErrUnknownAccount) {
			writeError(w, "account not found", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// GetPositions handles GET /accounts/{accountID}/positions.
func (s *Service) GetPositions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	positions, err := s.broker.GetPositions(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, broker.ErrUnknownAccount) {
			writeError(w, "account not found", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []broker.PositionView{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

// PlaceOrder handles POST /accounts/{accountID}/orders.
func (s *Service) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var body OrderRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	req := broker.OrderRequest{
		Type:       body.Type,
		Side:       body.Side,
		TIF:        body.TIF,
		Symbol:     body.Symbol,
		Quantity:   body.Quantity,
		LimitPrice: body.LimitPrice,
		StopPrice:  body.StopPrice,
	}

	order, err := s.broker.PlaceOrder(r.Context(), accountID, req)
	if err != nil {
		if errors.Is(err, broker.ErrUnknownAccount) {
			writeError(w, "account not found", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if order.Status == model.Rejected {
		w.WriteHeader(http.StatusBadRequest)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
	json.NewEncoder(w).Encode(order)
}

// GetOrders handles GET /accounts/{accountID}/orders?status=.
func (s *Service) GetOrders(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	status := r.URL.Query().Get("status")

	orders, err := s.broker.GetOrders(r.Context(), accountID, status)
	if err != nil {
		if errors.Is(err, broker.ErrUnknownAccount) {
			writeError(w, "account not found", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// GetFills handles GET /accounts/{accountID}/fills.
func (s *Service) GetFills(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	fills, err := s.broker.GetFills(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, broker.ErrUnknownAccount) {
			writeError(w, "account not found", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if fills == nil {
		fills = []*model.Fill{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fills)
}

// GetQuote handles GET /quotes?symbol=.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, "symbol is required", http.StatusBadRequest)
		return
	}

	q, err := s.provider.PeekQuote(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrUnknownSymbol) {
			writeError(w, "unknown symbol", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(QuoteResponse{Symbol: q.Symbol, Bid: q.Bid, Ask: q.Ask, Mid: q.Mid})
}

// Health handles GET /actuator/health.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "UP"})
}

func writeError(w http.ResponseWriter, message string, status int) {
	slog.Debug("brokerapi error response", "status", status, "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"reason": message})
}
