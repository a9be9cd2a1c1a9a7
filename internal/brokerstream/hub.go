// Package brokerstream fans broker domain events (fills, rejections and
// margin calls; quotes are not streamed) out to WebSocket-connected façade
// clients, and
// optionally relays them through Redis pub/sub for multi-replica setups.
// It is a pure read-side observer: nothing here ever feeds back into
// engine state, so it doesn't touch the per-account serializability §5
// requires of the core.
package brokerstream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// Event is the JSON message broadcast to every connected client.
type Event struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	OrderID   string `json:"order_id,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Side      string `json:"side,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Price     string `json:"price,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Relay is anything that can additionally fan a raw event payload out —
// implemented by RedisRelay, nil-able for local-only deployments.
type Relay interface {
	Publish(payload []byte)
}

// Hub manages WebSocket connections and broadcasts broker events to all of
// them. Structurally identical to the teacher's WSHub, generalized from
// prediction-market price ticks to broker order/fill/margin events.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	relay      Relay
}

// NewHub creates a hub. relay may be nil for local-only broadcast.
func NewHub(relay Relay) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		relay:      relay,
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			slog.Info("broker stream client connected", "total", len(h.clients))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) publish(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if the buffer is full rather than block order placement.
	}
	if h.relay != nil {
		// Off the caller's goroutine: EventSink methods run under the
		// account's mutex and must not do synchronous I/O.
		go h.relay.Publish(data)
	}
}

// --- broker.EventSink implementation (structural, no import cycle) ---

func (h *Hub) OrderFilled(order *model.Order, fill *model.Fill) {
	price := ""
	if order.FillPrice != nil {
		price = order.FillPrice.String()
	}
	h.publish(Event{
		Type: "order_filled", AccountID: order.AccountID, OrderID: order.ID,
		Symbol: order.Symbol, Side: string(order.Side),
		Quantity: order.Quantity.String(), Price: price,
	})
}

func (h *Hub) OrderRejected(order *model.Order) {
	h.publish(Event{
		Type: "order_rejected", AccountID: order.AccountID, OrderID: order.ID,
		Symbol: order.Symbol, Reason: order.Reason,
	})
}

func (h *Hub) MarginCall(accountID string) {
	h.publish(Event{Type: "margin_call", AccountID: accountID})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Development-friendly default; tighten behind the façade's own auth.
	},
}

// HandleWS handles WebSocket upgrade requests, e.g. at GET /ws.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("broker stream upgrade failed", "err", err)
		return
	}

	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
