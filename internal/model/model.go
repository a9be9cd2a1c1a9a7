// Package model defines the core domain types of the broker simulation
// engine, shared across the marketdata and broker packages. All monetary
// values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is the order's matching discipline.
type OrderType string

const (
	Market    OrderType = "MARKET"
	Limit     OrderType = "LIMIT"
	Stop      OrderType = "STOP"
	StopLimit OrderType = "STOP_LIMIT"
)

// Side is the trade direction, including the two short-selling variants.
type Side string

const (
	Buy        Side = "BUY"
	Sell       Side = "SELL"
	SellShort  Side = "SELL_SHORT"
	BuyToCover Side = "BUY_TO_COVER"
)

// TIF is the order's time-in-force.
type TIF string

const (
	DAY TIF = "DAY"
	GTC TIF = "GTC"
	IOC TIF = "IOC"
)

// OrderStatus is the order's terminal or resting state.
type OrderStatus string

const (
	Open     OrderStatus = "OPEN"
	Filled   OrderStatus = "FILLED"
	Rejected OrderStatus = "REJECTED"
	Canceled OrderStatus = "CANCELED"
)

// SettlementDirection is which way cash moves when a pending settlement
// clears.
type SettlementDirection string

const (
	Debit  SettlementDirection = "DEBIT"
	Credit SettlementDirection = "CREDIT"
)

// TriggerState records how a STOP/STOP_LIMIT order reached its fill
// decision. TriggerPendingLimit is referenced by the original evaluator but never
// produced — a dead branch preserved deliberately (see DESIGN.md).
type TriggerState string

const (
	TriggerNotRequired TriggerState = "NOT_REQUIRED"
	TriggerToMarket    TriggerState = "TRIGGERED_TO_MARKET"
	TriggerToLimit     TriggerState = "TRIGGERED_TO_LIMIT"
	TriggerPendingLimit TriggerState = "PENDING_LIMIT"
)

// Quote is a two-sided price for a symbol at a point in time.
// Invariant: Bid <= Mid <= Ask, and Ask-Bid == Mid*SpreadBps/10000.
type Quote struct {
	Symbol          string
	Bid             decimal.Decimal
	Ask             decimal.Decimal
	Mid             decimal.Decimal
	SpreadBps       decimal.Decimal
	VolatilityProxy decimal.Decimal
	Timestamp       time.Time
}

// Position is a signed holding in one symbol. Quantity > 0 is long,
// Quantity < 0 is short. AvgPrice > 0 whenever Quantity != 0.
type Position struct {
	Symbol   string
	Quantity decimal.Decimal
	AvgPrice decimal.Decimal
}

// Order is a single order's full lifecycle record.
type Order struct {
	ID            string
	AccountID     string
	Symbol        string
	Type          OrderType
	Side          Side
	TIF           TIF
	Quantity      decimal.Decimal
	LimitPrice    *decimal.Decimal
	StopPrice     *decimal.Decimal
	Status        OrderStatus
	Reason        string `json:"reason,omitempty"`
	CreatedAt     time.Time
	FilledAt      *time.Time
	FillPrice     *decimal.Decimal
	Fees          decimal.Decimal
	TriggerState  TriggerState
	EffectiveType OrderType
}

// Fill is an immutable execution record produced by exactly one filled
// order.
type Fill struct {
	ID        string
	OrderID   string
	AccountID string
	Symbol    string
	Side      Side
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Notional  decimal.Decimal
	Fees      decimal.Decimal
	Timestamp time.Time
}

// PendingSettlement is a T+N cash movement queued by a fill, cleared by a
// refresh once SettleAt has passed.
type PendingSettlement struct {
	Amount    decimal.Decimal
	Direction SettlementDirection
	SettleAt  time.Time
	Symbol    string
}

// Account is a brokerage account's full in-memory state: cash balances,
// signed positions, and append-only order/fill history (newest first).
type Account struct {
	ID                  string
	CreatedAt           time.Time
	SettledCash         decimal.Decimal
	UnsettledCash       decimal.Decimal
	ReservedCash        decimal.Decimal
	FeesDue             decimal.Decimal
	Positions           map[string]*Position
	Orders              []*Order
	Fills               []*Fill
	PendingSettlements  []*PendingSettlement
	LastBorrowFeeDate   string // ISO date, e.g. "2026-08-06"
}
