package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/money"
)

// refresh locks the account, runs lifecycle maintenance, and returns the
// still-locked handle. Callers must finish building their read-side view
// before the deferred unlock in their own caller fires — refresh itself
// does not unlock so the view is built from a stable snapshot.
func (b *Broker) refresh(ctx context.Context, accountID string) (*accountHandle, error) {
	h, err := b.handle(accountID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	b.refreshLocked(ctx, h, true)
	return h, nil
}

// BalanceView is the account's cash breakdown.
type BalanceView struct {
	Settled   decimal.Decimal
	Unsettled decimal.Decimal
	Available decimal.Decimal
	Reserved  decimal.Decimal
}

// MarginView is the account's margin/exposure breakdown.
type MarginView struct {
	Long        decimal.Decimal
	Short       decimal.Decimal
	Initial     decimal.Decimal
	Maintenance decimal.Decimal
	Excess      decimal.Decimal
}

// AccountSummary is the §4.6 getAccount read-side view.
type AccountSummary struct {
	ID            string
	CreatedAt     time.Time
	Balances      BalanceView
	Equity        decimal.Decimal
	Margin        MarginView
	FeesDue       decimal.Decimal
	OpenPositions int
	OpenOrders    int
}

// GetAccount refreshes the account then returns its summary view.
func (b *Broker) GetAccount(ctx context.Context, accountID string) (AccountSummary, error) {
	h, err := b.refresh(ctx, accountID)
	if err != nil {
		return AccountSummary{}, err
	}
	defer h.mu.Unlock()

	m, err := computeMetrics(ctx, h.account, b.provider, b.cfg)
	if err != nil {
		return AccountSummary{}, fmt.Errorf("broker: metrics unavailable: %w", err)
	}

	openOrders := 0
	for _, o := range h.account.Orders {
		if o.Status == model.Open {
			openOrders++
		}
	}

	return AccountSummary{
		ID:        h.account.ID,
		CreatedAt: h.account.CreatedAt,
		Balances: BalanceView{
			Settled:   h.account.SettledCash,
			Unsettled: h.account.UnsettledCash,
			Available: m.AvailableCash,
			Reserved:  h.account.ReservedCash,
		},
		Equity: m.Equity,
		Margin: MarginView{
			Long:        m.LongValue,
			Short:       m.ShortValue,
			Initial:     m.InitialRequired,
			Maintenance: m.MaintenanceRequired,
			Excess:      m.MarginExcess,
		},
		FeesDue:       h.account.FeesDue,
		OpenPositions: len(h.account.Positions),
		OpenOrders:    openOrders,
	}, nil
}

// PositionView is the §4.6 getPositions per-symbol read-side view.
type PositionView struct {
	Symbol        string
	Quantity      decimal.Decimal
	AvgPrice      decimal.Decimal
	Mid           decimal.Decimal
	MarketValue   decimal.Decimal
	UnrealizedPnL decimal.Decimal
}

// GetPositions refreshes the account then returns a per-symbol view marked
// to the current live mid.
func (b *Broker) GetPositions(ctx context.Context, accountID string) ([]PositionView, error) {
	h, err := b.refresh(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()

	symbols := sortedSymbols(h.account.Positions)
	views := make([]PositionView, 0, len(symbols))
	for _, symbol := range symbols {
		pos := h.account.Positions[symbol]
		q, err := b.provider.PeekQuote(ctx, symbol)
		if err != nil {
			continue
		}
		marketValue := money.Round(pos.Quantity.Mul(q.Mid))
		var pnl decimal.Decimal
		if pos.Quantity.IsPositive() {
			pnl = q.Mid.Sub(pos.AvgPrice).Mul(pos.Quantity)
		} else {
			pnl = pos.AvgPrice.Sub(q.Mid).Mul(pos.Quantity.Abs())
		}
		views = append(views, PositionView{
			Symbol:        symbol,
			Quantity:      pos.Quantity,
			AvgPrice:      pos.AvgPrice,
			Mid:           q.Mid,
			MarketValue:   marketValue,
			UnrealizedPnL: money.Round(pnl),
		})
	}
	return views, nil
}

// GetOrders refreshes the account then returns its order history
// newest-first, optionally filtered by status (case-insensitive).
func (b *Broker) GetOrders(ctx context.Context, accountID, status string) ([]*model.Order, error) {
	h, err := b.refresh(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()

	if status == "" {
		return append([]*model.Order(nil), h.account.Orders...), nil
	}
	want := strings.ToUpper(status)
	var filtered []*model.Order
	for _, o := range h.account.Orders {
		if string(o.Status) == want {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

// GetFills refreshes the account then returns its fill history
// newest-first.
func (b *Broker) GetFills(ctx context.Context, accountID string) ([]*model.Fill, error) {
	h, err := b.refresh(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()
	return append([]*model.Fill(nil), h.account.Fills...), nil
}
