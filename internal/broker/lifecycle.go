package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/brokermetrics"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/marketdata"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/money"
)

const isoDate = "2006-01-02"

// refreshLocked runs the §4.4 lifecycle maintenance pipeline: settle due
// entries, accrue short-borrow fees, and — unless this call is itself
// nested inside a forced liquidation — check for and perform a margin-call
// liquidation. Caller must already hold h.mu.
func (b *Broker) refreshLocked(ctx context.Context, h *accountHandle, allowLiquidation bool) {
	now := b.cfg.clock().Now()

	settleDue(h.account, now)
	accrueBorrowFees(ctx, h.account, b.provider, b.cfg, now)

	if allowLiquidation && b.cfg.ForceLiquidationEnabled {
		b.maybeLiquidate(ctx, h, now)
	}
}

// settleDue clears every pending settlement whose SettleAt has passed, then
// unconditionally drains FeesDue from SettledCash.
func settleDue(acct *model.Account, now time.Time) {
	remaining := acct.PendingSettlements[:0:0]
	settled := 0
	for _, ps := range acct.PendingSettlements {
		if ps.SettleAt.After(now) {
			remaining = append(remaining, ps)
			continue
		}
		if ps.Direction == model.Debit {
			acct.SettledCash = money.Round(acct.SettledCash.Sub(ps.Amount))
			acct.ReservedCash = money.MaxZero(acct.ReservedCash.Sub(ps.Amount))
		} else {
			acct.SettledCash = money.Round(acct.SettledCash.Add(ps.Amount))
			acct.UnsettledCash = money.Round(acct.UnsettledCash.Sub(ps.Amount))
		}
		settled++
	}
	acct.PendingSettlements = remaining
	if settled > 0 {
		brokermetrics.SettlementRunsTotal.Inc()
	}

	acct.SettledCash = money.Round(acct.SettledCash.Sub(acct.FeesDue))
	acct.FeesDue = decimal.Zero
}

// accrueBorrowFees applies §4.4 step 2: once per calendar day, charge every
// short position's market value at the configured daily rate for each
// whole day elapsed since the last accrual.
func accrueBorrowFees(ctx context.Context, acct *model.Account, provider marketdata.Provider, cfg Config, now time.Time) {
	today := now.Format(isoDate)
	if acct.LastBorrowFeeDate == today {
		return
	}

	days := daysBetween(acct.LastBorrowFeeDate, today)
	if days > 0 {
		shortValue := decimal.Zero
		for symbol, pos := range acct.Positions {
			if !pos.Quantity.IsNegative() {
				continue
			}
			q, err := provider.PeekQuote(ctx, symbol)
			if err != nil {
				continue
			}
			shortValue = shortValue.Add(pos.Quantity.Abs().Mul(q.Mid))
		}
		if shortValue.IsPositive() {
			fee := money.Round(shortValue.Mul(cfg.ShortBorrowDailyRate).Mul(decimal.NewFromInt(int64(days))))
			acct.FeesDue = money.Round(acct.FeesDue.Add(fee))
		}
	}
	acct.LastBorrowFeeDate = today
}

func daysBetween(a, b string) int {
	if a == "" {
		return 0
	}
	ta, err1 := time.Parse(isoDate, a)
	tb, err2 := time.Parse(isoDate, b)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// maybeLiquidate implements §4.4 step 3: if equity is still below
// maintenance after settlement and borrow accrual, close the largest
// absolute-value position with an internal, margin-check-bypassed MARKET
// IOC order.
func (b *Broker) maybeLiquidate(ctx context.Context, h *accountHandle, now time.Time) {
	m, err := computeMetrics(ctx, h.account, b.provider, b.cfg)
	if err != nil {
		slog.Error("margin check skipped: metrics unavailable", "account_id", h.account.ID, "err", err)
		return
	}
	if !m.Equity.LessThan(m.MaintenanceRequired) {
		return
	}

	symbol, pos := largestPosition(ctx, h.account, b.provider)
	if symbol == "" {
		return
	}

	side := model.Sell
	if pos.Quantity.IsNegative() {
		side = model.BuyToCover
	}
	req := OrderRequest{
		Type: string(model.Market), Side: string(side), TIF: string(model.IOC),
		Symbol: symbol, Quantity: pos.Quantity.Abs(),
	}

	order, err := b.placeOrderLocked(ctx, h, req, true)
	if err != nil || order.Status != model.Filled {
		synth := &model.Order{
			ID: b.newID("ORD", h.rng), AccountID: h.account.ID,
			Status: model.Rejected, Reason: "margin_call_forced_liquidation_failed",
			CreatedAt: now,
		}
		prependOrder(h.account, synth)
		b.events.OrderRejected(synth)
		b.audit.RecordOrder(ctx, synth)
		brokermetrics.LiquidationsFailedTotal.Inc()
		slog.Error("forced liquidation failed", "account_id", h.account.ID, "symbol", symbol)
		return
	}

	brokermetrics.LiquidationsTotal.Inc()
	b.events.MarginCall(h.account.ID)
	slog.Warn("forced liquidation executed",
		"account_id", h.account.ID, "symbol", symbol, "order_id", order.ID)
}

// largestPosition returns the symbol/position with the greatest |qty*mid|,
// breaking ties lexicographically by symbol for reproducibility.
func largestPosition(ctx context.Context, acct *model.Account, provider marketdata.Provider) (string, *model.Position) {
	symbols := sortedSymbols(acct.Positions)

	bestSymbol := ""
	var bestPos *model.Position
	bestAbs := decimal.Zero

	for _, symbol := range symbols {
		pos := acct.Positions[symbol]
		q, err := provider.PeekQuote(ctx, symbol)
		if err != nil {
			continue
		}
		val := pos.Quantity.Mul(q.Mid).Abs()
		if bestSymbol == "" || val.GreaterThan(bestAbs) {
			bestSymbol, bestPos, bestAbs = symbol, pos, val
		}
	}
	return bestSymbol, bestPos
}
