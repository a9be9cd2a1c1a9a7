package broker

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/brokermetrics"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/money"
)

// OrderRequest is the externally supplied raw order (§4.2 step 2's "raw").
// It intentionally has no bypass-margin-check field: the internal
// liquidation bypass flag is a parameter of placeOrderLocked, never a field
// on data an outside caller can populate, which is how the API boundary
// satisfies the design note that _bypassMarginCheck must never reach an
// externally supplied request.
type OrderRequest struct {
	Type       string
	Side       string
	TIF        string
	Symbol     string
	Quantity   decimal.Decimal
	LimitPrice *decimal.Decimal
	StopPrice  *decimal.Decimal
}

type normalizedOrder struct {
	orderType model.OrderType
	side      model.Side
	tif       model.TIF
	symbol    string
	quantity  decimal.Decimal
	limit     *decimal.Decimal
	stop      *decimal.Decimal
}

func normalize(req OrderRequest) normalizedOrder {
	tif := strings.ToUpper(strings.TrimSpace(req.TIF))
	if tif == "" {
		tif = string(model.DAY)
	}
	return normalizedOrder{
		orderType: model.OrderType(strings.ToUpper(strings.TrimSpace(req.Type))),
		side:      model.Side(strings.ToUpper(strings.TrimSpace(req.Side))),
		tif:       model.TIF(tif),
		symbol:    strings.ToUpper(strings.TrimSpace(req.Symbol)),
		quantity:  req.Quantity,
		limit:     req.LimitPrice,
		stop:      req.StopPrice,
	}
}

func validOrderType(t model.OrderType) bool {
	switch t {
	case model.Market, model.Limit, model.Stop, model.StopLimit:
		return true
	}
	return false
}

func validSide(s model.Side) bool {
	switch s {
	case model.Buy, model.Sell, model.SellShort, model.BuyToCover:
		return true
	}
	return false
}

func validTIF(t model.TIF) bool {
	switch t {
	case model.DAY, model.GTC, model.IOC:
		return true
	}
	return false
}

func positivePrice(p *decimal.Decimal) bool {
	return p != nil && p.IsPositive()
}

// PlaceOrder runs an externally supplied order through the full §4.2
// pipeline. It never returns an error except for an unknown account —
// every business-rule failure produces a REJECTED order that is still
// recorded in the account's history.
func (b *Broker) PlaceOrder(ctx context.Context, accountID string, req OrderRequest) (*model.Order, error) {
	h, err := b.handle(accountID)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return b.placeOrderLocked(ctx, h, req, false)
}

// placeOrderLocked is the pipeline itself. Caller must already hold h.mu.
// bypassMarginCheck is set only by forced liquidation (§4.4 step 3) and
// also disables re-entrant liquidation on its own refresh, enforcing the
// single-level bypass invariant from the design notes.
func (b *Broker) placeOrderLocked(ctx context.Context, h *accountHandle, req OrderRequest, bypassMarginCheck bool) (*model.Order, error) {
	start := b.cfg.clock().Now()
	b.refreshLocked(ctx, h, !bypassMarginCheck)

	norm := normalize(req)
	order := &model.Order{
		ID:        b.newID("ORD", h.rng),
		AccountID: h.account.ID,
		Symbol:    norm.symbol,
		Type:      norm.orderType,
		Side:      norm.side,
		TIF:       norm.tif,
		Quantity:  norm.quantity,
		LimitPrice: norm.limit,
		StopPrice: norm.stop,
		Status:    model.Open,
		CreatedAt: start,
		Fees:      decimal.Zero,
	}

	reject := func(reason string) (*model.Order, error) {
		order.Status = model.Rejected
		order.Reason = reason
		prependOrder(h.account, order)
		brokermetrics.OrdersTotal.WithLabelValues(string(order.Type), "rejected").Inc()
		brokermetrics.RejectionsTotal.WithLabelValues(reason).Inc()
		brokermetrics.FillLatency.WithLabelValues(string(order.Type)).
			Observe(b.cfg.clock().Now().Sub(start).Seconds())
		b.events.OrderRejected(order)
		b.audit.RecordOrder(ctx, order)
		slog.Warn("order rejected", "account_id", h.account.ID, "order_id", order.ID,
			"symbol", order.Symbol, "reason", reason)
		return order, nil
	}

	// --- step 4: type/side/tif/quantity/price validation ---
	if !validOrderType(norm.orderType) {
		return reject("unsupported order type")
	}
	if !validSide(norm.side) {
		return reject("unsupported side")
	}
	if !validTIF(norm.tif) {
		return reject("unsupported tif")
	}
	if norm.quantity.LessThanOrEqual(decimal.Zero) {
		return reject("invalid quantity")
	}
	if norm.orderType == model.Limit && !positivePrice(norm.limit) {
		return reject("invalid limit price")
	}
	if norm.orderType == model.Stop && !positivePrice(norm.stop) {
		return reject("invalid stop price")
	}
	if norm.orderType == model.StopLimit && (!positivePrice(norm.limit) || !positivePrice(norm.stop)) {
		return reject("invalid stop/limit prices")
	}
	if norm.orderType == model.Market && norm.tif == model.GTC {
		return reject("unsupported order type/tif combination")
	}

	// --- step 5: market hours ---
	if b.cfg.EnforceMarketHours && !withinMarketHours(start, b.cfg) {
		return reject("market closed")
	}

	// --- step 6: symbol existence (first advancing quote) ---
	q1, err := b.provider.GetQuote(ctx, order.Symbol)
	if err != nil {
		return reject("unknown symbol")
	}

	// --- step 7: maintenance margin guard ---
	if !bypassMarginCheck {
		m, err := computeMetrics(ctx, h.account, b.provider, b.cfg)
		if err != nil {
			return reject("margin deficiency: account below maintenance")
		}
		if m.Equity.LessThan(m.MaintenanceRequired) {
			return reject("margin deficiency: account below maintenance")
		}
	}

	isBuy := isBuySide(norm.side)

	// --- step 8: trigger evaluation ---
	switch norm.orderType {
	case model.Market, model.Limit:
		order.TriggerState = model.TriggerNotRequired
	case model.Stop, model.StopLimit:
		var triggered bool
		if isBuy {
			triggered = q1.Mid.GreaterThanOrEqual(*norm.stop)
		} else {
			triggered = q1.Mid.LessThanOrEqual(*norm.stop)
		}
		if !triggered {
			order.Status = model.Open
			prependOrder(h.account, order)
			brokermetrics.OrdersTotal.WithLabelValues(string(order.Type), "open").Inc()
			b.audit.RecordOrder(ctx, order)
			return order, nil
		}
		if norm.orderType == model.Stop {
			order.TriggerState = model.TriggerToMarket
		} else {
			order.TriggerState = model.TriggerToLimit
		}
	}

	// --- step 9: execution delay, second advancing quote ---
	if b.cfg.ExecutionDelayMs > 0 {
		select {
		case <-ctx.Done():
			return reject("context canceled")
		case <-time.After(time.Duration(b.cfg.ExecutionDelayMs) * time.Millisecond):
		}
	}
	q2, err := b.provider.GetQuote(ctx, order.Symbol)
	if err != nil {
		return reject("unknown symbol")
	}

	effectiveType := norm.orderType
	switch norm.orderType {
	case model.Stop:
		effectiveType = model.Market
	case model.StopLimit:
		effectiveType = model.Limit
	}
	order.EffectiveType = effectiveType

	// --- step 10: fill condition ---
	filled := effectiveType == model.Market
	if effectiveType == model.Limit {
		if isBuy {
			filled = q2.Ask.LessThanOrEqual(*norm.limit)
		} else {
			filled = q2.Bid.GreaterThanOrEqual(*norm.limit)
		}
	}
	if !filled {
		order.Status = model.Open
		prependOrder(h.account, order)
		brokermetrics.OrdersTotal.WithLabelValues(string(order.Type), "open").Inc()
		b.audit.RecordOrder(ctx, order)
		return order, nil
	}

	// --- step 11: slippage & fill price ---
	basePrice := q2.Ask
	if !isBuy {
		basePrice = q2.Bid
	}

	qtyFloat, _ := norm.quantity.Float64()
	sizeImpact := b.cfg.SizeImpactBps.Mul(decimal.NewFromFloat(math.Log10(1 + qtyFloat)))
	volTerm := q2.VolatilityProxy.Mul(decimal.NewFromInt(10000)).Mul(decimal.NewFromFloat(0.05))
	randomTerm := decimal.NewFromFloat(h.rng.Float64()).Mul(b.cfg.RandomSlippageBps)
	slippageBps := b.cfg.BaseSlippageBps.Add(sizeImpact).Add(volTerm).Add(randomTerm)

	sign := decimal.NewFromInt(1)
	if !isBuy {
		sign = decimal.NewFromInt(-1)
	}
	factor := decimal.NewFromInt(1).Add(sign.Mul(slippageBps).Div(decimal.NewFromInt(10000)))
	fillPrice := money.Round(basePrice.Mul(factor))
	notional := money.Round(fillPrice.Mul(norm.quantity))
	fees := money.Round(b.cfg.CommissionPerTrade.Add(notional.Mul(b.cfg.FeeRateBps).Div(decimal.NewFromInt(10000))))

	// --- step 12: simulate post-trade ---
	simulated := cloneAccount(h.account)
	applyFill(simulated, norm.side, order.Symbol, norm.quantity, fillPrice, notional, fees, b.cfg, start)
	simMetrics, err := computeMetrics(ctx, simulated, b.provider, b.cfg)
	if err != nil {
		return reject("insufficient available buying power / margin")
	}
	if simMetrics.AvailableCash.IsNegative() || simMetrics.Equity.LessThan(simMetrics.InitialRequired) {
		return reject("insufficient available buying power / margin")
	}

	// --- step 13: apply to the real account ---
	applyFill(h.account, norm.side, order.Symbol, norm.quantity, fillPrice, notional, fees, b.cfg, start)

	// --- step 14: record order + fill ---
	filledAt := b.cfg.clock().Now()
	order.Status = model.Filled
	order.FilledAt = &filledAt
	order.FillPrice = &fillPrice
	order.Fees = fees
	prependOrder(h.account, order)

	fill := &model.Fill{
		ID:        b.newID("FIL", h.rng),
		OrderID:   order.ID,
		AccountID: h.account.ID,
		Symbol:    order.Symbol,
		Side:      norm.side,
		Quantity:  norm.quantity,
		Price:     fillPrice,
		Notional:  notional,
		Fees:      fees,
		Timestamp: filledAt,
	}
	prependFill(h.account, fill)

	brokermetrics.OrdersTotal.WithLabelValues(string(order.Type), "filled").Inc()
	brokermetrics.FillLatency.WithLabelValues(string(order.Type)).
		Observe(b.cfg.clock().Now().Sub(start).Seconds())
	b.events.OrderFilled(order, fill)
	b.audit.RecordOrder(ctx, order)
	b.audit.RecordFill(ctx, fill)
	slog.Info("order filled", "account_id", h.account.ID, "order_id", order.ID,
		"symbol", order.Symbol, "side", string(order.Side), "qty", order.Quantity.String(),
		"fill_price", fillPrice.String(), "fees", fees.String())

	// --- step 15: refresh again ---
	b.refreshLocked(ctx, h, !bypassMarginCheck)
	return order, nil
}

func withinMarketHours(now time.Time, cfg Config) bool {
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}
	open := time.Date(now.Year(), now.Month(), now.Day(), cfg.MarketOpenHour, cfg.MarketOpenMinute, 0, 0, now.Location())
	closeAt := time.Date(now.Year(), now.Month(), now.Day(), cfg.MarketCloseHour, cfg.MarketCloseMinute, 0, 0, now.Location())
	return !now.Before(open) && !now.After(closeAt)
}
