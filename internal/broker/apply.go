package broker

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/money"
)

// applyFill mutates acct in place: the signed-position update of §4.3 and
// the corresponding cash movement. It never touches Orders/Fills history —
// callers record those separately once the trade is known to be accepted.
func applyFill(acct *model.Account, side model.Side, symbol string, qty, price, notional, fees decimal.Decimal, cfg Config, now time.Time) {
	updatePosition(acct, symbol, signedDelta(side, qty), price)

	settleAt := nextBusinessDay(now, cfg.SettlementDaysEquities)
	if isBuySide(side) {
		acct.ReservedCash = money.Round(acct.ReservedCash.Add(notional))
		acct.PendingSettlements = append(acct.PendingSettlements, &model.PendingSettlement{
			Amount: notional, Direction: model.Debit, SettleAt: settleAt, Symbol: symbol,
		})
	} else {
		acct.UnsettledCash = money.Round(acct.UnsettledCash.Add(notional))
		acct.PendingSettlements = append(acct.PendingSettlements, &model.PendingSettlement{
			Amount: notional, Direction: model.Credit, SettleAt: settleAt, Symbol: symbol,
		})
	}
	acct.FeesDue = money.Round(acct.FeesDue.Add(fees))
}

func isBuySide(side model.Side) bool {
	return side == model.Buy || side == model.BuyToCover
}

func signedDelta(side model.Side, qty decimal.Decimal) decimal.Decimal {
	if isBuySide(side) {
		return qty
	}
	return qty.Neg()
}

// updatePosition implements the signed-position update rules of §4.3:
// same-sign additions preserve weighted-average cost, reducing trades keep
// the existing avgPrice, and a sign-flip reseeds avgPrice at the fill price
// for the residual.
func updatePosition(acct *model.Account, symbol string, delta, price decimal.Decimal) {
	pos, exists := acct.Positions[symbol]
	if !exists {
		acct.Positions[symbol] = &model.Position{
			Symbol: symbol, Quantity: delta, AvgPrice: money.Round(price),
		}
		return
	}

	q, a := pos.Quantity, pos.AvgPrice
	newQ := q.Add(delta)

	switch {
	case q.IsZero() || sameSign(q, delta):
		absQ, absD := q.Abs(), delta.Abs()
		denom := absQ.Add(absD)
		newAvg := absQ.Mul(a).Add(absD.Mul(price)).Div(denom)
		pos.Quantity = newQ
		pos.AvgPrice = money.Round(newAvg)
	case newQ.IsZero():
		delete(acct.Positions, symbol)
	case sameSign(q, newQ):
		pos.Quantity = newQ
		// avgPrice unchanged: a reducing trade.
	default:
		pos.Quantity = newQ
		pos.AvgPrice = money.Round(price)
	}
}

func sameSign(a, b decimal.Decimal) bool {
	return (a.IsPositive() && b.IsPositive()) || (a.IsNegative() && b.IsNegative())
}

// nextBusinessDay adds `days` business days (skipping Saturday/Sunday) to
// from, for T+N settlement.
func nextBusinessDay(from time.Time, days int) time.Time {
	d := from
	for i := 0; i < days; i++ {
		d = d.AddDate(0, 0, 1)
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
	}
	return d
}
