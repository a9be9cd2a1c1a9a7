package broker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/marketdata"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// Metrics is the margin/equity snapshot computed from an account's cash
// balances and live mid prices, per §4.5.
type Metrics struct {
	LongValue           decimal.Decimal
	ShortValue          decimal.Decimal
	MarketValue          decimal.Decimal
	Equity               decimal.Decimal
	InitialRequired      decimal.Decimal
	MaintenanceRequired  decimal.Decimal
	MarginExcess         decimal.Decimal
	AvailableCash        decimal.Decimal
}

// computeMetrics marks every position to its current peeked mid and derives
// equity and margin requirements. A market-data failure here is returned
// wrapped in ErrMetricsUnavailable: the account already holds a position in
// that symbol, so the provider should never call it unknown.
func computeMetrics(ctx context.Context, acct *model.Account, provider marketdata.Provider, cfg Config) (Metrics, error) {
	longValue := decimal.Zero
	shortValue := decimal.Zero
	marketValue := decimal.Zero

	for symbol, pos := range acct.Positions {
		q, err := provider.PeekQuote(ctx, symbol)
		if err != nil {
			return Metrics{}, fmt.Errorf("%w: %s: %v", ErrMetricsUnavailable, symbol, err)
		}
		value := pos.Quantity.Mul(q.Mid)
		marketValue = marketValue.Add(value)
		if pos.Quantity.IsPositive() {
			longValue = longValue.Add(value)
		} else if pos.Quantity.IsNegative() {
			shortValue = shortValue.Add(value.Abs())
		}
	}

	equity := acct.SettledCash.Add(acct.UnsettledCash).Add(marketValue).Sub(acct.FeesDue)
	initialRequired := cfg.InitialMarginLong.Mul(longValue).Add(cfg.InitialMarginShort.Mul(shortValue))
	maintenanceRequired := cfg.MaintenanceMarginLong.Mul(longValue).Add(cfg.MaintenanceMarginShort.Mul(shortValue))
	availableCash := acct.SettledCash.Sub(acct.ReservedCash).Sub(acct.FeesDue)

	return Metrics{
		LongValue:           longValue,
		ShortValue:          shortValue,
		MarketValue:         marketValue,
		Equity:              equity,
		InitialRequired:     initialRequired,
		MaintenanceRequired: maintenanceRequired,
		MarginExcess:        equity.Sub(maintenanceRequired),
		AvailableCash:       availableCash,
	}, nil
}
