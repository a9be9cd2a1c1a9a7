package broker

import (
	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/clock"
)

// Config is the broker's tunable parameter set. It is immutable per broker
// instance — construct a new Broker to change any field.
type Config struct {
	// Seed seeds the RNG. Identical seed + identical input sequence yields
	// identical order/fill histories.
	Seed int64

	// ExecutionDelayMs is the cooperative delay, in milliseconds, between
	// trigger evaluation and the fill-condition re-quote.
	ExecutionDelayMs int64

	EnforceMarketHours bool
	MarketOpenHour     int
	MarketOpenMinute   int
	MarketCloseHour    int
	MarketCloseMinute  int

	CommissionPerTrade decimal.Decimal
	FeeRateBps         decimal.Decimal

	BaseSlippageBps   decimal.Decimal
	SizeImpactBps     decimal.Decimal
	RandomSlippageBps decimal.Decimal

	BaseSpreadBps decimal.Decimal

	InitialMarginLong      decimal.Decimal
	InitialMarginShort     decimal.Decimal
	MaintenanceMarginLong  decimal.Decimal
	MaintenanceMarginShort decimal.Decimal

	SettlementDaysEquities int
	ShortBorrowDailyRate   decimal.Decimal

	ForceLiquidationEnabled bool

	// Clock is optional; nil defaults to the real wall clock. Tests needing
	// determinism should inject a fake.
	Clock clock.Clock
}

func (c Config) clock() clock.Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return clock.Real{}
}

// DefaultConfig returns a reasonable default parameter set, matching the
// example ratios named in spec.md §6 (0.5 / 1.5 / 0.25 / 0.3 margins).
func DefaultConfig() Config {
	return Config{
		Seed:                    42,
		ExecutionDelayMs:        0,
		EnforceMarketHours:      false,
		MarketOpenHour:          9,
		MarketOpenMinute:        30,
		MarketCloseHour:         16,
		MarketCloseMinute:       0,
		CommissionPerTrade:      decimal.NewFromFloat(1.0),
		FeeRateBps:              decimal.NewFromFloat(0.5),
		BaseSlippageBps:         decimal.NewFromFloat(1.0),
		SizeImpactBps:           decimal.NewFromFloat(0.5),
		RandomSlippageBps:       decimal.NewFromFloat(2.0),
		BaseSpreadBps:           decimal.NewFromFloat(5.0),
		InitialMarginLong:       decimal.NewFromFloat(0.5),
		InitialMarginShort:      decimal.NewFromFloat(1.5),
		MaintenanceMarginLong:   decimal.NewFromFloat(0.25),
		MaintenanceMarginShort:  decimal.NewFromFloat(0.3),
		SettlementDaysEquities:  2,
		ShortBorrowDailyRate:    decimal.NewFromFloat(0.0002),
		ForceLiquidationEnabled: true,
	}
}
