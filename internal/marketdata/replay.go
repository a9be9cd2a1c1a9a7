package marketdata

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/clock"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
	"github.com/Marcel-Kempel/Trading-Simulator/internal/money"
)

var minVolatilityProxy = decimal.RequireFromString("0.001")

// SeriesConfig is one symbol's replay series and optional per-symbol
// spread, matching the wire shape of the replay dataset format:
// {series: number[], spreadBps?: number}.
type SeriesConfig struct {
	Series    []decimal.Decimal `json:"series"`
	SpreadBps decimal.Decimal   `json:"spreadBps,omitempty"`
}

// Replay is a Provider that cycles through a canned per-symbol price
// series. Bid/ask are derived from the mid and a spread in basis points;
// VolatilityProxy is a rolling coefficient of variation used only as a
// slippage input.
type Replay struct {
	mu               sync.Mutex
	data             map[string]SeriesConfig
	cursor           map[string]int
	defaultSpreadBps decimal.Decimal
	clk              clock.Clock
}

// NewReplay builds a Replay provider over the given per-symbol dataset.
// defaultSpreadBps is used for any symbol whose dataset entry omits
// SpreadBps. A nil clock defaults to the real wall clock.
func NewReplay(data map[string]SeriesConfig, defaultSpreadBps decimal.Decimal, clk clock.Clock) *Replay {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Replay{
		data:             data,
		cursor:           make(map[string]int, len(data)),
		defaultSpreadBps: defaultSpreadBps,
		clk:              clk,
	}
}

// GetQuote returns the current quote for symbol and advances its cursor.
func (p *Replay) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sc, ok := p.data[symbol]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	idx := p.cursor[symbol]
	q := p.quoteAt(symbol, sc, idx)
	p.cursor[symbol] = (idx + 1) % len(sc.Series)
	return q, nil
}

// PeekQuote returns the current quote for symbol without advancing anything.
func (p *Replay) PeekQuote(ctx context.Context, symbol string) (model.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sc, ok := p.data[symbol]
	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return p.quoteAt(symbol, sc, p.cursor[symbol]), nil
}

func (p *Replay) quoteAt(symbol string, sc SeriesConfig, idx int) model.Quote {
	n := len(sc.Series)
	i := idx % n
	mid := sc.Series[i]

	spreadBps := sc.SpreadBps
	if spreadBps.IsZero() {
		spreadBps = p.defaultSpreadBps
	}
	half := mid.Mul(spreadBps).Div(decimal.NewFromInt(20000))

	return model.Quote{
		Symbol:          symbol,
		Bid:             money.Round(mid.Sub(half)),
		Ask:             money.Round(mid.Add(half)),
		Mid:             money.Round(mid),
		SpreadBps:       spreadBps,
		VolatilityProxy: volatilityProxy(sc.Series, i),
		Timestamp:       p.clk.Now(),
	}
}

// volatilityProxy is the coefficient of variation over the last up to 5
// series values ending at i, floored at 0.001 (and returned as 0.001
// outright when the window has fewer than 2 points).
func volatilityProxy(series []decimal.Decimal, i int) decimal.Decimal {
	start := i - 4
	if start < 0 {
		start = 0
	}
	window := series[start : i+1]
	if len(window) < 2 {
		return minVolatilityProxy
	}

	sum := decimal.Zero
	for _, v := range window {
		sum = sum.Add(v)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(window))))
	if mean.IsZero() {
		return minVolatilityProxy
	}

	sumSq := decimal.Zero
	for _, v := range window {
		diff := v.Sub(mean)
		sumSq = sumSq.Add(diff.Mul(diff))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(len(window))))
	stddev := decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))

	cv := stddev.Div(mean).Abs()
	if cv.LessThan(minVolatilityProxy) {
		return minVolatilityProxy
	}
	return cv
}
