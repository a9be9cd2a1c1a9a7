package marketdata_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/marketdata"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestReplay_GetQuoteAdvancesCursor(t *testing.T) {
	ctx := context.Background()
	data := map[string]marketdata.SeriesConfig{
		"AAPL": {Series: []decimal.Decimal{d(100), d(101), d(102)}, SpreadBps: d(10)},
	}
	p := marketdata.NewReplay(data, d(5), nil)

	q1, err := p.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if !q1.Mid.Equal(d(100)) {
		t.Errorf("expected first mid=100, got %s", q1.Mid)
	}

	q2, err := p.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if !q2.Mid.Equal(d(101)) {
		t.Errorf("expected second mid=101, got %s", q2.Mid)
	}
}

func TestReplay_PeekQuoteDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	data := map[string]marketdata.SeriesConfig{
		"AAPL": {Series: []decimal.Decimal{d(100), d(101)}, SpreadBps: d(10)},
	}
	p := marketdata.NewReplay(data, d(5), nil)

	p1, err := p.PeekQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("PeekQuote failed: %v", err)
	}
	p2, err := p.PeekQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("PeekQuote failed: %v", err)
	}
	if !p1.Mid.Equal(p2.Mid) {
		t.Errorf("expected repeated peeks to return the same mid, got %s then %s", p1.Mid, p2.Mid)
	}
}

func TestReplay_CursorWrapsCyclically(t *testing.T) {
	ctx := context.Background()
	data := map[string]marketdata.SeriesConfig{
		"AAPL": {Series: []decimal.Decimal{d(100), d(101)}, SpreadBps: d(10)},
	}
	p := marketdata.NewReplay(data, d(5), nil)

	p.GetQuote(ctx, "AAPL")
	p.GetQuote(ctx, "AAPL")
	q3, err := p.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if !q3.Mid.Equal(d(100)) {
		t.Errorf("expected cursor to wrap back to the first value, got %s", q3.Mid)
	}
}

func TestReplay_UnknownSymbolErrors(t *testing.T) {
	ctx := context.Background()
	p := marketdata.NewReplay(map[string]marketdata.SeriesConfig{}, d(5), nil)

	_, err := p.GetQuote(ctx, "ZZZZ")
	if !errors.Is(err, marketdata.ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestReplay_BidAskBracketMid(t *testing.T) {
	ctx := context.Background()
	data := map[string]marketdata.SeriesConfig{
		"AAPL": {Series: []decimal.Decimal{d(190)}, SpreadBps: d(20)},
	}
	p := marketdata.NewReplay(data, d(5), nil)

	q, err := p.PeekQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("PeekQuote failed: %v", err)
	}
	if q.Bid.GreaterThan(q.Mid) || q.Mid.GreaterThan(q.Ask) {
		t.Errorf("expected bid <= mid <= ask, got bid=%s mid=%s ask=%s", q.Bid, q.Mid, q.Ask)
	}
}

func TestReplay_DefaultSpreadAppliesWhenSymbolOmitsIt(t *testing.T) {
	ctx := context.Background()
	data := map[string]marketdata.SeriesConfig{
		"AAPL": {Series: []decimal.Decimal{d(100)}},
	}
	p := marketdata.NewReplay(data, d(40), nil)

	q, err := p.PeekQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("PeekQuote failed: %v", err)
	}
	if !q.SpreadBps.Equal(d(40)) {
		t.Errorf("expected default spread of 40bps, got %s", q.SpreadBps)
	}
}

func TestLive_DisabledReturnsError(t *testing.T) {
	ctx := context.Background()
	p := marketdata.NewLive(false)

	_, err := p.GetQuote(ctx, "AAPL")
	if !errors.Is(err, marketdata.ErrLiveDisabled) {
		t.Errorf("expected ErrLiveDisabled, got %v", err)
	}
}

func TestLive_EnabledStillUnimplemented(t *testing.T) {
	ctx := context.Background()
	p := marketdata.NewLive(true)

	_, err := p.GetQuote(ctx, "AAPL")
	if !errors.Is(err, marketdata.ErrLiveNotImplemented) {
		t.Errorf("expected ErrLiveNotImplemented, got %v", err)
	}
}
