package broker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestUpdatePosition_OpenLong(t *testing.T) {
	acct := &model.Account{Positions: make(map[string]*model.Position)}
	updatePosition(acct, "AAPL", d(10), d(190))

	pos := acct.Positions["AAPL"]
	if pos == nil {
		t.Fatal("expected position to be opened")
	}
	if !pos.Quantity.Equal(d(10)) {
		t.Errorf("expected quantity=10, got %s", pos.Quantity)
	}
	if !pos.AvgPrice.Equal(d(190)) {
		t.Errorf("expected avgPrice=190, got %s", pos.AvgPrice)
	}
}

func TestUpdatePosition_SameSignWeightedAverage(t *testing.T) {
	acct := &model.Account{Positions: make(map[string]*model.Position)}
	updatePosition(acct, "AAPL", d(10), d(100))
	updatePosition(acct, "AAPL", d(10), d(200))

	pos := acct.Positions["AAPL"]
	if !pos.Quantity.Equal(d(20)) {
		t.Errorf("expected quantity=20, got %s", pos.Quantity)
	}
	// (10*100 + 10*200) / 20 = 150
	if !pos.AvgPrice.Equal(d(150)) {
		t.Errorf("expected avgPrice=150, got %s", pos.AvgPrice)
	}
}

func TestUpdatePosition_ReducingTradeKeepsAvgPrice(t *testing.T) {
	acct := &model.Account{Positions: make(map[string]*model.Position)}
	updatePosition(acct, "AAPL", d(10), d(100))
	updatePosition(acct, "AAPL", d(-4), d(500)) // sell 4 at a wildly different price

	pos := acct.Positions["AAPL"]
	if !pos.Quantity.Equal(d(6)) {
		t.Errorf("expected quantity=6, got %s", pos.Quantity)
	}
	if !pos.AvgPrice.Equal(d(100)) {
		t.Errorf("reducing trade should not touch avgPrice, got %s", pos.AvgPrice)
	}
}

func TestUpdatePosition_FullCloseDeletesPosition(t *testing.T) {
	acct := &model.Account{Positions: make(map[string]*model.Position)}
	updatePosition(acct, "AAPL", d(10), d(100))
	updatePosition(acct, "AAPL", d(-10), d(120))

	if _, ok := acct.Positions["AAPL"]; ok {
		t.Error("expected position to be removed on full close")
	}
}

func TestUpdatePosition_SignFlipReseedsAvgPrice(t *testing.T) {
	acct := &model.Account{Positions: make(map[string]*model.Position)}
	updatePosition(acct, "AAPL", d(10), d(100))
	updatePosition(acct, "AAPL", d(-15), d(120)) // sell through zero into a 5-share short

	pos := acct.Positions["AAPL"]
	if !pos.Quantity.Equal(d(-5)) {
		t.Errorf("expected quantity=-5, got %s", pos.Quantity)
	}
	if !pos.AvgPrice.Equal(d(120)) {
		t.Errorf("sign-flip should reseed avgPrice at fill price, got %s", pos.AvgPrice)
	}
}

func TestSameSign(t *testing.T) {
	if !sameSign(d(5), d(3)) {
		t.Error("expected two positives to be same sign")
	}
	if !sameSign(d(-5), d(-3)) {
		t.Error("expected two negatives to be same sign")
	}
	if sameSign(d(5), d(-3)) {
		t.Error("expected mixed signs to not be same sign")
	}
}

func TestSignedDelta(t *testing.T) {
	if !signedDelta(model.Buy, d(10)).Equal(d(10)) {
		t.Error("buy should be a positive delta")
	}
	if !signedDelta(model.BuyToCover, d(10)).Equal(d(10)) {
		t.Error("buy-to-cover should be a positive delta")
	}
	if !signedDelta(model.Sell, d(10)).Equal(d(-10)) {
		t.Error("sell should be a negative delta")
	}
	if !signedDelta(model.SellShort, d(10)).Equal(d(-10)) {
		t.Error("sell-short should be a negative delta")
	}
}

func TestNextBusinessDay_SkipsWeekend(t *testing.T) {
	// Friday 2026-08-07 + 2 business days -> Tuesday 2026-08-11.
	friday := time.Date(2026, 8, 7, 12, 0, 0, 0, time.UTC)
	got := nextBusinessDay(friday, 2)
	want := time.Date(2026, 8, 11, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestApplyFill_BuySideReservesCashAndQueuesDebit(t *testing.T) {
	acct := &model.Account{Positions: make(map[string]*model.Position), SettledCash: d(10000)}
	cfg := DefaultConfig()
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)

	applyFill(acct, model.Buy, "AAPL", d(5), d(190), d(950), d(1.5), cfg, now)

	if !acct.ReservedCash.Equal(d(950)) {
		t.Errorf("expected reservedCash=950, got %s", acct.ReservedCash)
	}
	if !acct.FeesDue.Equal(d(1.5)) {
		t.Errorf("expected feesDue=1.5, got %s", acct.FeesDue)
	}
	if len(acct.PendingSettlements) != 1 || acct.PendingSettlements[0].Direction != model.Debit {
		t.Fatal("expected one pending DEBIT settlement")
	}
}

func TestApplyFill_SellSideCreditsUnsettled(t *testing.T) {
	acct := &model.Account{Positions: make(map[string]*model.Position)}
	updatePosition(acct, "AAPL", d(10), d(100))
	cfg := DefaultConfig()
	now := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)

	applyFill(acct, model.Sell, "AAPL", d(10), d(110), d(1100), d(1.5), cfg, now)

	if !acct.UnsettledCash.Equal(d(1100)) {
		t.Errorf("expected unsettledCash=1100, got %s", acct.UnsettledCash)
	}
	if len(acct.PendingSettlements) != 1 || acct.PendingSettlements[0].Direction != model.Credit {
		t.Fatal("expected one pending CREDIT settlement")
	}
}
