package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func snapWith(cash string, holdings map[string]string) PortfolioSnapshot {
	h := make(map[string]decimal.Decimal, len(holdings))
	for k, v := range holdings {
		h[k] = dec(v)
	}
	return PortfolioSnapshot{PortfolioID: "p1", Cash: dec(cash), Holdings: h, Version: 1}
}

func TestValidate_BuyWithinCash(t *testing.T) {
	// cash=100, price=50, BUY amount=40 -> quantity=0.8
	snap := snapWith("100", nil)
	intent := TradeIntent{Side: SideBuy, Symbol: "BTC-USD", Amount: dec("40")}

	order, err := Validate(intent, dec("50"), snap)
	if err != nil {
		t.Fatalf("expected valid order, got %v", err)
	}
	if !order.Quantity.Equal(dec("0.8")) {
		t.Errorf("expected quantity 0.8, got %s", order.Quantity)
	}
	if !order.Price.Equal(dec("50")) {
		t.Errorf("expected price 50, got %s", order.Price)
	}
	if order.ID != "" || !order.CreatedAt.IsZero() {
		t.Error("validator must not assign ID or timestamp")
	}
}

func TestValidate_SellExceedsHoldings(t *testing.T) {
	// holdings[BTC-USD]=0.01, price=50000, SELL amount=1000 -> qty 0.02 > 0.01
	snap := snapWith("0", map[string]string{"BTC-USD": "0.01"})
	intent := TradeIntent{Side: SideSell, Symbol: "BTC-USD", Amount: dec("1000")}

	_, err := Validate(intent, dec("50000"), snap)
	if CodeOf(err) != ErrInsufficientHoldings {
		t.Fatalf("expected INSUFFICIENT_HOLDINGS, got %v", err)
	}
}

func TestValidate_PriceUnknown(t *testing.T) {
	snap := snapWith("1000000", nil)
	intent := TradeIntent{Side: SideBuy, Symbol: "BTC-USD", Amount: dec("500")}

	_, err := Validate(intent, decimal.Zero, snap)
	if CodeOf(err) != ErrPriceUnavailable {
		t.Fatalf("expected PRICE_UNAVAILABLE, got %v", err)
	}
}

func TestValidate_RuleOrder(t *testing.T) {
	// amount<=0 must win over a missing price.
	snap := snapWith("100", nil)
	_, err := Validate(TradeIntent{Side: SideBuy, Symbol: "BTC-USD", Amount: dec("-5")}, decimal.Zero, snap)
	if CodeOf(err) != ErrInvalidAmount {
		t.Fatalf("expected INVALID_AMOUNT to win, got %v", err)
	}

	// price unavailable must win over insufficient funds.
	_, err = Validate(TradeIntent{Side: SideBuy, Symbol: "BTC-USD", Amount: dec("500")}, decimal.Zero, snapWith("0", nil))
	if CodeOf(err) != ErrPriceUnavailable {
		t.Fatalf("expected PRICE_UNAVAILABLE to win, got %v", err)
	}
}

func TestValidate_InsufficientFunds(t *testing.T) {
	snap := snapWith("30", nil)
	_, err := Validate(TradeIntent{Side: SideBuy, Symbol: "ETH-USD", Amount: dec("40")}, dec("50"), snap)
	if CodeOf(err) != ErrInsufficientFunds {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %v", err)
	}
}

func TestValidate_SellDefaultsMissingHoldingToZero(t *testing.T) {
	snap := snapWith("100", nil) // no holdings map entries at all
	_, err := Validate(TradeIntent{Side: SideSell, Symbol: "ETH-USD", Amount: dec("1")}, dec("50"), snap)
	if CodeOf(err) != ErrInsufficientHoldings {
		t.Fatalf("expected INSUFFICIENT_HOLDINGS, got %v", err)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	snap := snapWith("100", map[string]string{"BTC-USD": "2"})
	intent := TradeIntent{Side: SideSell, Symbol: "BTC-USD", Amount: dec("75")}

	first, err1 := Validate(intent, dec("50"), snap)
	second, err2 := Validate(intent, dec("50"), snap)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if !first.Quantity.Equal(second.Quantity) || first.Side != second.Side || first.Symbol != second.Symbol {
		t.Error("validation is not deterministic for identical inputs")
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	snap := snapWith("100", map[string]string{"BTC-USD": "1"})
	clone := snap.Clone()
	clone.Holdings["BTC-USD"] = dec("99")

	if !snap.Holding("BTC-USD").Equal(dec("1")) {
		t.Error("mutating a clone leaked into the original snapshot")
	}
}

func TestSnapshot_InvariantPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for negative cash")
		}
	}()
	s := snapWith("-1", nil)
	s.VerifyInvariant()
}

func TestPriceTick_Supersedes(t *testing.T) {
	base := PriceTick{Symbol: "BTC-USD", Price: dec("5")}
	base.ObservedAt = base.ObservedAt.Add(5)

	older := PriceTick{Symbol: "BTC-USD", Price: dec("3")}
	older.ObservedAt = older.ObservedAt.Add(3)

	equal := PriceTick{Symbol: "BTC-USD", Price: dec("6")}
	equal.ObservedAt = base.ObservedAt

	if older.Supersedes(base) {
		t.Error("older tick must not supersede")
	}
	if !equal.Supersedes(base) {
		t.Error("equal-timestamp tick must supersede (not older)")
	}
}
