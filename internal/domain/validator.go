package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Validate decides whether intent can be executed against the given price
// and snapshot, and computes the trade quantity. Pure function: no I/O, no
// clock, no hidden state; identical inputs always produce identical output.
//
// Rules are evaluated in order, first failure wins:
//  1. amount <= 0                      -> INVALID_AMOUNT
//  2. price <= 0 (or no tick yet)      -> PRICE_UNAVAILABLE
//  3. BUY and amount > cash            -> INSUFFICIENT_FUNDS
//  4. SELL and quantity > held qty     -> INSUFFICIENT_HOLDINGS
//  5. quantity not strictly positive   -> INVALID_AMOUNT
//
// The returned order carries no ID or timestamp; the coordinator assigns
// those at submission time.
func Validate(intent TradeIntent, price decimal.Decimal, snap PortfolioSnapshot) (TradeOrder, error) {
	if !intent.Amount.IsPositive() {
		return TradeOrder{}, NewTradeError(ErrInvalidAmount,
			fmt.Sprintf("amount must be positive, got %s", intent.Amount))
	}

	if !price.IsPositive() {
		return TradeOrder{}, NewTradeError(ErrPriceUnavailable,
			"no live price for "+intent.Symbol)
	}

	quantity := intent.Amount.Div(price)

	switch intent.Side {
	case SideBuy:
		if intent.Amount.GreaterThan(snap.Cash) {
			return TradeOrder{}, NewTradeError(ErrInsufficientFunds,
				fmt.Sprintf("need %s, have %s", intent.Amount, snap.Cash))
		}
	case SideSell:
		held := snap.Holding(intent.Symbol)
		if quantity.GreaterThan(held) {
			return TradeOrder{}, NewTradeError(ErrInsufficientHoldings,
				fmt.Sprintf("need %s %s, have %s", quantity, intent.Symbol, held))
		}
	default:
		return TradeOrder{}, NewTradeError(ErrInvalidAmount,
			fmt.Sprintf("unknown side %q", intent.Side))
	}

	if !quantity.IsPositive() {
		return TradeOrder{}, NewTradeError(ErrInvalidAmount,
			"computed quantity is not positive")
	}

	return TradeOrder{
		Side:     intent.Side,
		Symbol:   intent.Symbol,
		Quantity: quantity,
		Price:    price,
	}, nil
}
