package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTick is one price observation for an asset symbol delivered over the
// live feed. Ticks carry no transport ordering guarantee; a tick is adopted
// only if it is not older than the currently held one (monotonic acceptance).
type PriceTick struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	ObservedAt time.Time       `json:"observed_at"`
}

// Supersedes reports whether t may replace prev under monotonic acceptance.
func (t PriceTick) Supersedes(prev PriceTick) bool {
	return !t.ObservedAt.Before(prev.ObservedAt)
}

// PortfolioSnapshot is the server-confirmed cash+holdings state for a
// portfolio at a point in time. It is replaced wholesale, never merged
// field-by-field.
type PortfolioSnapshot struct {
	PortfolioID string                     `json:"portfolio_id"`
	Cash        decimal.Decimal            `json:"cash"`
	Holdings    map[string]decimal.Decimal `json:"holdings"`
	Version     int64                      `json:"version"`
}

// Holding returns the held quantity for symbol, zero if absent.
func (s PortfolioSnapshot) Holding(symbol string) decimal.Decimal {
	if s.Holdings == nil {
		return decimal.Zero
	}
	if q, ok := s.Holdings[symbol]; ok {
		return q
	}
	return decimal.Zero
}

// Clone returns a deep copy. Readers always work on copies; only the
// snapshot store mutates its own instance.
func (s PortfolioSnapshot) Clone() PortfolioSnapshot {
	out := s
	out.Holdings = make(map[string]decimal.Decimal, len(s.Holdings))
	for k, v := range s.Holdings {
		out.Holdings[k] = v
	}
	return out
}

// VerifyInvariant panics if cash or any holding is negative.
func (s PortfolioSnapshot) VerifyInvariant() {
	if s.Cash.IsNegative() {
		panic("SNAPSHOT_NEGATIVE_CASH")
	}
	for sym, q := range s.Holdings {
		if q.IsNegative() {
			panic("SNAPSHOT_NEGATIVE_HOLDING: " + sym)
		}
	}
}

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeIntent is the user's requested trade, expressed in quote currency.
// It is ephemeral: created by user input, consumed once by validation.
type TradeIntent struct {
	Side   Side
	Symbol string
	// Amount is the requested size in quote currency (e.g. USD).
	Amount decimal.Decimal
}

// TradeOrder is a validated, ready-to-submit order. Immutable once built.
type TradeOrder struct {
	ID        string          `json:"id"`
	Side      Side            `json:"side"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Notional returns the order value in quote currency.
func (o TradeOrder) Notional() decimal.Decimal {
	return o.Price.Mul(o.Quantity)
}

// FeedbackKind classifies an advisory feedback event.
type FeedbackKind string

const (
	FeedbackRiskAlert       FeedbackKind = "RISK_ALERT"
	FeedbackBehavioralNudge FeedbackKind = "BEHAVIORAL_NUDGE"
	FeedbackCostAnalysis    FeedbackKind = "COST_ANALYSIS"
)

// FeedbackEvent is an advisory message generated asynchronously after a
// trade. Events are deduplicated by ID across poll cycles.
type FeedbackEvent struct {
	ID        string       `json:"id"`
	Kind      FeedbackKind `json:"kind"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}
