package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/infra"
)

// Advisor turns settled trades into the advisory events the feedback poller
// collects. Generation is synchronous with settlement but events are only
// visible through Events, so from the client's side they appear
// asynchronously, between polls.
type Advisor struct {
	clock  infra.Clock
	lookup func(symbol string) (decimal.Decimal, bool)

	mu     sync.Mutex
	events map[string][]domain.FeedbackEvent
	trades map[string][]time.Time
}

const (
	// A single position above this share of total portfolio value triggers
	// a RISK_ALERT.
	riskShareThreshold = 0.25

	// Three or more trades inside this window trigger a BEHAVIORAL_NUDGE.
	rapidTradeWindow = time.Minute
	rapidTradeCount  = 3

	// Flat spread-cost estimate applied to every fill.
	spreadCostRate = 0.001
)

// NewAdvisor creates an advisor. lookup resolves current prices so holdings
// other than the traded symbol can be valued; it may return false for
// symbols it does not track.
func NewAdvisor(clock infra.Clock, lookup func(symbol string) (decimal.Decimal, bool)) *Advisor {
	if clock == nil {
		clock = infra.SystemClock()
	}
	return &Advisor{
		clock:  clock,
		lookup: lookup,
		events: make(map[string][]domain.FeedbackEvent),
		trades: make(map[string][]time.Time),
	}
}

// ObserveTrade records one settled trade and generates whatever advisory
// events apply to it.
func (a *Advisor) ObserveTrade(portfolioID string, order domain.TradeOrder, snap domain.PortfolioSnapshot) {
	now := a.clock.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	recent := a.trades[portfolioID][:0]
	for _, t := range a.trades[portfolioID] {
		if now.Sub(t) <= rapidTradeWindow {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	a.trades[portfolioID] = recent

	var out []domain.FeedbackEvent

	cost := order.Notional().Mul(decimal.NewFromFloat(spreadCostRate)).Round(2)
	out = append(out, domain.FeedbackEvent{
		ID:        uuid.NewString(),
		Kind:      domain.FeedbackCostAnalysis,
		Message:   fmt.Sprintf("estimated spread cost %s on %s notional of %s", cost, order.Symbol, order.Notional()),
		CreatedAt: now,
	})

	if share, ok := a.positionShare(snap, order.Symbol); ok && share > riskShareThreshold {
		out = append(out, domain.FeedbackEvent{
			ID:        uuid.NewString(),
			Kind:      domain.FeedbackRiskAlert,
			Message:   fmt.Sprintf("%s is %.0f%% of portfolio value", order.Symbol, share*100),
			CreatedAt: now,
		})
	}

	if len(recent) >= rapidTradeCount {
		out = append(out, domain.FeedbackEvent{
			ID:        uuid.NewString(),
			Kind:      domain.FeedbackBehavioralNudge,
			Message:   fmt.Sprintf("%d trades in the last minute, consider slowing down", len(recent)),
			CreatedAt: now,
		})
	}

	a.events[portfolioID] = append(a.events[portfolioID], out...)
}

// positionShare values the symbol's holding against total portfolio value at
// current prices. Holdings without a known price are skipped, so the share
// is an estimate when the lookup is partial.
func (a *Advisor) positionShare(snap domain.PortfolioSnapshot, symbol string) (float64, bool) {
	price, ok := a.lookup(symbol)
	if !ok {
		return 0, false
	}
	position := snap.Holding(symbol).Mul(price)

	total := snap.Cash
	for sym, qty := range snap.Holdings {
		if p, ok := a.lookup(sym); ok {
			total = total.Add(qty.Mul(p))
		}
	}
	if !total.IsPositive() {
		return 0, false
	}
	share, _ := position.Div(total).Float64()
	return share, true
}

// Events returns every event generated so far for the portfolio, oldest
// first. Events are never consumed: the poller deduplicates by id, so
// returning the full history keeps repeated polls a union.
func (a *Advisor) Events(portfolioID string) []domain.FeedbackEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.FeedbackEvent(nil), a.events[portfolioID]...)
}
