package sim

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
)

// Ledger is the simulated exchange's system of record: cash and holdings per
// portfolio, mutated only through Apply. It is the authoritative side of the
// snapshot protocol; clients replace their local copy wholesale with what
// this ledger returns.
type Ledger struct {
	mu    sync.Mutex
	snaps map[string]*domain.PortfolioSnapshot
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{snaps: make(map[string]*domain.PortfolioSnapshot)}
}

// CreatePortfolio registers a portfolio with starting cash. Existing
// portfolios are overwritten, which only matters for test setup.
func (l *Ledger) CreatePortfolio(id string, cash decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snaps[id] = &domain.PortfolioSnapshot{
		PortfolioID: id,
		Cash:        cash,
		Holdings:    make(map[string]decimal.Decimal),
		Version:     1,
	}
}

// Snapshot returns a copy of the current state for id.
func (l *Ledger) Snapshot(id string) (domain.PortfolioSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.snaps[id]
	if !ok {
		return domain.PortfolioSnapshot{}, false
	}
	return s.Clone(), true
}

// Apply settles one order against the portfolio and returns the post-trade
// snapshot. The ledger re-checks balances itself rather than trusting the
// client's validation; a failure leaves the portfolio untouched.
func (l *Ledger) Apply(portfolioID string, order domain.TradeOrder) (domain.PortfolioSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.snaps[portfolioID]
	if !ok {
		return domain.PortfolioSnapshot{}, fmt.Errorf("unknown portfolio %s", portfolioID)
	}
	if !order.Quantity.IsPositive() || !order.Price.IsPositive() {
		return domain.PortfolioSnapshot{}, fmt.Errorf("order must have positive quantity and price")
	}

	cost := order.Notional()
	switch order.Side {
	case domain.SideBuy:
		if cost.GreaterThan(s.Cash) {
			return domain.PortfolioSnapshot{}, fmt.Errorf("insufficient funds: need %s, have %s", cost, s.Cash)
		}
		s.Cash = s.Cash.Sub(cost)
		s.Holdings[order.Symbol] = s.Holding(order.Symbol).Add(order.Quantity)
	case domain.SideSell:
		held := s.Holding(order.Symbol)
		if order.Quantity.GreaterThan(held) {
			return domain.PortfolioSnapshot{}, fmt.Errorf("insufficient holdings: need %s %s, have %s", order.Quantity, order.Symbol, held)
		}
		remaining := held.Sub(order.Quantity)
		if remaining.IsZero() {
			delete(s.Holdings, order.Symbol)
		} else {
			s.Holdings[order.Symbol] = remaining
		}
		s.Cash = s.Cash.Add(cost)
	default:
		return domain.PortfolioSnapshot{}, fmt.Errorf("unknown order side %q", order.Side)
	}

	s.Version++
	s.VerifyInvariant()
	return s.Clone(), nil
}
