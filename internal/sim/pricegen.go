package sim

import (
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/infra"
)

// PriceGen produces a bounded random walk per symbol. Seeded deterministic
// randomness keeps simulator runs reproducible.
type PriceGen struct {
	mu     sync.Mutex
	rng    *rand.Rand
	clock  infra.Clock
	prices map[string]decimal.Decimal
}

// NewPriceGen creates a generator with the given random seed.
func NewPriceGen(seed int64, clock infra.Clock) *PriceGen {
	if clock == nil {
		clock = infra.SystemClock()
	}
	return &PriceGen{
		rng:    rand.New(rand.NewSource(seed)),
		clock:  clock,
		prices: make(map[string]decimal.Decimal),
	}
}

// Seed sets the starting price for a symbol.
func (g *PriceGen) Seed(symbol string, price decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prices[symbol] = price
}

// Current returns the latest generated price for symbol.
func (g *PriceGen) Current(symbol string) (decimal.Decimal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.prices[symbol]
	return p, ok
}

// Next advances the walk for symbol one step and returns the tick. Each step
// moves at most 0.5% in either direction and never crosses zero.
func (g *PriceGen) Next(symbol string) (domain.PriceTick, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.prices[symbol]
	if !ok {
		return domain.PriceTick{}, false
	}

	factor := decimal.NewFromFloat(1 + (g.rng.Float64()-0.5)*0.01)
	next := p.Mul(factor).Round(2)
	if !next.IsPositive() {
		next = p
	}
	g.prices[symbol] = next

	return domain.PriceTick{
		Symbol:     symbol,
		Price:      next,
		ObservedAt: g.clock.Now(),
	}, true
}

// Symbols returns every seeded symbol.
func (g *PriceGen) Symbols() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.prices))
	for s := range g.prices {
		out = append(out, s)
	}
	return out
}
