package feed

import (
	"sync"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
)

// Subscription is one logical interest registration for a single symbol on
// the shared transport. It holds only the single most recent accepted tick.
type Subscription struct {
	symbol    string
	transport *Transport

	mu      sync.RWMutex
	last    *domain.PriceTick
	stale   bool
	closed  bool
	handler func(domain.PriceTick)
}

// Symbol returns the subscribed asset symbol.
func (s *Subscription) Symbol() string { return s.symbol }

// Latest returns the most recent accepted tick. ok is false until the first
// tick arrives. The tick may be stale; check Stale.
func (s *Subscription) Latest() (domain.PriceTick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.PriceTick{}, false
	}
	return *s.last, true
}

// Stale reports whether the held price predates a transport disconnect.
// A stale price is surfaced as degraded, never cleared.
func (s *Subscription) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// OnTick registers a handler invoked for every accepted tick of this
// subscription's symbol. Ticks for other symbols never reach the handler.
func (s *Subscription) OnTick(h func(domain.PriceTick)) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Close drops the interest registration. Idempotent and safe to call after
// the transport is gone: the second and later calls are no-ops, and the
// unsubscribe message is issued at most once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.transport.unsubscribe(s.symbol)
}

// deliver applies monotonic acceptance: a tick older than the held one is
// dropped, never rolled back over a newer value.
func (s *Subscription) deliver(tick domain.PriceTick) {
	s.mu.Lock()
	if s.closed || (s.last != nil && !tick.Supersedes(*s.last)) {
		s.mu.Unlock()
		return
	}
	s.last = &tick
	s.stale = false
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h(tick)
	}
}

func (s *Subscription) markStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}
