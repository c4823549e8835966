package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
)

// Loader fetches the authoritative snapshot from the system of record.
type Loader interface {
	LoadSnapshot(ctx context.Context, portfolioID string) (domain.PortfolioSnapshot, error)
}

// Store holds the server-confirmed view of cash and holdings for the active
// portfolio. Single writer path (the coordinator's reconcile or an explicit
// Load), any number of readers. The snapshot is replaced wholesale, never
// merged field-by-field, so no reader can observe a mix of old cash and new
// holdings.
type Store struct {
	loader Loader

	mu   sync.RWMutex
	snap *domain.PortfolioSnapshot
}

// NewStore creates an empty store. Get returns nil until Load or Replace.
func NewStore(loader Loader) *Store {
	return &Store{loader: loader}
}

// Get returns a deep copy of the current snapshot, or nil if none loaded.
func (s *Store) Get() *domain.PortfolioSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	out := s.snap.Clone()
	return &out
}

// Replace atomically swaps in a new snapshot. Last writer wins by call
// order; callers are responsible for causal ordering.
func (s *Store) Replace(snap domain.PortfolioSnapshot) {
	snap.VerifyInvariant()
	clone := snap.Clone()

	s.mu.Lock()
	s.snap = &clone
	s.mu.Unlock()

	slog.Debug("portfolio snapshot replaced",
		"portfolio", snap.PortfolioID, "version", snap.Version)
}

// Load fetches the full snapshot for portfolioID and replaces the held one.
// Used on portfolio selection and when resuming a trade screen.
func (s *Store) Load(ctx context.Context, portfolioID string) error {
	if s.loader == nil {
		return fmt.Errorf("no snapshot loader configured")
	}

	snap, err := s.loader.LoadSnapshot(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", portfolioID, err)
	}

	s.Replace(snap)
	return nil
}

// Reset drops the held snapshot (portfolio switch or logout).
func (s *Store) Reset() {
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
}
