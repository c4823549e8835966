package portfolio

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
)

type fakeLoader struct {
	snap domain.PortfolioSnapshot
	err  error
}

func (f *fakeLoader) LoadSnapshot(ctx context.Context, id string) (domain.PortfolioSnapshot, error) {
	return f.snap, f.err
}

func snap(version int64, cash int64) domain.PortfolioSnapshot {
	return domain.PortfolioSnapshot{
		PortfolioID: "p1",
		Cash:        decimal.NewFromInt(cash),
		Holdings:    map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(1)},
		Version:     version,
	}
}

func TestStore_EmptyUntilLoaded(t *testing.T) {
	s := NewStore(nil)
	if s.Get() != nil {
		t.Error("expected nil snapshot before load")
	}
}

func TestStore_ReplaceAndGetCopies(t *testing.T) {
	s := NewStore(nil)
	s.Replace(snap(1, 100))

	got := s.Get()
	if got == nil || !got.Cash.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	// Mutating the returned copy must not affect the store.
	got.Holdings["BTC-USD"] = decimal.NewFromInt(999)
	again := s.Get()
	if !again.Holding("BTC-USD").Equal(decimal.NewFromInt(1)) {
		t.Error("reader mutation leaked into the store")
	}
}

func TestStore_LastWriterWins(t *testing.T) {
	s := NewStore(nil)
	s.Replace(snap(5, 100))
	s.Replace(snap(2, 60)) // by call order, not by version

	if got := s.Get(); got.Version != 2 || !got.Cash.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected last replace to win, got %+v", got)
	}
}

func TestStore_Load(t *testing.T) {
	s := NewStore(&fakeLoader{snap: snap(7, 250)})
	if err := s.Load(context.Background(), "p1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := s.Get(); got == nil || got.Version != 7 {
		t.Errorf("unexpected snapshot after load: %+v", got)
	}
}

func TestStore_LoadErrorKeepsOldSnapshot(t *testing.T) {
	loader := &fakeLoader{snap: snap(7, 250)}
	s := NewStore(loader)
	s.Replace(snap(1, 100))

	loader.err = errors.New("server down")
	if err := s.Load(context.Background(), "p1"); err == nil {
		t.Fatal("expected load error")
	}
	if got := s.Get(); got == nil || got.Version != 1 {
		t.Error("failed load must not disturb the held snapshot")
	}
}

func TestStore_Reset(t *testing.T) {
	s := NewStore(nil)
	s.Replace(snap(1, 100))
	s.Reset()
	if s.Get() != nil {
		t.Error("expected nil snapshot after reset")
	}
}
