package feedback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/infra"
)

// FetchFunc retrieves the current advisory events for a portfolio.
type FetchFunc func(ctx context.Context) ([]domain.FeedbackEvent, error)

// Config parameterizes one feedback window.
type Config struct {
	// Interval between fetches.
	Interval time.Duration
	// Window bounds the poller's lifetime, measured from Anchor.
	Window time.Duration
	// Anchor is t0, the trade submission time. Only events created strictly
	// after it are retained.
	Anchor time.Time
}

// Poller is a time-boxed repeating fetch of advisory events correlated to a
// just-completed trade. It fetches once immediately, then on a fixed
// interval until the window elapses or Close is called. Results are merged
// into an id-deduplicated set; a fetch returning an already-seen id is a
// no-op. A failed fetch is logged and swallowed; the window's expiry is the
// only terminal condition besides Close.
type Poller struct {
	cfg   Config
	fetch FetchFunc
	clock infra.Clock

	mu     sync.Mutex
	seen   map[string]struct{}
	events []domain.FeedbackEvent

	done      chan struct{}
	closeOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Start opens the feedback window and begins polling.
func Start(ctx context.Context, cfg Config, fetch FetchFunc, clock infra.Clock) *Poller {
	if clock == nil {
		clock = infra.SystemClock()
	}
	p := &Poller{
		cfg:   cfg,
		fetch: fetch,
		clock: clock,
		seen:  make(map[string]struct{}),
		done:  make(chan struct{}),
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.run(ctx)
	return p
}

// Events returns the accumulated events in arrival order.
func (p *Poller) Events() []domain.FeedbackEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.FeedbackEvent, len(p.events))
	copy(out, p.events)
	return out
}

// Done is closed when the window elapses or the poller is closed early.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Close ends the window early. Idempotent; no fetch is issued after Close,
// and an in-flight fetch at close time has its result discarded.
func (p *Poller) Close() {
	p.stop()
	p.wg.Wait()
}

func (p *Poller) stop() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.cancel()
	})
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()
	defer p.stop()

	deadline := p.cfg.Anchor.Add(p.cfg.Window)

	// The window may already be over when the poller is handed an old
	// anchor; in that case no fetch is issued at all.
	if p.clock.Now().After(deadline) {
		return
	}

	p.poll(ctx)

	ticker := p.clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if p.clock.Now().After(deadline) {
				return
			}
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	events, err := p.fetch(ctx)
	if err != nil {
		// Swallowed: the next interval tick attempts again.
		slog.Warn("feedback fetch failed", "err", err)
		return
	}
	p.merge(events)
}

func (p *Poller) merge(events []domain.FeedbackEvent) {
	// Discard results landing after Close.
	select {
	case <-p.done:
		return
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range events {
		if !ev.CreatedAt.After(p.cfg.Anchor) {
			continue
		}
		if _, dup := p.seen[ev.ID]; dup {
			continue
		}
		p.seen[ev.ID] = struct{}{}
		p.events = append(p.events, ev)
	}
}
