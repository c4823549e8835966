package trade

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/feedback"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/infra"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/portfolio"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/storage"
)

// State is the coordinator's position in the trade lifecycle.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateReconciling
	StateFeedbackOpen
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateValidating:
		return "VALIDATING"
	case StateSubmitting:
		return "SUBMITTING"
	case StateReconciling:
		return "RECONCILING"
	case StateFeedbackOpen:
		return "FEEDBACK_WINDOW_OPEN"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Submitter sends an order to the order-submission collaborator and returns
// the server-confirmed post-trade snapshot.
type Submitter interface {
	SubmitOrder(ctx context.Context, portfolioID string, order domain.TradeOrder) (domain.PortfolioSnapshot, error)
}

// FeedbackFetcher retrieves advisory events for a portfolio.
type FeedbackFetcher interface {
	FetchFeedback(ctx context.Context, portfolioID string) ([]domain.FeedbackEvent, error)
}

// PriceSource exposes the latest accepted tick for the traded symbol.
// Satisfied by *feed.Subscription.
type PriceSource interface {
	Latest() (domain.PriceTick, bool)
}

// Config parameterizes a coordinator for one active portfolio.
type Config struct {
	PortfolioID  string
	PollInterval time.Duration
	Window       time.Duration
}

// Result is the outcome of a successfully submitted trade.
type Result struct {
	Order    domain.TradeOrder
	Snapshot domain.PortfolioSnapshot
	// Feedback is the open polling window for advisory events. The caller
	// may Close it early; the coordinator returns to idle either way.
	Feedback *feedback.Poller
}

// Coordinator is the root state machine ordering price ticks, user intent,
// server responses and feedback polling into consistent trades:
//
//	Idle -> Validating -> Submitting -> Reconciling -> FeedbackWindowOpen -> Idle
//
// with Failed reachable from Validating and Submitting. Exactly one trade
// is in flight per portfolio; a confirmation while not idle is rejected
// with BUSY rather than queued.
type Coordinator struct {
	cfg       Config
	store     *portfolio.Store
	prices    PriceSource
	submitter Submitter
	fetcher   FeedbackFetcher
	journal   *storage.Journal // optional
	clock     infra.Clock

	mu      sync.Mutex
	state   State
	lastErr error
}

// New wires a coordinator. Every dependency is passed explicitly — there is
// no ambient "current portfolio" — so tests can substitute fakes.
// journal may be nil.
func New(cfg Config, store *portfolio.Store, prices PriceSource, submitter Submitter, fetcher FeedbackFetcher, journal *storage.Journal, clock infra.Clock) *Coordinator {
	if clock == nil {
		clock = infra.SystemClock()
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Window == 0 {
		cfg.Window = 30 * time.Second
	}
	return &Coordinator{
		cfg:       cfg,
		store:     store,
		prices:    prices,
		submitter: submitter,
		fetcher:   fetcher,
		journal:   journal,
		clock:     clock,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error recorded by the most recent failed trade.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Confirm executes one trade end to end. Validation runs against the latest
// cached tick and snapshot — last-known-price risk is accepted explicitly,
// the live feed being the source of recency. All failures come back as
// result values (TradeError), never panics.
func (c *Coordinator) Confirm(ctx context.Context, intent domain.TradeIntent) (*Result, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		slog.Warn("trade rejected, coordinator busy", "state", state.String())
		return nil, domain.NewTradeError(domain.ErrBusy, "another trade is in progress")
	}
	c.state = StateValidating
	c.mu.Unlock()

	price := decimal.Zero
	if tick, ok := c.prices.Latest(); ok {
		price = tick.Price
	}

	var snap domain.PortfolioSnapshot
	if s := c.store.Get(); s != nil {
		snap = *s
	}

	order, err := domain.Validate(intent, price, snap)
	if err != nil {
		return nil, c.fail(err)
	}
	order.ID = uuid.NewString()
	order.CreatedAt = c.clock.Now()

	c.setState(StateSubmitting)
	slog.Info("submitting order",
		"id", order.ID,
		"symbol", order.Symbol,
		"side", string(order.Side),
		"quantity", order.Quantity.String(),
		"price", order.Price.String())

	// Single attempt, no client-side timeout or retry: submission is not
	// idempotent and the server owns its own deadline.
	newSnap, err := c.submitter.SubmitOrder(ctx, c.cfg.PortfolioID, order)
	if err != nil {
		return nil, c.fail(err)
	}

	// Reconcile: the server is authoritative. The coordinator never
	// computes the post-trade snapshot itself.
	c.setState(StateReconciling)
	c.store.Replace(newSnap)

	if c.journal != nil {
		if jerr := c.journal.RecordOrder(ctx, c.cfg.PortfolioID, order, newSnap.Version); jerr != nil {
			slog.Warn("failed to journal order", "id", order.ID, "err", jerr)
		}
	}

	c.setState(StateFeedbackOpen)
	poller := feedback.Start(context.WithoutCancel(ctx), feedback.Config{
		Interval: c.cfg.PollInterval,
		Window:   c.cfg.Window,
		Anchor:   order.CreatedAt,
	}, func(fctx context.Context) ([]domain.FeedbackEvent, error) {
		return c.fetcher.FetchFeedback(fctx, c.cfg.PortfolioID)
	}, c.clock)

	go c.watchWindow(order.ID, poller)

	return &Result{Order: order, Snapshot: newSnap, Feedback: poller}, nil
}

// watchWindow returns the coordinator to idle once the feedback window
// closes, independent of the poller's outcome, and journals whatever
// feedback the window collected.
func (c *Coordinator) watchWindow(orderID string, poller *feedback.Poller) {
	<-poller.Done()

	if c.journal != nil {
		events := poller.Events()
		if len(events) > 0 {
			if err := c.journal.RecordFeedback(context.Background(), orderID, events); err != nil {
				slog.Warn("failed to journal feedback", "order", orderID, "err", err)
			}
		}
	}

	c.mu.Lock()
	if c.state == StateFeedbackOpen {
		c.state = StateIdle
	}
	c.mu.Unlock()
	slog.Debug("feedback window closed", "order", orderID)
}

// fail records the error, passes through Failed and settles back to Idle
// with no side effects, returning err for the caller to surface.
func (c *Coordinator) fail(err error) error {
	c.mu.Lock()
	c.state = StateFailed
	c.lastErr = err
	c.state = StateIdle
	c.mu.Unlock()

	slog.Warn("trade failed", "code", string(domain.CodeOf(err)), "err", err)
	return err
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
