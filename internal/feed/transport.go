package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/infra"
)

// commandMsg is the client->server frame of the feed protocol.
type commandMsg struct {
	Op     string `json:"op"` // "subscribe" | "unsubscribe"
	Symbol string `json:"symbol"`
}

// tickMsg is the server->client frame. Price arrives as a decimal string.
type tickMsg struct {
	Type   string          `json:"type"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	TsMS   int64           `json:"ts"`
}

// Transport owns the one physical websocket connection shared by all
// logical subscriptions. It demultiplexes inbound ticks by symbol once,
// centrally, and handles reconnection with exponential backoff. On
// reconnect it re-issues subscribe for every live subscription; while
// disconnected, subscriptions keep their last price and report stale.
type Transport struct {
	url string

	mu        sync.RWMutex // guards conn, subs, connected
	conn      *websocket.Conn
	subs      map[string]*Subscription
	connected bool

	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	ReadTimeout      time.Duration
	HandshakeTimeout time.Duration
}

// NewTransport creates a transport for the given feed endpoint.
// Start must be called before ticks are delivered.
func NewTransport(url string) *Transport {
	return &Transport{
		url:              url,
		subs:             make(map[string]*Subscription),
		ReadTimeout:      60 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Start initiates the connection loop.
func (t *Transport) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.runLoop(ctx)
}

// Stop terminates the transport and releases the connection.
func (t *Transport) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.closeConn()
	t.wg.Wait()
}

// Connected reports whether the physical connection is currently up.
func (t *Transport) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Subscribe registers interest in one symbol. Idempotent: a second call for
// the same symbol returns the existing subscription without re-sending the
// subscribe message.
func (t *Transport) Subscribe(symbol string) *Subscription {
	t.mu.Lock()
	if s, ok := t.subs[symbol]; ok {
		t.mu.Unlock()
		return s
	}
	s := &Subscription{symbol: symbol, transport: t}
	t.subs[symbol] = s
	t.mu.Unlock()

	// Best effort: if disconnected, the subscribe is replayed on reconnect.
	if err := t.send(commandMsg{Op: "subscribe", Symbol: symbol}); err != nil {
		slog.Debug("subscribe deferred until reconnect", "symbol", symbol, "err", err)
	}
	return s
}

// unsubscribe drops interest in a symbol. Called exactly once per
// subscription lifetime, by Subscription.Close.
func (t *Transport) unsubscribe(symbol string) {
	t.mu.Lock()
	delete(t.subs, symbol)
	t.mu.Unlock()

	if err := t.send(commandMsg{Op: "unsubscribe", Symbol: symbol}); err != nil {
		// The server drops dead subscriptions with the connection anyway.
		slog.Debug("unsubscribe skipped, not connected", "symbol", symbol)
	}
}

func (t *Transport) runLoop(ctx context.Context) {
	defer t.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := t.connect(ctx); err != nil {
			slog.Warn("feed connection failed", "err", err, "retry", retry)
			delay := infra.CalculateBackoff(retry)
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		t.readLoop()
	}
}

func (t *Transport) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: t.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	active := make([]string, 0, len(t.subs))
	for sym := range t.subs {
		active = append(active, sym)
	}
	t.mu.Unlock()

	// Re-issue interest for the currently active symbol set: the server is
	// not assumed to remember subscriptions across connections.
	for _, sym := range active {
		if err := t.send(commandMsg{Op: "subscribe", Symbol: sym}); err != nil {
			t.markDisconnected()
			return fmt.Errorf("resubscribe %s: %w", sym, err)
		}
	}

	slog.Info("feed connected", "url", t.url, "symbols", len(active))
	return nil
}

func (t *Transport) readLoop() {
	for {
		t.mu.RLock()
		c := t.conn
		t.mu.RUnlock()
		if c == nil {
			return
		}

		c.SetReadDeadline(time.Now().Add(t.ReadTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			slog.Warn("feed read error, entering degraded state", "err", err)
			t.markDisconnected()
			return
		}

		t.handleMessage(msg)
	}
}

// handleMessage parses an inbound frame and routes it to the subscription
// for its symbol. Ticks for symbols without a live subscription are
// filtered out here, before any handler runs.
func (t *Transport) handleMessage(msg []byte) {
	var m tickMsg
	if err := json.Unmarshal(msg, &m); err != nil || m.Type != "tick" {
		return
	}

	t.mu.RLock()
	s := t.subs[m.Symbol]
	t.mu.RUnlock()
	if s == nil {
		return
	}

	s.deliver(domain.PriceTick{
		Symbol:     m.Symbol,
		Price:      m.Price,
		ObservedAt: time.UnixMilli(m.TsMS),
	})
}

func (t *Transport) send(cmd commandMsg) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.RLock()
	c := t.conn
	t.mu.RUnlock()
	if c == nil {
		return fmt.Errorf("feed not connected")
	}

	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, b)
}

// markDisconnected closes the connection and flags every subscription as
// stale. Last known prices are retained, not cleared.
func (t *Transport) markDisconnected() {
	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connected = false
	subs := make([]*Subscription, 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		s.markStale()
	}
}

func (t *Transport) closeConn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connected = false
}
