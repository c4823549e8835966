package sim

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/infra"
)

// Server is the simulated trading backend: portfolio snapshots and order
// settlement over HTTP, live prices over a websocket stream, advisory
// feedback from the Advisor. It exists so the client stack can be run and
// tested end to end without a real exchange.
type Server struct {
	ledger  *Ledger
	prices  *PriceGen
	advisor *Advisor
	clock   infra.Clock

	// TickInterval is how often each streaming connection is pushed a fresh
	// tick per subscribed symbol.
	TickInterval time.Duration

	upgrader websocket.Upgrader
}

// NewServer wires the simulator components behind one handler.
func NewServer(ledger *Ledger, prices *PriceGen, advisor *Advisor, clock infra.Clock) *Server {
	if clock == nil {
		clock = infra.SystemClock()
	}
	return &Server{
		ledger:       ledger,
		prices:       prices,
		advisor:      advisor,
		clock:        clock,
		TickInterval: time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /portfolios/{id}", s.handleSnapshot)
	mux.HandleFunc("GET /portfolios/{id}/feedback", s.handleFeedback)
	mux.HandleFunc("POST /orders", s.handleOrder)
	mux.HandleFunc("/stream", s.handleStream)
	return mux
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.ledger.Snapshot(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown portfolio")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	events := s.advisor.Events(r.PathValue("id"))
	if events == nil {
		events = []domain.FeedbackEvent{}
	}
	writeJSON(w, http.StatusOK, map[string][]domain.FeedbackEvent{"events": events})
}

type orderRequest struct {
	PortfolioID string          `json:"portfolio_id"`
	OrderID     string          `json:"order_id"`
	Side        domain.Side     `json:"side"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed order payload")
		return
	}

	order := domain.TradeOrder{
		ID:        req.OrderID,
		Side:      req.Side,
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
		Price:     req.Price,
		CreatedAt: s.clock.Now(),
	}

	snap, err := s.ledger.Apply(req.PortfolioID, order)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.advisor.ObserveTrade(req.PortfolioID, order, snap)
	slog.Info("order settled",
		"portfolio", req.PortfolioID,
		"id", order.ID,
		"symbol", order.Symbol,
		"side", string(order.Side),
		"version", snap.Version)
	writeJSON(w, http.StatusOK, snap)
}

type streamCommand struct {
	Op     string `json:"op"`
	Symbol string `json:"symbol"`
}

type streamTick struct {
	Type   string          `json:"type"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	TsMS   int64           `json:"ts"`
}

// handleStream serves one websocket feed connection. Subscriptions are per
// connection; the server pushes a tick per subscribed symbol every
// TickInterval until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	var mu sync.Mutex
	subs := make(map[string]bool)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd streamCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			mu.Lock()
			switch cmd.Op {
			case "subscribe":
				subs[cmd.Symbol] = true
			case "unsubscribe":
				delete(subs, cmd.Symbol)
			}
			mu.Unlock()
		}
	}()

	ticker := s.clock.NewTicker(s.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C():
			mu.Lock()
			symbols := make([]string, 0, len(subs))
			for sym := range subs {
				symbols = append(symbols, sym)
			}
			mu.Unlock()

			for _, sym := range symbols {
				tick, ok := s.prices.Next(sym)
				if !ok {
					continue
				}
				msg := streamTick{
					Type:   "tick",
					Symbol: tick.Symbol,
					Price:  tick.Price,
					TsMS:   tick.ObservedAt.UnixMilli(),
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
