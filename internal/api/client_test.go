package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
)

func TestClient_LoadSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/portfolios/p1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"portfolio_id": "p1",
			"cash":         "100.50",
			"holdings":     map[string]string{"BTC-USD": "0.25"},
			"version":      3,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	snap, err := c.LoadSnapshot(context.Background(), "p1")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if !snap.Cash.Equal(decimal.RequireFromString("100.50")) {
		t.Errorf("unexpected cash %s", snap.Cash)
	}
	if !snap.Holding("BTC-USD").Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("unexpected holding %s", snap.Holding("BTC-USD"))
	}
	if snap.Version != 3 {
		t.Errorf("unexpected version %d", snap.Version)
	}
}

func TestClient_SubmitOrderSuccess(t *testing.T) {
	var gotReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"portfolio_id": "p1",
			"cash":         "60",
			"holdings":     map[string]string{"BTC-USD": "0.8"},
			"version":      4,
		})
	}))
	defer server.Close()

	order := domain.TradeOrder{
		ID:       "o1",
		Side:     domain.SideBuy,
		Symbol:   "BTC-USD",
		Quantity: decimal.RequireFromString("0.8"),
		Price:    decimal.NewFromInt(50),
	}

	c := NewClient(server.URL)
	snap, err := c.SubmitOrder(context.Background(), "p1", order)
	if err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}
	if !snap.Cash.Equal(decimal.NewFromInt(60)) {
		t.Errorf("unexpected post-trade cash %s", snap.Cash)
	}
	if gotReq["order_id"] != "o1" || gotReq["side"] != "BUY" {
		t.Errorf("order payload not sent as built: %+v", gotReq)
	}
}

func TestClient_SubmitOrderErrorIsVerbatimAndNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "market closed for BTC-USD"})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.SubmitOrder(context.Background(), "p1", domain.TradeOrder{ID: "o1", Side: domain.SideBuy, Symbol: "BTC-USD"})

	if domain.CodeOf(err) != domain.ErrSubmissionFailed {
		t.Fatalf("expected SUBMISSION_FAILED, got %v", err)
	}
	var te *domain.TradeError
	if !errors.As(err, &te) || te.Message != "market closed for BTC-USD" {
		t.Errorf("server message not surfaced verbatim: %v", err)
	}
	if attempts != 1 {
		t.Errorf("order submission must not be retried, saw %d attempts", attempts)
	}
}

func TestClient_FetchFeedback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/portfolios/p1/feedback" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"events": []map[string]any{
				{"id": "f1", "kind": "COST_ANALYSIS", "message": "spread cost ~0.1%", "created_at": "2026-01-02T15:04:05Z"},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	events, err := c.FetchFeedback(context.Background(), "p1")
	if err != nil {
		t.Fatalf("FetchFeedback failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "f1" || events[0].Kind != domain.FeedbackCostAnalysis {
		t.Errorf("unexpected events %+v", events)
	}
}
