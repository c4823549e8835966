package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
)

// Client talks to the trading backend: snapshot load, order submission and
// feedback fetch. Order submission is deliberately single-shot — the
// endpoint is not idempotent, so the client never retries it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type snapshotResponse struct {
	PortfolioID string                     `json:"portfolio_id"`
	Cash        decimal.Decimal            `json:"cash"`
	Holdings    map[string]decimal.Decimal `json:"holdings"`
	Version     int64                      `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type orderRequest struct {
	PortfolioID string          `json:"portfolio_id"`
	OrderID     string          `json:"order_id"`
	Side        domain.Side     `json:"side"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type feedbackResponse struct {
	Events []domain.FeedbackEvent `json:"events"`
}

// LoadSnapshot fetches the full portfolio snapshot. The endpoint is
// idempotent, so transient failures are retried with exponential backoff.
func (c *Client) LoadSnapshot(ctx context.Context, portfolioID string) (domain.PortfolioSnapshot, error) {
	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			delay := time.Duration(1<<uint(i-1)) * time.Second
			slog.Info("retrying snapshot load", "attempt", i, "delay", delay)
			select {
			case <-ctx.Done():
				return domain.PortfolioSnapshot{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		snap, err := c.doLoadSnapshot(ctx, portfolioID)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		slog.Warn("snapshot load attempt failed", "attempt", i+1, "err", err)
	}
	return domain.PortfolioSnapshot{}, lastErr
}

func (c *Client) doLoadSnapshot(ctx context.Context, portfolioID string) (domain.PortfolioSnapshot, error) {
	endpoint := c.baseURL + "/portfolios/" + url.PathEscape(portfolioID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PortfolioSnapshot{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.PortfolioSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	return domain.PortfolioSnapshot{
		PortfolioID: body.PortfolioID,
		Cash:        body.Cash,
		Holdings:    body.Holdings,
		Version:     body.Version,
	}, nil
}

// SubmitOrder sends the order and returns the server-confirmed post-trade
// snapshot. One attempt only; a server-reported failure comes back as a
// SUBMISSION_FAILED TradeError carrying the server's message verbatim.
func (c *Client) SubmitOrder(ctx context.Context, portfolioID string, order domain.TradeOrder) (domain.PortfolioSnapshot, error) {
	payload, err := json.Marshal(orderRequest{
		PortfolioID: portfolioID,
		OrderID:     order.ID,
		Side:        order.Side,
		Symbol:      order.Symbol,
		Quantity:    order.Quantity,
		Price:       order.Price,
	})
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.PortfolioSnapshot{}, domain.NewTradeError(domain.ErrSubmissionFailed, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.PortfolioSnapshot{}, domain.NewTradeError(domain.ErrSubmissionFailed, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return domain.PortfolioSnapshot{}, domain.NewTradeError(domain.ErrSubmissionFailed, e.Error)
		}
		return domain.PortfolioSnapshot{}, domain.NewTradeError(domain.ErrSubmissionFailed,
			fmt.Sprintf("order rejected with status %d", resp.StatusCode))
	}

	var body snapshotResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return domain.PortfolioSnapshot{}, domain.NewTradeError(domain.ErrSubmissionFailed,
			"malformed submission response: "+err.Error())
	}

	return domain.PortfolioSnapshot{
		PortfolioID: body.PortfolioID,
		Cash:        body.Cash,
		Holdings:    body.Holdings,
		Version:     body.Version,
	}, nil
}

// FetchFeedback retrieves advisory events for a portfolio. Callers decide
// what to do with failures; the feedback poller swallows them.
func (c *Client) FetchFeedback(ctx context.Context, portfolioID string) ([]domain.FeedbackEvent, error) {
	endpoint := c.baseURL + "/portfolios/" + url.PathEscape(portfolioID) + "/feedback"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body feedbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode feedback: %w", err)
	}
	return body.Events, nil
}
