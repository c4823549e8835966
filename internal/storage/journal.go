package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
)

// Journal is an append-only local record of submitted orders and the
// advisory feedback shown for them, in SQLite with WAL mode. It is a
// diagnostic trail, not a ledger: the server remains the system of record
// and nothing here is read back into trading state.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) the journal database at dbPath.
func OpenJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			portfolio_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity TEXT NOT NULL,
			price TEXT NOT NULL,
			snapshot_version INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback table: %w", err)
	}

	return &Journal{db: db}, nil
}

// RecordOrder stores a submitted order together with the version of the
// server snapshot that confirmed it.
func (j *Journal) RecordOrder(ctx context.Context, portfolioID string, order domain.TradeOrder, snapshotVersion int64) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO orders (id, portfolio_id, symbol, side, quantity, price, snapshot_version, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		order.ID, portfolioID, order.Symbol, string(order.Side),
		order.Quantity.String(), order.Price.String(),
		snapshotVersion, order.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// RecordFeedback stores the feedback events collected for an order.
// Duplicate ids are ignored, matching the poller's union semantics.
func (j *Journal) RecordFeedback(ctx context.Context, orderID string, events []domain.FeedbackEvent) error {
	for _, ev := range events {
		_, err := j.db.ExecContext(ctx,
			"INSERT INTO feedback (id, order_id, kind, message, created_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING",
			ev.ID, orderID, string(ev.Kind), ev.Message, ev.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert feedback %s: %w", ev.ID, err)
		}
	}
	return nil
}

// JournaledOrder is one row of the orders table.
type JournaledOrder struct {
	ID              string
	PortfolioID     string
	Symbol          string
	Side            string
	Quantity        string
	Price           string
	SnapshotVersion int64
	CreatedAt       time.Time
}

// LoadOrders returns all recorded orders for a portfolio, oldest first.
func (j *Journal) LoadOrders(ctx context.Context, portfolioID string) ([]JournaledOrder, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, portfolio_id, symbol, side, quantity, price, snapshot_version, created_at FROM orders WHERE portfolio_id = ? ORDER BY created_at ASC",
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var out []JournaledOrder
	for rows.Next() {
		var o JournaledOrder
		var createdMS int64
		if err := rows.Scan(&o.ID, &o.PortfolioID, &o.Symbol, &o.Side, &o.Quantity, &o.Price, &o.SnapshotVersion, &createdMS); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.CreatedAt = time.UnixMilli(createdMS)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// FeedbackCount returns the number of journaled feedback events for orderID.
func (j *Journal) FeedbackCount(ctx context.Context, orderID string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback WHERE order_id = ?", orderID).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
