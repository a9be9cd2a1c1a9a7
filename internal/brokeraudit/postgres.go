package brokeraudit

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// PostgresSink writes an immutable audit row per order/fill to Postgres.
// Failures are logged and swallowed — audit delivery is best-effort and
// never affects an order's outcome. Each insert runs synchronously on the
// caller's goroutine, so its round-trip does add to order placement latency.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink wraps a connection pool. Callers are expected to have
// already run the audit schema migration (orders_audit, fills_audit
// tables keyed by the envelope id, order id, and fill id).
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (s *PostgresSink) RecordOrder(ctx context.Context, order *model.Order) {
	reason := order.Reason
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders_audit
			(id, order_id, account_id, symbol, type, side, tif, quantity, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		envelopeID(), order.ID, order.AccountID, order.Symbol, order.Type, order.Side,
		order.TIF, order.Quantity, order.Status, reason, order.CreatedAt,
	)
	if err != nil {
		slog.Warn("broker audit: order insert failed", "order_id", order.ID, "err", err)
	}
}

func (s *PostgresSink) RecordFill(ctx context.Context, fill *model.Fill) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fills_audit
			(id, fill_id, order_id, account_id, symbol, side, quantity, price, notional, fees, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		envelopeID(), fill.ID, fill.OrderID, fill.AccountID, fill.Symbol, fill.Side,
		fill.Quantity, fill.Price, fill.Notional, fill.Fees, fill.Timestamp,
	)
	if err != nil {
		slog.Warn("broker audit: fill insert failed", "fill_id", fill.ID, "err", err)
	}
}
