package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/merako/storefront/internal/domain/achievement"
)

// History implements achievement.HistorySource by projecting order and
// review rows into the shape the engine evaluates.
type History struct {
	db *DB
}

var _ achievement.HistorySource = (*History)(nil)

// NewHistory creates a history source backed by db.
func NewHistory(db *DB) *History {
	return &History{db: db}
}

// deliveredOrdersSQL aggregates product IDs per delivered order. The LEFT
// JOIN keeps delivered orders that somehow lost all items.
const deliveredOrdersSQL = `
SELECT o.updated_at, COALESCE(array_agg(oi.product_id) FILTER (WHERE oi.product_id IS NOT NULL), '{}')
FROM orders o
LEFT JOIN order_items oi ON oi.order_id = o.id
WHERE o.user_id = $1 AND o.status = 'DELIVERED'
GROUP BY o.id
ORDER BY o.updated_at`

func (h *History) DeliveredOrders(ctx context.Context, userID int64) ([]achievement.DeliveredOrder, error) {
	rows, err := h.db.q(ctx).Query(ctx, deliveredOrdersSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query delivered orders")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (achievement.DeliveredOrder, error) {
		var d achievement.DeliveredOrder
		err := row.Scan(&d.DeliveredAt, &d.ProductIDs)
		return d, err
	})
}

func (h *History) ReviewCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := h.db.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE user_id = $1`, userID,
	).Scan(&n)
	return n, errors.Wrap(err, "count reviews")
}
