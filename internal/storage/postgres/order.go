package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/merako/storefront/internal/domain/order"
)

// OrderRepository implements order.Repository plus the cross-domain lookups
// other packages need from order data: catalog.OrderReferences and
// review.PurchaseChecker.
type OrderRepository struct {
	db *DB
}

var _ order.Repository = (*OrderRepository)(nil)

// NewOrderRepository creates an order repository backed by db.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const insertOrderSQL = `
INSERT INTO orders (user_id, status, final_price, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.db.InTx(ctx, func(ctx context.Context) error {
		err := r.db.q(ctx).QueryRow(ctx, insertOrderSQL,
			o.UserID, o.Status, o.FinalPrice, o.CreatedAt, o.UpdatedAt,
		).Scan(&o.ID)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}
		return r.replaceItems(ctx, o)
	})
}

const updateOrderSQL = `
UPDATE orders
SET status = $2, final_price = $3, updated_at = $4
WHERE id = $1`

// Update saves the order row and replaces its items in one transaction.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	return r.db.InTx(ctx, func(ctx context.Context) error {
		tag, err := r.db.q(ctx).Exec(ctx, updateOrderSQL,
			o.ID, o.Status, o.FinalPrice, o.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "update order")
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNotFound
		}
		return r.replaceItems(ctx, o)
	})
}

func (r *OrderRepository) replaceItems(ctx context.Context, o *order.Order) error {
	if _, err := r.db.q(ctx).Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
		return errors.Wrap(err, "clear order items")
	}
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		_, err := r.db.q(ctx).Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)`,
			it.OrderID, it.ProductID, it.Quantity, it.Price,
		)
		if err != nil {
			return errors.Wrap(err, "insert order item")
		}
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.q(ctx).Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

const selectOrderSQL = `
SELECT id, user_id, status, final_price, created_at, updated_at
FROM orders`

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.findOne(ctx, selectOrderSQL+` WHERE id = $1`, order.ErrNotFound, id)
}

func (r *OrderRepository) FindActiveByUser(ctx context.Context, userID int64) (*order.Order, error) {
	return r.findOne(ctx,
		selectOrderSQL+` WHERE user_id = $1 AND status = 'PROCESSING'`,
		order.ErrNoActiveOrder, userID,
	)
}

func (r *OrderRepository) findOne(ctx context.Context, query string, missing error, args ...any) (*order.Order, error) {
	rows, err := r.db.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, missing
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan order")
	}

	if o.Items, err = r.itemsOf(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	return r.list(ctx, selectOrderSQL+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, selectOrderSQL+` ORDER BY created_at DESC`)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]order.Order, error) {
	rows, err := r.db.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	itemRows, err := r.db.q(ctx).Query(ctx,
		`SELECT order_id, product_id, quantity, price FROM order_items WHERE order_id = ANY($1) ORDER BY product_id`,
		ids,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query order items")
	}
	items, err := pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, errors.Wrap(err, "scan order items")
	}
	for _, it := range items {
		o := byID[it.OrderID]
		o.Items = append(o.Items, it)
	}
	return orders, nil
}

func (r *OrderRepository) itemsOf(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		`SELECT order_id, product_id, quantity, price FROM order_items WHERE order_id = $1 ORDER BY product_id`,
		orderID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query order items")
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// ProductInOrders reports whether any order line references the product.
func (r *OrderRepository) ProductInOrders(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)`, productID,
	).Scan(&exists)
	return exists, errors.Wrap(err, "check product references")
}

const hasDeliveredProductSQL = `
SELECT EXISTS (
	SELECT 1
	FROM orders o
	JOIN order_items oi ON oi.order_id = o.id
	WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status = 'DELIVERED'
)`

// HasDeliveredProduct reports whether the user has received the product in a
// delivered order.
func (r *OrderRepository) HasDeliveredProduct(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx, hasDeliveredProductSQL, userID, productID).Scan(&exists)
	return exists, errors.Wrap(err, "check delivered product")
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.FinalPrice, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.OrderID, &it.ProductID, &it.Quantity, &it.Price)
	return it, err
}
