package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/merako/storefront/internal/domain/catalog"
)

// ProductRepository implements catalog.ProductRepository.
type ProductRepository struct {
	db *DB
}

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a product repository backed by db.
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const insertProductSQL = `
INSERT INTO products (name, description, price, stock_quantity, image, category_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	err := r.db.q(ctx).QueryRow(ctx, insertProductSQL,
		p.Name, p.Description, p.Price, p.StockQuantity, p.Image, p.CategoryID,
	).Scan(&p.ID)
	return errors.Wrap(err, "insert product")
}

const updateProductSQL = `
UPDATE products
SET name = $2, description = $3, price = $4, stock_quantity = $5, image = $6, category_id = $7
WHERE id = $1`

func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	tag, err := r.db.q(ctx).Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.Image, p.CategoryID,
	)
	if err != nil {
		return errors.Wrap(err, "update product")
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.q(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return catalog.ErrProductInOrders
	}
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrProductNotFound
	}
	return nil
}

const selectProductSQL = `
SELECT id, name, description, price, stock_quantity, image, category_id
FROM products`

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	rows, err := r.db.q(ctx).Query(ctx, selectProductSQL+` WHERE id = $1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query product")
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan product")
	}
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.db.q(ctx).Query(ctx, selectProductSQL+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID int64) ([]catalog.Product, error) {
	rows, err := r.db.q(ctx).Query(ctx, selectProductSQL+` WHERE category_id = $1 ORDER BY id`, categoryID)
	if err != nil {
		return nil, errors.Wrap(err, "query products by category")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// adjustStockSQL updates only when the result stays non-negative, so a
// concurrent oversell loses the race instead of going below zero.
const adjustStockSQL = `
UPDATE products
SET stock_quantity = stock_quantity + $2
WHERE id = $1 AND stock_quantity + $2 >= 0`

func (r *ProductRepository) AdjustStock(ctx context.Context, id int64, delta int) error {
	tag, err := r.db.q(ctx).Exec(ctx, adjustStockSQL, id, delta)
	if err != nil {
		return errors.Wrap(err, "adjust stock")
	}
	if tag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return catalog.ErrProductNotFound
		}
		return catalog.ErrInsufficientStock
	}
	return nil
}

func (r *ProductRepository) exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	return exists, errors.Wrap(err, "check product exists")
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.Image, &p.CategoryID)
	return p, err
}
