package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/merako/storefront/internal/domain/catalog"
)

// CategoryRepository implements catalog.CategoryRepository.
type CategoryRepository struct {
	db *DB
}

var _ catalog.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository creates a category repository backed by db.
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *catalog.Category) error {
	err := r.db.q(ctx).QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id`, c.Name,
	).Scan(&c.ID)
	if isUniqueViolation(err) {
		return catalog.ErrCategoryExists
	}
	return errors.Wrap(err, "insert category")
}

func (r *CategoryRepository) Update(ctx context.Context, c *catalog.Category) error {
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE categories SET name = $2 WHERE id = $1`, c.ID, c.Name,
	)
	if isUniqueViolation(err) {
		return catalog.ErrCategoryExists
	}
	if err != nil {
		return errors.Wrap(err, "update category")
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

// Delete removes a category; its products go with it via the cascade. A
// product still referenced by order items blocks the cascade.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.q(ctx).Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return catalog.ErrProductInOrders
	}
	if err != nil {
		return errors.Wrap(err, "delete category")
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*catalog.Category, error) {
	rows, err := r.db.q(ctx).Query(ctx, `SELECT id, name FROM categories WHERE id = $1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query category")
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrCategoryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan category")
	}
	return &c, nil
}

func (r *CategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE name = $1)`, name,
	).Scan(&exists)
	return exists, errors.Wrap(err, "check category name")
}

func (r *CategoryRepository) List(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.db.q(ctx).Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "query categories")
	}
	return pgx.CollectRows(rows, scanCategory)
}

func scanCategory(row pgx.CollectableRow) (catalog.Category, error) {
	var c catalog.Category
	err := row.Scan(&c.ID, &c.Name)
	return c, err
}
