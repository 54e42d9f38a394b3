package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/merako/storefront/internal/domain/review"
)

// ReviewRepository implements review.Repository.
type ReviewRepository struct {
	db *DB
}

var _ review.Repository = (*ReviewRepository)(nil)

// NewReviewRepository creates a review repository backed by db.
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO reviews (user_id, product_id, rating, comment, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rv.UserID, rv.ProductID, rv.Rating, rv.Comment, rv.CreatedAt,
	)
	if isUniqueViolation(err) {
		return review.ErrExists
	}
	return errors.Wrap(err, "insert review")
}

func (r *ReviewRepository) Delete(ctx context.Context, userID, productID int64) error {
	tag, err := r.db.q(ctx).Exec(ctx,
		`DELETE FROM reviews WHERE user_id = $1 AND product_id = $2`, userID, productID,
	)
	if err != nil {
		return errors.Wrap(err, "delete review")
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) Exists(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND product_id = $2)`,
		userID, productID,
	).Scan(&exists)
	return exists, errors.Wrap(err, "check review exists")
}

const selectReviewSQL = `
SELECT user_id, product_id, rating, comment, created_at
FROM reviews`

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID int64) ([]review.Review, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		selectReviewSQL+` WHERE product_id = $1 ORDER BY created_at DESC`, productID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query reviews by product")
	}
	return pgx.CollectRows(rows, scanReview)
}

func (r *ReviewRepository) ListByUser(ctx context.Context, userID int64) ([]review.Review, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		selectReviewSQL+` WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query reviews by user")
	}
	return pgx.CollectRows(rows, scanReview)
}

func scanReview(row pgx.CollectableRow) (review.Review, error) {
	var rv review.Review
	err := row.Scan(&rv.UserID, &rv.ProductID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	return rv, err
}
