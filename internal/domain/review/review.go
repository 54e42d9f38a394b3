// Package review implements purchase-gated product reviews, which feed the
// achievement engine.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for review operations.
var (
	ErrNotFound = errors.New("review not found")
	ErrExists   = errors.New("review already exists for this product")
	// ErrNotPurchased is returned when the user has no delivered order
	// containing the product.
	ErrNotPurchased = errors.New("only purchased products can be reviewed")
)

// InvalidRatingError indicates a rating outside the 1-5 range.
type InvalidRatingError struct {
	Rating int
}

func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("rating must be between 1 and 5, got %d", e.Rating)
}

// Review is one user's review of one product. At most one review exists per
// (user, product) pair.
type Review struct {
	UserID    int64
	ProductID int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Repository defines persistence operations for reviews.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	Delete(ctx context.Context, userID, productID int64) error
	Exists(ctx context.Context, userID, productID int64) (bool, error)
	ListByProduct(ctx context.Context, productID int64) ([]Review, error)
	ListByUser(ctx context.Context, userID int64) ([]Review, error)
}

// PurchaseChecker reports whether a user has a delivered order containing
// the product. Implemented by the order storage.
type PurchaseChecker interface {
	HasDeliveredProduct(ctx context.Context, userID, productID int64) (bool, error)
}

// AchievementEvaluator re-derives the review achievements after a mutation.
type AchievementEvaluator interface {
	EvaluateReviews(ctx context.Context, userID int64) error
}
