package review

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Service enforces the review rules: one review per user per product, only
// for products the user has actually received.
type Service struct {
	reviews      Repository
	purchases    PurchaseChecker
	achievements AchievementEvaluator
	now          func() time.Time
}

// NewService creates a review Service with the required dependencies.
func NewService(reviews Repository, purchases PurchaseChecker, achievements AchievementEvaluator) *Service {
	return &Service{
		reviews:      reviews,
		purchases:    purchases,
		achievements: achievements,
		now:          time.Now,
	}
}

// Add creates a review after checking the rating range, the one-per-pair
// rule, and the purchase gate, then re-evaluates review achievements.
func (s *Service) Add(ctx context.Context, userID, productID int64, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, &InvalidRatingError{Rating: rating}
	}

	exists, err := s.reviews.Exists(ctx, userID, productID)
	if err != nil {
		return nil, errors.Wrap(err, "check review")
	}
	if exists {
		return nil, ErrExists
	}

	purchased, err := s.purchases.HasDeliveredProduct(ctx, userID, productID)
	if err != nil {
		return nil, errors.Wrap(err, "check purchase")
	}
	if !purchased {
		return nil, ErrNotPurchased
	}

	r := &Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create review")
	}

	if err := s.achievements.EvaluateReviews(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "evaluate review achievements")
	}
	return r, nil
}

// Delete removes the user's review of a product and re-evaluates review
// achievements, which may revoke them.
func (s *Service) Delete(ctx context.Context, userID, productID int64) error {
	exists, err := s.reviews.Exists(ctx, userID, productID)
	if err != nil {
		return errors.Wrap(err, "check review")
	}
	if !exists {
		return ErrNotFound
	}

	if err := s.reviews.Delete(ctx, userID, productID); err != nil {
		return errors.Wrap(err, "delete review")
	}
	return errors.Wrap(s.achievements.EvaluateReviews(ctx, userID), "evaluate review achievements")
}

// ByProduct returns all reviews of a product.
func (s *Service) ByProduct(ctx context.Context, productID int64) ([]Review, error) {
	return s.reviews.ListByProduct(ctx, productID)
}

// ByUser returns all reviews written by a user.
func (s *Service) ByUser(ctx context.Context, userID int64) ([]Review, error) {
	return s.reviews.ListByUser(ctx, userID)
}
