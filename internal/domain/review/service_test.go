package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type reviewKey struct {
	userID    int64
	productID int64
}

type memReviewRepo struct {
	reviews map[reviewKey]*Review
}

func newMemReviewRepo() *memReviewRepo {
	return &memReviewRepo{reviews: make(map[reviewKey]*Review)}
}

func (m *memReviewRepo) Create(_ context.Context, r *Review) error {
	key := reviewKey{r.UserID, r.ProductID}
	if _, ok := m.reviews[key]; ok {
		return ErrExists
	}
	c := *r
	m.reviews[key] = &c
	return nil
}

func (m *memReviewRepo) Delete(_ context.Context, userID, productID int64) error {
	key := reviewKey{userID, productID}
	if _, ok := m.reviews[key]; !ok {
		return ErrNotFound
	}
	delete(m.reviews, key)
	return nil
}

func (m *memReviewRepo) Exists(_ context.Context, userID, productID int64) (bool, error) {
	_, ok := m.reviews[reviewKey{userID, productID}]
	return ok, nil
}

func (m *memReviewRepo) ListByProduct(_ context.Context, productID int64) ([]Review, error) {
	var out []Review
	for k, r := range m.reviews {
		if k.productID == productID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memReviewRepo) ListByUser(_ context.Context, userID int64) ([]Review, error) {
	var out []Review
	for k, r := range m.reviews {
		if k.userID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type stubPurchases struct {
	delivered map[reviewKey]bool
}

func (s *stubPurchases) HasDeliveredProduct(_ context.Context, userID, productID int64) (bool, error) {
	return s.delivered[reviewKey{userID, productID}], nil
}

type spyEvaluator struct {
	calls []int64
}

func (s *spyEvaluator) EvaluateReviews(_ context.Context, userID int64) error {
	s.calls = append(s.calls, userID)
	return nil
}

// --- Helpers ---

type fixture struct {
	svc       *Service
	reviews   *memReviewRepo
	purchases *stubPurchases
	evaluator *spyEvaluator
}

func newFixture() *fixture {
	f := &fixture{
		reviews:   newMemReviewRepo(),
		purchases: &stubPurchases{delivered: make(map[reviewKey]bool)},
		evaluator: &spyEvaluator{},
	}
	f.svc = NewService(f.reviews, f.purchases, f.evaluator)
	f.svc.now = func() time.Time {
		return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func (f *fixture) markDelivered(userID, productID int64) {
	f.purchases.delivered[reviewKey{userID, productID}] = true
}

// --- Tests ---

func TestAdd_InvalidRating(t *testing.T) {
	f := newFixture()

	for _, rating := range []int{0, -1, 6} {
		_, err := f.svc.Add(context.Background(), 1, 1, rating, "")
		var rErr *InvalidRatingError
		require.ErrorAs(t, err, &rErr)
		assert.Equal(t, rating, rErr.Rating)
	}
}

func TestAdd_NotPurchased(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Add(context.Background(), 1, 1, 5, "great")
	require.ErrorIs(t, err, ErrNotPurchased)
	assert.Empty(t, f.evaluator.calls)
}

func TestAdd_CreatesAndEvaluates(t *testing.T) {
	f := newFixture()
	f.markDelivered(1, 1)

	r, err := f.svc.Add(context.Background(), 1, 1, 4, "solid")
	require.NoError(t, err)
	assert.Equal(t, 4, r.Rating)
	assert.Equal(t, []int64{1}, f.evaluator.calls)
}

func TestAdd_DuplicateRejected(t *testing.T) {
	f := newFixture()
	f.markDelivered(1, 1)

	_, err := f.svc.Add(context.Background(), 1, 1, 4, "")
	require.NoError(t, err)
	_, err = f.svc.Add(context.Background(), 1, 1, 2, "changed my mind")
	require.ErrorIs(t, err, ErrExists)
	assert.Len(t, f.evaluator.calls, 1)
}

func TestDelete_MissingReview(t *testing.T) {
	f := newFixture()

	err := f.svc.Delete(context.Background(), 1, 1)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.evaluator.calls)
}

func TestDelete_RemovesAndReevaluates(t *testing.T) {
	f := newFixture()
	f.markDelivered(1, 1)

	_, err := f.svc.Add(context.Background(), 1, 1, 4, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(context.Background(), 1, 1))

	exists, err := f.reviews.Exists(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, []int64{1, 1}, f.evaluator.calls)
}
