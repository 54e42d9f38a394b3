package achievement

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Engine is a stateless rule evaluator: unlock state is always re-derived
// from persisted order/review history and reconciled against the stored
// UserAchievement rows, so every evaluation is idempotent and safe to re-run.
type Engine struct {
	achievements Repository
	unlocks      UserRepository
	history      HistorySource
	now          func() time.Time
}

// NewEngine creates an achievement Engine with the required dependencies.
func NewEngine(achievements Repository, unlocks UserRepository, history HistorySource) *Engine {
	return &Engine{
		achievements: achievements,
		unlocks:      unlocks,
		history:      history,
		now:          time.Now,
	}
}

// CheckAndUnlock reconciles a single unlock: it grants the achievement when
// shouldHave is true and it is not yet granted, revokes it when shouldHave is
// false and it is granted, and otherwise does nothing. Unknown condition
// codes are a no-op.
func (e *Engine) CheckAndUnlock(ctx context.Context, userID int64, code Code, shouldHave bool) error {
	a, err := e.achievements.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "find achievement")
	}

	unlocked, err := e.unlocks.Exists(ctx, userID, a.ID)
	if err != nil {
		return errors.Wrap(err, "check unlock")
	}

	switch {
	case shouldHave && !unlocked:
		ua := &UserAchievement{
			UserID:        userID,
			AchievementID: a.ID,
			ConditionCode: a.ConditionCode,
			EarnedAt:      e.now(),
		}
		if err := e.unlocks.Create(ctx, ua); err != nil {
			return errors.Wrap(err, "grant achievement")
		}
	case !shouldHave && unlocked:
		if err := e.unlocks.Delete(ctx, userID, a.ID); err != nil {
			return errors.Wrap(err, "revoke achievement")
		}
	}
	return nil
}

// EvaluateDeliveredOrders recomputes all order-history achievements for the
// user from their full delivered-order history. Runs after any order reaches
// DELIVERED.
func (e *Engine) EvaluateDeliveredOrders(ctx context.Context, userID int64) error {
	delivered, err := e.history.DeliveredOrders(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "load delivered orders")
	}
	if len(delivered) == 0 {
		return nil
	}

	for _, code := range deliveredCodes(delivered, e.now()) {
		if err := e.CheckAndUnlock(ctx, userID, code, true); err != nil {
			return err
		}
	}

	return e.checkAllUnlocked(ctx, userID)
}

// deliveredCodes derives the set of order-history condition codes earned by
// the given history. Pure: same history and clock always yield the same set.
func deliveredCodes(delivered []DeliveredOrder, now time.Time) []Code {
	codes := []Code{CodeFirstOrder}

	if len(delivered) >= 3 {
		codes = append(codes, CodeOrderCount3)
	}
	if len(delivered) >= 5 {
		codes = append(codes, CodeOrderCount5)
	}

	unique := make(map[int64]struct{})
	for _, o := range delivered {
		for _, id := range o.ProductIDs {
			unique[id] = struct{}{}
		}
	}
	if len(unique) >= 5 {
		codes = append(codes, CodeUniqueProducts5)
	}

	if monthlyStreak(delivered, now) >= 3 {
		codes = append(codes, CodeMonthlyStreak3)
	}

	return codes
}

// monthlyStreak counts consecutive calendar months with at least one
// delivered order, starting from the current month and walking backwards.
// A month without orders breaks the streak.
func monthlyStreak(delivered []DeliveredOrder, now time.Time) int {
	type month struct {
		year int
		mon  time.Month
	}
	seen := make(map[month]struct{}, len(delivered))
	for _, o := range delivered {
		seen[month{o.DeliveredAt.Year(), o.DeliveredAt.Month()}] = struct{}{}
	}

	streak := 0
	for i := 0; i < 3; i++ {
		m := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		if _, ok := seen[month{m.Year(), m.Month()}]; !ok {
			break
		}
		streak++
	}
	return streak
}

// EvaluateReviews recomputes the review achievements from the user's current
// review count. Unlike order achievements these can be revoked when the
// count drops back below a threshold.
func (e *Engine) EvaluateReviews(ctx context.Context, userID int64) error {
	count, err := e.history.ReviewCount(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "count reviews")
	}

	if err := e.CheckAndUnlock(ctx, userID, CodeFirstReview, count >= 1); err != nil {
		return err
	}
	return e.CheckAndUnlock(ctx, userID, CodeReviewCount3, count >= 3)
}

// checkAllUnlocked grants the all_achievements meta unlock once the user
// holds every other defined achievement.
func (e *Engine) checkAllUnlocked(ctx context.Context, userID int64) error {
	all, err := e.achievements.FindByCode(ctx, CodeAll)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "find all_achievements")
	}

	unlocked, err := e.unlocks.Exists(ctx, userID, all.ID)
	if err != nil {
		return errors.Wrap(err, "check all_achievements")
	}
	if unlocked {
		return nil
	}

	defined, err := e.achievements.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list achievements")
	}
	owned, err := e.unlocks.ListByUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "list user achievements")
	}

	ownedIDs := make(map[int64]struct{}, len(owned))
	for _, ua := range owned {
		ownedIDs[ua.AchievementID] = struct{}{}
	}

	for _, a := range defined {
		if a.ConditionCode == CodeAll {
			continue
		}
		if _, ok := ownedIDs[a.ID]; !ok {
			return nil
		}
	}

	return e.CheckAndUnlock(ctx, userID, CodeAll, true)
}

// ActiveBonuses returns the user's unlocks for the discount-bearing codes
// whose one-time bonus has not been consumed. This feeds order pricing.
func (e *Engine) ActiveBonuses(ctx context.Context, userID int64) ([]UserAchievement, error) {
	return e.unlocks.ListUnusedBonuses(ctx, userID, BonusCodes)
}

// ConsumeFastSignupBonus unlocks the fast-signup achievement if needed and
// consumes its one-time bonus. It reports whether the bonus was still
// unused, i.e. whether the caller should apply the extra discount.
func (e *Engine) ConsumeFastSignupBonus(ctx context.Context, userID int64) (bool, error) {
	if err := e.CheckAndUnlock(ctx, userID, CodeFastSignup, true); err != nil {
		return false, err
	}

	a, err := e.achievements.FindByCode(ctx, CodeFastSignup)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "find fast-signup achievement")
	}

	ua, err := e.unlocks.Get(ctx, userID, a.ID)
	if err != nil {
		return false, errors.Wrap(err, "load fast-signup unlock")
	}

	apply := !ua.BonusUsed
	if err := e.unlocks.MarkBonusUsed(ctx, userID, a.ID); err != nil {
		return false, errors.Wrap(err, "consume fast-signup bonus")
	}
	return apply, nil
}

// ConsumeOrderCountBonuses marks every unused discount-bearing bonus as
// consumed. Called as a side effect of any order send: bonuses are spent the
// first time any order ships after being earned, applied to it or not.
func (e *Engine) ConsumeOrderCountBonuses(ctx context.Context, userID int64) error {
	bonuses, err := e.unlocks.ListUnusedBonuses(ctx, userID, BonusCodes)
	if err != nil {
		return errors.Wrap(err, "list active bonuses")
	}
	for _, b := range bonuses {
		if err := e.unlocks.MarkBonusUsed(ctx, userID, b.AchievementID); err != nil {
			return errors.Wrap(err, "consume bonus")
		}
	}
	return nil
}

// List returns all defined achievements.
func (e *Engine) List(ctx context.Context) ([]Achievement, error) {
	return e.achievements.List(ctx)
}

// UserAchievements returns the user's unlocks with bonus consumption state.
func (e *Engine) UserAchievements(ctx context.Context, userID int64) ([]UserAchievement, error) {
	return e.unlocks.ListByUser(ctx, userID)
}
