// Package achievement evaluates unlock conditions over order and review
// history and tracks per-user discount bonus consumption.
package achievement

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for achievement lookups.
var (
	ErrNotFound     = errors.New("achievement not found")
	ErrUserNotFound = errors.New("user achievement not found")
)

// Code is the stable string key identifying an achievement's unlock rule,
// decoupled from its display title.
type Code string

// Known condition codes.
const (
	CodeFirstOrder      Code = "first_order"
	CodeOrderCount3     Code = "order_count_3"
	CodeOrderCount5     Code = "order_count_5"
	CodeUniqueProducts5 Code = "unique_products_5"
	CodeMonthlyStreak3  Code = "monthly_order_streak_3"
	CodeFirstReview     Code = "first_review"
	CodeReviewCount3    Code = "review_count_3"
	CodeFastSignup      Code = "fast_order_after_signup"
	CodeAll             Code = "all_achievements"
)

// BonusCodes are the discount-bearing codes consulted by order pricing.
var BonusCodes = []Code{CodeFirstOrder, CodeOrderCount3, CodeOrderCount5}

// Achievement is a defined unlock rule with its display metadata.
type Achievement struct {
	ID            int64
	ConditionCode Code
	Title         string
	Description   string
	Reward        string
}

// UserAchievement is an unlock for one user. BonusUsed transitions
// false -> true only, never back.
type UserAchievement struct {
	UserID        int64
	AchievementID int64
	ConditionCode Code
	EarnedAt      time.Time
	BonusUsed     bool
}

// DeliveredOrder is the slice of order history the engine needs: when the
// order was delivered and which products it contained.
type DeliveredOrder struct {
	DeliveredAt time.Time
	ProductIDs  []int64
}

// Repository provides lookup of achievement definitions.
type Repository interface {
	FindByCode(ctx context.Context, code Code) (*Achievement, error)
	List(ctx context.Context) ([]Achievement, error)
}

// UserRepository persists per-user unlock state.
type UserRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]UserAchievement, error)
	Get(ctx context.Context, userID, achievementID int64) (*UserAchievement, error)
	Exists(ctx context.Context, userID, achievementID int64) (bool, error)
	Create(ctx context.Context, ua *UserAchievement) error
	Delete(ctx context.Context, userID, achievementID int64) error
	// ListUnusedBonuses returns unlocks whose condition code is in codes and
	// whose bonus has not been consumed yet.
	ListUnusedBonuses(ctx context.Context, userID int64, codes []Code) ([]UserAchievement, error)
	MarkBonusUsed(ctx context.Context, userID, achievementID int64) error
}

// HistorySource feeds the engine with the order and review history it
// derives unlock state from.
type HistorySource interface {
	DeliveredOrders(ctx context.Context, userID int64) ([]DeliveredOrder, error)
	ReviewCount(ctx context.Context, userID int64) (int, error)
}
