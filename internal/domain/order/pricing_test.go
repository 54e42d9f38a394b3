package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/merako/storefront/internal/domain/achievement"
)

func bonus(code achievement.Code) achievement.UserAchievement {
	return achievement.UserAchievement{
		UserID:        1,
		AchievementID: 1,
		ConditionCode: code,
		EarnedAt:      time.Now(),
	}
}

func TestBestMultiplier_NoBonuses(t *testing.T) {
	m := bestMultiplier(nil)
	assert.True(t, m.Equal(decimal.NewFromInt(1)), "got %s", m)
}

func TestBestMultiplier_SingleBonus(t *testing.T) {
	m := bestMultiplier([]achievement.UserAchievement{bonus(achievement.CodeFirstOrder)})
	assert.Equal(t, "0.95", m.String())
}

func TestBestMultiplier_PicksMinimum(t *testing.T) {
	m := bestMultiplier([]achievement.UserAchievement{
		bonus(achievement.CodeFirstOrder),
		bonus(achievement.CodeOrderCount5),
		bonus(achievement.CodeOrderCount3),
	})
	assert.Equal(t, "0.85", m.String())
}

func TestBestMultiplier_IgnoresNonDiscountCodes(t *testing.T) {
	m := bestMultiplier([]achievement.UserAchievement{
		bonus(achievement.CodeFirstReview),
		bonus(achievement.CodeAll),
	})
	assert.True(t, m.Equal(decimal.NewFromInt(1)), "got %s", m)
}

func TestLineTotal(t *testing.T) {
	got := lineTotal(decimal.RequireFromString("19.99"), 3)
	assert.Equal(t, "59.97", got.String())
}

func TestFinalPrice_SumsLines(t *testing.T) {
	items := []Item{
		{Price: decimal.RequireFromString("59.97")},
		{Price: decimal.RequireFromString("140.03")},
	}
	got := finalPrice(items, decimal.NewFromInt(1))
	assert.Equal(t, "200", got.String())
}

func TestFinalPrice_AppliesDiscount(t *testing.T) {
	items := []Item{{Price: decimal.RequireFromString("200.00")}}
	got := finalPrice(items, decimal.RequireFromString("0.95"))
	assert.Equal(t, "190", got.String())
}

func TestFinalPrice_RoundsHalfUp(t *testing.T) {
	// 10.01 * 0.85 = 8.5085 -> 8.51
	items := []Item{{Price: decimal.RequireFromString("10.01")}}
	got := finalPrice(items, decimal.RequireFromString("0.85"))
	assert.Equal(t, "8.51", got.String())
}

func TestFinalPrice_EmptyOrder(t *testing.T) {
	got := finalPrice(nil, decimal.RequireFromString("0.85"))
	assert.True(t, got.IsZero())
}
