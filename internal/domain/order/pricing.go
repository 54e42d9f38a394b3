package order

import (
	"github.com/shopspring/decimal"

	"github.com/merako/storefront/internal/domain/achievement"
)

var (
	one = decimal.NewFromInt(1)

	// discountMultipliers maps discount-bearing condition codes to the
	// multiplier applied to the order subtotal.
	discountMultipliers = map[achievement.Code]decimal.Decimal{
		achievement.CodeFirstOrder:  decimal.RequireFromString("0.95"),
		achievement.CodeOrderCount3: decimal.RequireFromString("0.90"),
		achievement.CodeOrderCount5: decimal.RequireFromString("0.85"),
	}

	// fastSignupRate is the extra one-time reduction for orders sent within
	// an hour of registration, applied on top of the already-discounted total.
	fastSignupRate = decimal.RequireFromString("0.05")
)

// bestMultiplier picks the minimum (most generous) multiplier among the
// user's active bonuses. Bonuses never stack: exactly one multiplier applies.
// Codes without a mapping count as no discount.
func bestMultiplier(bonuses []achievement.UserAchievement) decimal.Decimal {
	best := one
	for _, b := range bonuses {
		m, ok := discountMultipliers[b.ConditionCode]
		if !ok {
			continue
		}
		if m.LessThan(best) {
			best = m
		}
	}
	return best
}

// lineTotal is the price snapshot for a line: unit price times quantity.
func lineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

// finalPrice computes sum of line prices times the discount multiplier,
// rounded half-up to two decimal places.
func finalPrice(items []Item, multiplier decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price)
	}
	return sum.Mul(multiplier).Round(2)
}
