package achievement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type memAchievementRepo struct {
	byCode map[Code]*Achievement
}

func newMemAchievementRepo(codes ...Code) *memAchievementRepo {
	m := &memAchievementRepo{byCode: make(map[Code]*Achievement, len(codes))}
	for i, code := range codes {
		m.byCode[code] = &Achievement{ID: int64(i + 1), ConditionCode: code, Title: string(code)}
	}
	return m
}

func (m *memAchievementRepo) FindByCode(_ context.Context, code Code) (*Achievement, error) {
	a, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *memAchievementRepo) List(_ context.Context) ([]Achievement, error) {
	out := make([]Achievement, 0, len(m.byCode))
	for _, a := range m.byCode {
		out = append(out, *a)
	}
	return out, nil
}

type unlockKey struct {
	userID        int64
	achievementID int64
}

type memUnlockRepo struct {
	unlocks map[unlockKey]*UserAchievement
}

func newMemUnlockRepo() *memUnlockRepo {
	return &memUnlockRepo{unlocks: make(map[unlockKey]*UserAchievement)}
}

func (m *memUnlockRepo) ListByUser(_ context.Context, userID int64) ([]UserAchievement, error) {
	var out []UserAchievement
	for k, ua := range m.unlocks {
		if k.userID == userID {
			out = append(out, *ua)
		}
	}
	return out, nil
}

func (m *memUnlockRepo) Get(_ context.Context, userID, achievementID int64) (*UserAchievement, error) {
	ua, ok := m.unlocks[unlockKey{userID, achievementID}]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *ua
	return &c, nil
}

func (m *memUnlockRepo) Exists(_ context.Context, userID, achievementID int64) (bool, error) {
	_, ok := m.unlocks[unlockKey{userID, achievementID}]
	return ok, nil
}

func (m *memUnlockRepo) Create(_ context.Context, ua *UserAchievement) error {
	key := unlockKey{ua.UserID, ua.AchievementID}
	if _, ok := m.unlocks[key]; ok {
		return nil
	}
	c := *ua
	m.unlocks[key] = &c
	return nil
}

func (m *memUnlockRepo) Delete(_ context.Context, userID, achievementID int64) error {
	delete(m.unlocks, unlockKey{userID, achievementID})
	return nil
}

func (m *memUnlockRepo) ListUnusedBonuses(_ context.Context, userID int64, codes []Code) ([]UserAchievement, error) {
	wanted := make(map[Code]struct{}, len(codes))
	for _, c := range codes {
		wanted[c] = struct{}{}
	}
	var out []UserAchievement
	for k, ua := range m.unlocks {
		if k.userID != userID || ua.BonusUsed {
			continue
		}
		if _, ok := wanted[ua.ConditionCode]; ok {
			out = append(out, *ua)
		}
	}
	return out, nil
}

func (m *memUnlockRepo) MarkBonusUsed(_ context.Context, userID, achievementID int64) error {
	ua, ok := m.unlocks[unlockKey{userID, achievementID}]
	if !ok {
		return ErrUserNotFound
	}
	ua.BonusUsed = true
	return nil
}

type stubHistory struct {
	delivered []DeliveredOrder
	reviews   int
}

func (s *stubHistory) DeliveredOrders(_ context.Context, _ int64) ([]DeliveredOrder, error) {
	return s.delivered, nil
}

func (s *stubHistory) ReviewCount(_ context.Context, _ int64) (int, error) {
	return s.reviews, nil
}

// --- Helpers ---

var allCodes = []Code{
	CodeFirstOrder, CodeOrderCount3, CodeOrderCount5,
	CodeUniqueProducts5, CodeMonthlyStreak3,
	CodeFirstReview, CodeReviewCount3,
	CodeFastSignup, CodeAll,
}

type engineFixture struct {
	engine  *Engine
	defs    *memAchievementRepo
	unlocks *memUnlockRepo
	history *stubHistory
	now     time.Time
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		defs:    newMemAchievementRepo(allCodes...),
		unlocks: newMemUnlockRepo(),
		history: &stubHistory{},
		now:     time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	f.engine = NewEngine(f.defs, f.unlocks, f.history)
	f.engine.now = func() time.Time { return f.now }
	return f
}

func (f *engineFixture) has(t *testing.T, userID int64, code Code) bool {
	t.Helper()
	a, ok := f.defs.byCode[code]
	require.True(t, ok, "unknown code %s", code)
	unlocked, err := f.unlocks.Exists(context.Background(), userID, a.ID)
	require.NoError(t, err)
	return unlocked
}

func deliveredAt(ts time.Time, productIDs ...int64) DeliveredOrder {
	return DeliveredOrder{DeliveredAt: ts, ProductIDs: productIDs}
}

// --- Tests ---

func TestCheckAndUnlock_UnknownCodeIsNoop(t *testing.T) {
	f := newEngineFixture()
	require.NoError(t, f.engine.CheckAndUnlock(context.Background(), 1, Code("mystery"), true))
	assert.Empty(t, f.unlocks.unlocks)
}

func TestCheckAndUnlock_GrantAndRevoke(t *testing.T) {
	f := newEngineFixture()

	require.NoError(t, f.engine.CheckAndUnlock(context.Background(), 1, CodeFirstReview, true))
	assert.True(t, f.has(t, 1, CodeFirstReview))

	// Re-granting is idempotent.
	require.NoError(t, f.engine.CheckAndUnlock(context.Background(), 1, CodeFirstReview, true))
	assert.True(t, f.has(t, 1, CodeFirstReview))

	require.NoError(t, f.engine.CheckAndUnlock(context.Background(), 1, CodeFirstReview, false))
	assert.False(t, f.has(t, 1, CodeFirstReview))
}

func TestEvaluateDeliveredOrders_EmptyHistory(t *testing.T) {
	f := newEngineFixture()
	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	assert.Empty(t, f.unlocks.unlocks)
}

func TestEvaluateDeliveredOrders_FirstOrder(t *testing.T) {
	f := newEngineFixture()
	f.history.delivered = []DeliveredOrder{deliveredAt(f.now, 1)}

	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	assert.True(t, f.has(t, 1, CodeFirstOrder))
	assert.False(t, f.has(t, 1, CodeOrderCount3))
	assert.False(t, f.has(t, 1, CodeUniqueProducts5))
}

func TestEvaluateDeliveredOrders_CountThresholds(t *testing.T) {
	f := newEngineFixture()
	for i := 0; i < 5; i++ {
		f.history.delivered = append(f.history.delivered, deliveredAt(f.now, 1))
	}

	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	assert.True(t, f.has(t, 1, CodeFirstOrder))
	assert.True(t, f.has(t, 1, CodeOrderCount3))
	assert.True(t, f.has(t, 1, CodeOrderCount5))
}

func TestEvaluateDeliveredOrders_UniqueProducts(t *testing.T) {
	f := newEngineFixture()
	// Five distinct products across two orders, with repeats.
	f.history.delivered = []DeliveredOrder{
		deliveredAt(f.now, 1, 2, 3, 1),
		deliveredAt(f.now, 3, 4, 5),
	}

	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	assert.True(t, f.has(t, 1, CodeUniqueProducts5))
}

func TestEvaluateDeliveredOrders_MonthlyStreak(t *testing.T) {
	f := newEngineFixture()
	f.history.delivered = []DeliveredOrder{
		deliveredAt(f.now, 1),
		deliveredAt(f.now.AddDate(0, -1, 0), 1),
		deliveredAt(f.now.AddDate(0, -2, 0), 1),
	}

	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	assert.True(t, f.has(t, 1, CodeMonthlyStreak3))
}

func TestEvaluateDeliveredOrders_StreakGapBreaks(t *testing.T) {
	f := newEngineFixture()
	// Current month and two months back, but nothing last month.
	f.history.delivered = []DeliveredOrder{
		deliveredAt(f.now, 1),
		deliveredAt(f.now.AddDate(0, -2, 0), 1),
		deliveredAt(f.now.AddDate(0, -3, 0), 1),
	}

	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	assert.False(t, f.has(t, 1, CodeMonthlyStreak3))
}

func TestEvaluateDeliveredOrders_Idempotent(t *testing.T) {
	f := newEngineFixture()
	f.history.delivered = []DeliveredOrder{deliveredAt(f.now, 1)}

	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	first := len(f.unlocks.unlocks)
	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	assert.Equal(t, first, len(f.unlocks.unlocks))
}

func TestEvaluateReviews_UnlockAndRevoke(t *testing.T) {
	f := newEngineFixture()

	f.history.reviews = 3
	require.NoError(t, f.engine.EvaluateReviews(context.Background(), 1))
	assert.True(t, f.has(t, 1, CodeFirstReview))
	assert.True(t, f.has(t, 1, CodeReviewCount3))

	f.history.reviews = 2
	require.NoError(t, f.engine.EvaluateReviews(context.Background(), 1))
	assert.True(t, f.has(t, 1, CodeFirstReview))
	assert.False(t, f.has(t, 1, CodeReviewCount3))

	f.history.reviews = 0
	require.NoError(t, f.engine.EvaluateReviews(context.Background(), 1))
	assert.False(t, f.has(t, 1, CodeFirstReview))
}

func TestAllAchievements_MetaUnlock(t *testing.T) {
	f := newEngineFixture()

	// Unlock everything except the meta achievement itself.
	for _, code := range allCodes {
		if code == CodeAll {
			continue
		}
		require.NoError(t, f.engine.CheckAndUnlock(context.Background(), 1, code, true))
	}
	assert.False(t, f.has(t, 1, CodeAll))

	// Any delivered-order evaluation now completes the set.
	f.history.delivered = []DeliveredOrder{deliveredAt(f.now, 1)}
	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	assert.True(t, f.has(t, 1, CodeAll))
}

func TestAllAchievements_NotGrantedWhileIncomplete(t *testing.T) {
	f := newEngineFixture()
	f.history.delivered = []DeliveredOrder{deliveredAt(f.now, 1)}

	require.NoError(t, f.engine.EvaluateDeliveredOrders(context.Background(), 1))
	assert.False(t, f.has(t, 1, CodeAll))
}

func TestConsumeFastSignupBonus_FirstUseApplies(t *testing.T) {
	f := newEngineFixture()

	apply, err := f.engine.ConsumeFastSignupBonus(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, apply)
	assert.True(t, f.has(t, 1, CodeFastSignup))

	// Second send within the window: achievement stays, bonus is spent.
	apply, err = f.engine.ConsumeFastSignupBonus(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, apply)
}

func TestConsumeOrderCountBonuses_SpendsAllUnused(t *testing.T) {
	f := newEngineFixture()
	require.NoError(t, f.engine.CheckAndUnlock(context.Background(), 1, CodeFirstOrder, true))
	require.NoError(t, f.engine.CheckAndUnlock(context.Background(), 1, CodeOrderCount3, true))

	active, err := f.engine.ActiveBonuses(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, f.engine.ConsumeOrderCountBonuses(context.Background(), 1))

	active, err = f.engine.ActiveBonuses(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, active)
}
