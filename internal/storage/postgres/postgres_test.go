package postgres

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/merako/storefront/internal/domain/achievement"
	"github.com/merako/storefront/internal/domain/catalog"
	"github.com/merako/storefront/internal/domain/order"
	"github.com/merako/storefront/internal/domain/review"
	"github.com/merako/storefront/internal/domain/user"
)

var testDB *DB

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("store"),
		tcpostgres.WithPassword("store"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	testDB, err = NewDB(ctx, url)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	if err := testDB.RunMigrations(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	code := m.Run()

	testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// --- Helpers ---

var seq int64

func uniqueName(prefix string) string {
	seq++
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq)
}

func createCategory(t *testing.T) *catalog.Category {
	t.Helper()
	c := &catalog.Category{Name: uniqueName("cat")}
	require.NoError(t, NewCategoryRepository(testDB).Create(context.Background(), c))
	return c
}

func createProduct(t *testing.T, price string, stock int) *catalog.Product {
	t.Helper()
	c := createCategory(t)
	p := &catalog.Product{
		Name:          uniqueName("product"),
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		CategoryID:    c.ID,
	}
	require.NoError(t, NewProductRepository(testDB).Create(context.Background(), p))
	return p
}

func createUser(t *testing.T) *user.User {
	t.Helper()
	u := &user.User{
		Email:        uniqueName("user") + "@example.com",
		PasswordHash: "x",
		Name:         "Test",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, NewUserRepository(testDB).Create(context.Background(), u))
	return u
}

func createOrder(t *testing.T, userID int64, status order.Status, items ...order.Item) *order.Order {
	t.Helper()
	now := time.Now().UTC()
	o := &order.Order{
		UserID:     userID,
		Status:     status,
		Items:      items,
		FinalPrice: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, NewOrderRepository(testDB).Create(context.Background(), o))
	return o
}

// --- Tests ---

func TestProductRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	p := createProduct(t, "19.99", 5)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))

	got.Name = got.Name + "-renamed"
	require.NoError(t, repo.Update(ctx, got))

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestProductRepository_AdjustStockGuard(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	p := createProduct(t, "5.00", 3)

	require.NoError(t, repo.AdjustStock(ctx, p.ID, -2))

	err := repo.AdjustStock(ctx, p.ID, -2)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQuantity)

	err = repo.AdjustStock(ctx, p.ID+1_000_000, -1)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestCategoryRepository_UniqueName(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepository(testDB)
	c := createCategory(t)

	err := repo.Create(ctx, &catalog.Category{Name: c.Name})
	require.ErrorIs(t, err, catalog.ErrCategoryExists)

	exists, err := repo.ExistsByName(ctx, c.Name)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOrderRepository_ActiveOrderPerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)
	u := createUser(t)

	_, err := repo.FindActiveByUser(ctx, u.ID)
	require.ErrorIs(t, err, order.ErrNoActiveOrder)

	p := createProduct(t, "10.00", 10)
	o := createOrder(t, u.ID, order.StatusProcessing,
		order.Item{ProductID: p.ID, Quantity: 2, Price: decimal.RequireFromString("20.00")},
	)

	got, err := repo.FindActiveByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	// The partial unique index forbids a second cart.
	dup := &order.Order{
		UserID: u.ID, Status: order.StatusProcessing,
		FinalPrice: decimal.Zero,
		CreatedAt:  time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.Error(t, repo.Create(ctx, dup))
}

func TestOrderRepository_UpdateReplacesItems(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)
	u := createUser(t)
	p1 := createProduct(t, "10.00", 10)
	p2 := createProduct(t, "4.00", 10)

	o := createOrder(t, u.ID, order.StatusProcessing,
		order.Item{ProductID: p1.ID, Quantity: 1, Price: decimal.RequireFromString("10.00")},
	)

	o.Items = []order.Item{{ProductID: p2.ID, Quantity: 3, Price: decimal.RequireFromString("12.00")}}
	o.FinalPrice = decimal.RequireFromString("12.00")
	require.NoError(t, repo.Update(ctx, o))

	got, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, p2.ID, got.Items[0].ProductID)
	assert.True(t, got.FinalPrice.Equal(decimal.RequireFromString("12.00")))
}

func TestOrderRepository_CrossDomainLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testDB)
	u := createUser(t)
	p := createProduct(t, "10.00", 10)

	inOrders, err := repo.ProductInOrders(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, inOrders)

	createOrder(t, u.ID, order.StatusDelivered,
		order.Item{ProductID: p.ID, Quantity: 1, Price: decimal.RequireFromString("10.00")},
	)

	inOrders, err = repo.ProductInOrders(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, inOrders)

	delivered, err := repo.HasDeliveredProduct(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, delivered)

	other := createUser(t)
	delivered, err = repo.HasDeliveredProduct(ctx, other.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestHistory_DeliveredOrdersAndReviewCount(t *testing.T) {
	ctx := context.Background()
	history := NewHistory(testDB)
	u := createUser(t)
	p1 := createProduct(t, "10.00", 10)
	p2 := createProduct(t, "5.00", 10)

	createOrder(t, u.ID, order.StatusDelivered,
		order.Item{ProductID: p1.ID, Quantity: 1, Price: decimal.RequireFromString("10.00")},
		order.Item{ProductID: p2.ID, Quantity: 1, Price: decimal.RequireFromString("5.00")},
	)
	createOrder(t, u.ID, order.StatusSent,
		order.Item{ProductID: p1.ID, Quantity: 1, Price: decimal.RequireFromString("10.00")},
	)

	orders, err := history.DeliveredOrders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.ElementsMatch(t, []int64{p1.ID, p2.ID}, orders[0].ProductIDs)

	n, err := history.ReviewCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, NewReviewRepository(testDB).Create(ctx, &review.Review{
		UserID: u.ID, ProductID: p1.ID, Rating: 5, Comment: "great", CreatedAt: time.Now().UTC(),
	}))

	n, err = history.ReviewCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReviewRepository_DuplicatePair(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository(testDB)
	u := createUser(t)
	p := createProduct(t, "10.00", 10)

	rv := &review.Review{UserID: u.ID, ProductID: p.ID, Rating: 4, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, rv))
	require.ErrorIs(t, repo.Create(ctx, rv), review.ErrExists)

	exists, err := repo.Exists(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, u.ID, p.ID))
	require.ErrorIs(t, repo.Delete(ctx, u.ID, p.ID), review.ErrNotFound)
}

func TestAchievementRepositories_UnlockFlow(t *testing.T) {
	ctx := context.Background()
	defs := NewAchievementRepository(testDB)
	unlocks := NewUserAchievementRepository(testDB)
	u := createUser(t)

	code := achievement.Code(uniqueName("code"))
	a := &achievement.Achievement{ConditionCode: code, Title: "Test", Reward: "5%"}
	require.NoError(t, defs.Upsert(ctx, a))

	// Upsert is idempotent on the condition code.
	again := &achievement.Achievement{ConditionCode: code, Title: "Test v2"}
	require.NoError(t, defs.Upsert(ctx, again))
	assert.Equal(t, a.ID, again.ID)

	got, err := defs.FindByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "Test v2", got.Title)

	_, err = defs.FindByCode(ctx, achievement.Code(uniqueName("missing")))
	require.ErrorIs(t, err, achievement.ErrNotFound)

	ua := &achievement.UserAchievement{UserID: u.ID, AchievementID: a.ID, EarnedAt: time.Now().UTC()}
	require.NoError(t, unlocks.Create(ctx, ua))
	// Duplicate grants collapse.
	require.NoError(t, unlocks.Create(ctx, ua))

	list, err := unlocks.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, code, list[0].ConditionCode)

	unused, err := unlocks.ListUnusedBonuses(ctx, u.ID, []achievement.Code{code})
	require.NoError(t, err)
	require.Len(t, unused, 1)

	require.NoError(t, unlocks.MarkBonusUsed(ctx, u.ID, a.ID))
	unused, err = unlocks.ListUnusedBonuses(ctx, u.ID, []achievement.Code{code})
	require.NoError(t, err)
	assert.Empty(t, unused)

	require.NoError(t, unlocks.Delete(ctx, u.ID, a.ID))
	exists, err := unlocks.Exists(ctx, u.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_EmailConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testDB)
	u := createUser(t)

	dup := &user.User{Email: u.Email, PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.ErrorIs(t, repo.Create(ctx, dup), user.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestDB_InTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	p := createProduct(t, "10.00", 5)

	sentinel := errors.New("boom")
	err := testDB.InTx(ctx, func(ctx context.Context) error {
		if err := repo.AdjustStock(ctx, p.ID, -3); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)
}

func TestDB_InTxCommits(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	p := createProduct(t, "10.00", 5)

	require.NoError(t, testDB.InTx(ctx, func(ctx context.Context) error {
		return repo.AdjustStock(ctx, p.ID, -3)
	}))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)
}
