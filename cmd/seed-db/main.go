// Command seed-db prepares a database for use: it applies migrations, seeds
// the achievement definitions, creates an admin account, and optionally loads
// a demo catalog from a JSON file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/merako/storefront/internal/domain/achievement"
	"github.com/merako/storefront/internal/domain/catalog"
	"github.com/merako/storefront/internal/domain/user"
	"github.com/merako/storefront/internal/storage/postgres"
)

// definitions are the built-in achievements. Rules live in the achievement
// engine; this is the display metadata keyed by condition code.
var definitions = []achievement.Achievement{
	{ConditionCode: achievement.CodeFirstOrder, Title: "First Order", Description: "Receive your first order", Reward: "5% off one order"},
	{ConditionCode: achievement.CodeOrderCount3, Title: "Regular Customer", Description: "Receive 3 orders", Reward: "10% off one order"},
	{ConditionCode: achievement.CodeOrderCount5, Title: "Loyal Customer", Description: "Receive 5 orders", Reward: "15% off one order"},
	{ConditionCode: achievement.CodeUniqueProducts5, Title: "Explorer", Description: "Receive 5 different products"},
	{ConditionCode: achievement.CodeMonthlyStreak3, Title: "Steady Shopper", Description: "Receive orders in 3 consecutive months"},
	{ConditionCode: achievement.CodeFirstReview, Title: "First Review", Description: "Write your first review"},
	{ConditionCode: achievement.CodeReviewCount3, Title: "Critic", Description: "Write 3 reviews"},
	{ConditionCode: achievement.CodeFastSignup, Title: "Quick Start", Description: "Send an order within an hour of signing up", Reward: "extra 5% off that order"},
	{ConditionCode: achievement.CodeAll, Title: "Completionist", Description: "Unlock every other achievement"},
}

type catalogJSON struct {
	Categories []struct {
		Name     string `json:"name"`
		Products []struct {
			Name          string          `json:"name"`
			Description   string          `json:"description"`
			Price         decimal.Decimal `json:"price"`
			StockQuantity int             `json:"stock_quantity"`
			Image         string          `json:"image"`
		} `json:"products"`
	} `json:"categories"`
}

func main() {
	var (
		databaseURL   string
		adminEmail    string
		adminPassword string
		catalogFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&adminEmail, "admin-email", "admin@storefront.local", "admin account email")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or STORE_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "optional path to a demo catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("STORE_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or STORE_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, adminEmail, adminPassword, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, adminEmail, adminPassword, catalogFile string) error {
	slog.Info("connecting to database")

	db, err := postgres.NewDB(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer db.Close()

	slog.Info("running migrations")

	if err := db.RunMigrations(ctx); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedAchievements(ctx, db); err != nil {
		return errors.Wrap(err, "seed achievements")
	}
	if err := seedAdmin(ctx, db, adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin")
	}
	if catalogFile != "" {
		if err := seedCatalog(ctx, db, catalogFile); err != nil {
			return errors.Wrap(err, "seed catalog")
		}
	}
	return nil
}

func seedAchievements(ctx context.Context, db *postgres.DB) error {
	repo := postgres.NewAchievementRepository(db)
	for i := range definitions {
		if err := repo.Upsert(ctx, &definitions[i]); err != nil {
			return err
		}
	}
	slog.Info("seeded achievements", slog.Int("count", len(definitions)))
	return nil
}

func seedAdmin(ctx context.Context, db *postgres.DB, email, password string) error {
	repo := postgres.NewAdminRepository(db)
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		slog.Info("admin already exists", slog.String("email", email))
		return nil
	} else if !errors.Is(err, user.ErrAdminNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := repo.Create(ctx, &user.Admin{Email: email, PasswordHash: string(hash)}); err != nil {
		return err
	}
	slog.Info("created admin", slog.String("email", email))
	return nil
}

func seedCatalog(ctx context.Context, db *postgres.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	var cat catalogJSON
	if err := json.Unmarshal(data, &cat); err != nil {
		return errors.Wrap(err, "parse catalog file")
	}

	categories := postgres.NewCategoryRepository(db)
	products := postgres.NewProductRepository(db)

	var count int
	for _, cj := range cat.Categories {
		c := &catalog.Category{Name: cj.Name}
		if err := categories.Create(ctx, c); err != nil {
			if errors.Is(err, catalog.ErrCategoryExists) {
				slog.Info("category already exists, skipping", slog.String("name", cj.Name))
				continue
			}
			return err
		}
		for _, pj := range cj.Products {
			p := &catalog.Product{
				Name:          pj.Name,
				Description:   pj.Description,
				Price:         pj.Price,
				StockQuantity: pj.StockQuantity,
				Image:         pj.Image,
				CategoryID:    c.ID,
			}
			if err := products.Create(ctx, p); err != nil {
				return err
			}
			count++
		}
	}
	slog.Info("seeded catalog", slog.Int("products", count))
	return nil
}
