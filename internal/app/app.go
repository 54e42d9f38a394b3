package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/merako/storefront/internal/api"
	"github.com/merako/storefront/internal/auth"
	"github.com/merako/storefront/internal/domain/achievement"
	"github.com/merako/storefront/internal/domain/catalog"
	"github.com/merako/storefront/internal/domain/order"
	"github.com/merako/storefront/internal/domain/review"
	"github.com/merako/storefront/internal/domain/user"
	"github.com/merako/storefront/internal/storage/postgres"
	"github.com/merako/storefront/pkg/health"
	"github.com/merako/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	db, err := postgres.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(db))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)
	achievementRepo := postgres.NewAchievementRepository(db)
	unlockRepo := postgres.NewUserAchievementRepository(db)
	userRepo := postgres.NewUserRepository(db)
	adminRepo := postgres.NewAdminRepository(db)
	history := postgres.NewHistory(db)

	// Domain services.
	engine := achievement.NewEngine(achievementRepo, unlockRepo, history)
	catalogSvc := catalog.NewService(productRepo, categoryRepo, orderRepo)
	orderSvc := order.NewService(orderRepo, productRepo, engine, db)
	reviewSvc := review.NewService(reviewRepo, orderRepo, engine)
	userSvc := user.NewService(userRepo, adminRepo)
	tokens := auth.NewTokens([]byte(cfg.JWTSecret), cfg.TokenTTL)

	apiServer := api.NewServer(userSvc, catalogSvc, orderSvc, reviewSvc, engine, tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", otelhttp.NewHandler(apiServer.Routes(), "storefront.api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "Authorization"},
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: flip readiness, drain, then stop.
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		return errors.Wrap(server.Shutdown(shutdownCtx), "shutdown")
	})
	return g.Wait()
}
