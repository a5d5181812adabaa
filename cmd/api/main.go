package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/tripquote_api/internal/cache"
	"github.com/GTDGit/tripquote_api/internal/config"
	"github.com/GTDGit/tripquote_api/internal/currency"
	"github.com/GTDGit/tripquote_api/internal/database"
	"github.com/GTDGit/tripquote_api/internal/handler"
	"github.com/GTDGit/tripquote_api/internal/middleware"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/pricing"
	"github.com/GTDGit/tripquote_api/internal/repository"
	"github.com/GTDGit/tripquote_api/internal/service"
	"github.com/GTDGit/tripquote_api/internal/utils"
	"github.com/GTDGit/tripquote_api/internal/worker"
)

const (
	maxFailedLogins   = 5
	failedLoginWindow = 15 * time.Minute
)

// main is the application entrypoint for the trip quote API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("currency", cfg.Currency.Accounting).Msg("starting tripquote api")

	// 3. Connect database
	db, err := database.Connect(context.Background(), &cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis. Without it rates and rules are read from the
	// database on every request.
	var (
		rateCache   service.RateCache
		ruleCache   *cache.RuleCache
		redisPinger handler.Pinger
	)
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable - running without rate cache")
	} else {
		defer redisClient.Close()
		rateCache = cache.NewRateCache(redisClient, cfg.Catalog.RateCacheTTL)
		ruleCache = cache.NewRuleCache(redisClient, cfg.Catalog.RateCacheTTL)
		redisPinger = handler.PingFunc(redisClient.Ping)
		log.Info().Msg("redis connected successfully")
	}

	// 4. Currency table
	rates := currency.NewSingle(cfg.Currency.Accounting)
	for code, rate := range cfg.Currency.Rates {
		if err := rates.SetRate(code, rate); err != nil {
			log.Error().Err(err).Str("currency", code).Msg("invalid currency rate")
			os.Exit(1)
		}
	}

	// 5. Initialize repositories
	catalogRepo := repository.NewCatalogRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	ruleRepo := repository.NewPricingRuleRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	userRepo := repository.NewUserRepository(db)

	// 6. Initialize services
	inventorySvc := service.NewInventoryService(catalogRepo, auditRepo, rateCache, rates)
	ruleSvc := service.NewPricingRuleService(ruleRepo, ruleCache)
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ruleSvc.Seed(seedCtx, cfg.Pricing); err != nil {
		seedCancel()
		log.Error().Err(err).Msg("failed to seed pricing rule")
		os.Exit(1)
	}
	seedCancel()

	pipeline := pricing.NewPipeline(inventorySvc, rates, pricing.NewCalculator(cfg.Catalog.DefaultVehicleCapacity))
	quoteSvc := service.NewQuoteService(pipeline, ruleSvc, quoteRepo)
	signer := utils.NewJWTSigner(cfg.JWTSecret, cfg.JWTTTL)
	authSvc := service.NewAuthService(userRepo, signer)

	// 7. Initialize middleware
	loginLimiter := middleware.NewInvalidAuthRateLimiter(maxFailedLogins, failedLoginWindow)
	jwtMw := middleware.NewJWTMiddleware(signer, loginLimiter)

	// 8. Initialize handlers
	handlers := &Handlers{
		Health:      handler.NewHealthHandler(db, redisPinger),
		Auth:        handler.NewAuthHandler(authSvc, loginLimiter),
		Catalog:     handler.NewCatalogHandler(inventorySvc),
		Quote:       handler.NewQuoteHandler(quoteSvc),
		PricingRule: handler.NewPricingRuleHandler(ruleSvc),
	}

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	go loginLimiter.Run(ctx)
	if rateCache != nil {
		go worker.NewRateCacheWarmWorker(inventorySvc, cfg.Worker.RateCacheWarmInterval).Start(ctx)
	}

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Catalog     *handler.CatalogHandler
	Quote       *handler.QuoteHandler
	PricingRule *handler.PricingRuleHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.POST("/v1/auth/login", handlers.Auth.Login)

	v1 := router.Group("/v1")
	v1.Use(jwtMiddleware.Handle())

	// Current rate lookup is open to every signed-in role.
	v1.GET("/catalog/products/:productId/current", handlers.Catalog.Current)

	// Inventory submission (operators and suppliers)
	catalog := v1.Group("/catalog")
	catalog.Use(middleware.RequireRole(models.RoleOperator, models.RoleSupplier, models.RoleAdmin))
	{
		catalog.POST("/products", handlers.Catalog.Submit)
		catalog.GET("/products/mine", handlers.Catalog.ListMine)
		catalog.GET("/products/:productId/versions", handlers.Catalog.ListVersions)
	}

	// Quotes (travel agents)
	quotes := v1.Group("/quotes")
	quotes.Use(middleware.RequireRole(models.RoleAgent, models.RoleAdmin))
	{
		quotes.POST("/estimate", handlers.Quote.Estimate)
		quotes.POST("", handlers.Quote.Create)
		quotes.GET("/:id", handlers.Quote.Get)
	}

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		// Approval queue
		admin.GET("/catalog/pending", handlers.Catalog.ListPending)
		admin.POST("/catalog/versions/:versionId/approve", handlers.Catalog.Approve)
		admin.POST("/catalog/versions/:versionId/reject", handlers.Catalog.Reject)
		admin.GET("/catalog/products/:productId/audit", handlers.Catalog.AuditTrail)

		// Pricing rule
		admin.GET("/pricing-rule", handlers.PricingRule.Get)
		admin.PUT("/pricing-rule", handlers.PricingRule.Update)

		// Accounts
		admin.POST("/users", handlers.Auth.CreateUser)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
