package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/infra/gateway/casesource"
	"github.com/kislikjeka/caseledger/internal/infra/kafka"
	"github.com/kislikjeka/caseledger/internal/infra/metrics"
	"github.com/kislikjeka/caseledger/internal/infra/postgres"
	infraRedis "github.com/kislikjeka/caseledger/internal/infra/redis"
	"github.com/kislikjeka/caseledger/internal/infra/sqlite"
	"github.com/kislikjeka/caseledger/internal/statement"
	"github.com/kislikjeka/caseledger/internal/transport/httpapi"
	"github.com/kislikjeka/caseledger/internal/transport/httpapi/handler"
	"github.com/kislikjeka/caseledger/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/caseledger/pkg/config"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting case ledger API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"declaration_store", cfg.DeclarationStore,
	)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	checks := map[string]handler.Pinger{}
	reg := metrics.New(nil)

	// Statement layout
	layout := statement.DefaultLayout()
	if cfg.StatementLayoutPath != "" {
		loaded, err := statement.LoadLayout(cfg.StatementLayoutPath)
		if err != nil {
			return fmt.Errorf("load statement layout: %w", err)
		}
		layout = loaded
		log.Info("Statement layout loaded", "path", cfg.StatementLayoutPath, "sections", len(layout.Sections))
	}
	composer, err := statement.NewComposer(layout)
	if err != nil {
		return fmt.Errorf("build statement composer: %w", err)
	}

	// Initialize database connection pool
	var db *postgres.DB
	if cfg.NeedsDatabase() {
		db, err = postgres.NewPool(ctx, postgres.Config{
			URL:              cfg.DatabaseURL,
			MaxConns:         int32(cfg.DatabaseMaxConns),
			MinConns:         int32(cfg.DatabaseMinConns),
			MaxConnLifetime:  cfg.DatabaseMaxConnLifetime,
			MaxConnIdleTime:  cfg.DatabaseMaxConnIdleTime,
			StatementTimeout: cfg.DatabaseStatementTimeout,
		})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		checks["database"] = handler.PingerFunc(db.Health)
		log.Info("Database connection established")
	}

	// Snapshot and claim source: the remote case API when configured
	var (
		snapshots casefile.SnapshotSource
		claims    distribution.ClaimSource
	)
	if cfg.CaseSourceURL != "" {
		client := casesource.NewClient(casesource.Config{
			BaseURL:    cfg.CaseSourceURL,
			APIKey:     cfg.CaseSourceAPIKey,
			MaxRetries: cfg.CaseSourceMaxRetries,
		}, log)
		snapshots, claims = client, client
		log.Info("Using remote case source", "url", cfg.CaseSourceURL)
	} else {
		caseRepo := postgres.NewCaseRepository(db.Pool)
		snapshots, claims = caseRepo, caseRepo
	}

	// Redis report cache. An unreachable Redis degrades to uncached reports.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	var cache casefile.ReportCache
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, report caching disabled", "error", err)
	} else {
		cache = infraRedis.NewReportCache(redisClient, cfg.ReportCacheTTL, log)
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		log.Info("Redis connection established")
	}

	// Declaration store
	var repo distribution.Repository
	switch cfg.DeclarationStore {
	case config.StorePostgres:
		repo = postgres.NewDistributionRepository(db.Pool)
	case config.StoreSQLite:
		sdb, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer sdb.Close()
		checks["sqlite"] = handler.PingerFunc(sdb.PingContext)
		repo = sqlite.NewDistributionRepository(sdb)
	default:
		log.Warn("Declarations are kept in memory and lost on restart")
		repo = distribution.NewMemoryRepository()
	}

	// Distribution events
	var events distribution.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer publisher.Close()
		events = publisher
		log.Info("Publishing distribution events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// Initialize services
	reportSvc := casefile.NewService(snapshots, composer, cache, reg, log)
	distributionSvc := distribution.NewService(repo, claims, events, reg, log)

	// Authentication is optional outside production
	var jwtMiddleware func(http.Handler) http.Handler
	if cfg.JWTSecret != "" {
		jwtMiddleware = middleware.JWTMiddleware(middleware.NewJWTService(cfg.JWTSecret))
	} else {
		log.Warn("JWT_SECRET not configured, API is unauthenticated")
	}

	routerCfg := httpapi.Config{
		Logger:              log,
		AllowedOrigins:      cfg.AllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
		ReportHandler:       handler.NewReportHandler(reportSvc, composer, log),
		DistributionHandler: handler.NewDistributionHandler(distributionSvc, log),
		HealthHandler:       handler.NewHealthHandler(checks),
		Metrics:             reg,
		JWTMiddleware:       jwtMiddleware,
	}
	if cfg.MetricsEnabled {
		routerCfg.MetricsHandler = reg.Handler()
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Wait for termination signal
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
