package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"cryptoarb/internal/adapters/cache"
	"cryptoarb/internal/adapters/exchanges"
	v1 "cryptoarb/internal/adapters/handler/http/v1"
	"cryptoarb/internal/adapters/repository/postgres"
	"cryptoarb/internal/adapters/stream"
	"cryptoarb/internal/config"
	"cryptoarb/internal/core/port"
	"cryptoarb/internal/core/service/comparison"
	"cryptoarb/internal/core/service/health"
	"cryptoarb/internal/core/service/history"
	"cryptoarb/internal/core/service/scanner"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const (
	connectTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
	cleanupInterval = time.Minute
)

type App struct {
	cfg         *config.Config
	router      *http.ServeMux
	server      *http.Server
	db          *sqlx.DB
	redisClient *redis.Client
	hub         *stream.Hub

	// Services
	comparisonService port.ComparisonService
	historyService    port.HistoryService
	healthService     port.HealthService
	scanner           port.Scanner
	snapshotCache     port.SnapshotCache
	repository        port.OpportunityRepository

	// For graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

func NewApp(cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetupLogger installs the configured slog handler as the default logger.
func SetupLogger(cfg config.App) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func (app *App) Initialize() error {
	slog.Info("Initializing application...")
	app.router = http.NewServeMux()

	// Unknown venue names fail startup
	if err := exchanges.CheckNames(app.cfg.Venues.Enabled, app.cfg.Venues.Custom); err != nil {
		return fmt.Errorf("invalid venue configuration: %w", err)
	}
	registry := exchanges.NewRegistry(app.cfg.Venues.Enabled, app.cfg.Venues.Custom,
		exchanges.OptionsFromConfig(app.cfg.Venues))
	slog.Info("Venues enabled", "venues", registry.EnabledVenues())

	app.connectDatabase()
	app.connectRedis()

	// 1. Core services
	app.comparisonService = comparison.NewComparisonService(registry)
	app.historyService = history.NewHistoryService(app.snapshotCache)

	// 2. Live opportunity stream
	app.hub = stream.NewHub()
	go app.hub.Run(app.ctx)

	// 3. Background scanner
	if app.cfg.Scanner.Enabled {
		app.scanner = scanner.NewScannerService(app.comparisonService, app.snapshotCache, app.repository, app.hub,
			scanner.Options{
				Schedule:  app.cfg.Scanner.Schedule,
				Threshold: app.cfg.Scanner.Threshold,
				Workers:   app.cfg.Scanner.Workers,
				Symbols:   app.cfg.Scanner.Symbols,
			})
		if err := app.scanner.Start(app.ctx); err != nil {
			return fmt.Errorf("failed to start scanner: %w", err)
		}
	} else {
		slog.Info("Scanner disabled")
	}

	app.healthService = health.NewHealthService(app.repository, app.snapshotCache, app.comparisonService,
		app.scanner, app.hub)

	// 4. Handlers
	priceHandler := v1.NewPriceHandler(app.comparisonService)
	historyHandler := v1.NewHistoryHandler(app.historyService, app.repository)
	healthHandler := v1.NewHealthHandler(app.healthService)
	v1.SetMarketRoutes(app.router, priceHandler, historyHandler, healthHandler, stream.NewHandler(app.hub))

	// 5. Redis housekeeping
	if app.snapshotCache != nil {
		go app.startCleanupRoutine()
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.App.Port),
		Handler:           v1.Wrap(app.router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Application initialized successfully")
	return nil
}

// connectDatabase opens PostgreSQL when enabled; failure leaves the
// repository unset and the service keeps running.
func (app *App) connectDatabase() {
	if !app.cfg.Repository.Enabled {
		slog.Info("PostgreSQL disabled, opportunities will not be persisted")
		return
	}

	db, err := postgres.NewDbConnInstance(&app.cfg.Repository)
	if err != nil {
		slog.Warn("Connection to database failed, continuing without persistence", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(app.ctx, connectTimeout)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		slog.Warn("Failed to prepare database schema, continuing without persistence", "error", err)
		db.Close()
		return
	}

	app.db = db
	app.repository = postgres.NewOpportunityRepository(db)
	slog.Info("Database connected successfully")
}

func (app *App) connectRedis() {
	if !app.cfg.Cache.Enabled {
		slog.Info("Redis disabled, snapshots and spread history are unavailable")
		return
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", app.cfg.Cache.RedisHost, app.cfg.Cache.RedisPort),
		Password:     app.cfg.Cache.RedisPassword,
		DB:           app.cfg.Cache.RedisDB,
		PoolSize:     app.cfg.Cache.PoolSize,
		MinIdleConns: app.cfg.Cache.MinIdleConns,
		DialTimeout:  connectTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(app.ctx, connectTimeout)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis connection failed, continuing without cache", "error", err)
		redisClient.Close()
		return
	}

	app.redisClient = redisClient
	app.snapshotCache = cache.NewRedisAdapter(redisClient,
		app.cfg.Cache.SnapshotTTLDuration(), app.cfg.Cache.RetentionDuration())
	slog.Info("Redis connected successfully")
}

// Run serves HTTP until Shutdown is called.
func (app *App) Run() error {
	slog.Info("Starting server", "port", app.cfg.App.Port)

	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		return err
	}
	return nil
}

// startCleanupRoutine trims spread history past the retention window
func (app *App) startCleanupRoutine() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	retention := app.cfg.Cache.RetentionDuration()
	if retention <= 0 {
		retention = cache.DefaultRetention
	}

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(app.ctx, 10*time.Second)
			if err := app.snapshotCache.CleanupOldData(ctx, retention); err != nil {
				slog.Error("Failed to cleanup old data", "error", err)
			}
			cancel()

		case <-app.ctx.Done():
			slog.Info("Cleanup routine stopped")
			return
		}
	}
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	slog.Info("Shutting down application...")

	var errs []error

	if app.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	if app.scanner != nil {
		if err := app.scanner.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("scanner: %w", err))
		}
	}

	// Stops the hub and the cleanup routine
	app.cancel()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		slog.Error("Application shutdown finished with errors", "error", err)
		return err
	}
	slog.Info("Application shutdown complete")
	return nil
}
