package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coopelec/backend/internal/application/analytics"
	"github.com/coopelec/backend/internal/application/ingest"
	"github.com/coopelec/backend/internal/domain/balance"
	"github.com/coopelec/backend/internal/domain/period"
	"github.com/coopelec/backend/internal/infrastructure/cache"
	"github.com/coopelec/backend/internal/infrastructure/config"
	"github.com/coopelec/backend/internal/infrastructure/logger"
	"github.com/coopelec/backend/internal/infrastructure/persistence"
	"github.com/coopelec/backend/internal/infrastructure/telemetry"
	"github.com/coopelec/backend/internal/interfaces/http/handler"
	"github.com/coopelec/backend/internal/interfaces/http/middleware"
	"github.com/coopelec/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting energy balance backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Database.SlowQuery)
	db, err := persistence.Open(ctx, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled {
		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			Enabled:    cfg.Telemetry.DBTraceEnabled,
			LogFullSQL: cfg.Telemetry.DBLogFullSQL,
			SlowQuery:  cfg.Database.SlowQuery,
			DBName:     cfg.Database.DBName,
		}, log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}

	bounds := period.Bounds{MinYear: cfg.Analytics.MinYear, MaxYear: cfg.Analytics.MaxYear}
	if err := middleware.SetupValidator(bounds); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	// Repositories
	readingRepo := persistence.NewGormReadingRepository(db.DB)
	catalogRepo := persistence.NewGormCatalogRepository(db.DB)

	// Application services
	analyticsService := analytics.NewService(readingRepo, catalogRepo, catalogRepo, analytics.Config{
		Bounds: bounds,
		AlertRules: balance.AlertRules{
			NegativeLossBelow: decimal.NewFromFloat(cfg.Analytics.NegativeLossThreshold),
			SuddenIncrease:    decimal.NewFromFloat(cfg.Analytics.SuddenIncreaseThreshold),
		},
	}, log)
	ingestService := ingest.NewService(readingRepo, bounds, log)
	if metrics != nil {
		analyticsService.WithRecorder(metrics)
		ingestService.WithRecorder(metrics)
	}

	var rateStore cache.CounterStore
	if cfg.RateLimit.Enabled {
		rateStore, err = cache.NewCounterStoreFactory(cfg.RateLimit, cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create rate limit store", zap.Error(err))
		}
		defer func() { _ = rateStore.Close() }()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engineCfg := router.EngineConfig{
		Logger:         log,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		ServiceName:    cfg.Telemetry.ServiceName,
		CORS: middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: middleware.DefaultCORSConfig().ExposeHeaders,
			MaxAge:        middleware.DefaultCORSConfig().MaxAge,
		},
		MaxBodySize:     cfg.HTTP.MaxBodySize,
		RateLimit:       cfg.RateLimit.Requests,
		RateLimitWindow: cfg.RateLimit.Window,
	}
	if tracer.Enabled() {
		engineCfg.TracerProvider = otel.GetTracerProvider()
	}
	if metrics != nil {
		engineCfg.Metrics = metrics
	}
	if rateStore != nil {
		engineCfg.RateLimitStore = rateStore
	}

	engine, err := router.NewEngine(engineCfg)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	analyticsRoutes := handler.NewAnalyticsHandler(analyticsService).Routes()
	readingRoutes := handler.NewReadingsHandler(ingestService).Routes()
	healthRoutes := handler.NewHealthHandler(cfg.App.Name, version, db).Routes()

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(analyticsRoutes).
		Register(readingRoutes).
		RegisterRoot(healthRoutes)
	r.Setup()

	for _, g := range []*router.DomainGroup{analyticsRoutes, readingRoutes} {
		for _, route := range g.Routes() {
			log.Debug("Route registered", zap.String("method", route.Method), zap.String("path", "/api/v1"+route.Path))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
