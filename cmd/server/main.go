package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	cashsessionapp "github.com/pos/backend/internal/application/cashsession"
	catalogapp "github.com/pos/backend/internal/application/catalog"
	inventoryapp "github.com/pos/backend/internal/application/inventory"
	partnerapp "github.com/pos/backend/internal/application/partner"
	salesapp "github.com/pos/backend/internal/application/sales"
	"github.com/pos/backend/internal/domain/inventory"
	"github.com/pos/backend/internal/domain/shared/valueobject"
	"github.com/pos/backend/internal/infrastructure/auth"
	"github.com/pos/backend/internal/infrastructure/cache"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/pos/backend/internal/infrastructure/event"
	"github.com/pos/backend/internal/infrastructure/logger"
	"github.com/pos/backend/internal/infrastructure/persistence"
	"github.com/pos/backend/internal/infrastructure/telemetry"
	"github.com/pos/backend/internal/interfaces/http/handler"
	"github.com/pos/backend/internal/interfaces/http/middleware"
	"github.com/pos/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("starting pos backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
		}
	}()
	log.Info("database connected")

	// Repositories and transaction scopes.
	variantRepo := persistence.NewGormProductVariantRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	balanceRepo := persistence.NewGormBalanceEntryRepository(db.DB)
	sessionRepo := persistence.NewGormCashSessionRepository(db.DB)
	saleTxScope := persistence.NewGormTransactionScope(db.DB)
	stockTxScope := persistence.NewGormInventoryTransactionScope(db.DB)

	// Event bus with the audit trail subscribed to everything.
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("error stopping event bus", zap.Error(err))
		}
	}()

	// Metrics ride the event bus so services stay free of telemetry
	// plumbing.
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("error shutting down telemetry", zap.Error(err))
		}
	}()
	businessMetrics, err := telemetry.NewBusinessMetrics(meterProvider.Meter("pos-backend"), log)
	if err != nil {
		log.Fatal("failed to initialize business metrics", zap.Error(err))
	}
	eventBus.Subscribe(businessMetrics, businessMetrics.EventTypes()...)

	idempotencyStore, err := cache.NewIdempotencyStore(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("error closing idempotency store", zap.Error(err))
		}
	}()

	pricingCfg := pricingConfigFrom(cfg.Pricing)

	// Application services.
	quoteService := salesapp.NewQuoteService(saleTxScope, pricingCfg, log)
	saleRecorder := salesapp.NewSaleRecorder(saleTxScope, idempotencyStore, pricingCfg, log)
	saleRecorder.SetEventPublisher(eventBus)
	returnReconciler := salesapp.NewReturnReconciler(saleTxScope, idempotencyStore, pricingCfg, log)
	returnReconciler.SetEventPublisher(eventBus)
	stockService := inventoryapp.NewStockLedgerService(stockTxScope, log, inventory.RejectBelowZero)
	stockService.SetEventPublisher(eventBus)
	customerService := partnerapp.NewCustomerService(customerRepo, balanceRepo, log)
	customerService.SetEventPublisher(eventBus)
	sessionService := cashsessionapp.NewSessionService(sessionRepo, log)
	sessionService.SetEventPublisher(eventBus)
	variantService := catalogapp.NewVariantService(variantRepo, log)
	variantService.SetEventPublisher(eventBus)

	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	engine.Use(middleware.JWTAuthWithConfig(jwtConfig))

	systemHandler := handler.NewSystemHandler(db.DB)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(systemHandler)
	r.Register(handler.NewVariantHandler(variantService))
	r.Register(handler.NewStockHandler(stockService))
	r.Register(handler.NewSaleHandler(quoteService, saleRecorder))
	r.Register(handler.NewReturnHandler(returnReconciler))
	r.Register(handler.NewCustomerHandler(customerService))
	r.Register(handler.NewSessionHandler(sessionService))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// pricingConfigFrom converts the raw configuration values into the
// typed pricing knobs the sale paths consume.
func pricingConfigFrom(cfg config.PricingConfig) salesapp.PricingConfig {
	policy := inventory.RejectBelowZero
	if cfg.AllowNegativeStock {
		policy = inventory.ClampToZero
	}
	return salesapp.PricingConfig{
		TaxRatePct:        decimal.NewFromFloat(cfg.TaxRatePct),
		PointValue:        valueobject.NewDefault(decimal.NewFromFloat(cfg.PointValue)),
		PointsPerUnit:     decimal.NewFromFloat(cfg.PointsPerUnit),
		ApprovalThreshold: valueobject.NewDefault(decimal.NewFromFloat(cfg.ApprovalThreshold)),
		OversellPolicy:    policy,
	}
}
