package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appsync "github.com/erp/fulfillment-sync/internal/application/sync"
	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/infrastructure/config"
	"github.com/erp/fulfillment-sync/internal/infrastructure/event"
	"github.com/erp/fulfillment-sync/internal/infrastructure/joblock"
	"github.com/erp/fulfillment-sync/internal/infrastructure/logger"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence/models"
	"github.com/erp/fulfillment-sync/internal/infrastructure/scheduler"
	"github.com/erp/fulfillment-sync/internal/infrastructure/telemetry"
	"github.com/erp/fulfillment-sync/internal/infrastructure/warehouse"
	"github.com/erp/fulfillment-sync/internal/interfaces/http/handler"
	"github.com/erp/fulfillment-sync/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment-sync/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(&cfg.Log)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("starting fulfillment sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("error shutting down tracer provider", zap.Error(err))
		}
	}()

	loggerProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		if err := loggerProvider.Shutdown(context.Background()); err != nil {
			log.Error("error shutting down logger provider", zap.Error(err))
		}
	}()
	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, loggerProvider)
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, otelCore)
		}))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
		}
	}()

	if err := db.DB.AutoMigrate(
		&models.SyncRecordModel{},
		&models.SyncConfigModel{},
		&models.OrderModel{},
		&models.OrderLineModel{},
		&models.VariantModel{},
		&models.StockLevelModel{},
	); err != nil {
		log.Fatal("failed to migrate schema", zap.Error(err))
	}

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBSystem:   "postgresql",
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("failed to register database tracing", zap.Error(err))
	}

	syncRecordRepo := persistence.NewGormSyncRecordRepository(db.DB)
	syncConfigRepo := persistence.NewGormSyncConfigRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	variantRepo := persistence.NewGormVariantRepository(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)

	syncCfg, err := seedSyncConfig(context.Background(), syncConfigRepo, &cfg.Fulfillment, log)
	if err != nil {
		log.Fatal("failed to seed sync configuration", zap.Error(err))
	}

	lock := newJobLock(cfg, log)

	tokens := warehouse.NewTokenManager(syncConfigRepo, cfg.Fulfillment.Timeout(), log)
	provider := warehouse.NewClient(syncCfg.APIBaseURL, tokens, cfg.Fulfillment.Timeout(), log)

	defaultLocation := uuid.Nil
	if cfg.Fulfillment.DefaultLocationID != "" {
		defaultLocation, err = uuid.Parse(cfg.Fulfillment.DefaultLocationID)
		if err != nil {
			log.Fatal("invalid default location ID", zap.Error(err))
		}
	}

	orderSyncService := appsync.NewOrderSyncService(orderRepo, syncRecordRepo, syncConfigRepo, provider, log)
	inventorySyncService := appsync.NewInventorySyncService(provider, variantRepo, stockRepo, syncConfigRepo, lock, defaultLocation, log)
	trackingSyncService := appsync.NewTrackingSyncService(provider, syncRecordRepo, orderRepo, syncConfigRepo, lock, log)

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(appsync.NewOrderStateHandler(orderSyncService, syncConfigRepo, log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("error stopping event bus", zap.Error(err))
		}
	}()

	var trigger *scheduler.SyncTrigger
	if cfg.Scheduler.Enabled {
		trigger, err = scheduler.NewSyncTrigger(scheduler.Config{
			TickInterval:      cfg.Scheduler.TickInterval,
			Timezone:          cfg.Scheduler.Location(),
			BusinessStartHour: cfg.Scheduler.BusinessStart,
			BusinessEndHour:   cfg.Scheduler.BusinessEnd,
			WeekdaysOnly:      cfg.Scheduler.WeekdaysOnly,
		}, inventorySyncService, trackingSyncService, syncConfigRepo, log)
		if err != nil {
			log.Fatal("failed to create sync trigger", zap.Error(err))
		}
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("failed to start sync trigger", zap.Error(err))
		}
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())

	syncHandler := handler.NewSyncHandler(orderSyncService, inventorySyncService, trackingSyncService, log)
	router.NewRouter(engine).Register(syncHandler).Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if trigger != nil {
		if err := trigger.Stop(ctx); err != nil {
			log.Error("error stopping sync trigger", zap.Error(err))
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("server exited gracefully")
}

// seedSyncConfig creates the persisted sync settings from the static
// configuration on first startup. An existing row always wins.
func seedSyncConfig(ctx context.Context, repo fulfillment.SyncConfigRepository, cfg *config.FulfillmentConfig, log *zap.Logger) (*fulfillment.SyncConfig, error) {
	existing, err := repo.Get(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, fulfillment.ErrSyncConfigNotFound) {
		return nil, err
	}

	triggerStates := make([]ordering.OrderState, 0, len(cfg.TriggerStates))
	for _, s := range cfg.TriggerStates {
		state := ordering.OrderState(s)
		if !state.IsValid() {
			return nil, fmt.Errorf("invalid trigger state %q", s)
		}
		triggerStates = append(triggerStates, state)
	}

	seeded, err := fulfillment.NewSyncConfig(fulfillment.InitOptions{
		APIBaseURL:               cfg.APIBaseURL,
		ClientID:                 cfg.ClientID,
		ClientSecret:             cfg.ClientSecret,
		CompanyID:                cfg.CompanyID,
		InventoryIntervalMinutes: cfg.InventoryIntervalMinutes,
		TrackingIntervalMinutes:  cfg.TrackingIntervalMinutes,
		OrderSyncTriggerStates:   triggerStates,
	})
	if err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, seeded); err != nil {
		return nil, err
	}
	log.Info("seeded sync configuration",
		zap.String("api_base_url", seeded.APIBaseURL),
		zap.Int("inventory_interval_minutes", seeded.InventoryIntervalMinutes),
		zap.Int("tracking_interval_minutes", seeded.TrackingIntervalMinutes),
	)
	return seeded, nil
}

// newJobLock returns a Redis-backed lease when Redis is configured,
// otherwise an in-process lock.
func newJobLock(cfg *config.Config, log *zap.Logger) joblock.Lock {
	if cfg.Redis.Host == "" {
		log.Info("redis not configured, using in-process job locks")
		return joblock.NewInMemoryLock()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	log.Info("using redis job locks", zap.String("addr", client.Options().Addr))
	return joblock.NewRedisLock(client, "")
}
