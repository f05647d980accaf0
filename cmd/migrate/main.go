package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/erp/fulfillment-sync/internal/infrastructure/config"
	"github.com/erp/fulfillment-sync/internal/infrastructure/logger"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence/models"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.New(&config.LogConfig{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
		}
	}()

	log.Info("running schema migration",
		zap.String("database", cfg.Database.DBName),
		zap.String("host", cfg.Database.Host),
	)

	if err := db.DB.AutoMigrate(
		&models.SyncRecordModel{},
		&models.SyncConfigModel{},
		&models.OrderModel{},
		&models.OrderLineModel{},
		&models.VariantModel{},
		&models.StockLevelModel{},
	); err != nil {
		log.Fatal("schema migration failed", zap.Error(err))
	}

	log.Info("schema migration completed")
}
