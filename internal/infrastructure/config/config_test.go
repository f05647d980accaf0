package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fulfillment-sync", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 1440, cfg.Fulfillment.InventoryIntervalMinutes)
	assert.Equal(t, 30, cfg.Fulfillment.TrackingIntervalMinutes)
	assert.Equal(t, 30*time.Second, cfg.Fulfillment.Timeout())
	assert.Equal(t, time.Minute, cfg.Scheduler.TickInterval)
	assert.Equal(t, "UTC", cfg.Scheduler.Timezone)
	assert.Equal(t, 8, cfg.Scheduler.BusinessStart)
	assert.Equal(t, 18, cfg.Scheduler.BusinessEnd)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	assert.Equal(t, cfg.App.Name, cfg.Telemetry.ServiceName)
}

func TestValidateRejectsBadSamplingRatio(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Telemetry.SamplingRatio = 1.5

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampling_ratio")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FSYNC_DATABASE_HOST", "db.internal")
	t.Setenv("FSYNC_FULFILLMENT_CLIENT_ID", "env-client")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "env-client", cfg.Fulfillment.ClientID)
}

func TestValidateRejectsBadPool(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Database.MaxIdleConns = 50 // exceeds MaxOpenConns

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestValidateRejectsBadBusinessWindow(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Scheduler.BusinessStart = 18
	cfg.Scheduler.BusinessEnd = 8

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "business_end")
}

func TestValidateProductionRequiresCredentials(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.App.Env = "production"
	cfg.Database.Password = "secret"
	cfg.Database.SSLMode = "require"

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fulfillment")
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss:word",
		DBName:   "fulfillment_sync",
		SSLMode:  "disable",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "p%40ss%3Aword")
	assert.Contains(t, dsn, "sslmode=disable")
}
