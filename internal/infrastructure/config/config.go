package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Fulfillment FulfillmentConfig
	Scheduler   SchedulerConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings.
// Redis is optional; with an empty host the job locks fall back to
// in-process locking.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// FulfillmentConfig holds the warehouse provider settings used to seed
// the persisted sync configuration on first startup.
type FulfillmentConfig struct {
	APIBaseURL               string
	ClientID                 string
	ClientSecret             string
	CompanyID                string
	InventoryIntervalMinutes int
	TrackingIntervalMinutes  int
	TriggerStates            []string
	DefaultLocationID        string
	TimeoutSeconds           int
}

// SchedulerConfig holds the background sync scheduler configuration
type SchedulerConfig struct {
	Enabled       bool
	TickInterval  time.Duration
	Timezone      string
	BusinessStart int // hour of day, inclusive
	BusinessEnd   int // hour of day, exclusive
	WeekdaysOnly  bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // whether to export traces and logs
	CollectorEndpoint string  // OTLP gRPC endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // 0.0-1.0, 1.0 = 100%
	ServiceName       string  // service name for traces
	Insecure          bool    // non-TLS collector connection, development only
	DBTraceEnabled    bool    // enable database query tracing (otelgorm)
	DBLogFullSQL      bool    // include query variables in spans, disable in production
	LogsEnabled       bool    // bridge zap logs to the collector
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with FSYNC_ prefix (e.g., FSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Fulfillment: FulfillmentConfig{
			APIBaseURL:               v.GetString("fulfillment.api_base_url"),
			ClientID:                 v.GetString("fulfillment.client_id"),
			ClientSecret:             v.GetString("fulfillment.client_secret"),
			CompanyID:                v.GetString("fulfillment.company_id"),
			InventoryIntervalMinutes: v.GetInt("fulfillment.inventory_interval_minutes"),
			TrackingIntervalMinutes:  v.GetInt("fulfillment.tracking_interval_minutes"),
			TriggerStates:            v.GetStringSlice("fulfillment.trigger_states"),
			DefaultLocationID:        v.GetString("fulfillment.default_location_id"),
			TimeoutSeconds:           v.GetInt("fulfillment.timeout_seconds"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			TickInterval:  v.GetDuration("scheduler.tick_interval"),
			Timezone:      v.GetString("scheduler.timezone"),
			BusinessStart: v.GetInt("scheduler.business_start"),
			BusinessEnd:   v.GetInt("scheduler.business_end"),
			WeekdaysOnly:  v.GetBool("scheduler.weekdays_only"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillment-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "fulfillment_sync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Fulfillment.InventoryIntervalMinutes == 0 {
		cfg.Fulfillment.InventoryIntervalMinutes = 1440
	}
	if cfg.Fulfillment.TrackingIntervalMinutes == 0 {
		cfg.Fulfillment.TrackingIntervalMinutes = 30
	}
	if cfg.Fulfillment.TimeoutSeconds == 0 {
		cfg.Fulfillment.TimeoutSeconds = 30
	}
	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = time.Minute
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}
	if cfg.Scheduler.BusinessStart == 0 {
		cfg.Scheduler.BusinessStart = 8
	}
	if cfg.Scheduler.BusinessEnd == 0 {
		cfg.Scheduler.BusinessEnd = 18
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Scheduler.BusinessStart < 0 || c.Scheduler.BusinessStart > 23 {
		return fmt.Errorf("scheduler.business_start must be an hour between 0 and 23")
	}
	if c.Scheduler.BusinessEnd <= c.Scheduler.BusinessStart || c.Scheduler.BusinessEnd > 24 {
		return fmt.Errorf("scheduler.business_end must be after business_start and at most 24")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone is invalid: %w", err)
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Fulfillment.APIBaseURL == "" {
			return fmt.Errorf("fulfillment.api_base_url is required in production")
		}
		if c.Fulfillment.ClientID == "" || c.Fulfillment.ClientSecret == "" {
			return fmt.Errorf("fulfillment credentials are required in production")
		}
		if c.Fulfillment.CompanyID == "" {
			return fmt.Errorf("fulfillment.company_id is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Timeout returns the provider HTTP timeout as a duration
func (f *FulfillmentConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Location resolves the scheduler timezone. Validation guarantees it
// parses, so failures here fall back to UTC.
func (s *SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
