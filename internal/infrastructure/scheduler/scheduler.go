package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appsync "github.com/erp/fulfillment-sync/internal/application/sync"
	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/shared"
)

// ErrInvalidConfig is returned when the trigger configuration is invalid
var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

// InventoryRunner runs a scheduled inventory reconciliation pass
type InventoryRunner interface {
	SyncInventory(ctx context.Context, force bool) (*appsync.InventorySyncResult, error)
}

// TrackingRunner runs a scheduled tracking pass
type TrackingRunner interface {
	SyncTracking(ctx context.Context) (*appsync.TrackingSyncResult, error)
}

// Config holds configuration for the sync trigger loop
type Config struct {
	// TickInterval is how often due jobs are checked
	TickInterval time.Duration
	// Timezone the business window is evaluated in
	Timezone *time.Location
	// BusinessStartHour and BusinessEndHour bound the tracking window
	// (inclusive start, exclusive end, 24h clock)
	BusinessStartHour int
	BusinessEndHour   int
	// WeekdaysOnly restricts tracking passes to Monday through Friday
	WeekdaysOnly bool
}

// DefaultConfig returns the default trigger configuration
func DefaultConfig() Config {
	return Config{
		TickInterval:      time.Minute,
		Timezone:          time.UTC,
		BusinessStartHour: 8,
		BusinessEndHour:   18,
		WeekdaysOnly:      true,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.Timezone == nil {
		return ErrInvalidConfig
	}
	if c.BusinessStartHour < 0 || c.BusinessEndHour > 24 || c.BusinessStartHour >= c.BusinessEndHour {
		return ErrInvalidConfig
	}
	return nil
}

// SyncTrigger drives the periodic inventory and tracking passes. Job
// due-ness is read from the persisted sync settings on every tick, so
// interval changes take effect without a restart.
type SyncTrigger struct {
	config     Config
	inventory  InventoryRunner
	tracking   TrackingRunner
	configRepo fulfillment.SyncConfigRepository
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	now       func() time.Time
}

// NewSyncTrigger creates a new sync trigger
func NewSyncTrigger(
	config Config,
	inventory InventoryRunner,
	tracking TrackingRunner,
	configRepo fulfillment.SyncConfigRepository,
	logger *zap.Logger,
) (*SyncTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SyncTrigger{
		config:     config,
		inventory:  inventory,
		tracking:   tracking,
		configRepo: configRepo,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Start starts the trigger loop
func (t *SyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("sync trigger started",
		zap.Duration("tick_interval", t.config.TickInterval),
		zap.String("timezone", t.config.Timezone.String()),
		zap.Int("business_start_hour", t.config.BusinessStartHour),
		zap.Int("business_end_hour", t.config.BusinessEndHour),
		zap.Bool("weekdays_only", t.config.WeekdaysOnly),
	)
	return nil
}

// Stop gracefully stops the trigger loop
func (t *SyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("sync trigger stopped")
		return nil
	case <-ctx.Done():
		t.logger.Warn("sync trigger stop timed out")
		return ctx.Err()
	}
}

func (t *SyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs every due job once. Scheduled passes respect
// the persisted enabled flag; forced runs go through the services
// directly and are not the trigger's business.
func (t *SyncTrigger) checkAndTrigger(ctx context.Context) {
	cfg, err := t.configRepo.Get(ctx)
	if err != nil {
		if !errors.Is(err, fulfillment.ErrSyncConfigNotFound) {
			t.logger.Error("failed to load sync settings", zap.Error(err))
		}
		return
	}
	if !cfg.Enabled {
		return
	}

	now := t.now().In(t.config.Timezone)

	if t.intervalElapsed(cfg.LastInventorySyncAt, cfg.InventoryIntervalMinutes, now) {
		t.runInventory(ctx)
	}

	if t.intervalElapsed(cfg.LastTrackingSyncAt, cfg.TrackingIntervalMinutes, now) && t.withinBusinessWindow(now) {
		t.runTracking(ctx)
	}
}

// intervalElapsed reports whether a job that last ran at last is due
// again. A job that never ran is always due.
func (t *SyncTrigger) intervalElapsed(last *time.Time, intervalMinutes int, now time.Time) bool {
	if last == nil {
		return true
	}
	return now.Sub(*last) >= time.Duration(intervalMinutes)*time.Minute
}

// withinBusinessWindow reports whether tracking passes may run at now.
// now must already be in the configured timezone.
func (t *SyncTrigger) withinBusinessWindow(now time.Time) bool {
	if t.config.WeekdaysOnly {
		switch now.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
	}
	return now.Hour() >= t.config.BusinessStartHour && now.Hour() < t.config.BusinessEndHour
}

func (t *SyncTrigger) runInventory(ctx context.Context) {
	result, err := t.inventory.SyncInventory(ctx, false)
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyRunning) {
			t.logger.Debug("inventory pass already running, skipping tick")
			return
		}
		t.logger.Error("scheduled inventory sync failed", zap.Error(err))
		return
	}
	t.logger.Info("scheduled inventory sync finished",
		zap.Int("total", result.TotalProcessed),
		zap.Int("updated", result.Updated),
		zap.Int("errors", result.Errors),
	)
}

func (t *SyncTrigger) runTracking(ctx context.Context) {
	result, err := t.tracking.SyncTracking(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyRunning) {
			t.logger.Debug("tracking pass already running, skipping tick")
			return
		}
		t.logger.Error("scheduled tracking sync failed", zap.Error(err))
		return
	}
	t.logger.Info("scheduled tracking sync finished",
		zap.Int("checked", result.OrdersChecked),
		zap.Int("updated", result.TrackingUpdated),
		zap.Int("errors", result.Errors),
	)
}
