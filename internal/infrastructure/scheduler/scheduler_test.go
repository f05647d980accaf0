package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsync "github.com/erp/fulfillment-sync/internal/application/sync"
	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/shared"
)

type stubInventoryRunner struct {
	calls int
	err   error
}

func (s *stubInventoryRunner) SyncInventory(ctx context.Context, force bool) (*appsync.InventorySyncResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &appsync.InventorySyncResult{}, nil
}

type stubTrackingRunner struct {
	calls int
	err   error
}

func (s *stubTrackingRunner) SyncTracking(ctx context.Context) (*appsync.TrackingSyncResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &appsync.TrackingSyncResult{}, nil
}

type stubConfigRepo struct {
	cfg *fulfillment.SyncConfig
	err error
}

func (s *stubConfigRepo) Get(ctx context.Context) (*fulfillment.SyncConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.cfg
	return &copied, nil
}

func (s *stubConfigRepo) Save(ctx context.Context, cfg *fulfillment.SyncConfig) error {
	copied := *cfg
	s.cfg = &copied
	return nil
}

func newTriggerConfig() *fulfillment.SyncConfig {
	cfg, err := fulfillment.NewSyncConfig(fulfillment.InitOptions{
		APIBaseURL:   "https://warehouse.example.com",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		CompanyID:    "company-1",
	})
	if err != nil {
		panic(err)
	}
	return cfg
}

// tuesday 10:00 UTC, inside the default business window
var businessHours = time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

type triggerFixture struct {
	trigger   *SyncTrigger
	inventory *stubInventoryRunner
	tracking  *stubTrackingRunner
	repo      *stubConfigRepo
}

func newTriggerFixture(t *testing.T, now time.Time) *triggerFixture {
	t.Helper()
	f := &triggerFixture{
		inventory: new(stubInventoryRunner),
		tracking:  new(stubTrackingRunner),
		repo:      &stubConfigRepo{cfg: newTriggerConfig()},
	}
	trigger, err := NewSyncTrigger(DefaultConfig(), f.inventory, f.tracking, f.repo, zap.NewNop())
	require.NoError(t, err)
	trigger.now = func() time.Time { return now }
	f.trigger = trigger
	return f
}

func TestTriggerRunsBothJobsWhenNeverSynced(t *testing.T) {
	f := newTriggerFixture(t, businessHours)

	f.trigger.checkAndTrigger(context.Background())

	assert.Equal(t, 1, f.inventory.calls)
	assert.Equal(t, 1, f.tracking.calls)
}

func TestTriggerHonorsIntervals(t *testing.T) {
	f := newTriggerFixture(t, businessHours)
	// inventory ran 10 hours ago (daily interval not elapsed),
	// tracking ran 31 minutes ago (30 minute interval elapsed)
	inv := businessHours.Add(-10 * time.Hour)
	trk := businessHours.Add(-31 * time.Minute)
	f.repo.cfg.LastInventorySyncAt = &inv
	f.repo.cfg.LastTrackingSyncAt = &trk

	f.trigger.checkAndTrigger(context.Background())

	assert.Equal(t, 0, f.inventory.calls)
	assert.Equal(t, 1, f.tracking.calls)
}

func TestTriggerSkipsRecentTracking(t *testing.T) {
	f := newTriggerFixture(t, businessHours)
	inv := businessHours.Add(-25 * time.Hour)
	trk := businessHours.Add(-10 * time.Minute)
	f.repo.cfg.LastInventorySyncAt = &inv
	f.repo.cfg.LastTrackingSyncAt = &trk

	f.trigger.checkAndTrigger(context.Background())

	assert.Equal(t, 1, f.inventory.calls)
	assert.Equal(t, 0, f.tracking.calls)
}

func TestTriggerSkipsDisabledSync(t *testing.T) {
	f := newTriggerFixture(t, businessHours)
	f.repo.cfg.Enabled = false

	f.trigger.checkAndTrigger(context.Background())

	assert.Equal(t, 0, f.inventory.calls)
	assert.Equal(t, 0, f.tracking.calls)
}

func TestTriggerSkipsMissingSettings(t *testing.T) {
	f := newTriggerFixture(t, businessHours)
	f.repo.err = fulfillment.ErrSyncConfigNotFound

	f.trigger.checkAndTrigger(context.Background())

	assert.Equal(t, 0, f.inventory.calls)
	assert.Equal(t, 0, f.tracking.calls)
}

func TestTriggerTrackingRespectsBusinessWindow(t *testing.T) {
	// saturday 10:00: weekday gate blocks tracking, not inventory
	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	f := newTriggerFixture(t, saturday)

	f.trigger.checkAndTrigger(context.Background())

	assert.Equal(t, 1, f.inventory.calls)
	assert.Equal(t, 0, f.tracking.calls)

	// tuesday 22:00: after hours
	evening := time.Date(2026, 3, 3, 22, 0, 0, 0, time.UTC)
	f = newTriggerFixture(t, evening)

	f.trigger.checkAndTrigger(context.Background())

	assert.Equal(t, 1, f.inventory.calls)
	assert.Equal(t, 0, f.tracking.calls)
}

func TestTriggerToleratesBusyJob(t *testing.T) {
	f := newTriggerFixture(t, businessHours)
	f.inventory.err = shared.ErrAlreadyRunning
	f.tracking.err = shared.ErrAlreadyRunning

	// must not panic or stop the loop
	f.trigger.checkAndTrigger(context.Background())

	assert.Equal(t, 1, f.inventory.calls)
	assert.Equal(t, 1, f.tracking.calls)
}

func TestTriggerStartStop(t *testing.T) {
	f := newTriggerFixture(t, businessHours)

	require.NoError(t, f.trigger.Start(context.Background()))
	// second start is a no-op
	require.NoError(t, f.trigger.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.trigger.Stop(ctx))
	require.NoError(t, f.trigger.Stop(ctx))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.TickInterval = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Timezone = nil
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.BusinessStartHour = 18
	cfg.BusinessEndHour = 8
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
