package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence/models"
)

// setupSyncTestDB creates an in-memory SQLite database for testing
func setupSyncTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.SyncRecordModel{}, &models.SyncConfigModel{})
	require.NoError(t, err)

	return db
}

func TestGormSyncRecordRepository_SaveAndFind(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	ctx := context.Background()

	record := fulfillment.NewSyncRecord(uuid.New(), "ORD-1001")
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindByLocalOrder(ctx, record.LocalOrderID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, "ORD-1001", found.LocalOrderCode)
	assert.Equal(t, fulfillment.SyncStatusPending, found.Status)
}

func TestGormSyncRecordRepository_FindByLocalOrderNotFound(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncRecordRepository(db)

	_, err := repo.FindByLocalOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, fulfillment.ErrSyncRecordNotFound)
}

func TestGormSyncRecordRepository_UpsertByLocalOrder(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	ctx := context.Background()

	record := fulfillment.NewSyncRecord(uuid.New(), "ORD-1001")
	require.NoError(t, repo.Save(ctx, record))

	record.MarkError("connection refused")
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindByLocalOrder(ctx, record.LocalOrderID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.SyncStatusError, found.Status)
	assert.Equal(t, 1, found.RetryCount)
	assert.Equal(t, "connection refused", found.ErrorMessage)

	// still a single row
	var count int64
	require.NoError(t, db.Model(&models.SyncRecordModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormSyncRecordRepository_MetadataRoundTrip(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	ctx := context.Background()

	record := fulfillment.NewSyncRecord(uuid.New(), "ORD-1001")
	record.MarkSuccess("WH-42",
		json.RawMessage(`{"OrderNumber":"ORD-1001"}`),
		json.RawMessage(`{"OrderId":"WH-42"}`),
	)
	record.RecordTracking(fulfillment.TrackingInfo{
		TrackingNumber: "1Z999",
		Carrier:        "UPS",
	})
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindByLocalOrder(ctx, record.LocalOrderID)
	require.NoError(t, err)
	require.NotNil(t, found.RemoteOrderID)
	assert.Equal(t, "WH-42", *found.RemoteOrderID)
	assert.JSONEq(t, `{"OrderId":"WH-42"}`, string(found.Metadata.LastResponse))
	require.NotNil(t, found.Metadata.Tracking)
	assert.Equal(t, "1Z999", found.Metadata.Tracking.TrackingNumber)
}

func TestGormSyncRecordRepository_FindFailed(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	ctx := context.Background()

	older := fulfillment.NewSyncRecord(uuid.New(), "ORD-1001")
	require.NoError(t, older.BeginAttempt())
	older.MarkError("timeout")
	past := time.Now().Add(-time.Hour)
	older.LastAttemptAt = &past
	require.NoError(t, repo.Save(ctx, older))

	newer := fulfillment.NewSyncRecord(uuid.New(), "ORD-1002")
	require.NoError(t, newer.BeginAttempt())
	newer.MarkError("rejected")
	require.NoError(t, repo.Save(ctx, newer))

	succeeded := fulfillment.NewSyncRecord(uuid.New(), "ORD-1003")
	succeeded.MarkSuccess("WH-1", nil, nil)
	require.NoError(t, repo.Save(ctx, succeeded))

	failed, err := repo.FindFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "ORD-1002", failed[0].LocalOrderCode)
	assert.Equal(t, "ORD-1001", failed[1].LocalOrderCode)
}

func TestGormSyncRecordRepository_FindAwaitingTracking(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	ctx := context.Background()

	succeeded := fulfillment.NewSyncRecord(uuid.New(), "ORD-1001")
	succeeded.MarkSuccess("WH-1", nil, nil)
	require.NoError(t, repo.Save(ctx, succeeded))

	pending := fulfillment.NewSyncRecord(uuid.New(), "ORD-1002")
	require.NoError(t, repo.Save(ctx, pending))

	awaiting, err := repo.FindAwaitingTracking(ctx)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, "ORD-1001", awaiting[0].LocalOrderCode)
}

func TestGormSyncRecordRepository_CountByStatus(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		r := fulfillment.NewSyncRecord(uuid.New(), "ORD-OK")
		r.MarkSuccess("WH-1", nil, nil)
		require.NoError(t, repo.Save(ctx, r))
	}
	failed := fulfillment.NewSyncRecord(uuid.New(), "ORD-BAD")
	failed.MarkError("boom")
	require.NoError(t, repo.Save(ctx, failed))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[fulfillment.SyncStatusSuccess])
	assert.Equal(t, int64(1), counts[fulfillment.SyncStatusError])
}

func TestGormSyncRecordRepository_CountWithTracking(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	ctx := context.Background()

	tracked := fulfillment.NewSyncRecord(uuid.New(), "ORD-1001")
	tracked.MarkSuccess("WH-1", nil, nil)
	tracked.RecordTracking(fulfillment.TrackingInfo{TrackingNumber: "1Z999"})
	require.NoError(t, repo.Save(ctx, tracked))

	untracked := fulfillment.NewSyncRecord(uuid.New(), "ORD-1002")
	untracked.MarkSuccess("WH-2", nil, nil)
	require.NoError(t, repo.Save(ctx, untracked))

	count, err := repo.CountWithTracking(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGormSyncRecordRepository_FindRecentErrors(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := fulfillment.NewSyncRecord(uuid.New(), "ORD-BAD")
		r.MarkError("boom")
		require.NoError(t, repo.Save(ctx, r))
	}

	recent, err := repo.FindRecentErrors(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}
