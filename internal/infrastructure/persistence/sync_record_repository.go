package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence/models"
)

// GormSyncRecordRepository implements SyncRecordRepository using GORM
type GormSyncRecordRepository struct {
	db *gorm.DB
}

var _ fulfillment.SyncRecordRepository = (*GormSyncRecordRepository)(nil)

// NewGormSyncRecordRepository creates a new GormSyncRecordRepository
func NewGormSyncRecordRepository(db *gorm.DB) *GormSyncRecordRepository {
	return &GormSyncRecordRepository{db: db}
}

// Save creates or updates the record, keyed by local_order_id
func (r *GormSyncRecordRepository) Save(ctx context.Context, record *fulfillment.SyncRecord) error {
	model := models.SyncRecordModelFromDomain(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "local_order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"remote_order_id", "status", "error_message", "retry_count",
				"last_attempt_at", "last_success_at", "tracking_number",
				"metadata", "updated_at",
			}),
		}).
		Create(model).Error
}

// FindByLocalOrder finds the record for a local order
func (r *GormSyncRecordRepository) FindByLocalOrder(ctx context.Context, localOrderID uuid.UUID) (*fulfillment.SyncRecord, error) {
	var model models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("local_order_id = ?", localOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindFailed returns all Error-status records, most recent attempt first
func (r *GormSyncRecordRepository) FindFailed(ctx context.Context) ([]fulfillment.SyncRecord, error) {
	var rows []models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", fulfillment.SyncStatusError).
		Order("last_attempt_at DESC NULLS LAST").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// FindAwaitingTracking returns Success records with a remote order ID
func (r *GormSyncRecordRepository) FindAwaitingTracking(ctx context.Context) ([]fulfillment.SyncRecord, error) {
	var rows []models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND remote_order_id IS NOT NULL", fulfillment.SyncStatusSuccess).
		Order("last_success_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// CountByStatus returns the number of records per status
func (r *GormSyncRecordRepository) CountByStatus(ctx context.Context) (map[fulfillment.SyncStatus]int64, error) {
	type statusCount struct {
		Status fulfillment.SyncStatus
		Count  int64
	}
	var rows []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.SyncRecordModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[fulfillment.SyncStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountWithTracking returns the number of records carrying tracking info
func (r *GormSyncRecordRepository) CountWithTracking(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SyncRecordModel{}).
		Where("tracking_number <> ''").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindRecentErrors returns the most recent Error-status records
func (r *GormSyncRecordRepository) FindRecentErrors(ctx context.Context, limit int) ([]fulfillment.SyncRecord, error) {
	var rows []models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", fulfillment.SyncStatusError).
		Order("updated_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

func toDomainRecords(rows []models.SyncRecordModel) []fulfillment.SyncRecord {
	records := make([]fulfillment.SyncRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records
}
