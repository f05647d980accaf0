package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence/models"
)

// GormSyncConfigRepository implements SyncConfigRepository using GORM.
// The configuration is a single row with a fixed primary key.
type GormSyncConfigRepository struct {
	db *gorm.DB
}

var _ fulfillment.SyncConfigRepository = (*GormSyncConfigRepository)(nil)

// NewGormSyncConfigRepository creates a new GormSyncConfigRepository
func NewGormSyncConfigRepository(db *gorm.DB) *GormSyncConfigRepository {
	return &GormSyncConfigRepository{db: db}
}

// Get returns the singleton config
func (r *GormSyncConfigRepository) Get(ctx context.Context) (*fulfillment.SyncConfig, error) {
	var model models.SyncConfigModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrSyncConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates the singleton config
func (r *GormSyncConfigRepository) Save(ctx context.Context, cfg *fulfillment.SyncConfig) error {
	model := models.SyncConfigModelFromDomain(cfg)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}
