package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence/models"
)

// GormStockRepository implements the StockKeeper port against the
// stock_levels table.
type GormStockRepository struct {
	db *gorm.DB
}

var _ ordering.StockKeeper = (*GormStockRepository)(nil)

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// StockOnHand returns the current stock level for a variant at a
// location. A missing row reads as zero.
func (r *GormStockRepository) StockOnHand(ctx context.Context, variantID, locationID uuid.UUID) (int, error) {
	var model models.StockLevelModel
	if err := r.db.WithContext(ctx).
		Where("variant_id = ? AND location_id = ?", variantID, locationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return model.StockOnHand, nil
}

// AdjustStock applies a signed delta to the stock-on-hand. The row is
// created on first adjustment; the update is atomic.
func (r *GormStockRepository) AdjustStock(ctx context.Context, variantID, locationID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := &models.StockLevelModel{
			ID:          uuid.New(),
			VariantID:   variantID,
			LocationID:  locationID,
			StockOnHand: 0,
			UpdatedAt:   time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}, {Name: "location_id"}},
			DoNothing: true,
		}).Create(model).Error; err != nil {
			return err
		}

		return tx.Model(&models.StockLevelModel{}).
			Where("variant_id = ? AND location_id = ?", variantID, locationID).
			Updates(map[string]interface{}{
				"stock_on_hand": gorm.Expr("stock_on_hand + ?", delta),
				"updated_at":    time.Now(),
			}).Error
	})
}
