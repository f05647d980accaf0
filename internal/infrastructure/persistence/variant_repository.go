package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence/models"
)

// GormVariantRepository implements the VariantFinder port
type GormVariantRepository struct {
	db *gorm.DB
}

var _ ordering.VariantFinder = (*GormVariantRepository)(nil)

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// FindBySKU returns all variants carrying the given SKU
func (r *GormVariantRepository) FindBySKU(ctx context.Context, sku string) ([]ordering.Variant, error) {
	var rows []models.VariantModel
	if err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	variants := make([]ordering.Variant, len(rows))
	for i := range rows {
		variants[i] = rows[i].ToDomain()
	}
	return variants, nil
}
