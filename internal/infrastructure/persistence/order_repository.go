package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements the OrderReader and OrderWriter ports
// against the local platform's order tables.
type GormOrderRepository struct {
	db *gorm.DB
}

var (
	_ ordering.OrderReader = (*GormOrderRepository)(nil)
	_ ordering.OrderWriter = (*GormOrderRepository)(nil)
)

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID fetches an order with line items and customer detail
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ordering.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateTracking writes the tracking fields of an order
func (r *GormOrderRepository) UpdateTracking(ctx context.Context, id uuid.UUID, update ordering.TrackingUpdate) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tracking_code": update.TrackingCode,
			"carrier":       update.Carrier,
			"ship_date":     update.ShipDate,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ordering.ErrOrderNotFound
	}
	return nil
}

// TransitionState transitions an order to a named state
func (r *GormOrderRepository) TransitionState(ctx context.Context, id uuid.UUID, target ordering.OrderState) error {
	if !target.IsValid() {
		return ordering.ErrInvalidTransition
	}
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Update("state", target)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ordering.ErrOrderNotFound
	}
	return nil
}

// Save creates or fully replaces an order. Used by tests and seed tooling.
func (r *GormOrderRepository) Save(ctx context.Context, order *ordering.Order) error {
	model := &models.OrderModel{}
	model.FromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderLineModel{}).Error; err != nil {
			return err
		}
		return tx.Save(model).Error
	})
}
