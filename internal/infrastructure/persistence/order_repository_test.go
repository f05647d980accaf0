package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/infrastructure/persistence/models"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	db := setupSyncTestDB(t)
	err := db.AutoMigrate(
		&models.OrderModel{},
		&models.OrderLineModel{},
		&models.VariantModel{},
		&models.StockLevelModel{},
	)
	require.NoError(t, err)
	return db
}

func newTestOrder() *ordering.Order {
	return &ordering.Order{
		ID:    uuid.New(),
		Code:  "ORD-1001",
		State: ordering.OrderStatePaymentSettled,
		Customer: ordering.Customer{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
		ShippingAddress: ordering.ShippingAddress{
			Line1:      "1 Analytical Way",
			City:       "London",
			Province:   "LDN",
			PostalCode: "E1 6AN",
			Country:    "GB",
		},
		Lines: []ordering.OrderLine{
			{SKU: "SKU-RED-M", Quantity: 2, UnitPrice: 1999},
			{SKU: "SKU-BLUE-L", Quantity: 1, UnitPrice: 2499},
		},
	}
}

func TestGormOrderRepository_SaveAndFindByID(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := newTestOrder()
	require.NoError(t, repo.Save(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1001", found.Code)
	assert.Equal(t, ordering.OrderStatePaymentSettled, found.State)
	assert.Equal(t, "Ada", found.Customer.FirstName)
	require.Len(t, found.Lines, 2)
	assert.Equal(t, int64(1999), found.Lines[0].UnitPrice)
}

func TestGormOrderRepository_FindByIDNotFound(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ordering.ErrOrderNotFound)
}

func TestGormOrderRepository_UpdateTracking(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := newTestOrder()
	require.NoError(t, repo.Save(ctx, order))

	shipDate := time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)
	err := repo.UpdateTracking(ctx, order.ID, ordering.TrackingUpdate{
		TrackingCode: "1Z999AA10123456784",
		Carrier:      "UPS",
		ShipDate:     &shipDate,
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1Z999AA10123456784", found.TrackingCode)
	assert.Equal(t, "UPS", found.Carrier)
	require.NotNil(t, found.ShipDate)
}

func TestGormOrderRepository_UpdateTrackingNotFound(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)

	err := repo.UpdateTracking(context.Background(), uuid.New(), ordering.TrackingUpdate{
		TrackingCode: "1Z999",
	})
	assert.ErrorIs(t, err, ordering.ErrOrderNotFound)
}

func TestGormOrderRepository_TransitionState(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := newTestOrder()
	require.NoError(t, repo.Save(ctx, order))

	require.NoError(t, repo.TransitionState(ctx, order.ID, ordering.OrderStateShipped))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ordering.OrderStateShipped, found.State)
}

func TestGormOrderRepository_TransitionStateRejectsUnknown(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)

	err := repo.TransitionState(context.Background(), uuid.New(), ordering.OrderState("Bogus"))
	assert.ErrorIs(t, err, ordering.ErrInvalidTransition)
}

func TestGormVariantRepository_FindBySKU(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormVariantRepository(db)
	ctx := context.Background()

	first := models.VariantModel{ID: uuid.New(), SKU: "SKU-RED-M", Name: "Red Shirt M", CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now()}
	second := models.VariantModel{ID: uuid.New(), SKU: "SKU-RED-M", Name: "Red Shirt M (legacy)", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	variants, err := repo.FindBySKU(ctx, "SKU-RED-M")
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, first.ID, variants[0].ID)

	none, err := repo.FindBySKU(ctx, "SKU-NOPE")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormStockRepository_AdjustAndRead(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormStockRepository(db)
	ctx := context.Background()

	variantID := uuid.New()
	locationID := uuid.New()

	// missing row reads as zero
	level, err := repo.StockOnHand(ctx, variantID, locationID)
	require.NoError(t, err)
	assert.Equal(t, 0, level)

	require.NoError(t, repo.AdjustStock(ctx, variantID, locationID, 42))
	level, err = repo.StockOnHand(ctx, variantID, locationID)
	require.NoError(t, err)
	assert.Equal(t, 42, level)

	require.NoError(t, repo.AdjustStock(ctx, variantID, locationID, -12))
	level, err = repo.StockOnHand(ctx, variantID, locationID)
	require.NoError(t, err)
	assert.Equal(t, 30, level)
}
