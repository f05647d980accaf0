package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/domain/shared"
	"github.com/erp/fulfillment-sync/internal/infrastructure/joblock"
)

type inventoryFixture struct {
	svc        *InventorySyncService
	provider   *MockProvider
	variants   *MockVariantFinder
	stock      *MockStockKeeper
	configRepo *memConfigRepo
	location   uuid.UUID
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	f := &inventoryFixture{
		provider:   new(MockProvider),
		variants:   new(MockVariantFinder),
		stock:      new(MockStockKeeper),
		configRepo: newMemConfigRepo(testSyncConfig(t)),
		location:   uuid.New(),
	}
	f.svc = NewInventorySyncService(
		f.provider, f.variants, f.stock, f.configRepo,
		joblock.NewInMemoryLock(), f.location, zap.NewNop(),
	)
	return f
}

func (f *inventoryFixture) expectVariant(sku string, variants ...ordering.Variant) {
	f.variants.On("FindBySKU", mock.Anything, sku).Return(variants, nil)
}

func TestInventorySyncAdjustsStockToRemoteLevel(t *testing.T) {
	f := newInventoryFixture(t)
	variant := ordering.Variant{ID: uuid.New(), SKU: "SKU-RED-M"}

	f.provider.On("ListInventory", mock.Anything).Return([]fulfillment.InventoryItem{
		{SKU: "SKU-RED-M", AvailableQuantity: 42},
	}, nil)
	f.expectVariant("SKU-RED-M", variant)
	f.stock.On("StockOnHand", mock.Anything, variant.ID, f.location).Return(30, nil)
	f.stock.On("AdjustStock", mock.Anything, variant.ID, f.location, 12).Return(nil)

	result, err := f.svc.SyncInventory(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalProcessed)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Errors)
	f.stock.AssertExpectations(t)
}

func TestInventorySyncNegativeAvailabilityReadsAsZero(t *testing.T) {
	f := newInventoryFixture(t)
	variant := ordering.Variant{ID: uuid.New(), SKU: "SKU-OVERSOLD"}

	f.provider.On("ListInventory", mock.Anything).Return([]fulfillment.InventoryItem{
		{SKU: "SKU-OVERSOLD", AvailableQuantity: -5},
	}, nil)
	f.expectVariant("SKU-OVERSOLD", variant)
	f.stock.On("StockOnHand", mock.Anything, variant.ID, f.location).Return(7, nil)
	f.stock.On("AdjustStock", mock.Anything, variant.ID, f.location, -7).Return(nil)

	result, err := f.svc.SyncInventory(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	f.stock.AssertExpectations(t)
}

func TestInventorySyncSkipsEqualStock(t *testing.T) {
	f := newInventoryFixture(t)
	variant := ordering.Variant{ID: uuid.New(), SKU: "SKU-RED-M"}

	f.provider.On("ListInventory", mock.Anything).Return([]fulfillment.InventoryItem{
		{SKU: "SKU-RED-M", AvailableQuantity: 30},
	}, nil)
	f.expectVariant("SKU-RED-M", variant)
	f.stock.On("StockOnHand", mock.Anything, variant.ID, f.location).Return(30, nil)

	result, err := f.svc.SyncInventory(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Updated)
	f.stock.AssertNotCalled(t, "AdjustStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInventorySyncSkipsUnknownSku(t *testing.T) {
	f := newInventoryFixture(t)

	f.provider.On("ListInventory", mock.Anything).Return([]fulfillment.InventoryItem{
		{SKU: "SKU-NOPE", AvailableQuantity: 10},
	}, nil)
	f.expectVariant("SKU-NOPE")

	result, err := f.svc.SyncInventory(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Errors)
}

func TestInventorySyncUsesFirstOfDuplicateVariants(t *testing.T) {
	f := newInventoryFixture(t)
	first := ordering.Variant{ID: uuid.New(), SKU: "SKU-DUP"}
	second := ordering.Variant{ID: uuid.New(), SKU: "SKU-DUP"}

	f.provider.On("ListInventory", mock.Anything).Return([]fulfillment.InventoryItem{
		{SKU: "SKU-DUP", AvailableQuantity: 5},
	}, nil)
	f.expectVariant("SKU-DUP", first, second)
	f.stock.On("StockOnHand", mock.Anything, first.ID, f.location).Return(0, nil)
	f.stock.On("AdjustStock", mock.Anything, first.ID, f.location, 5).Return(nil)

	result, err := f.svc.SyncInventory(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	f.stock.AssertExpectations(t)
}

func TestInventorySyncItemFailureDoesNotAbortBatch(t *testing.T) {
	f := newInventoryFixture(t)
	good := ordering.Variant{ID: uuid.New(), SKU: "SKU-GOOD"}
	bad := ordering.Variant{ID: uuid.New(), SKU: "SKU-BAD"}

	f.provider.On("ListInventory", mock.Anything).Return([]fulfillment.InventoryItem{
		{SKU: "SKU-BAD", AvailableQuantity: 3},
		{SKU: "SKU-GOOD", AvailableQuantity: 9},
	}, nil)
	f.expectVariant("SKU-BAD", bad)
	f.expectVariant("SKU-GOOD", good)
	f.stock.On("StockOnHand", mock.Anything, bad.ID, f.location).Return(0, fmt.Errorf("deadlock detected"))
	f.stock.On("StockOnHand", mock.Anything, good.ID, f.location).Return(0, nil)
	f.stock.On("AdjustStock", mock.Anything, good.ID, f.location, 9).Return(nil)

	result, err := f.svc.SyncInventory(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 1, result.Updated)
}

func TestInventorySyncDisabledWithoutForce(t *testing.T) {
	f := newInventoryFixture(t)
	cfg, err := f.configRepo.Get(context.Background())
	require.NoError(t, err)
	cfg.Enabled = false
	require.NoError(t, f.configRepo.Save(context.Background(), cfg))

	_, err = f.svc.SyncInventory(context.Background(), false)
	assert.ErrorIs(t, err, shared.ErrSyncDisabled)
	f.provider.AssertNotCalled(t, "ListInventory", mock.Anything)
}

func TestInventorySyncForceBypassesEnabledGate(t *testing.T) {
	f := newInventoryFixture(t)
	cfg, err := f.configRepo.Get(context.Background())
	require.NoError(t, err)
	cfg.Enabled = false
	require.NoError(t, f.configRepo.Save(context.Background(), cfg))

	f.provider.On("ListInventory", mock.Anything).Return([]fulfillment.InventoryItem{}, nil)

	result, err := f.svc.SyncInventory(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalProcessed)
}

func TestInventorySyncRefusedWhileRunning(t *testing.T) {
	f := newInventoryFixture(t)
	lock := joblock.NewInMemoryLock()
	f.svc.lock = lock

	// another holder owns the job, force must still be refused
	acquired, err := lock.Acquire(context.Background(), inventoryJobName, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = f.svc.SyncInventory(context.Background(), true)
	assert.ErrorIs(t, err, shared.ErrAlreadyRunning)
	f.provider.AssertNotCalled(t, "ListInventory", mock.Anything)
}

func TestInventorySyncRecordsLastSyncTimestamp(t *testing.T) {
	f := newInventoryFixture(t)
	f.provider.On("ListInventory", mock.Anything).Return([]fulfillment.InventoryItem{}, nil)

	_, err := f.svc.SyncInventory(context.Background(), false)
	require.NoError(t, err)

	cfg, err := f.configRepo.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cfg.LastInventorySyncAt)
}

func TestInventorySyncAuthFailureSkipsCycle(t *testing.T) {
	f := newInventoryFixture(t)
	f.provider.On("ListInventory", mock.Anything).
		Return(nil, fmt.Errorf("%w: HTTP 401", fulfillment.ErrProviderAuthFailed))

	_, err := f.svc.SyncInventory(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, fulfillment.ErrProviderAuthFailed)

	// the cycle was skipped, not recorded as completed
	cfg, cfgErr := f.configRepo.Get(context.Background())
	require.NoError(t, cfgErr)
	assert.Nil(t, cfg.LastInventorySyncAt)
}

func TestSyncSingleSKU(t *testing.T) {
	f := newInventoryFixture(t)
	variant := ordering.Variant{ID: uuid.New(), SKU: "SKU-RED-M"}

	f.provider.On("GetInventory", mock.Anything, "SKU-RED-M").Return(&fulfillment.InventoryItem{
		SKU: "SKU-RED-M", AvailableQuantity: 12,
	}, nil)
	f.expectVariant("SKU-RED-M", variant)
	f.stock.On("StockOnHand", mock.Anything, variant.ID, f.location).Return(2, nil)
	f.stock.On("AdjustStock", mock.Anything, variant.ID, f.location, 10).Return(nil)

	result, err := f.svc.SyncSingleSKU(context.Background(), "SKU-RED-M")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	f.stock.AssertExpectations(t)
}

func TestSyncSingleSKUUnknownRemote(t *testing.T) {
	f := newInventoryFixture(t)
	f.provider.On("GetInventory", mock.Anything, "SKU-NOPE").
		Return(nil, fmt.Errorf("%w: SKU-NOPE", fulfillment.ErrRemoteSkuNotFound))

	_, err := f.svc.SyncSingleSKU(context.Background(), "SKU-NOPE")
	assert.ErrorIs(t, err, fulfillment.ErrRemoteSkuNotFound)
}
