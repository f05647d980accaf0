package sync

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/ordering"
)

// MockProvider is a mock implementation of fulfillment.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateOrder(ctx context.Context, req *fulfillment.CreateOrderRequest) (*fulfillment.CreateOrderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.CreateOrderResult), args.Error(1)
}

func (m *MockProvider) GetOrderStatus(ctx context.Context, orderNumber string) (*fulfillment.OrderStatus, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.OrderStatus), args.Error(1)
}

func (m *MockProvider) ListInventory(ctx context.Context) ([]fulfillment.InventoryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.InventoryItem), args.Error(1)
}

func (m *MockProvider) GetInventory(ctx context.Context, sku string) (*fulfillment.InventoryItem, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.InventoryItem), args.Error(1)
}

// MockOrderStore is a mock implementation of the order ports
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Order), args.Error(1)
}

func (m *MockOrderStore) UpdateTracking(ctx context.Context, id uuid.UUID, update ordering.TrackingUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockOrderStore) TransitionState(ctx context.Context, id uuid.UUID, target ordering.OrderState) error {
	args := m.Called(ctx, id, target)
	return args.Error(0)
}

// MockVariantFinder is a mock implementation of ordering.VariantFinder
type MockVariantFinder struct {
	mock.Mock
}

func (m *MockVariantFinder) FindBySKU(ctx context.Context, sku string) ([]ordering.Variant, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ordering.Variant), args.Error(1)
}

// MockStockKeeper is a mock implementation of ordering.StockKeeper
type MockStockKeeper struct {
	mock.Mock
}

func (m *MockStockKeeper) StockOnHand(ctx context.Context, variantID, locationID uuid.UUID) (int, error) {
	args := m.Called(ctx, variantID, locationID)
	return args.Int(0), args.Error(1)
}

func (m *MockStockKeeper) AdjustStock(ctx context.Context, variantID, locationID uuid.UUID, delta int) error {
	args := m.Called(ctx, variantID, locationID, delta)
	return args.Error(0)
}

// memRecordRepo is an in-memory SyncRecordRepository that keeps real
// state so tests can assert the full state machine.
type memRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]fulfillment.SyncRecord
	saveErr error
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: make(map[uuid.UUID]fulfillment.SyncRecord)}
}

func (r *memRecordRepo) Save(ctx context.Context, record *fulfillment.SyncRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[record.LocalOrderID] = *record
	return nil
}

func (r *memRecordRepo) FindByLocalOrder(ctx context.Context, localOrderID uuid.UUID) (*fulfillment.SyncRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[localOrderID]
	if !ok {
		return nil, fulfillment.ErrSyncRecordNotFound
	}
	copied := record
	return &copied, nil
}

func (r *memRecordRepo) FindFailed(ctx context.Context) ([]fulfillment.SyncRecord, error) {
	return r.byStatus(fulfillment.SyncStatusError), nil
}

func (r *memRecordRepo) FindAwaitingTracking(ctx context.Context) ([]fulfillment.SyncRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []fulfillment.SyncRecord
	for _, record := range r.records {
		if record.Status == fulfillment.SyncStatusSuccess && record.RemoteOrderID != nil {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *memRecordRepo) CountByStatus(ctx context.Context) (map[fulfillment.SyncStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[fulfillment.SyncStatus]int64)
	for _, record := range r.records {
		counts[record.Status]++
	}
	return counts, nil
}

func (r *memRecordRepo) CountWithTracking(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, record := range r.records {
		if record.Metadata.Tracking != nil {
			count++
		}
	}
	return count, nil
}

func (r *memRecordRepo) FindRecentErrors(ctx context.Context, limit int) ([]fulfillment.SyncRecord, error) {
	failed := r.byStatus(fulfillment.SyncStatusError)
	if len(failed) > limit {
		failed = failed[:limit]
	}
	return failed, nil
}

func (r *memRecordRepo) byStatus(status fulfillment.SyncStatus) []fulfillment.SyncRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []fulfillment.SyncRecord
	for _, record := range r.records {
		if record.Status == status {
			out = append(out, record)
		}
	}
	return out
}

// memConfigRepo is an in-memory SyncConfigRepository
type memConfigRepo struct {
	mu  sync.Mutex
	cfg *fulfillment.SyncConfig
}

func newMemConfigRepo(cfg *fulfillment.SyncConfig) *memConfigRepo {
	return &memConfigRepo{cfg: cfg}
}

func (r *memConfigRepo) Get(ctx context.Context) (*fulfillment.SyncConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg == nil {
		return nil, fulfillment.ErrSyncConfigNotFound
	}
	copied := *r.cfg
	return &copied, nil
}

func (r *memConfigRepo) Save(ctx context.Context, cfg *fulfillment.SyncConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *cfg
	r.cfg = &copied
	return nil
}
