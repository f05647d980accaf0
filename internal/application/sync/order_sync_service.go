package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/infrastructure/telemetry"
	"github.com/erp/fulfillment-sync/internal/infrastructure/warehouse"
)

// recentErrorLimit bounds the error list returned by Stats
const recentErrorLimit = 10

// OrderSyncService pushes local orders to the fulfillment provider and
// keeps one sync record per order.
type OrderSyncService struct {
	orders     ordering.OrderReader
	records    fulfillment.SyncRecordRepository
	configRepo fulfillment.SyncConfigRepository
	provider   fulfillment.Provider
	retry      warehouse.RetryPolicy
	logger     *zap.Logger
}

// NewOrderSyncService creates a new OrderSyncService
func NewOrderSyncService(
	orders ordering.OrderReader,
	records fulfillment.SyncRecordRepository,
	configRepo fulfillment.SyncConfigRepository,
	provider fulfillment.Provider,
	logger *zap.Logger,
) *OrderSyncService {
	return &OrderSyncService{
		orders:     orders,
		records:    records,
		configRepo: configRepo,
		provider:   provider,
		retry:      warehouse.DefaultRetryPolicy(),
		logger:     logger,
	}
}

// SyncOrder pushes one order to the provider. Re-invoking for an order
// that already synced successfully is a no-op with zero remote calls.
// Any failure leaves an Error record with an incremented retry counter;
// an authentication failure leaves the record untouched so the next
// cycle can pick it up.
func (s *OrderSyncService) SyncOrder(ctx context.Context, orderID uuid.UUID) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_sync", "sync_order",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID.String()),
	)
	defer span.End()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderCode, order.Code)

	record, err := s.records.FindByLocalOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, fulfillment.ErrSyncRecordNotFound) {
			return fmt.Errorf("load sync record for order %s: %w", order.Code, err)
		}
		record = fulfillment.NewSyncRecord(order.ID, order.Code)
	}

	if record.HasSucceeded() {
		s.logger.Debug("order already synced",
			zap.String("order_code", order.Code),
			zap.Stringp("remote_order_id", record.RemoteOrderID),
		)
		return nil
	}

	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("load sync config: %w", err)
	}

	if err := record.BeginAttempt(); err != nil {
		return err
	}
	if err := s.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save sync record for order %s: %w", order.Code, err)
	}

	// a panic anywhere below becomes an Error record, never a crashed cycle
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("order sync panicked",
				zap.String("order_code", order.Code),
				zap.Any("panic", r),
			)
			record.MarkError(fmt.Sprintf("panic: %v", r))
			if saveErr := s.records.Save(ctx, record); saveErr != nil {
				s.logger.Error("failed to save panic record", zap.Error(saveErr))
			}
			err = fmt.Errorf("order sync panicked: %v", r)
		}
	}()

	payload := buildCreateOrderRequest(cfg, order)
	requestJSON, err := json.Marshal(payload)
	if err != nil {
		record.MarkError(fmt.Sprintf("marshal request: %v", err))
		if saveErr := s.records.Save(ctx, record); saveErr != nil {
			return saveErr
		}
		return fmt.Errorf("marshal request for order %s: %w", order.Code, err)
	}

	var created *fulfillment.CreateOrderResult
	result := warehouse.WithRetry(ctx, s.retry, s.logger, "create_order", func(ctx context.Context) error {
		var opErr error
		created, opErr = s.provider.CreateOrder(ctx, payload)
		return opErr
	})

	if !result.Success() {
		telemetry.RecordError(span, result.Err)
		if errors.Is(result.Err, fulfillment.ErrProviderAuthFailed) {
			// credentials problem, not an order problem: skip the
			// cycle and leave the record for the next pass
			s.logger.Warn("order sync skipped, provider authentication failed",
				zap.String("order_code", order.Code),
				zap.Error(result.Err),
			)
			return result.Err
		}

		s.logger.Error("order sync failed",
			zap.String("order_code", order.Code),
			zap.Int("attempts", result.Attempts),
			zap.Error(result.Err),
		)
		record.MarkError(result.Err.Error())
		if saveErr := s.records.Save(ctx, record); saveErr != nil {
			return saveErr
		}
		return fmt.Errorf("sync order %s: %w", order.Code, result.Err)
	}

	record.MarkSuccess(created.RemoteOrderID, requestJSON, created.RawResponse)
	if err := s.records.Save(ctx, record); err != nil {
		return fmt.Errorf("save sync record for order %s: %w", order.Code, err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrRemoteOrder, created.RemoteOrderID,
		telemetry.SpanAttrAttempts, result.Attempts,
	)
	s.logger.Info("order synced",
		zap.String("order_code", order.Code),
		zap.String("remote_order_id", created.RemoteOrderID),
		zap.Int("attempts", result.Attempts),
	)
	return nil
}

// RetrySyncOrder re-runs the sync for a failed order
func (s *OrderSyncService) RetrySyncOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.SyncOrder(ctx, orderID)
}

// GetSyncStatus returns the sync record view for an order
func (s *OrderSyncService) GetSyncStatus(ctx context.Context, orderID uuid.UUID) (*OrderSyncStatus, error) {
	record, err := s.records.FindByLocalOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return NewOrderSyncStatus(record), nil
}

// ListFailed returns all failed records, most recent attempt first
func (s *OrderSyncService) ListFailed(ctx context.Context) ([]fulfillment.SyncRecord, error) {
	return s.records.FindFailed(ctx)
}

// Stats aggregates record counts and the most recent failures
func (s *OrderSyncService) Stats(ctx context.Context) (*fulfillment.SyncStats, error) {
	counts, err := s.records.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.records.FindRecentErrors(ctx, recentErrorLimit)
	if err != nil {
		return nil, err
	}

	return &fulfillment.SyncStats{
		SuccessCount: counts[fulfillment.SyncStatusSuccess],
		ErrorCount:   counts[fulfillment.SyncStatusError],
		PendingCount: counts[fulfillment.SyncStatusPending] + counts[fulfillment.SyncStatusRetrying],
		RecentErrors: recent,
	}, nil
}

// buildCreateOrderRequest maps a local order to the provider payload.
// Unit prices arrive in minor currency units and go out as decimals.
func buildCreateOrderRequest(cfg *fulfillment.SyncConfig, order *ordering.Order) *fulfillment.CreateOrderRequest {
	items := make([]fulfillment.OrderItem, len(order.Lines))
	for i, line := range order.Lines {
		items[i] = fulfillment.OrderItem{
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: decimal.New(line.UnitPrice, -2),
		}
	}

	return &fulfillment.CreateOrderRequest{
		CompanyID:   cfg.CompanyID,
		OrderNumber: order.Code,
		Customer: fulfillment.OrderCustomer{
			FirstName: order.Customer.FirstName,
			LastName:  order.Customer.LastName,
			Email:     order.Customer.Email,
		},
		ShippingAddress: fulfillment.OrderAddress{
			Address1: order.ShippingAddress.Line1,
			Address2: order.ShippingAddress.Line2,
			City:     order.ShippingAddress.City,
			State:    order.ShippingAddress.Province,
			Zip:      order.ShippingAddress.PostalCode,
			Country:  order.ShippingAddress.Country,
		},
		Items: items,
	}
}
