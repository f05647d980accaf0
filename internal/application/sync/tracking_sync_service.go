package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/domain/shared"
	"github.com/erp/fulfillment-sync/internal/infrastructure/joblock"
	"github.com/erp/fulfillment-sync/internal/infrastructure/telemetry"
)

const (
	trackingJobName = "tracking-sync"
	trackingLockTTL = 15 * time.Minute
)

// TrackingSyncService pulls shipment tracking from the provider back
// onto local orders.
type TrackingSyncService struct {
	provider   fulfillment.Provider
	records    fulfillment.SyncRecordRepository
	orderStore OrderStore
	configRepo fulfillment.SyncConfigRepository
	lock       joblock.Lock
	logger     *zap.Logger
	now        func() time.Time
	running    atomic.Bool
}

// OrderStore combines the order ports the tracking sync needs
type OrderStore interface {
	ordering.OrderReader
	ordering.OrderWriter
}

// NewTrackingSyncService creates a new TrackingSyncService
func NewTrackingSyncService(
	provider fulfillment.Provider,
	records fulfillment.SyncRecordRepository,
	orderStore OrderStore,
	configRepo fulfillment.SyncConfigRepository,
	lock joblock.Lock,
	logger *zap.Logger,
) *TrackingSyncService {
	return &TrackingSyncService{
		provider:   provider,
		records:    records,
		orderStore: orderStore,
		configRepo: configRepo,
		lock:       lock,
		logger:     logger,
		now:        time.Now,
	}
}

// SyncTracking runs a scheduled tracking pass over all synced orders
// still awaiting shipment information.
func (s *TrackingSyncService) SyncTracking(ctx context.Context) (*TrackingSyncResult, error) {
	return s.syncTracking(ctx, false)
}

// ForceTrackingSync bypasses the enabled gate but still takes the job
// lease.
func (s *TrackingSyncService) ForceTrackingSync(ctx context.Context) (*TrackingSyncResult, error) {
	return s.syncTracking(ctx, true)
}

func (s *TrackingSyncService) syncTracking(ctx context.Context, force bool) (*TrackingSyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking_sync", "sync_tracking",
		telemetry.WithAttribute(telemetry.SpanAttrJobName, trackingJobName),
		telemetry.WithAttribute(telemetry.SpanAttrForced, force),
	)
	defer span.End()

	acquired, err := s.lock.Acquire(ctx, trackingJobName, trackingLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire tracking job lease: %w", err)
	}
	if !acquired {
		return nil, shared.ErrAlreadyRunning
	}
	defer func() {
		if releaseErr := s.lock.Release(ctx, trackingJobName); releaseErr != nil {
			s.logger.Warn("failed to release tracking job lease", zap.Error(releaseErr))
		}
	}()

	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sync config: %w", err)
	}
	if !force && !cfg.Enabled {
		return nil, shared.ErrSyncDisabled
	}

	s.running.Store(true)
	defer s.running.Store(false)

	result := &TrackingSyncResult{StartedAt: s.now()}

	candidates, err := s.records.FindAwaitingTracking(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracking candidates: %w", err)
	}

	for i := range candidates {
		record := &candidates[i]

		order, err := s.orderStore.FindByID(ctx, record.LocalOrderID)
		if err != nil {
			s.logger.Error("failed to load order for tracking sync",
				zap.String("order_code", record.LocalOrderCode),
				zap.Error(err),
			)
			result.Errors++
			continue
		}

		// already tracked or past the states that receive tracking
		if order.TrackingCode != "" || !order.State.AwaitingShipment() {
			continue
		}

		result.OrdersChecked++

		if err := s.syncOrderTracking(ctx, record, order, result); err != nil {
			if errors.Is(err, fulfillment.ErrProviderAuthFailed) {
				// credentials problem affects every candidate: end the pass
				s.logger.Warn("tracking sync aborted, provider authentication failed", zap.Error(err))
				telemetry.RecordError(span, err)
				result.FinishedAt = s.now()
				return result, err
			}
			result.Errors++
		}
	}

	result.FinishedAt = s.now()
	cfg.MarkTrackingSynced(result.FinishedAt)
	if err := s.configRepo.Save(ctx, cfg); err != nil {
		s.logger.Warn("failed to record tracking sync timestamp", zap.Error(err))
	}

	telemetry.SetAttributes(span,
		"orders_checked", result.OrdersChecked,
		"tracking_updated", result.TrackingUpdated,
		"errors", result.Errors,
	)
	s.logger.Info("tracking sync finished",
		zap.Int("checked", result.OrdersChecked),
		zap.Int("updated", result.TrackingUpdated),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// SyncTrackingForOrder refreshes tracking for a single order on demand
func (s *TrackingSyncService) SyncTrackingForOrder(ctx context.Context, orderID uuid.UUID) error {
	record, err := s.records.FindByLocalOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !record.HasSucceeded() {
		return fmt.Errorf("order %s: %w", record.LocalOrderCode, fulfillment.ErrSyncRecordNotFound)
	}

	order, err := s.orderStore.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	result := &TrackingSyncResult{StartedAt: s.now()}
	return s.syncOrderTracking(ctx, record, order, result)
}

// syncOrderTracking fetches the remote status for one order and writes
// tracking back when it is new.
func (s *TrackingSyncService) syncOrderTracking(ctx context.Context, record *fulfillment.SyncRecord, order *ordering.Order, result *TrackingSyncResult) error {
	status, err := s.provider.GetOrderStatus(ctx, record.LocalOrderCode)
	if err != nil {
		if !errors.Is(err, fulfillment.ErrProviderAuthFailed) {
			s.logger.Error("remote status lookup failed",
				zap.String("order_code", record.LocalOrderCode),
				zap.Error(err),
			)
		}
		return err
	}

	// nothing shipped yet
	if status.TrackingNumber == "" {
		return nil
	}

	// already applied
	if order.TrackingCode == status.TrackingNumber {
		return nil
	}

	update := ordering.TrackingUpdate{
		TrackingCode: status.TrackingNumber,
		Carrier:      status.Carrier,
		ShipDate:     status.ShipDate,
	}
	if err := s.orderStore.UpdateTracking(ctx, order.ID, update); err != nil {
		s.logger.Error("failed to write tracking to order",
			zap.String("order_code", order.Code),
			zap.Error(err),
		)
		return err
	}

	record.RecordTracking(fulfillment.TrackingInfo{
		TrackingNumber: status.TrackingNumber,
		Carrier:        status.Carrier,
		ShipDate:       status.ShipDate,
		RemoteStatus:   string(status.Status),
	})
	if err := s.records.Save(ctx, record); err != nil {
		s.logger.Error("failed to save tracking metadata",
			zap.String("order_code", order.Code),
			zap.Error(err),
		)
		return err
	}

	// move the order along when the provider already shipped it;
	// a refused transition is logged, the tracking update stands
	if status.Status == fulfillment.RemoteStatusShipped && order.State != ordering.OrderStateShipped {
		if err := s.orderStore.TransitionState(ctx, order.ID, ordering.OrderStateShipped); err != nil {
			s.logger.Warn("could not transition order to shipped",
				zap.String("order_code", order.Code),
				zap.String("state", order.State.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("tracking updated",
		zap.String("order_code", order.Code),
		zap.String("tracking_number", status.TrackingNumber),
		zap.String("carrier", status.Carrier),
	)
	result.TrackingUpdated++
	return nil
}

// Stats reports the tracking sync health
func (s *TrackingSyncService) Stats(ctx context.Context) (*TrackingStats, error) {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	tracked, err := s.records.CountWithTracking(ctx)
	if err != nil {
		return nil, err
	}
	return &TrackingStats{
		LastSyncAt:   cfg.LastTrackingSyncAt,
		Running:      s.running.Load(),
		TrackedCount: tracked,
	}, nil
}
