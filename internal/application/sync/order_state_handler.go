package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/domain/shared"
)

// OrderStateHandler subscribes to order state transitions and triggers
// an order sync when the new state is one of the configured trigger
// states.
type OrderStateHandler struct {
	syncService *OrderSyncService
	configRepo  fulfillment.SyncConfigRepository
	logger      *zap.Logger
}

var _ shared.EventHandler = (*OrderStateHandler)(nil)

// NewOrderStateHandler creates a new OrderStateHandler
func NewOrderStateHandler(
	syncService *OrderSyncService,
	configRepo fulfillment.SyncConfigRepository,
	logger *zap.Logger,
) *OrderStateHandler {
	return &OrderStateHandler{
		syncService: syncService,
		configRepo:  configRepo,
		logger:      logger,
	}
}

// EventTypes returns the event types this handler consumes
func (h *OrderStateHandler) EventTypes() []string {
	return []string{ordering.EventTypeOrderStateChanged}
}

// Handle triggers the sync for orders entering a trigger state
func (h *OrderStateHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	stateChanged, ok := event.(*ordering.OrderStateChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}

	cfg, err := h.configRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, fulfillment.ErrSyncConfigNotFound) {
			return nil
		}
		return fmt.Errorf("load sync config: %w", err)
	}

	if !cfg.Enabled || !cfg.IsTriggerState(stateChanged.ToState) {
		return nil
	}

	h.logger.Info("order entered trigger state, starting sync",
		zap.String("order_code", stateChanged.OrderCode),
		zap.String("state", stateChanged.ToState.String()),
	)
	return h.syncService.SyncOrder(ctx, stateChanged.OrderID)
}
