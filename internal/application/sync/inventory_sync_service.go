package sync

import (
	"context"
	"fmt"
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
	inventoryJobName = "inventory-sync"
	inventoryLockTTL = 30 * time.Minute
)

// InventorySyncService reconciles local stock-on-hand with the
// provider's available quantities.
type InventorySyncService struct {
	provider        fulfillment.Provider
	variants        ordering.VariantFinder
	stock           ordering.StockKeeper
	configRepo      fulfillment.SyncConfigRepository
	lock            joblock.Lock
	defaultLocation uuid.UUID
	logger          *zap.Logger
	now             func() time.Time
}

// NewInventorySyncService creates a new InventorySyncService.
// defaultLocation is the stock location all adjustments are applied to.
func NewInventorySyncService(
	provider fulfillment.Provider,
	variants ordering.VariantFinder,
	stock ordering.StockKeeper,
	configRepo fulfillment.SyncConfigRepository,
	lock joblock.Lock,
	defaultLocation uuid.UUID,
	logger *zap.Logger,
) *InventorySyncService {
	return &InventorySyncService{
		provider:        provider,
		variants:        variants,
		stock:           stock,
		configRepo:      configRepo,
		lock:            lock,
		defaultLocation: defaultLocation,
		logger:          logger,
		now:             time.Now,
	}
}

// SyncInventory runs a full reconciliation pass. force bypasses the
// enabled gate but still takes the job lease: two passes can never run
// concurrently. Item-level failures are counted and never abort the
// batch.
func (s *InventorySyncService) SyncInventory(ctx context.Context, force bool) (*InventorySyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory_sync", "sync_inventory",
		telemetry.WithAttribute(telemetry.SpanAttrJobName, inventoryJobName),
		telemetry.WithAttribute(telemetry.SpanAttrForced, force),
	)
	defer span.End()

	acquired, err := s.lock.Acquire(ctx, inventoryJobName, inventoryLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire inventory job lease: %w", err)
	}
	if !acquired {
		return nil, shared.ErrAlreadyRunning
	}
	defer func() {
		if releaseErr := s.lock.Release(ctx, inventoryJobName); releaseErr != nil {
			s.logger.Warn("failed to release inventory job lease", zap.Error(releaseErr))
		}
	}()

	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sync config: %w", err)
	}
	if !force && !cfg.Enabled {
		return nil, shared.ErrSyncDisabled
	}

	result := &InventorySyncResult{StartedAt: s.now()}

	items, err := s.provider.ListInventory(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("list remote inventory: %w", err)
	}

	for i := range items {
		s.reconcileItem(ctx, &items[i], result)
	}

	result.FinishedAt = s.now()
	cfg.MarkInventorySynced(result.FinishedAt)
	if err := s.configRepo.Save(ctx, cfg); err != nil {
		s.logger.Warn("failed to record inventory sync timestamp", zap.Error(err))
	}

	telemetry.SetAttributes(span,
		"total_processed", result.TotalProcessed,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)
	s.logger.Info("inventory sync finished",
		zap.Int("total", result.TotalProcessed),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// SyncSingleSKU reconciles one SKU on demand
func (s *InventorySyncService) SyncSingleSKU(ctx context.Context, sku string) (*InventorySyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory_sync", "sync_single_sku",
		telemetry.WithAttribute(telemetry.SpanAttrSKU, sku),
	)
	defer span.End()

	result := &InventorySyncResult{StartedAt: s.now()}

	item, err := s.provider.GetInventory(ctx, sku)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("fetch remote inventory for %s: %w", sku, err)
	}

	s.reconcileItem(ctx, item, result)
	result.FinishedAt = s.now()
	return result, nil
}

// reconcileItem applies one remote inventory row to local stock
func (s *InventorySyncService) reconcileItem(ctx context.Context, item *fulfillment.InventoryItem, result *InventorySyncResult) {
	result.TotalProcessed++

	matches, err := s.variants.FindBySKU(ctx, item.SKU)
	if err != nil {
		s.logger.Error("variant lookup failed",
			zap.String("sku", item.SKU),
			zap.Error(err),
		)
		result.Errors++
		return
	}
	if len(matches) == 0 {
		s.logger.Debug("no local variant for remote SKU", zap.String("sku", item.SKU))
		result.Skipped++
		return
	}
	if len(matches) > 1 {
		s.logger.Warn("multiple variants share SKU, using first match",
			zap.String("sku", item.SKU),
			zap.Int("matches", len(matches)),
		)
	}
	variant := matches[0]

	// negative availability reads as zero
	newStock := max(0, item.AvailableQuantity)

	current, err := s.stock.StockOnHand(ctx, variant.ID, s.defaultLocation)
	if err != nil {
		s.logger.Error("stock lookup failed",
			zap.String("sku", item.SKU),
			zap.Error(err),
		)
		result.Errors++
		return
	}

	if current == newStock {
		result.Skipped++
		return
	}

	delta := newStock - current
	if err := s.stock.AdjustStock(ctx, variant.ID, s.defaultLocation, delta); err != nil {
		s.logger.Error("stock adjustment failed",
			zap.String("sku", item.SKU),
			zap.Int("delta", delta),
			zap.Error(err),
		)
		result.Errors++
		return
	}

	s.logger.Debug("stock adjusted",
		zap.String("sku", item.SKU),
		zap.Int("from", current),
		zap.Int("to", newStock),
	)
	result.Updated++
}
