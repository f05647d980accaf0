package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/erp/fulfillment-sync/internal/application/sync"
	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/interfaces/http/dto"
)

// OrderSyncer exposes the order sync operations the API needs
type OrderSyncer interface {
	RetrySyncOrder(ctx context.Context, orderID uuid.UUID) error
	GetSyncStatus(ctx context.Context, orderID uuid.UUID) (*appsync.OrderSyncStatus, error)
	ListFailed(ctx context.Context) ([]fulfillment.SyncRecord, error)
	Stats(ctx context.Context) (*fulfillment.SyncStats, error)
}

// InventorySyncer exposes the inventory sync operations the API needs
type InventorySyncer interface {
	SyncInventory(ctx context.Context, force bool) (*appsync.InventorySyncResult, error)
	SyncSingleSKU(ctx context.Context, sku string) (*appsync.InventorySyncResult, error)
}

// TrackingSyncer exposes the tracking sync operations the API needs
type TrackingSyncer interface {
	ForceTrackingSync(ctx context.Context) (*appsync.TrackingSyncResult, error)
	SyncTrackingForOrder(ctx context.Context, orderID uuid.UUID) error
	Stats(ctx context.Context) (*appsync.TrackingStats, error)
}

// SyncStatsResponse aggregates record counts plus recent failures
type SyncStatsResponse struct {
	SuccessCount int64                      `json:"success_count"`
	ErrorCount   int64                      `json:"error_count"`
	PendingCount int64                      `json:"pending_count"`
	RecentErrors []*appsync.OrderSyncStatus `json:"recent_errors"`
}

// SyncHandler handles the administrative sync endpoints
type SyncHandler struct {
	BaseHandler
	orders    OrderSyncer
	inventory InventorySyncer
	tracking  TrackingSyncer
	logger    *zap.Logger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(orders OrderSyncer, inventory InventorySyncer, tracking TrackingSyncer, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		orders:    orders,
		inventory: inventory,
		tracking:  tracking,
		logger:    logger,
	}
}

// RegisterRoutes registers the sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/fulfillment")
	{
		group.POST("/orders/:id/sync", h.RetryOrderSync)
		group.GET("/orders/:id/sync", h.GetOrderSyncStatus)
		group.POST("/orders/:id/tracking", h.SyncOrderTracking)
		group.GET("/orders/failed", h.ListFailedOrders)
		group.GET("/stats", h.GetStats)
		group.POST("/inventory/sync", h.TriggerInventorySync)
		group.POST("/inventory/sync/:sku", h.SyncSingleSKU)
		group.POST("/tracking/sync", h.TriggerTrackingSync)
		group.GET("/tracking/stats", h.GetTrackingStats)
	}
}

// RetryOrderSync re-runs the order sync for one order
func (h *SyncHandler) RetryOrderSync(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid order ID")
		return
	}
	orderID := uuid.MustParse(req.ID)

	if err := h.orders.RetrySyncOrder(c.Request.Context(), orderID); err != nil {
		h.HandleError(c, err)
		return
	}

	status, err := h.orders.GetSyncStatus(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// GetOrderSyncStatus returns the sync record view for one order
func (h *SyncHandler) GetOrderSyncStatus(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid order ID")
		return
	}

	status, err := h.orders.GetSyncStatus(c.Request.Context(), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// SyncOrderTracking refreshes tracking for one order on demand
func (h *SyncHandler) SyncOrderTracking(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid order ID")
		return
	}

	if err := h.tracking.SyncTrackingForOrder(c.Request.Context(), uuid.MustParse(req.ID)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"synced": true})
}

// ListFailedOrders returns all orders whose sync has failed
func (h *SyncHandler) ListFailedOrders(c *gin.Context) {
	records, err := h.orders.ListFailed(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	views := make([]*appsync.OrderSyncStatus, 0, len(records))
	for i := range records {
		views = append(views, appsync.NewOrderSyncStatus(&records[i]))
	}
	h.Success(c, views)
}

// GetStats returns aggregate order sync statistics
func (h *SyncHandler) GetStats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := &SyncStatsResponse{
		SuccessCount: stats.SuccessCount,
		ErrorCount:   stats.ErrorCount,
		PendingCount: stats.PendingCount,
		RecentErrors: make([]*appsync.OrderSyncStatus, 0, len(stats.RecentErrors)),
	}
	for i := range stats.RecentErrors {
		resp.RecentErrors = append(resp.RecentErrors, appsync.NewOrderSyncStatus(&stats.RecentErrors[i]))
	}
	h.Success(c, resp)
}

// TriggerInventorySync starts a full inventory reconciliation pass
func (h *SyncHandler) TriggerInventorySync(c *gin.Context) {
	result, err := h.inventory.SyncInventory(c.Request.Context(), true)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncSingleSKU reconciles one SKU on demand
func (h *SyncHandler) SyncSingleSKU(c *gin.Context) {
	var req dto.SKURequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid SKU")
		return
	}

	result, err := h.inventory.SyncSingleSKU(c.Request.Context(), req.SKU)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// TriggerTrackingSync starts a tracking reconciliation pass
func (h *SyncHandler) TriggerTrackingSync(c *gin.Context) {
	result, err := h.tracking.ForceTrackingSync(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetTrackingStats returns tracking sync health
func (h *SyncHandler) GetTrackingStats(c *gin.Context) {
	stats, err := h.tracking.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
