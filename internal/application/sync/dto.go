package sync

import (
	"time"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
)

// ---------------------------------------------------------------------------
// Result DTOs
// ---------------------------------------------------------------------------

// InventorySyncResult summarizes one inventory reconciliation pass
type InventorySyncResult struct {
	TotalProcessed int       `json:"total_processed"`
	Updated        int       `json:"updated"`
	Errors         int       `json:"errors"`
	Skipped        int       `json:"skipped"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// TrackingSyncResult summarizes one tracking reconciliation pass
type TrackingSyncResult struct {
	OrdersChecked   int       `json:"orders_checked"`
	TrackingUpdated int       `json:"tracking_updated"`
	Errors          int       `json:"errors"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// TrackingStats reports the tracking sync health
type TrackingStats struct {
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	Running      bool       `json:"running"`
	TrackedCount int64      `json:"tracked_count"`
}

// OrderSyncStatus is the API-facing view of a sync record
type OrderSyncStatus struct {
	LocalOrderCode string                 `json:"local_order_code"`
	RemoteOrderID  *string                `json:"remote_order_id,omitempty"`
	Status         fulfillment.SyncStatus `json:"status"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	RetryCount     int                    `json:"retry_count"`
	LastAttemptAt  *time.Time             `json:"last_attempt_at,omitempty"`
	LastSuccessAt  *time.Time             `json:"last_success_at,omitempty"`
}

// NewOrderSyncStatus maps a sync record to its API view
func NewOrderSyncStatus(record *fulfillment.SyncRecord) *OrderSyncStatus {
	return &OrderSyncStatus{
		LocalOrderCode: record.LocalOrderCode,
		RemoteOrderID:  record.RemoteOrderID,
		Status:         record.Status,
		ErrorMessage:   record.ErrorMessage,
		RetryCount:     record.RetryCount,
		LastAttemptAt:  record.LastAttemptAt,
		LastSuccessAt:  record.LastSuccessAt,
	}
}
