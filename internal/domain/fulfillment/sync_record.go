package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSyncRecordNotFound indicates no record exists for the order
	ErrSyncRecordNotFound = errors.New("fulfillment: sync record not found")
	// ErrSyncRecordTerminal indicates the record is already in Success state
	ErrSyncRecordTerminal = errors.New("fulfillment: sync record already succeeded")
)

// ---------------------------------------------------------------------------
// Sync Status
// ---------------------------------------------------------------------------

// SyncStatus is the per-order synchronization state.
// Allowed transitions: Pending -> Success, Pending -> Error,
// Error -> Retrying -> Success, Error -> Retrying -> Error.
// Success is terminal under normal operation.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "PENDING"
	SyncStatusSuccess  SyncStatus = "SUCCESS"
	SyncStatusError    SyncStatus = "ERROR"
	SyncStatusRetrying SyncStatus = "RETRYING"
)

// IsValid returns true if the status is a known sync status
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSuccess, SyncStatusError, SyncStatusRetrying:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Sync Record
// ---------------------------------------------------------------------------

// TrackingInfo holds the tracking sub-fields recorded against a sync record
type TrackingInfo struct {
	TrackingNumber string     `json:"tracking_number"`
	Carrier        string     `json:"carrier,omitempty"`
	ShipDate       *time.Time `json:"ship_date,omitempty"`
	RemoteStatus   string     `json:"remote_status,omitempty"`
}

// SyncMetadata is the free-form structured payload of a sync record
type SyncMetadata struct {
	// LastRequest is the most recent payload sent to the provider
	LastRequest json.RawMessage `json:"last_request,omitempty"`
	// LastResponse is the most recent response received from the provider
	LastResponse json.RawMessage `json:"last_response,omitempty"`
	// Tracking holds tracking info recorded by the tracking sync
	Tracking *TrackingInfo `json:"tracking,omitempty"`
}

// SyncRecord is the persisted synchronization status of one local order.
// At most one record exists per local order.
type SyncRecord struct {
	ID             uuid.UUID
	LocalOrderID   uuid.UUID
	LocalOrderCode string
	RemoteOrderID  *string
	Status         SyncStatus
	ErrorMessage   string
	RetryCount     int
	LastAttemptAt  *time.Time
	LastSuccessAt  *time.Time
	Metadata       SyncMetadata
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSyncRecord creates a record for an order's first sync attempt
func NewSyncRecord(localOrderID uuid.UUID, localOrderCode string) *SyncRecord {
	now := time.Now()
	return &SyncRecord{
		ID:             uuid.New(),
		LocalOrderID:   localOrderID,
		LocalOrderCode: localOrderCode,
		Status:         SyncStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// BeginAttempt marks the start of a sync attempt. A fresh or pending record
// stays Pending; a failed record moves to Retrying, and a record left
// Retrying by an interrupted attempt stays Retrying. Succeeded records
// are never re-attempted.
func (r *SyncRecord) BeginAttempt() error {
	switch r.Status {
	case SyncStatusSuccess:
		return ErrSyncRecordTerminal
	case SyncStatusError, SyncStatusRetrying:
		r.Status = SyncStatusRetrying
	default:
		r.Status = SyncStatusPending
	}
	now := time.Now()
	r.LastAttemptAt = &now
	r.UpdatedAt = now
	return nil
}

// MarkSuccess records a successful remote creation
func (r *SyncRecord) MarkSuccess(remoteOrderID string, request, response json.RawMessage) {
	now := time.Now()
	r.Status = SyncStatusSuccess
	r.RemoteOrderID = &remoteOrderID
	r.ErrorMessage = ""
	r.LastSuccessAt = &now
	r.Metadata.LastRequest = request
	r.Metadata.LastResponse = response
	r.UpdatedAt = now
}

// MarkError records a failed attempt and increments the retry counter
// exactly once. RetryCount never decreases.
func (r *SyncRecord) MarkError(message string) {
	r.Status = SyncStatusError
	r.ErrorMessage = message
	r.RetryCount++
	r.UpdatedAt = time.Now()
}

// RecordTracking stores tracking info obtained from the provider
func (r *SyncRecord) RecordTracking(info TrackingInfo) {
	r.Metadata.Tracking = &info
	r.UpdatedAt = time.Now()
}

// HasSucceeded returns true once the order was created remotely
func (r *SyncRecord) HasSucceeded() bool {
	return r.Status == SyncStatusSuccess && r.RemoteOrderID != nil
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// SyncStats aggregates record counts plus the most recent failures
type SyncStats struct {
	SuccessCount int64        `json:"success_count"`
	ErrorCount   int64        `json:"error_count"`
	PendingCount int64        `json:"pending_count"`
	RecentErrors []SyncRecord `json:"recent_errors"`
}

// SyncRecordRepository persists per-order sync records
type SyncRecordRepository interface {
	// Save creates or updates a record (upsert keyed by LocalOrderID)
	Save(ctx context.Context, record *SyncRecord) error
	// FindByLocalOrder finds the record for a local order
	FindByLocalOrder(ctx context.Context, localOrderID uuid.UUID) (*SyncRecord, error)
	// FindFailed returns all Error-status records, most recent attempt first
	FindFailed(ctx context.Context) ([]SyncRecord, error)
	// FindAwaitingTracking returns Success records with a remote order ID
	FindAwaitingTracking(ctx context.Context) ([]SyncRecord, error)
	// CountByStatus returns the number of records per status
	CountByStatus(ctx context.Context) (map[SyncStatus]int64, error)
	// CountWithTracking returns the number of records carrying tracking info
	CountWithTracking(ctx context.Context) (int64, error)
	// FindRecentErrors returns the most recent Error-status records
	FindRecentErrors(ctx context.Context, limit int) ([]SyncRecord, error)
}
