package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/ordering"
)

// SyncRecordModel is the persistence model for the SyncRecord domain entity.
// local_order_id carries a unique index so at most one record exists per
// local order.
type SyncRecordModel struct {
	ID             uuid.UUID             `gorm:"type:uuid;primary_key"`
	LocalOrderID   uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_sync_record_local_order"`
	LocalOrderCode string                `gorm:"type:varchar(64);not null;index"`
	RemoteOrderID  *string               `gorm:"type:varchar(100);index"`
	Status         fulfillment.SyncStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ErrorMessage   string                `gorm:"type:text"`
	RetryCount     int                   `gorm:"not null;default:0"`
	LastAttemptAt  *time.Time            `gorm:"index"`
	LastSuccessAt  *time.Time
	// TrackingNumber is denormalized from the metadata payload so
	// tracking presence can be counted without parsing JSON.
	TrackingNumber string                `gorm:"type:varchar(100);index"`
	MetadataJSON   string                `gorm:"type:jsonb;column:metadata"`
	CreatedAt      time.Time             `gorm:"not null"`
	UpdatedAt      time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncRecordModel) TableName() string {
	return "fulfillment_sync_records"
}

// ToDomain converts the persistence model to a domain SyncRecord entity.
func (m *SyncRecordModel) ToDomain() *fulfillment.SyncRecord {
	record := &fulfillment.SyncRecord{
		ID:             m.ID,
		LocalOrderID:   m.LocalOrderID,
		LocalOrderCode: m.LocalOrderCode,
		RemoteOrderID:  m.RemoteOrderID,
		Status:         m.Status,
		ErrorMessage:   m.ErrorMessage,
		RetryCount:     m.RetryCount,
		LastAttemptAt:  m.LastAttemptAt,
		LastSuccessAt:  m.LastSuccessAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}

	if m.MetadataJSON != "" {
		var meta fulfillment.SyncMetadata
		if err := json.Unmarshal([]byte(m.MetadataJSON), &meta); err == nil {
			record.Metadata = meta
		}
	}

	return record
}

// FromDomain populates the persistence model from a domain SyncRecord entity.
func (m *SyncRecordModel) FromDomain(r *fulfillment.SyncRecord) {
	m.ID = r.ID
	m.LocalOrderID = r.LocalOrderID
	m.LocalOrderCode = r.LocalOrderCode
	m.RemoteOrderID = r.RemoteOrderID
	m.Status = r.Status
	m.ErrorMessage = r.ErrorMessage
	m.RetryCount = r.RetryCount
	m.LastAttemptAt = r.LastAttemptAt
	m.LastSuccessAt = r.LastSuccessAt
	if r.Metadata.Tracking != nil {
		m.TrackingNumber = r.Metadata.Tracking.TrackingNumber
	}
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt

	if jsonBytes, err := json.Marshal(r.Metadata); err == nil {
		m.MetadataJSON = string(jsonBytes)
	} else {
		m.MetadataJSON = "{}"
	}
}

// SyncRecordModelFromDomain creates a new persistence model from a domain SyncRecord entity.
func SyncRecordModelFromDomain(r *fulfillment.SyncRecord) *SyncRecordModel {
	m := &SyncRecordModel{}
	m.FromDomain(r)
	return m
}

// SyncConfigModel is the persistence model for the singleton SyncConfig.
// A fixed primary key of 1 enforces the singleton.
type SyncConfigModel struct {
	ID           int    `gorm:"primary_key"`
	APIBaseURL   string `gorm:"type:varchar(255);not null;column:api_base_url"`
	ClientID     string `gorm:"type:varchar(100);not null"`
	ClientSecret string `gorm:"type:varchar(255);not null"`
	CompanyID    string `gorm:"type:varchar(100);not null"`

	AccessToken    string `gorm:"type:text"`
	TokenExpiresAt *time.Time

	Enabled                  bool   `gorm:"not null;default:true"`
	InventoryIntervalMinutes int    `gorm:"not null"`
	TrackingIntervalMinutes  int    `gorm:"not null"`
	TriggerStatesJSON        string `gorm:"type:jsonb;column:trigger_states"`

	LastInventorySyncAt *time.Time
	LastTrackingSyncAt  *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncConfigModel) TableName() string {
	return "fulfillment_sync_config"
}

// ToDomain converts the persistence model to a domain SyncConfig.
func (m *SyncConfigModel) ToDomain() *fulfillment.SyncConfig {
	cfg := &fulfillment.SyncConfig{
		APIBaseURL:               m.APIBaseURL,
		ClientID:                 m.ClientID,
		ClientSecret:             m.ClientSecret,
		CompanyID:                m.CompanyID,
		AccessToken:              m.AccessToken,
		TokenExpiresAt:           m.TokenExpiresAt,
		Enabled:                  m.Enabled,
		InventoryIntervalMinutes: m.InventoryIntervalMinutes,
		TrackingIntervalMinutes:  m.TrackingIntervalMinutes,
		LastInventorySyncAt:      m.LastInventorySyncAt,
		LastTrackingSyncAt:       m.LastTrackingSyncAt,
		CreatedAt:                m.CreatedAt,
		UpdatedAt:                m.UpdatedAt,
	}

	if m.TriggerStatesJSON != "" {
		var states []ordering.OrderState
		if err := json.Unmarshal([]byte(m.TriggerStatesJSON), &states); err == nil {
			cfg.OrderSyncTriggerStates = states
		}
	}

	return cfg
}

// FromDomain populates the persistence model from a domain SyncConfig.
func (m *SyncConfigModel) FromDomain(cfg *fulfillment.SyncConfig) {
	m.ID = 1
	m.APIBaseURL = cfg.APIBaseURL
	m.ClientID = cfg.ClientID
	m.ClientSecret = cfg.ClientSecret
	m.CompanyID = cfg.CompanyID
	m.AccessToken = cfg.AccessToken
	m.TokenExpiresAt = cfg.TokenExpiresAt
	m.Enabled = cfg.Enabled
	m.InventoryIntervalMinutes = cfg.InventoryIntervalMinutes
	m.TrackingIntervalMinutes = cfg.TrackingIntervalMinutes
	m.LastInventorySyncAt = cfg.LastInventorySyncAt
	m.LastTrackingSyncAt = cfg.LastTrackingSyncAt
	m.CreatedAt = cfg.CreatedAt
	m.UpdatedAt = cfg.UpdatedAt

	if len(cfg.OrderSyncTriggerStates) > 0 {
		if jsonBytes, err := json.Marshal(cfg.OrderSyncTriggerStates); err == nil {
			m.TriggerStatesJSON = string(jsonBytes)
		}
	} else {
		m.TriggerStatesJSON = "[]"
	}
}

// SyncConfigModelFromDomain creates a new persistence model from a domain SyncConfig.
func SyncConfigModelFromDomain(cfg *fulfillment.SyncConfig) *SyncConfigModel {
	m := &SyncConfigModel{}
	m.FromDomain(cfg)
	return m
}
