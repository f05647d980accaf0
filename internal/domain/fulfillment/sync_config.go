package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment-sync/internal/domain/ordering"
)

var (
	// ErrSyncConfigNotFound indicates the singleton config row is absent
	ErrSyncConfigNotFound = errors.New("fulfillment: sync config not found")
	// ErrSyncConfigInvalid indicates the config misses required credentials
	ErrSyncConfigInvalid = errors.New("fulfillment: sync config invalid")
)

// TokenExpiryMargin is subtracted from the provider's expires_in so a
// token is refreshed before it actually expires.
const TokenExpiryMargin = 5 * time.Minute

// Default sync cadence, in minutes
const (
	DefaultInventoryIntervalMinutes = 1440
	DefaultTrackingIntervalMinutes  = 30
)

// SyncConfig is the singleton configuration row shared by all sync
// services: provider credentials, the cached access token, toggles,
// intervals, and last-run bookkeeping.
type SyncConfig struct {
	APIBaseURL   string
	ClientID     string
	ClientSecret string
	CompanyID    string

	AccessToken    string
	TokenExpiresAt *time.Time

	Enabled                  bool
	InventoryIntervalMinutes int
	TrackingIntervalMinutes  int
	OrderSyncTriggerStates   []ordering.OrderState

	LastInventorySyncAt *time.Time
	LastTrackingSyncAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InitOptions are the static initialization options used to seed the
// singleton config on first startup.
type InitOptions struct {
	APIBaseURL               string
	ClientID                 string
	ClientSecret             string
	CompanyID                string
	InventoryIntervalMinutes int
	TrackingIntervalMinutes  int
	OrderSyncTriggerStates   []ordering.OrderState
}

// NewSyncConfig creates a config from initialization options, applying
// the default cadence and the default trigger state.
func NewSyncConfig(opts InitOptions) (*SyncConfig, error) {
	if opts.APIBaseURL == "" || opts.ClientID == "" || opts.ClientSecret == "" || opts.CompanyID == "" {
		return nil, ErrSyncConfigInvalid
	}
	cfg := &SyncConfig{
		APIBaseURL:               opts.APIBaseURL,
		ClientID:                 opts.ClientID,
		ClientSecret:             opts.ClientSecret,
		CompanyID:                opts.CompanyID,
		Enabled:                  true,
		InventoryIntervalMinutes: opts.InventoryIntervalMinutes,
		TrackingIntervalMinutes:  opts.TrackingIntervalMinutes,
		OrderSyncTriggerStates:   opts.OrderSyncTriggerStates,
		CreatedAt:                time.Now(),
		UpdatedAt:                time.Now(),
	}
	if cfg.InventoryIntervalMinutes <= 0 {
		cfg.InventoryIntervalMinutes = DefaultInventoryIntervalMinutes
	}
	if cfg.TrackingIntervalMinutes <= 0 {
		cfg.TrackingIntervalMinutes = DefaultTrackingIntervalMinutes
	}
	if len(cfg.OrderSyncTriggerStates) == 0 {
		cfg.OrderSyncTriggerStates = []ordering.OrderState{ordering.OrderStatePaymentSettled}
	}
	return cfg, nil
}

// HasValidToken returns true if the cached token can still be used at
// the given instant. The instant at expiry itself requires a refresh.
func (c *SyncConfig) HasValidToken(now time.Time) bool {
	return c.AccessToken != "" && c.TokenExpiresAt != nil && now.Before(*c.TokenExpiresAt)
}

// SetToken caches a freshly granted token. Expiry is set to
// now + expiresIn - TokenExpiryMargin.
func (c *SyncConfig) SetToken(token string, expiresIn time.Duration, now time.Time) {
	expiry := now.Add(expiresIn - TokenExpiryMargin)
	c.AccessToken = token
	c.TokenExpiresAt = &expiry
	c.UpdatedAt = now
}

// IsTriggerState returns true if entering the given state triggers an
// order sync.
func (c *SyncConfig) IsTriggerState(state ordering.OrderState) bool {
	for _, s := range c.OrderSyncTriggerStates {
		if s == state {
			return true
		}
	}
	return false
}

// MarkInventorySynced records completion of an inventory pass
func (c *SyncConfig) MarkInventorySynced(at time.Time) {
	c.LastInventorySyncAt = &at
	c.UpdatedAt = at
}

// MarkTrackingSynced records completion of a tracking pass
func (c *SyncConfig) MarkTrackingSynced(at time.Time) {
	c.LastTrackingSyncAt = &at
	c.UpdatedAt = at
}

// SyncConfigRepository persists the singleton sync configuration
type SyncConfigRepository interface {
	// Get returns the singleton config, or ErrSyncConfigNotFound
	Get(ctx context.Context) (*SyncConfig, error)
	// Save creates or updates the singleton config
	Save(ctx context.Context, cfg *SyncConfig) error
}
