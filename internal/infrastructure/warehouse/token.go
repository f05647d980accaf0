package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
)

// TokenManager obtains and caches a bearer token for the provider.
// The token and its expiry live on the persisted SyncConfig row, so all
// instances evaluate freshness against the same snapshot.
type TokenManager struct {
	configRepo fulfillment.SyncConfigRepository
	httpClient *http.Client
	logger     *zap.Logger

	// mu serializes refreshes within this process
	mu  sync.Mutex
	now func() time.Time
}

// NewTokenManager creates a token manager backed by the config store.
// A zero timeout falls back to the default.
func NewTokenManager(configRepo fulfillment.SyncConfigRepository, timeout time.Duration, logger *zap.Logger) *TokenManager {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &TokenManager{
		configRepo: configRepo,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Token returns a valid bearer token, refreshing it when the cached one
// is missing or within the expiry margin. A grant failure is returned as
// ErrProviderAuthFailed; callers skip the sync cycle rather than marking
// order-level errors.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.configRepo.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("load sync config: %w", err)
	}

	if cfg.HasValidToken(m.now()) {
		return cfg.AccessToken, nil
	}

	token, expiresIn, err := m.grant(ctx, cfg)
	if err != nil {
		m.logger.Error("token grant failed",
			zap.String("token_url", cfg.APIBaseURL+"/api/token"),
			zap.Error(err),
		)
		return "", err
	}

	cfg.SetToken(token, expiresIn, m.now())
	if err := m.configRepo.Save(ctx, cfg); err != nil {
		// the token is still usable this cycle even if caching failed
		m.logger.Warn("failed to persist refreshed token", zap.Error(err))
	}

	m.logger.Debug("provider token refreshed",
		zap.Time("expires_at", *cfg.TokenExpiresAt),
	)
	return token, nil
}

// grant performs the client-credentials grant against the token endpoint
func (m *TokenManager) grant(ctx context.Context, cfg *fulfillment.SyncConfig) (string, time.Duration, error) {
	body := strings.NewReader("grant_type=client_credentials&scope=api")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIBaseURL+"/api/token", body)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", fulfillment.ErrProviderAuthFailed, err)
	}
	req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", fulfillment.ErrProviderAuthFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", 0, fmt.Errorf("%w: reading token response: %v", fulfillment.ErrProviderAuthFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("%w: HTTP %d", fulfillment.ErrProviderAuthFailed, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", 0, fmt.Errorf("%w: %v", fulfillment.ErrProviderInvalidResponse, err)
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return "", 0, fmt.Errorf("%w: empty token grant", fulfillment.ErrProviderInvalidResponse)
	}

	return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
}
