package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 10 * 1024 * 1024 // 10MB
)

// Client talks to the warehouse provider's REST API. It implements
// fulfillment.Provider; every request carries a bearer token obtained
// from the TokenManager.
type Client struct {
	baseURL    string
	tokens     *TokenManager
	httpClient *http.Client
	logger     *zap.Logger
}

var _ fulfillment.Provider = (*Client)(nil)

// NewClient creates a provider client rooted at baseURL. A zero timeout
// falls back to the default.
func NewClient(baseURL string, tokens *TokenManager, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateOrder submits a new fulfillment order to the provider
func (c *Client) CreateOrder(ctx context.Context, req *fulfillment.CreateOrderRequest) (*fulfillment.CreateOrderResult, error) {
	payload, err := json.Marshal(newCreateOrderRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/api/orders", payload)
	if err != nil {
		return nil, err
	}

	var body createOrderResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrProviderInvalidResponse, err)
	}
	if body.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", fulfillment.ErrProviderInvalidResponse)
	}

	return &fulfillment.CreateOrderResult{
		RemoteOrderID: body.OrderID,
		RawResponse:   raw,
	}, nil
}

// GetOrderStatus fetches the remote status and tracking details for an
// order previously submitted under orderNumber
func (c *Client) GetOrderStatus(ctx context.Context, orderNumber string) (*fulfillment.OrderStatus, error) {
	path := "/api/orders/" + url.PathEscape(orderNumber) + "/status"
	raw, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: %s", fulfillment.ErrRemoteOrderNotFound, orderNumber)
		}
		return nil, err
	}

	var body orderStatusResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrProviderInvalidResponse, err)
	}
	return body.toDomain(), nil
}

// ListInventory fetches stock levels for every SKU the provider holds
func (c *Client) ListInventory(ctx context.Context) ([]fulfillment.InventoryItem, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/api/inventory", nil)
	if err != nil {
		return nil, err
	}

	var rows []inventoryItemResponse
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrProviderInvalidResponse, err)
	}

	items := make([]fulfillment.InventoryItem, len(rows))
	for i := range rows {
		items[i] = rows[i].toDomain()
	}
	return items, nil
}

// GetInventory fetches the stock level for a single SKU
func (c *Client) GetInventory(ctx context.Context, sku string) (*fulfillment.InventoryItem, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/api/inventory/"+url.PathEscape(sku), nil)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: %s", fulfillment.ErrRemoteSkuNotFound, sku)
		}
		return nil, err
	}

	var row inventoryItemResponse
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrProviderInvalidResponse, err)
	}
	item := row.toDomain()
	return &item, nil
}

// doRequest performs an authenticated request and maps HTTP failures to
// the provider error taxonomy
func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", fulfillment.ErrProviderUnavailable, err)
	}

	if err := classifyStatus(resp.StatusCode, raw); err != nil {
		c.logger.Warn("provider request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, err
	}
	return raw, nil
}

// classifyStatus maps an HTTP status to a sentinel error. 4xx responses
// are treated as permanent rejections except for auth failures, which
// get their own class so callers can skip the cycle instead of marking
// order-level errors.
func classifyStatus(status int, raw []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", fulfillment.ErrProviderAuthFailed, status)
	case status == http.StatusNotFound:
		return &statusError{code: status, body: truncate(raw)}
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: HTTP %d: %s", fulfillment.ErrProviderRejected, status, truncate(raw))
	default:
		return fmt.Errorf("%w: HTTP %d", fulfillment.ErrProviderUnavailable, status)
	}
}

// statusError carries a 404 so endpoint methods can map it to the
// resource-specific not-found sentinel
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.body)
}

// Is makes a 404 match ErrProviderRejected for retry classification
func (e *statusError) Is(target error) bool {
	return target == fulfillment.ErrProviderRejected
}

func notFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func truncate(raw []byte) string {
	const max = 256
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
