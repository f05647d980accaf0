package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Provider Errors
// ---------------------------------------------------------------------------

var (
	// ErrProviderUnavailable indicates a transient failure (network, timeout, 5xx)
	ErrProviderUnavailable = errors.New("fulfillment: provider temporarily unavailable")
	// ErrProviderRejected indicates the provider rejected the request (4xx class);
	// requests failing this way must not be retried
	ErrProviderRejected = errors.New("fulfillment: provider rejected request")
	// ErrProviderAuthFailed indicates the token grant or bearer auth failed
	ErrProviderAuthFailed = errors.New("fulfillment: provider authentication failed")
	// ErrProviderInvalidResponse indicates an unparseable provider response
	ErrProviderInvalidResponse = errors.New("fulfillment: invalid provider response")
	// ErrRemoteOrderNotFound indicates the provider has no order for the number
	ErrRemoteOrderNotFound = errors.New("fulfillment: remote order not found")
	// ErrRemoteSkuNotFound indicates the provider has no inventory for the SKU
	ErrRemoteSkuNotFound = errors.New("fulfillment: remote SKU not found")
)

// ---------------------------------------------------------------------------
// Remote order status
// ---------------------------------------------------------------------------

// RemoteStatus is the order status reported by the fulfillment provider
type RemoteStatus string

const (
	RemoteStatusReceived   RemoteStatus = "Received"
	RemoteStatusProcessing RemoteStatus = "Processing"
	RemoteStatusShipped    RemoteStatus = "Shipped"
	RemoteStatusCancelled  RemoteStatus = "Cancelled"
)

// String returns the string representation of RemoteStatus
func (s RemoteStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Provider request/response types
// ---------------------------------------------------------------------------

// OrderCustomer is the customer detail sent with a remote order
type OrderCustomer struct {
	FirstName string
	LastName  string
	Email     string
}

// OrderAddress is the shipping destination sent with a remote order
type OrderAddress struct {
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
}

// OrderItem is a line item of a remote order.
// UnitPrice is a decimal amount in major currency units.
type OrderItem struct {
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateOrderRequest is the payload for remote order creation
type CreateOrderRequest struct {
	CompanyID       string
	OrderNumber     string
	Customer        OrderCustomer
	ShippingAddress OrderAddress
	Items           []OrderItem
}

// CreateOrderResult is the outcome of a successful remote order creation
type CreateOrderResult struct {
	RemoteOrderID string
	// RawResponse is the provider's response body, stored in record metadata
	RawResponse []byte
}

// OrderStatus is the shipment status of a remote order
type OrderStatus struct {
	OrderNumber    string
	Status         RemoteStatus
	TrackingNumber string
	Carrier        string
	ShipDate       *time.Time
}

// InventoryItem is a single remote stock position
type InventoryItem struct {
	SKU               string
	AvailableQuantity int
	ReservedQuantity  int
	OnHandQuantity    int
}

// ---------------------------------------------------------------------------
// Provider port
// ---------------------------------------------------------------------------

// Provider is the port to the remote warehouse/fulfillment system.
// Implementations attach authentication and apply bounded timeouts;
// retry policy is layered on top by the callers.
type Provider interface {
	// CreateOrder creates an order on the provider
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error)
	// GetOrderStatus fetches shipment status by order number
	GetOrderStatus(ctx context.Context, orderNumber string) (*OrderStatus, error)
	// ListInventory fetches the complete remote inventory
	ListInventory(ctx context.Context) ([]InventoryItem, error)
	// GetInventory fetches the remote stock position for one SKU
	GetInventory(ctx context.Context, sku string) (*InventoryItem, error)
}
