package ordering

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrOrderNotFound     = errors.New("ordering: order not found")
	ErrVariantNotFound   = errors.New("ordering: product variant not found")
	ErrInvalidTransition = errors.New("ordering: invalid order state transition")
)

// ---------------------------------------------------------------------------
// Order State
// ---------------------------------------------------------------------------

// OrderState represents a lifecycle state of an order in the local
// order-management platform.
type OrderState string

const (
	OrderStateAddingItems        OrderState = "AddingItems"
	OrderStateArrangingPayment   OrderState = "ArrangingPayment"
	OrderStatePaymentAuthorized  OrderState = "PaymentAuthorized"
	OrderStatePaymentSettled     OrderState = "PaymentSettled"
	OrderStatePartiallyFulfilled OrderState = "PartiallyFulfilled"
	OrderStateFulfilled          OrderState = "Fulfilled"
	OrderStateShipped            OrderState = "Shipped"
	OrderStateDelivered          OrderState = "Delivered"
	OrderStateCancelled          OrderState = "Cancelled"
)

// IsValid returns true if the state is one of the known lifecycle states
func (s OrderState) IsValid() bool {
	switch s {
	case OrderStateAddingItems, OrderStateArrangingPayment, OrderStatePaymentAuthorized,
		OrderStatePaymentSettled, OrderStatePartiallyFulfilled, OrderStateFulfilled,
		OrderStateShipped, OrderStateDelivered, OrderStateCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderState
func (s OrderState) String() string {
	return string(s)
}

// AwaitingShipment returns true for states in which the order may still
// receive tracking information from the fulfillment provider.
func (s OrderState) AwaitingShipment() bool {
	switch s {
	case OrderStatePaymentSettled, OrderStatePartiallyFulfilled, OrderStateFulfilled, OrderStateShipped:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Order and related value types
// ---------------------------------------------------------------------------

// Customer holds the customer detail attached to an order
type Customer struct {
	FirstName string
	LastName  string
	Email     string
}

// ShippingAddress holds the destination address of an order
type ShippingAddress struct {
	Line1      string
	Line2      string
	City       string
	Province   string
	PostalCode string
	Country    string
}

// OrderLine is a single line item of an order.
// UnitPrice is expressed in minor currency units (e.g., cents).
type OrderLine struct {
	SKU       string
	Quantity  int
	UnitPrice int64
}

// Order is the local platform's order as consumed by the sync engine
type Order struct {
	ID              uuid.UUID
	Code            string
	State           OrderState
	Customer        Customer
	ShippingAddress ShippingAddress
	Lines           []OrderLine

	// Tracking fields populated by the tracking sync
	TrackingCode string
	Carrier      string
	ShipDate     *time.Time
}

// TrackingUpdate carries the tracking fields written back to an order
type TrackingUpdate struct {
	TrackingCode string
	Carrier      string
	ShipDate     *time.Time
}

// Variant is a product variant identified by SKU
type Variant struct {
	ID   uuid.UUID
	SKU  string
	Name string
}

// ---------------------------------------------------------------------------
// Consumed platform ports
// ---------------------------------------------------------------------------

// OrderReader reads orders from the local platform
type OrderReader interface {
	// FindByID fetches an order with line items and customer detail
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
}

// OrderWriter mutates orders on the local platform
type OrderWriter interface {
	// UpdateTracking writes the tracking custom fields of an order
	UpdateTracking(ctx context.Context, id uuid.UUID, update TrackingUpdate) error
	// TransitionState transitions an order to a named state
	TransitionState(ctx context.Context, id uuid.UUID, target OrderState) error
}

// VariantFinder locates product variants by SKU
type VariantFinder interface {
	// FindBySKU returns all variants carrying the given SKU.
	// More than one match is possible when SKUs are not unique locally.
	FindBySKU(ctx context.Context, sku string) ([]Variant, error)
}

// StockKeeper reads and adjusts stock-on-hand for a variant at a location
type StockKeeper interface {
	// StockOnHand returns the current stock level for a variant at a location
	StockOnHand(ctx context.Context, variantID, locationID uuid.UUID) (int, error)
	// AdjustStock applies a signed delta to the stock-on-hand
	AdjustStock(ctx context.Context, variantID, locationID uuid.UUID, delta int) error
}
