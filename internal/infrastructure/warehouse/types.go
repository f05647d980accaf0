package warehouse

import (
	"time"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
)

// Wire types for the provider's JSON API. Field names follow the
// provider's contract exactly.

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type orderCustomer struct {
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Email     string `json:"Email"`
}

type orderAddress struct {
	Address1 string `json:"Address1"`
	Address2 string `json:"Address2,omitempty"`
	City     string `json:"City"`
	State    string `json:"State"`
	Zip      string `json:"Zip"`
	Country  string `json:"Country"`
}

type orderItem struct {
	SKU       string  `json:"SKU"`
	Quantity  int     `json:"Quantity"`
	UnitPrice float64 `json:"UnitPrice"`
}

type createOrderRequest struct {
	CompanyID       string        `json:"CompanyId"`
	OrderNumber     string        `json:"OrderNumber"`
	Customer        orderCustomer `json:"Customer"`
	ShippingAddress orderAddress  `json:"ShippingAddress"`
	Items           []orderItem   `json:"Items"`
}

type createOrderResponse struct {
	OrderID string `json:"OrderId"`
}

type orderStatusResponse struct {
	OrderNumber    string `json:"OrderNumber"`
	Status         string `json:"Status"`
	TrackingNumber string `json:"TrackingNumber,omitempty"`
	ShipDate       string `json:"ShipDate,omitempty"`
	Carrier        string `json:"Carrier,omitempty"`
}

type inventoryItemResponse struct {
	SKU               string `json:"SKU"`
	AvailableQuantity int    `json:"AvailableQuantity"`
	ReservedQuantity  int    `json:"ReservedQuantity"`
	OnHandQuantity    int    `json:"OnHandQuantity"`
}

// newCreateOrderRequest converts the domain payload to the wire shape
func newCreateOrderRequest(req *fulfillment.CreateOrderRequest) createOrderRequest {
	items := make([]orderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = orderItem{
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.InexactFloat64(),
		}
	}
	return createOrderRequest{
		CompanyID:   req.CompanyID,
		OrderNumber: req.OrderNumber,
		Customer: orderCustomer{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
		},
		ShippingAddress: orderAddress{
			Address1: req.ShippingAddress.Address1,
			Address2: req.ShippingAddress.Address2,
			City:     req.ShippingAddress.City,
			State:    req.ShippingAddress.State,
			Zip:      req.ShippingAddress.Zip,
			Country:  req.ShippingAddress.Country,
		},
		Items: items,
	}
}

// toDomain converts a status response, parsing the ship date when present
func (r *orderStatusResponse) toDomain() *fulfillment.OrderStatus {
	status := &fulfillment.OrderStatus{
		OrderNumber:    r.OrderNumber,
		Status:         fulfillment.RemoteStatus(r.Status),
		TrackingNumber: r.TrackingNumber,
		Carrier:        r.Carrier,
	}
	if r.ShipDate != "" {
		if t, err := time.Parse(time.RFC3339, r.ShipDate); err == nil {
			status.ShipDate = &t
		} else if t, err := time.Parse("2006-01-02", r.ShipDate); err == nil {
			status.ShipDate = &t
		}
	}
	return status
}

// toDomain converts an inventory response row
func (r *inventoryItemResponse) toDomain() fulfillment.InventoryItem {
	return fulfillment.InventoryItem{
		SKU:               r.SKU,
		AvailableQuantity: r.AvailableQuantity,
		ReservedQuantity:  r.ReservedQuantity,
		OnHandQuantity:    r.OnHandQuantity,
	}
}
