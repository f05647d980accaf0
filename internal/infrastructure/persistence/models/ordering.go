package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erp/fulfillment-sync/internal/domain/ordering"
)

// OrderModel is the persistence model for the local platform order
type OrderModel struct {
	ID    uuid.UUID            `gorm:"type:uuid;primary_key"`
	Code  string               `gorm:"type:varchar(64);not null;uniqueIndex"`
	State ordering.OrderState  `gorm:"type:varchar(32);not null;index"`

	CustomerFirstName string `gorm:"type:varchar(100)"`
	CustomerLastName  string `gorm:"type:varchar(100)"`
	CustomerEmail     string `gorm:"type:varchar(255)"`

	ShipLine1      string `gorm:"type:varchar(255)"`
	ShipLine2      string `gorm:"type:varchar(255)"`
	ShipCity       string `gorm:"type:varchar(100)"`
	ShipProvince   string `gorm:"type:varchar(100)"`
	ShipPostalCode string `gorm:"type:varchar(32)"`
	ShipCountry    string `gorm:"type:varchar(2)"`

	TrackingCode string     `gorm:"type:varchar(100)"`
	Carrier      string     `gorm:"type:varchar(100)"`
	ShipDate     *time.Time

	Lines []OrderLineModel `gorm:"foreignKey:OrderID;references:ID"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderLineModel is the persistence model for a single order line.
// UnitPrice is stored in minor currency units.
type OrderLineModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU       string    `gorm:"type:varchar(64);not null;index"`
	Quantity  int       `gorm:"not null"`
	UnitPrice int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *ordering.Order {
	order := &ordering.Order{
		ID:    m.ID,
		Code:  m.Code,
		State: m.State,
		Customer: ordering.Customer{
			FirstName: m.CustomerFirstName,
			LastName:  m.CustomerLastName,
			Email:     m.CustomerEmail,
		},
		ShippingAddress: ordering.ShippingAddress{
			Line1:      m.ShipLine1,
			Line2:      m.ShipLine2,
			City:       m.ShipCity,
			Province:   m.ShipProvince,
			PostalCode: m.ShipPostalCode,
			Country:    m.ShipCountry,
		},
		TrackingCode: m.TrackingCode,
		Carrier:      m.Carrier,
		ShipDate:     m.ShipDate,
		Lines:        make([]ordering.OrderLine, len(m.Lines)),
	}
	for i, line := range m.Lines {
		order.Lines[i] = ordering.OrderLine{
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}
	return order
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *ordering.Order) {
	m.ID = o.ID
	m.Code = o.Code
	m.State = o.State
	m.CustomerFirstName = o.Customer.FirstName
	m.CustomerLastName = o.Customer.LastName
	m.CustomerEmail = o.Customer.Email
	m.ShipLine1 = o.ShippingAddress.Line1
	m.ShipLine2 = o.ShippingAddress.Line2
	m.ShipCity = o.ShippingAddress.City
	m.ShipProvince = o.ShippingAddress.Province
	m.ShipPostalCode = o.ShippingAddress.PostalCode
	m.ShipCountry = o.ShippingAddress.Country
	m.TrackingCode = o.TrackingCode
	m.Carrier = o.Carrier
	m.ShipDate = o.ShipDate

	m.Lines = make([]OrderLineModel, len(o.Lines))
	for i, line := range o.Lines {
		m.Lines[i] = OrderLineModel{
			ID:        uuid.New(),
			OrderID:   o.ID,
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}
}

// VariantModel is the persistence model for a product variant
type VariantModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	SKU       string    `gorm:"type:varchar(64);not null;index"`
	Name      string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain Variant
func (m *VariantModel) ToDomain() ordering.Variant {
	return ordering.Variant{
		ID:   m.ID,
		SKU:  m.SKU,
		Name: m.Name,
	}
}

// StockLevelModel is the persistence model for stock-on-hand of a
// variant at a location
type StockLevelModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	VariantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_variant_location,priority:1"`
	LocationID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_variant_location,priority:2"`
	StockOnHand int       `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLevelModel) TableName() string {
	return "stock_levels"
}
