package ordering

import (
	"github.com/google/uuid"

	"github.com/erp/fulfillment-sync/internal/domain/shared"
)

// Event type constants
const (
	EventTypeOrderStateChanged = "ordering.order_state_changed"
)

// OrderStateChangedEvent is published by the local platform whenever an
// order transitions between lifecycle states.
type OrderStateChangedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID  `json:"order_id"`
	OrderCode string     `json:"order_code"`
	FromState OrderState `json:"from_state"`
	ToState   OrderState `json:"to_state"`
}

// NewOrderStateChangedEvent creates a new OrderStateChangedEvent
func NewOrderStateChangedEvent(orderID uuid.UUID, orderCode string, from, to OrderState) *OrderStateChangedEvent {
	return &OrderStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStateChanged, "Order", orderID),
		OrderID:         orderID,
		OrderCode:       orderCode,
		FromState:       from,
		ToState:         to,
	}
}
