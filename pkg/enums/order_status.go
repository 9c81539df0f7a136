package enums

import "slices"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPendingConfirmation OrderStatus = "pending-confirmation"
	OrderStatusPending             OrderStatus = "pending"
	OrderStatusReadyForPickup      OrderStatus = "ready-for-pickup"
	OrderStatusOutForDelivery      OrderStatus = "out-for-delivery"
	OrderStatusProcessing          OrderStatus = "processing"
	OrderStatusDelivered           OrderStatus = "delivered"
	OrderStatusRejected            OrderStatus = "rejected"
	OrderStatusCancelled           OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingConfirmation,
	OrderStatusPending,
	OrderStatusReadyForPickup,
	OrderStatusOutForDelivery,
	OrderStatusProcessing,
	OrderStatusDelivered,
	OrderStatusRejected,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	return slices.Contains(validOrderStatuses, s)
}

// IsTerminal reports whether no further transition may leave the state.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusRejected, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parseEnum(validOrderStatuses, "order status", value)
}
