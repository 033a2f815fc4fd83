package enums

import "fmt"

// OrderStatus is the canonical lifecycle state of a delivery order.
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "PLACED"
	OrderStatusVendorAccepted OrderStatus = "VENDOR_ACCEPTED"
	OrderStatusVendorRejected OrderStatus = "VENDOR_REJECTED"
	OrderStatusDriverPending  OrderStatus = "DRIVER_PENDING"
	OrderStatusDriverAccepted OrderStatus = "DRIVER_ACCEPTED"
	OrderStatusDriverRejected OrderStatus = "DRIVER_REJECTED"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusInTransit      OrderStatus = "IN_TRANSIT"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusVendorAccepted,
	OrderStatusVendorRejected,
	OrderStatusDriverPending,
	OrderStatusDriverAccepted,
	OrderStatusDriverRejected,
	OrderStatusShipped,
	OrderStatusInTransit,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusVendorRejected:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
